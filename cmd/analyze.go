package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/pdspeech-cli/internal/analysis"
	"github.com/KaramelBytes/pdspeech-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	anaOutputDir  string
	anaSampleRows int
	anaTarget     string
	anaCorr       bool
	anaMethod     string
	anaOutliers   bool
	anaOutlierThr float64
	anaSheet      string
	anaQuiet      bool
)

type analysisInput struct {
	name  string
	path  string
	sheet string
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [files...]",
	Short: "Summarize datasets: schema, statistics, missing values, class balance",
	Long: `Analyze CSV/TSV/XLSX files and print a Markdown summary per file.
Without arguments every raw source in the catalog is analyzed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		var inputs []analysisInput
		if len(args) == 0 {
			cat, err := loadCatalog()
			if err != nil {
				return err
			}
			for _, s := range cat.Sources {
				inputs = append(inputs, analysisInput{name: s.Name, path: filepath.Join(c.DataDir, s.Path), sheet: s.Sheet})
			}
		} else {
			files, err := expandInputs(args)
			if err != nil {
				return err
			}
			for _, f := range files {
				inputs = append(inputs, analysisInput{name: filepath.Base(f), path: f, sheet: anaSheet})
			}
		}

		opt := analysis.DefaultOptions()
		opt.SampleRows = anaSampleRows
		opt.Target = c.TargetColumn
		if anaTarget != "" {
			opt.Target = anaTarget
		}
		if anaCorr {
			if opt.Correlation, err = analysis.ParseMethod(anaMethod); err != nil {
				return err
			}
		}
		opt.Outliers = anaOutliers
		if anaOutlierThr > 0 {
			opt.OutlierThreshold = anaOutlierThr
		}

		out := cmd.OutOrStdout()
		total := len(inputs)
		for i, in := range inputs {
			if !anaQuiet && anaOutputDir != "" {
				fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i+1, total, in.name)
			}
			t, err := loadInput(in.path, in.sheet)
			if err != nil {
				return err
			}
			t.Name = in.name
			md := analysis.Analyze(t, opt).Markdown()

			if anaOutputDir == "" {
				fmt.Fprintln(out, md)
				continue
			}
			if err := os.MkdirAll(anaOutputDir, 0o755); err != nil {
				return err
			}
			base := strings.TrimSuffix(filepath.Base(in.path), filepath.Ext(in.path))
			outFile := filepath.Join(anaOutputDir, base+".summary.md")
			if err := utils.SafeWriteFile(outFile, []byte(md)); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
			if !anaQuiet {
				fmt.Fprintf(out, "✓ Wrote analysis to %s\n", outFile)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputDir, "output-dir", "o", "", "write <name>.summary.md files here instead of printing")
	analyzeCmd.Flags().IntVar(&anaSampleRows, "sample-rows", 5, "number of head rows to include")
	analyzeCmd.Flags().StringVar(&anaTarget, "target", "", "label column for class counts (default: target_column from config)")
	analyzeCmd.Flags().BoolVar(&anaCorr, "correlations", false, "include a correlation matrix of numeric columns")
	analyzeCmd.Flags().StringVar(&anaMethod, "method", "kendall", "correlation method: kendall|pearson")
	analyzeCmd.Flags().BoolVar(&anaOutliers, "outliers", true, "compute robust outlier counts (MAD)")
	analyzeCmd.Flags().Float64Var(&anaOutlierThr, "outlier-threshold", 3.5, "robust |z| threshold for outliers (MAD-based)")
	analyzeCmd.Flags().StringVar(&anaSheet, "sheet", "", "XLSX: sheet name to analyze")
	analyzeCmd.Flags().BoolVar(&anaQuiet, "quiet", false, "suppress progress lines")
}
