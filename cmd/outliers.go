package cmd

import (
	"fmt"

	"github.com/KaramelBytes/pdspeech-cli/internal/pipeline"
	"github.com/KaramelBytes/pdspeech-cli/internal/render"
	"github.com/KaramelBytes/pdspeech-cli/internal/table"
	"github.com/spf13/cobra"
)

var (
	outColumns   []string
	outThreshold float64
	outMode      string
	outOutput    string
	outSheet     string
	outDryRun    bool
)

var outliersCmd = &cobra.Command{
	Use:   "outliers <file>",
	Short: "Remove z-score outliers from feature columns of a CSV/TSV/XLSX file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		path := args[0]
		t, err := loadInput(path, outSheet)
		if err != nil {
			return err
		}
		columns := outColumns
		if len(columns) == 0 {
			cat, err := loadCatalog()
			if err != nil {
				return err
			}
			columns = cat.Schema.Features
		}
		threshold := c.ZScoreThreshold
		if cmd.Flags().Changed("threshold") {
			threshold = outThreshold
		}
		modeName := c.OutlierMode
		if cmd.Flags().Changed("mode") {
			modeName = outMode
		}
		mode, err := pipeline.ParseOutlierMode(modeName)
		if err != nil {
			return err
		}

		kept, rep, err := pipeline.FilterOutliers(t, pipeline.OutlierOptions{Columns: columns, Threshold: threshold, Mode: mode})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		rows := make([][]string, 0, len(rep.Columns))
		for _, col := range rep.Columns {
			rows = append(rows, []string{col.Column, fmt.Sprintf("%.4g", col.Mean), fmt.Sprintf("%.4g", col.Std), fmt.Sprint(col.Removed)})
		}
		right := render.AlignRight
		fmt.Fprintln(out, render.Table([]string{"column", "mean", "std", "removed"}, rows,
			[]render.Align{render.AlignLeft, right, right, right}, render.For(out)))
		for _, note := range rep.Notes() {
			fmt.Fprintf(out, "⚠ %v\n", note)
		}
		fmt.Fprintf(out, "%s mode, |z| >= %g: %d of %d rows removed\n", rep.Mode, rep.Threshold, rep.Removed(), rep.RowsIn)
		if outDryRun {
			return nil
		}

		dst := outOutput
		if dst == "" {
			dst = derivedCSV(path, "_no_outliers")
		}
		if err := table.WriteCSV(dst, kept); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Wrote %d rows: %s\n", kept.Len(), dst)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(outliersCmd)
	outliersCmd.Flags().StringSliceVar(&outColumns, "columns", nil, "columns to filter (default: the schema features)")
	outliersCmd.Flags().Float64Var(&outThreshold, "threshold", pipeline.DefaultZThreshold, "z-score threshold; rows with |z| >= threshold are removed")
	outliersCmd.Flags().StringVar(&outMode, "mode", string(pipeline.ModeSequential), "sequential|simultaneous")
	outliersCmd.Flags().StringVarP(&outOutput, "output", "o", "", "output CSV (default: <file>_no_outliers.csv)")
	outliersCmd.Flags().StringVar(&outSheet, "sheet", "", "XLSX sheet name")
	outliersCmd.Flags().BoolVar(&outDryRun, "dry-run", false, "report only, do not write")
}
