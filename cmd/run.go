package cmd

import (
	"fmt"

	"github.com/KaramelBytes/pdspeech-cli/internal/pipeline"
	"github.com/KaramelBytes/pdspeech-cli/internal/render"
	"github.com/KaramelBytes/pdspeech-cli/internal/runner"
	"github.com/spf13/cobra"
)

var (
	runOnly         []string
	runThreshold    float64
	runMode         string
	runSeed         int64
	runBalanceTrain bool
	runParquet      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Prepare every source, clean, merge and write the train/test sets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		opt, err := runnerOptions(cat, runOnly)
		if err != nil {
			return err
		}
		f := cmd.Flags()
		if f.Changed("threshold") {
			opt.Threshold = runThreshold
		}
		if f.Changed("mode") {
			if opt.Mode, err = pipeline.ParseOutlierMode(runMode); err != nil {
				return err
			}
		}
		if f.Changed("seed") {
			opt.Seed = runSeed
		}
		if f.Changed("balance-train") {
			opt.BalanceTrain = runBalanceTrain
		}
		if f.Changed("parquet") {
			opt.Parquet = runParquet
		}

		res, err := runner.Run(cmd.Context(), opt)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		rows := make([][]string, 0, len(res.Manifest.Sources))
		for _, s := range res.Manifest.Sources {
			removed := "-"
			if rep, ok := res.Reports[s.Name]; ok {
				removed = fmt.Sprint(rep.Removed())
			}
			rows = append(rows, []string{s.Name, s.Role, fmt.Sprint(s.RowsRaw), fmt.Sprint(s.RowsPrepared), removed, fmt.Sprint(s.RowsCleaned)})
		}
		right := render.AlignRight
		fmt.Fprintln(out, render.Table([]string{"source", "role", "raw", "prepared", "outliers", "kept"}, rows,
			[]render.Align{render.AlignLeft, render.AlignLeft, right, right, right, right}, render.For(out)))
		for _, o := range res.Outputs {
			fmt.Fprintf(out, "✓ Wrote %s set (%d rows): %s\n", o.Role, o.Rows, o.Path)
		}
		fmt.Fprintf(out, "✓ Run %s recorded in %s\n", res.Manifest.ID, res.Manifest.Path())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringSliceVar(&runOnly, "only", nil, "limit the run to these sources (comma-separated)")
	runCmd.Flags().Float64Var(&runThreshold, "threshold", pipeline.DefaultZThreshold, "z-score threshold for per-source outlier filtering")
	runCmd.Flags().StringVar(&runMode, "mode", string(pipeline.ModeSequential), "outlier mode: sequential|simultaneous")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "random seed for class balancing")
	runCmd.Flags().BoolVar(&runBalanceTrain, "balance-train", false, "balance classes in the merged training set")
	runCmd.Flags().BoolVar(&runParquet, "parquet", false, "also write train/test sets as Parquet")
}
