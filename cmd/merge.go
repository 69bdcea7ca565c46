package cmd

import (
	"fmt"

	"github.com/KaramelBytes/pdspeech-cli/internal/pipeline"
	"github.com/KaramelBytes/pdspeech-cli/internal/runner"
	"github.com/KaramelBytes/pdspeech-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	mergeOnly         []string
	mergeSeed         int64
	mergeBalanceTrain bool
	mergeParquet      bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge processed sources by role into train_data.csv and test_data.csv",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		opt, err := runnerOptions(cat, mergeOnly)
		if err != nil {
			return err
		}
		f := cmd.Flags()
		if f.Changed("seed") {
			opt.Seed = mergeSeed
		}
		if f.Changed("balance-train") {
			opt.BalanceTrain = mergeBalanceTrain
		}
		if f.Changed("parquet") {
			opt.Parquet = mergeParquet
		}
		lock, err := utils.AcquireRunLock(opt.DataDir)
		if err != nil {
			return err
		}
		defer lock.Release()

		res, err := runner.MergeProcessed(cmd.Context(), opt)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, role := range []pipeline.Role{pipeline.RoleTrain, pipeline.RoleTest} {
			if n := res.Split.Dropped[role]; n > 0 {
				fmt.Fprintf(out, "⚠ Dropped %d %s rows with missing values\n", n, role)
			}
		}
		for _, o := range res.Outputs {
			fmt.Fprintf(out, "✓ Wrote %s set (%d rows): %s\n", o.Role, o.Rows, o.Path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mergeCmd)
	mergeCmd.Flags().StringSliceVar(&mergeOnly, "only", nil, "limit the merge to these sources (comma-separated)")
	mergeCmd.Flags().Int64Var(&mergeSeed, "seed", 0, "random seed for class balancing")
	mergeCmd.Flags().BoolVar(&mergeBalanceTrain, "balance-train", false, "balance classes in the merged training set")
	mergeCmd.Flags().BoolVar(&mergeParquet, "parquet", false, "also write train/test sets as Parquet")
}
