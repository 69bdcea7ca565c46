package cmd

import (
	"fmt"

	"github.com/KaramelBytes/pdspeech-cli/internal/pipeline"
	"github.com/KaramelBytes/pdspeech-cli/internal/table"
	"github.com/spf13/cobra"
)

var (
	balLabel  string
	balSeed   int64
	balOutput string
	balSheet  string
)

var balanceCmd = &cobra.Command{
	Use:   "balance <file>",
	Short: "Undersample the majority class so both labels have the same count",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		path := args[0]
		t, err := loadInput(path, balSheet)
		if err != nil {
			return err
		}
		label := c.TargetColumn
		if balLabel != "" {
			label = balLabel
		}
		seed := c.RandomState
		if cmd.Flags().Changed("seed") {
			seed = balSeed
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Before:")
		if err := printClassCounts(out, t, label); err != nil {
			return err
		}
		b, err := pipeline.Balance(t, label, seed)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "After:")
		if err := printClassCounts(out, b, label); err != nil {
			return err
		}

		dst := balOutput
		if dst == "" {
			dst = derivedCSV(path, "_balanced")
		}
		if err := table.WriteCSV(dst, b); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Wrote %d rows: %s\n", b.Len(), dst)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringVar(&balLabel, "label", "", "label column (default: target_column from config)")
	balanceCmd.Flags().Int64Var(&balSeed, "seed", 0, "random seed (default: random_state from config)")
	balanceCmd.Flags().StringVarP(&balOutput, "output", "o", "", "output CSV (default: <file>_balanced.csv)")
	balanceCmd.Flags().StringVar(&balSheet, "sheet", "", "XLSX sheet name")
}
