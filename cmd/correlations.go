package cmd

import (
	"fmt"

	"github.com/KaramelBytes/pdspeech-cli/internal/analysis"
	"github.com/KaramelBytes/pdspeech-cli/internal/render"
	"github.com/spf13/cobra"
)

var (
	corrMethod  string
	corrColumns []string
	corrTop     int
	corrSheet   string
)

var correlationsCmd = &cobra.Command{
	Use:   "correlations <file>",
	Short: "Show a correlation heatmap of the numeric columns of a dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		method, err := analysis.ParseMethod(corrMethod)
		if err != nil {
			return err
		}
		t, err := loadInput(args[0], corrSheet)
		if err != nil {
			return err
		}
		columns := corrColumns
		if len(columns) == 0 {
			// every numeric column
			for _, cs := range analysis.Analyze(t, analysis.Options{}).Cols {
				if cs.Kind == "numeric" {
					columns = append(columns, cs.Name)
				}
			}
		}
		if len(columns) < 2 {
			return fmt.Errorf("need at least two numeric columns, found %d", len(columns))
		}
		cm, err := analysis.Correlate(t, columns, method)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, render.Heatmap(cm, render.For(out)))
		if corrTop > 0 {
			fmt.Fprintf(out, "Strongest pairs (%s):\n", cm.Method)
			for _, p := range cm.TopPairs(corrTop) {
				fmt.Fprintf(out, "  %s ~ %s: %.3f\n", p.A, p.B, p.R)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(correlationsCmd)
	correlationsCmd.Flags().StringVar(&corrMethod, "method", "kendall", "kendall|pearson")
	correlationsCmd.Flags().StringSliceVar(&corrColumns, "columns", nil, "columns to correlate (default: all numeric)")
	correlationsCmd.Flags().IntVar(&corrTop, "top", 5, "list the k most correlated pairs (0 to skip)")
	correlationsCmd.Flags().StringVar(&corrSheet, "sheet", "", "XLSX sheet name")
}
