package cmd

import (
	"fmt"

	"github.com/KaramelBytes/pdspeech-cli/internal/render"
	"github.com/KaramelBytes/pdspeech-cli/internal/runner"
	"github.com/KaramelBytes/pdspeech-cli/internal/utils"
	"github.com/spf13/cobra"
)

var prepareCmd = &cobra.Command{
	Use:   "prepare [source...]",
	Short: "Harmonize sources onto the canonical schema and write processed CSVs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		opt, err := runnerOptions(cat, args)
		if err != nil {
			return err
		}
		lock, err := utils.AcquireRunLock(opt.DataDir)
		if err != nil {
			return err
		}
		defer lock.Release()

		prepared, err := runner.Prepare(cmd.Context(), opt)
		out := cmd.OutOrStdout()
		for _, p := range prepared {
			fmt.Fprintf(out, "✓ %s: %d rows -> %s\n", p.Source, p.RowsPrepared, p.Output)
		}
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(prepared))
		for _, p := range prepared {
			rows = append(rows, []string{p.Source, string(p.Role), fmt.Sprint(p.RowsRaw), fmt.Sprint(p.RowsPrepared)})
		}
		fmt.Fprintln(out, render.Table([]string{"source", "role", "raw", "prepared"}, rows,
			[]render.Align{render.AlignLeft, render.AlignLeft, render.AlignRight, render.AlignRight}, render.For(out)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(prepareCmd)
}
