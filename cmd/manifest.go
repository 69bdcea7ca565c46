package cmd

import (
	"fmt"
	"time"

	"github.com/KaramelBytes/pdspeech-cli/internal/render"
	"github.com/KaramelBytes/pdspeech-cli/internal/runlog"
	"github.com/KaramelBytes/pdspeech-cli/internal/utils"
	"github.com/spf13/cobra"
)

var manifestJSON bool

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Show what the last run read, dropped and wrote",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		m, err := runlog.Load(c.OutputPath())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if manifestJSON {
			b, err := utils.PrettyJSON(m)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}

		fmt.Fprintf(out, "Run: %s\n", m.ID)
		fmt.Fprintf(out, "Started: %s\n", m.StartedAt.Format("2006-01-02 15:04:05 MST"))
		if !m.FinishedAt.IsZero() {
			fmt.Fprintf(out, "Took: %s\n", m.FinishedAt.Sub(m.StartedAt).Round(time.Millisecond))
		}
		s := m.Settings
		fmt.Fprintf(out, "Settings: z >= %g (%s), random_state %d, balance_train %t\n", s.ZScoreThreshold, s.OutlierMode, s.RandomState, s.BalanceTrain)
		if m.Error != "" {
			fmt.Fprintf(out, "⚠ Failed: %s\n", m.Error)
		}

		rows := make([][]string, 0, len(m.Sources))
		for _, src := range m.Sources {
			removed := 0
			for _, o := range src.Outliers {
				removed += o.Removed
			}
			rows = append(rows, []string{src.Name, src.Role, fmt.Sprint(src.RowsRaw), fmt.Sprint(src.RowsPrepared), fmt.Sprint(removed), fmt.Sprint(src.RowsCleaned)})
		}
		right := render.AlignRight
		fmt.Fprintln(out, render.Table([]string{"source", "role", "raw", "prepared", "outliers", "kept"}, rows,
			[]render.Align{render.AlignLeft, render.AlignLeft, right, right, right, right}, render.For(out)))
		for _, o := range m.Outputs {
			fmt.Fprintf(out, "  %s: %s (%d rows)\n", o.Role, o.Path, o.Rows)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(manifestCmd)
	manifestCmd.Flags().BoolVar(&manifestJSON, "json", false, "print the raw run.json")
}
