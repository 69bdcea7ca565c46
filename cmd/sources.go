package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/pdspeech-cli/internal/render"
	"github.com/KaramelBytes/pdspeech-cli/internal/sources"
	"github.com/spf13/cobra"
)

var srcDefaultYAML bool

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the configured data sources",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if srcDefaultYAML {
			_, err := out.Write(sources.DefaultYAML())
			return err
		}
		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Schema: %s\n", strings.Join(cat.Schema.Columns(), ", "))
		rows := make([][]string, 0, len(cat.Sources))
		for _, s := range cat.Sources {
			label := "from file"
			if s.DefaultLabel != nil {
				label = fmt.Sprintf("default %d", *s.DefaultLabel)
			}
			var clean []string
			if s.Outliers {
				clean = append(clean, "outliers")
			}
			if s.Balance {
				clean = append(clean, "balance")
			}
			rows = append(rows, []string{s.Name, string(s.Role), s.Path, label, strings.Join(clean, "+")})
		}
		fmt.Fprintln(out, render.Table([]string{"name", "role", "path", "label", "cleaning"}, rows, nil, render.For(out)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
	sourcesCmd.Flags().BoolVar(&srcDefaultYAML, "default-yaml", false, "print the built-in catalog as YAML, e.g. to start a custom sources file")
}
