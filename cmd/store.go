package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/KaramelBytes/pdspeech-cli/internal/pipeline"
	"github.com/KaramelBytes/pdspeech-cli/internal/runner"
	"github.com/KaramelBytes/pdspeech-cli/internal/store"
	"github.com/KaramelBytes/pdspeech-cli/internal/table"
	"github.com/spf13/cobra"
)

var (
	storeTable  string
	storeOutput string
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Keep harmonized datasets in SQLite or PostgreSQL",
}

func openStore(cmd *cobra.Command) (*store.Store, pipeline.Schema, error) {
	c, err := requireConfig()
	if err != nil {
		return nil, pipeline.Schema{}, err
	}
	cat, err := loadCatalog()
	if err != nil {
		return nil, pipeline.Schema{}, err
	}
	s, err := store.Open(cmd.Context(), store.Options{
		Driver:      c.StoreDriver,
		DSN:         c.StoreDSN,
		Schema:      cat.Schema,
		TablePrefix: c.StoreTablePrefix,
	})
	return s, cat.Schema, err
}

var storeInitCmd = &cobra.Command{
	Use:   "init [table...]",
	Short: "Create dataset tables (default: train_data and test_data)",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		names := args
		if len(names) == 0 {
			names = []string{store.TableNameFor(runner.TrainFile), store.TableNameFor(runner.TestFile)}
		}
		for _, n := range names {
			if err := s.CreateTable(cmd.Context(), n); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Table %s ready (%s)\n", n, s.Driver())
		}
		return nil
	},
}

var storeLoadCmd = &cobra.Command{
	Use:   "load [csv...]",
	Short: "Insert harmonized CSVs, one table per file (default: the train/test sets)",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		files := args
		if len(files) == 0 {
			files = []string{filepath.Join(c.OutputPath(), runner.TrainFile), filepath.Join(c.OutputPath(), runner.TestFile)}
		} else if files, err = expandInputs(args); err != nil {
			return err
		}
		if storeTable != "" && len(files) > 1 {
			return fmt.Errorf("--table needs exactly one input file")
		}
		s, _, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		for _, f := range files {
			name := storeTable
			if name == "" {
				name = store.TableNameFor(f)
			}
			n, err := s.LoadCSV(cmd.Context(), name, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Loaded %d rows from %s into %s\n", n, filepath.Base(f), name)
		}
		return nil
	},
}

var storeDumpCmd = &cobra.Command{
	Use:   "dump <table>",
	Short: "Export a stored dataset as CSV in insertion order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, schema, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		recs, err := s.ReadAll(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		t := pipeline.RecordsTable(args[0], schema, recs)
		if storeOutput != "" {
			if err := table.WriteCSV(storeOutput, t); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d rows: %s\n", t.Len(), storeOutput)
			return nil
		}
		data, err := table.EncodeCSV(t)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeInitCmd)
	storeCmd.AddCommand(storeLoadCmd)
	storeCmd.AddCommand(storeDumpCmd)
	storeLoadCmd.Flags().StringVar(&storeTable, "table", "", "table name (default: derived from the file name)")
	storeDumpCmd.Flags().StringVarP(&storeOutput, "output", "o", "", "write CSV here instead of stdout")
}
