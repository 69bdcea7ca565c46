package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/pdspeech-cli/internal/pipeline"
	"github.com/KaramelBytes/pdspeech-cli/internal/render"
	"github.com/KaramelBytes/pdspeech-cli/internal/runner"
	"github.com/KaramelBytes/pdspeech-cli/internal/sources"
	"github.com/KaramelBytes/pdspeech-cli/internal/table"
	"github.com/KaramelBytes/pdspeech-cli/internal/utils"
)

// loadCatalog reads the configured sources file, or the built-in catalog.
func loadCatalog() (*sources.Catalog, error) {
	c, err := requireConfig()
	if err != nil {
		return nil, err
	}
	path := c.SourcesFile
	if path != "" {
		if path, err = utils.ExpandHome(path); err != nil {
			return nil, err
		}
	}
	return sources.Load(path)
}

// runnerOptions builds pipeline options from config and the catalog.
func runnerOptions(cat *sources.Catalog, names []string) (runner.Options, error) {
	c, err := requireConfig()
	if err != nil {
		return runner.Options{}, err
	}
	mode, err := pipeline.ParseOutlierMode(c.OutlierMode)
	if err != nil {
		return runner.Options{}, err
	}
	return runner.Options{
		DataDir:         c.DataDir,
		OutputDir:       c.OutputDir,
		ProcessedSuffix: c.ProcessedSuffix,
		SourcesFile:     c.SourcesFile,
		Catalog:         cat,
		Sources:         names,
		Threshold:       c.ZScoreThreshold,
		Mode:            mode,
		Seed:            c.RandomState,
		BalanceTrain:    c.BalanceTrain,
		Parquet:         c.WriteParquet,
		Logger:          logger,
	}, nil
}

// expandInputs resolves globs, keeps literal paths that exist and removes duplicates.
func expandInputs(args []string) ([]string, error) {
	var files []string
	seen := map[string]struct{}{}
	for _, arg := range args {
		matches, _ := filepath.Glob(arg)
		if len(matches) == 0 {
			if _, err := os.Stat(arg); err == nil {
				matches = []string{arg}
			}
		}
		for _, m := range matches {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files matched")
	}
	sort.Strings(files)
	return files, nil
}

// loadInput reads a CSV/TSV/XLSX file; sheet selects an XLSX worksheet.
func loadInput(path, sheet string) (*table.Table, error) {
	if sheet != "" {
		return table.ReadXLSX(path, sheet)
	}
	return table.Load(path)
}

// printClassCounts renders label counts for a table.
func printClassCounts(w io.Writer, t *table.Table, label string) error {
	counts, err := pipeline.ClassCounts(t, label)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{table.FormatFloat(c.Label), fmt.Sprint(c.Count)})
	}
	fmt.Fprintln(w, render.Table([]string{label, "rows"}, rows, []render.Align{render.AlignLeft, render.AlignRight}, render.For(w)))
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// derivedCSV names a CSV written next to path, e.g. a.xlsx -> a_balanced.csv.
func derivedCSV(path, suffix string) string {
	base := strings.TrimSuffix(path, filepath.Ext(path)) + ".csv"
	return utils.WithSuffix(base, suffix)
}
