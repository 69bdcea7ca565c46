package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/pdspeech-cli/internal/table"
	"github.com/KaramelBytes/pdspeech-cli/internal/utils"
)

// SourceSpec is the declarative description of one published dataset.
type SourceSpec struct {
	Name          string          `yaml:"name" toml:"name" json:"name" validate:"required"`
	Description   string          `yaml:"description,omitempty" toml:"description,omitempty" json:"description,omitempty"`
	Path          string          `yaml:"path" toml:"path" json:"path" validate:"required"`
	Sheet         string          `yaml:"sheet,omitempty" toml:"sheet,omitempty" json:"sheet,omitempty"`
	Role          Role            `yaml:"role" toml:"role" json:"role" validate:"required,oneof=train test"`
	Columns       []ColumnMapping `yaml:"columns" toml:"columns" json:"columns" validate:"required,min=1,dive"`
	TargetAliases []string        `yaml:"target_aliases,omitempty" toml:"target_aliases,omitempty" json:"target_aliases,omitempty"`
	DefaultLabel  *int            `yaml:"default_label,omitempty" toml:"default_label,omitempty" json:"default_label,omitempty" validate:"omitempty,oneof=0 1"`
	Outliers      bool            `yaml:"outliers,omitempty" toml:"outliers,omitempty" json:"outliers,omitempty"`
	Balance       bool            `yaml:"balance,omitempty" toml:"balance,omitempty" json:"balance,omitempty"`
}

// ProcessedPath is where the harmonized copy of src is written. Processed
// files are always CSV, next to the raw file.
func ProcessedPath(dataDir string, src SourceSpec, suffix string) string {
	p := src.Path
	p = strings.TrimSuffix(p, filepath.Ext(p)) + ".csv"
	return filepath.Join(dataDir, utils.WithSuffix(p, suffix))
}

// Harmonize applies the target normalizer then the schema unifier so the
// result carries exactly the canonical columns in canonical order.
func Harmonize(t *table.Table, src SourceSpec, schema Schema) (*table.Table, error) {
	aliases := src.TargetAliases
	if aliases == nil {
		aliases = DefaultTargetAliases
	}
	labelled, err := NormalizeTarget(t, TargetSpec{Name: schema.Target, Aliases: aliases, DefaultLabel: src.DefaultLabel})
	if err != nil {
		return nil, err
	}

	byTarget := make(map[string]string, len(src.Columns))
	for _, m := range src.Columns {
		byTarget[m.To] = m.From
	}
	byTarget[schema.Target] = schema.Target
	mapping := make([]ColumnMapping, 0, len(schema.Features)+2)
	for _, c := range schema.Columns() {
		from, ok := byTarget[c]
		if !ok {
			return nil, fmt.Errorf("%w: %s: no mapping for canonical column %q", ErrSchemaMismatch, src.Name, c)
		}
		mapping = append(mapping, ColumnMapping{From: from, To: c})
	}
	return Unify(labelled, mapping)
}

// PrepareResult describes one prepared source.
type PrepareResult struct {
	Source       string
	Role         Role
	Input        string
	Output       string
	RowsRaw      int
	RowsPrepared int
	Table        *table.Table
}

// PrepareSource reads src from dataDir, harmonizes it and writes the
// processed CSV. Errors carry the source name and stage.
func PrepareSource(dataDir string, src SourceSpec, schema Schema, suffix string) (*PrepareResult, error) {
	in := filepath.Join(dataDir, src.Path)
	var (
		raw *table.Table
		err error
	)
	if src.Sheet != "" {
		raw, err = table.ReadXLSX(in, src.Sheet)
	} else {
		raw, err = table.Load(in)
	}
	if err != nil {
		return nil, stageErr(src.Name, "read", err)
	}
	h, err := Harmonize(raw, src, schema)
	if err != nil {
		return nil, stageErr(src.Name, "harmonize", err)
	}
	h.Name = src.Name
	out := ProcessedPath(dataDir, src, suffix)
	if err := table.WriteCSV(out, h); err != nil {
		return nil, stageErr(src.Name, "write", err)
	}
	return &PrepareResult{
		Source:       src.Name,
		Role:         src.Role,
		Input:        in,
		Output:       out,
		RowsRaw:      raw.Len(),
		RowsPrepared: h.Len(),
		Table:        h,
	}, nil
}

// CleanOptions configures the optional per-source cleaning stage.
type CleanOptions struct {
	Outliers  bool
	Threshold float64
	Mode      OutlierMode
	Balance   bool
	Seed      int64
}

// Clean drops rows with missing cells, then optionally filters feature
// outliers and balances the label.
func Clean(t *table.Table, schema Schema, opt CleanOptions) (*table.Table, *OutlierReport, error) {
	out := DropMissing(t)
	var rep *OutlierReport
	if opt.Outliers {
		var err error
		out, rep, err = FilterOutliers(out, OutlierOptions{Columns: schema.Features, Threshold: opt.Threshold, Mode: opt.Mode})
		if err != nil {
			return nil, nil, stageErr(t.Name, "outliers", err)
		}
	}
	if opt.Balance {
		b, err := Balance(out, schema.Target, opt.Seed)
		if err != nil {
			return nil, rep, stageErr(t.Name, "balance", err)
		}
		out = b
	}
	return out, rep, nil
}
