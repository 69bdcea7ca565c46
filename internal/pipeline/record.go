package pipeline

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/KaramelBytes/pdspeech-cli/internal/table"
)

// Schema is the canonical column layout: an identifier, the acoustic
// features and the label.
type Schema struct {
	ID       string   `yaml:"id" toml:"id" json:"id" validate:"required"`
	Features []string `yaml:"features" toml:"features" json:"features" validate:"required,min=1,dive,required"`
	Target   string   `yaml:"target" toml:"target" json:"target" validate:"required"`
}

// DefaultSchema lists the jitter and shimmer measures shared by every study.
func DefaultSchema() Schema {
	return Schema{
		ID:       "subject_id",
		Features: []string{"jitter_percent", "jitter_abs", "rap", "ppq", "apq_3", "apq_5", "apq_11"},
		Target:   DefaultTarget,
	}
}

// Columns returns the full header in canonical order.
func (s Schema) Columns() []string {
	out := make([]string, 0, len(s.Features)+2)
	out = append(out, s.ID)
	out = append(out, s.Features...)
	return append(out, s.Target)
}

// HarmonizedRecord is one row of a harmonized table.
type HarmonizedRecord struct {
	SubjectID string
	Features  []float64
	Status    int
}

// Records converts a harmonized table, checking the header, that every
// feature is a finite non-negative number and that the label is 0 or 1.
func Records(t *table.Table, s Schema) ([]HarmonizedRecord, error) {
	if !slices.Equal(t.Columns, s.Columns()) {
		return nil, fmt.Errorf("%w: %s has columns %q, want %q", ErrSchemaMismatch, t.Name, t.Columns, s.Columns())
	}
	nf := len(s.Features)
	out := make([]HarmonizedRecord, len(t.Rows))
	for i, r := range t.Rows {
		rec := HarmonizedRecord{SubjectID: r[0], Features: make([]float64, nf)}
		for k := 0; k < nf; k++ {
			v, ok := table.ParseFloat(r[k+1])
			if !ok || v < 0 {
				return nil, fmt.Errorf("%w: %s row %d: %s=%q", ErrInvalidValue, t.Name, i+1, s.Features[k], r[k+1])
			}
			rec.Features[k] = v
		}
		lbl, ok := table.ParseFloat(r[nf+1])
		if !ok || (lbl != 0 && lbl != 1) {
			return nil, fmt.Errorf("%w: %s row %d: %s=%q, want 0 or 1", ErrInvalidValue, t.Name, i+1, s.Target, r[nf+1])
		}
		rec.Status = int(lbl)
		out[i] = rec
	}
	return out, nil
}

// RecordsTable renders records back into a harmonized table.
func RecordsTable(name string, s Schema, recs []HarmonizedRecord) *table.Table {
	t := &table.Table{Name: name, Columns: s.Columns(), Rows: make([][]string, len(recs))}
	for i, rec := range recs {
		row := make([]string, 0, len(s.Features)+2)
		row = append(row, rec.SubjectID)
		for _, f := range rec.Features {
			row = append(row, table.FormatFloat(f))
		}
		row = append(row, strconv.Itoa(rec.Status))
		t.Rows[i] = row
	}
	return t
}
