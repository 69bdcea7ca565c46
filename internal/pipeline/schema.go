package pipeline

import (
	"fmt"

	"github.com/KaramelBytes/pdspeech-cli/internal/table"
)

// ColumnMapping renames a source column to its canonical name.
type ColumnMapping struct {
	From string `yaml:"from" toml:"from" json:"from" validate:"required"`
	To   string `yaml:"to" toml:"to" json:"to" validate:"required"`
}

// Unify projects t onto the mapped columns, in mapping order, under their
// canonical names. Row order and cell text are preserved.
func Unify(t *table.Table, mapping []ColumnMapping) (*table.Table, error) {
	if len(mapping) == 0 {
		return nil, fmt.Errorf("%w: empty column mapping", ErrSchemaMismatch)
	}
	idx := make([]int, len(mapping))
	cols := make([]string, len(mapping))
	seen := make(map[string]struct{}, len(mapping))
	var missing []string
	for i, m := range mapping {
		if _, dup := seen[m.To]; dup {
			return nil, fmt.Errorf("%w: canonical column %q mapped twice", ErrSchemaMismatch, m.To)
		}
		seen[m.To] = struct{}{}
		j := t.Index(m.From)
		if j < 0 {
			missing = append(missing, m.From)
		}
		idx[i] = j
		cols[i] = m.To
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s: columns not found: %q", ErrSchemaMismatch, t.Name, missing)
	}
	rows := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		out := make([]string, len(idx))
		for i, j := range idx {
			out[i] = row[j]
		}
		rows[r] = out
	}
	return &table.Table{Name: t.Name, Columns: cols, Rows: rows}, nil
}
