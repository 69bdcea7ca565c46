// Package table holds the in-memory tabular value passed between pipeline
// stages, plus readers and writers for the on-disk formats.
package table

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrIO marks read/write failures on a data file.
var ErrIO = errors.New("io failure")

// Table is an immutable-by-convention dataset: stages never edit a table they
// received, they build a new one. Cells keep their on-disk text.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// New builds a table, copying columns and rows so the caller keeps ownership
// of its slices.
func New(name string, columns []string, rows [][]string) *Table {
	t := &Table{Name: name, Columns: append([]string(nil), columns...)}
	t.Rows = make([][]string, len(rows))
	for i, r := range rows {
		t.Rows[i] = copyRow(r, len(columns))
	}
	return t
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Index returns the position of the named column or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Has reports whether the named column exists.
func (t *Table) Has(name string) bool { return t.Index(name) >= 0 }

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	return New(t.Name, t.Columns, t.Rows)
}

// Select returns a new table holding the rows at idx, in idx order.
func (t *Table) Select(idx []int) *Table {
	out := &Table{Name: t.Name, Columns: append([]string(nil), t.Columns...)}
	out.Rows = make([][]string, 0, len(idx))
	for _, i := range idx {
		out.Rows = append(out.Rows, copyRow(t.Rows[i], len(t.Columns)))
	}
	return out
}

// Floats parses the named column as numbers. Missing or non-numeric cells
// yield an error naming the first offending row (1-based, header excluded).
func (t *Table) Floats(name string) ([]float64, error) {
	j := t.Index(name)
	if j < 0 {
		return nil, fmt.Errorf("column %q not found", name)
	}
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		v, ok := ParseFloat(r[j])
		if !ok {
			return nil, fmt.Errorf("column %q row %d: not a number: %q", name, i+1, r[j])
		}
		out[i] = v
	}
	return out, nil
}

// HasMissing reports whether any cell of row i is missing.
func (t *Table) HasMissing(i int) bool {
	for _, c := range t.Rows[i] {
		if IsMissing(c) {
			return true
		}
	}
	return false
}

var missingTokens = map[string]struct{}{
	"": {}, "na": {}, "n/a": {}, "nan": {}, "-nan": {}, "null": {}, "none": {}, "#n/a": {}, "<na>": {},
}

// IsMissing reports whether a cell holds no value. The token list follows the
// usual CSV conventions for absent values.
func IsMissing(s string) bool {
	_, ok := missingTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// ParseFloat parses a finite number; missing tokens, NaN and Inf are rejected.
func ParseFloat(s string) (float64, bool) {
	if IsMissing(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// FormatFloat renders a number the way the CSV writers emit it.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// copyRow copies r into a row of exactly width cells, padding short rows.
func copyRow(r []string, width int) []string {
	out := make([]string, width)
	copy(out, r)
	return out
}
