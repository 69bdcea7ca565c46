package pipeline

import (
	"fmt"
	"strconv"

	"github.com/KaramelBytes/pdspeech-cli/internal/table"
)

// DefaultTarget is the canonical label column name.
const DefaultTarget = "status"

// DefaultTargetAliases are the label spellings found in the published datasets.
var DefaultTargetAliases = []string{"class", "Status"}

// TargetSpec describes how a source names its label.
type TargetSpec struct {
	Name         string
	Aliases      []string
	DefaultLabel *int
}

func (s TargetSpec) withDefaults() TargetSpec {
	if s.Name == "" {
		s.Name = DefaultTarget
	}
	if s.Aliases == nil {
		s.Aliases = DefaultTargetAliases
	}
	return s
}

// NormalizeTarget guarantees the result carries exactly one label column named
// spec.Name. A single alias is renamed; a source without any label gets a
// constant column filled with spec.DefaultLabel.
func NormalizeTarget(t *table.Table, spec TargetSpec) (*table.Table, error) {
	spec = spec.withDefaults()

	var found []string
	if t.Has(spec.Name) {
		found = append(found, spec.Name)
	}
	for _, a := range spec.Aliases {
		if a != spec.Name && t.Has(a) {
			found = append(found, a)
		}
	}

	switch len(found) {
	case 0:
		if spec.DefaultLabel == nil {
			return nil, fmt.Errorf("%w: %s: no label column among %q and no default label", ErrSchemaMismatch, t.Name, append([]string{spec.Name}, spec.Aliases...))
		}
		out := &table.Table{Name: t.Name, Columns: append(append([]string(nil), t.Columns...), spec.Name)}
		label := strconv.Itoa(*spec.DefaultLabel)
		out.Rows = make([][]string, len(t.Rows))
		for i, r := range t.Rows {
			row := make([]string, len(t.Columns)+1)
			copy(row, r)
			row[len(t.Columns)] = label
			out.Rows[i] = row
		}
		return out, nil
	case 1:
		out := t.Clone()
		out.Columns[out.Index(found[0])] = spec.Name
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s: found %q", ErrAmbiguousTargetColumn, t.Name, found)
	}
}

// IntPtr is a convenience for building a TargetSpec.
func IntPtr(v int) *int { return &v }
