package pipeline

import (
	"fmt"
	"slices"

	"github.com/KaramelBytes/pdspeech-cli/internal/table"
)

// Role assigns a source to one side of the split.
type Role string

const (
	RoleTrain Role = "train"
	RoleTest  Role = "test"
)

// Part is one harmonized source table with its role.
type Part struct {
	Source string
	Role   Role
	Table  *table.Table
}

// Partitioned is the merged result.
type Partitioned struct {
	Train *table.Table
	Test  *table.Table
	// Dropped counts rows removed for missing cells, per role.
	Dropped map[Role]int
}

// Merge concatenates train parts and test parts in the given order and drops
// rows holding a missing cell. Parts must share one header.
func Merge(parts []Part) (*Partitioned, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: no parts to merge", ErrSchemaMismatch)
	}
	header := parts[0].Table.Columns
	seen := map[string]Role{}
	for _, p := range parts {
		if p.Role != RoleTrain && p.Role != RoleTest {
			return nil, fmt.Errorf("source %s: unknown role %q", p.Source, p.Role)
		}
		if r, ok := seen[p.Source]; ok && r != p.Role {
			return nil, fmt.Errorf("source %s: assigned to both %s and %s", p.Source, r, p.Role)
		}
		seen[p.Source] = p.Role
		if !slices.Equal(p.Table.Columns, header) {
			return nil, fmt.Errorf("%w: source %s has columns %q, want %q", ErrSchemaMismatch, p.Source, p.Table.Columns, header)
		}
	}

	out := &Partitioned{
		Train:   &table.Table{Name: "train_data", Columns: slices.Clone(header)},
		Test:    &table.Table{Name: "test_data", Columns: slices.Clone(header)},
		Dropped: map[Role]int{},
	}
	for _, p := range parts {
		dst := out.Train
		if p.Role == RoleTest {
			dst = out.Test
		}
		for i, r := range p.Table.Rows {
			if p.Table.HasMissing(i) {
				out.Dropped[p.Role]++
				continue
			}
			dst.Rows = append(dst.Rows, slices.Clone(r))
		}
	}
	return out, nil
}

// DropMissing returns t without the rows that hold a missing cell.
func DropMissing(t *table.Table) *table.Table {
	idx := make([]int, 0, t.Len())
	for i := range t.Rows {
		if !t.HasMissing(i) {
			idx = append(idx, i)
		}
	}
	return t.Select(idx)
}
