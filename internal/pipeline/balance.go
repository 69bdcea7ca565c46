package pipeline

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/KaramelBytes/pdspeech-cli/internal/table"
)

// ClassCount is the number of rows carrying one label value.
type ClassCount struct {
	Label float64
	Count int
	rows  []int
}

// ClassCounts groups rows by the numeric value of the label column, sorted by
// label. Labels "1" and "1.0" fall in the same class.
func ClassCounts(t *table.Table, label string) ([]ClassCount, error) {
	j := t.Index(label)
	if j < 0 {
		return nil, fmt.Errorf("%w: %s: label column %q not found", ErrSchemaMismatch, t.Name, label)
	}
	byLabel := map[float64]*ClassCount{}
	for i, r := range t.Rows {
		v, ok := table.ParseFloat(r[j])
		if !ok {
			return nil, fmt.Errorf("%w: %s: row %d: label %q is not a number", ErrInvalidValue, t.Name, i+1, r[j])
		}
		c := byLabel[v]
		if c == nil {
			c = &ClassCount{Label: v}
			byLabel[v] = c
		}
		c.Count++
		c.rows = append(c.rows, i)
	}
	out := make([]ClassCount, 0, len(byLabel))
	for _, c := range byLabel {
		out = append(out, *c)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Label < out[b].Label })
	return out, nil
}

// Balance equalizes a binary label by down-sampling the majority class. The
// result holds every minority row in input order followed by as many majority
// rows drawn without replacement from a generator seeded with seed. On a tie
// the smaller label value is treated as the minority.
func Balance(t *table.Table, label string, seed int64) (*table.Table, error) {
	counts, err := ClassCounts(t, label)
	if err != nil {
		return nil, err
	}
	if len(counts) != 2 {
		return nil, fmt.Errorf("%w: %s: %d distinct values in %q, want 2", ErrUnsupportedClassCardinality, t.Name, len(counts), label)
	}
	minority, majority := counts[0], counts[1]
	if majority.Count < minority.Count {
		minority, majority = majority, minority
	}

	rng := rand.New(rand.NewSource(seed))
	pick := rng.Perm(len(majority.rows))[:minority.Count]

	idx := make([]int, 0, 2*minority.Count)
	idx = append(idx, minority.rows...)
	for _, p := range pick {
		idx = append(idx, majority.rows[p])
	}
	return t.Select(idx), nil
}
