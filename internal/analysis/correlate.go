package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/pdspeech-cli/internal/table"
)

// Method selects the correlation coefficient.
type Method string

const (
	Kendall Method = "kendall"
	Pearson Method = "pearson"
)

// ParseMethod accepts kendall or pearson, defaulting to kendall.
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case "", Kendall:
		return Kendall, nil
	case Pearson:
		return Pearson, nil
	default:
		return "", fmt.Errorf("unknown correlation method %q (want kendall|pearson)", s)
	}
}

// CorrMatrix holds a symmetric correlation matrix across numeric columns.
type CorrMatrix struct {
	Method  Method
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A, B string
	R    float64
}

// Correlate computes pairwise correlations. Each pair uses only the rows
// where both cells are numbers; pairs with fewer than two such rows are NaN.
func Correlate(t *table.Table, columns []string, method Method) (*CorrMatrix, error) {
	if method == "" {
		method = Kendall
	}
	if method != Kendall && method != Pearson {
		return nil, fmt.Errorf("unknown correlation method %q", method)
	}
	idx := make([]int, len(columns))
	for i, c := range columns {
		idx[i] = t.Index(c)
		if idx[i] < 0 {
			return nil, fmt.Errorf("column %q not found", c)
		}
	}
	n := len(columns)
	cm := &CorrMatrix{Method: method, Columns: append([]string(nil), columns...), Values: make([][]float64, n)}
	for i := range cm.Values {
		cm.Values[i] = make([]float64, n)
		cm.Values[i][i] = 1
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			var x, y []float64
			for _, r := range t.Rows {
				a, okA := table.ParseFloat(r[idx[i]])
				b, okB := table.ParseFloat(r[idx[j]])
				if okA && okB {
					x = append(x, a)
					y = append(y, b)
				}
			}
			v := math.NaN()
			if len(x) >= 2 {
				if method == Kendall {
					v = stat.Kendall(x, y, nil)
				} else {
					v = stat.Correlation(x, y, nil)
				}
			}
			cm.Values[i][j] = v
			cm.Values[j][i] = v
		}
	}
	return cm, nil
}

// TopPairs returns up to k off-diagonal pairs ordered by |r|, NaN last.
func (m *CorrMatrix) TopPairs(k int) []PairCorr {
	var pairs []PairCorr
	for i := range m.Columns {
		for j := i + 1; j < len(m.Columns); j++ {
			pairs = append(pairs, PairCorr{A: m.Columns[i], B: m.Columns[j], R: m.Values[i][j]})
		}
	}
	key := func(p PairCorr) float64 {
		if math.IsNaN(p.R) {
			return -1
		}
		return math.Abs(p.R)
	}
	sort.SliceStable(pairs, func(i, j int) bool { return key(pairs[i]) > key(pairs[j]) })
	if k > 0 && len(pairs) > k {
		pairs = pairs[:k]
	}
	return pairs
}
