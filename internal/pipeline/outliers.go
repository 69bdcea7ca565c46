package pipeline

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/pdspeech-cli/internal/table"
)

// DefaultZThreshold is the z-score cut-off the --threshold flags default to.
const DefaultZThreshold = 3.0

// OutlierMode selects how per-column statistics are computed.
type OutlierMode string

const (
	// ModeSequential filters column by column; each column's mean and std
	// are taken over the rows that survived the previous columns.
	ModeSequential OutlierMode = "sequential"
	// ModeSimultaneous takes every column's statistics from the unfiltered
	// table and drops a row when any column flags it.
	ModeSimultaneous OutlierMode = "simultaneous"
)

// ParseOutlierMode accepts "sequential" or "simultaneous" (empty means sequential).
func ParseOutlierMode(s string) (OutlierMode, error) {
	switch OutlierMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeSequential:
		return ModeSequential, nil
	case ModeSimultaneous:
		return ModeSimultaneous, nil
	default:
		return "", fmt.Errorf("unknown outlier mode %q (want sequential|simultaneous)", s)
	}
}

// OutlierOptions configures FilterOutliers.
type OutlierOptions struct {
	Columns   []string
	Threshold float64
	Mode      OutlierMode
}

// ColumnOutliers is the per-column outcome.
type ColumnOutliers struct {
	Column  string  `json:"column"`
	Mean    float64 `json:"mean"`
	Std     float64 `json:"std"`
	Removed int     `json:"removed"`
}

// OutlierReport summarizes a FilterOutliers call.
type OutlierReport struct {
	Mode       OutlierMode      `json:"mode"`
	Threshold  float64          `json:"threshold"`
	RowsIn     int              `json:"rows_in"`
	RowsOut    int              `json:"rows_out"`
	Columns    []ColumnOutliers `json:"columns"`
	Degenerate []string         `json:"degenerate,omitempty"`
}

// Removed returns the total number of dropped rows.
func (r *OutlierReport) Removed() int { return r.RowsIn - r.RowsOut }

// Notes returns a non-fatal error per zero-variance column, or nil.
func (r *OutlierReport) Notes() []error {
	var out []error
	for _, c := range r.Degenerate {
		out = append(out, fmt.Errorf("%w: %s has zero standard deviation, no rows removed", ErrDegenerateColumn, c))
	}
	return out
}

// FilterOutliers removes rows whose z-score reaches the threshold in any of
// the named columns. The standard deviation is the population one (ddof=0).
// Rows kept are returned unchanged and in their original order.
func FilterOutliers(t *table.Table, opt OutlierOptions) (*table.Table, *OutlierReport, error) {
	if math.IsNaN(opt.Threshold) || math.IsInf(opt.Threshold, 0) || opt.Threshold <= 0 {
		return nil, nil, fmt.Errorf("%w: z-score threshold must be a positive finite number, got %v", ErrInvalidValue, opt.Threshold)
	}
	if opt.Mode == "" {
		opt.Mode = ModeSequential
	}
	if opt.Mode != ModeSequential && opt.Mode != ModeSimultaneous {
		return nil, nil, fmt.Errorf("unknown outlier mode %q", opt.Mode)
	}

	values := make([][]float64, len(opt.Columns))
	for i, c := range opt.Columns {
		if !t.Has(c) {
			return nil, nil, fmt.Errorf("%w: %s: column %q not found", ErrSchemaMismatch, t.Name, c)
		}
		v, err := t.Floats(c)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s: %v", ErrInvalidValue, t.Name, err)
		}
		values[i] = v
	}

	rep := &OutlierReport{Mode: opt.Mode, Threshold: opt.Threshold, RowsIn: t.Len()}
	keep := make([]int, t.Len())
	for i := range keep {
		keep[i] = i
	}

	switch opt.Mode {
	case ModeSequential:
		for i, c := range opt.Columns {
			cur := gather(values[i], keep)
			res := ColumnOutliers{Column: c}
			if len(cur) > 0 {
				res.Mean, res.Std = stat.PopMeanStdDev(cur, nil)
			}
			if res.Std == 0 || math.IsNaN(res.Std) {
				if len(cur) > 0 {
					rep.Degenerate = append(rep.Degenerate, c)
				}
				rep.Columns = append(rep.Columns, res)
				continue
			}
			next := keep[:0:0]
			for k, row := range keep {
				if math.Abs(cur[k]-res.Mean)/res.Std < opt.Threshold {
					next = append(next, row)
				}
			}
			res.Removed = len(keep) - len(next)
			keep = next
			rep.Columns = append(rep.Columns, res)
		}
	case ModeSimultaneous:
		drop := make([]bool, t.Len())
		for i, c := range opt.Columns {
			res := ColumnOutliers{Column: c}
			if len(values[i]) > 0 {
				res.Mean, res.Std = stat.PopMeanStdDev(values[i], nil)
			}
			if res.Std == 0 || math.IsNaN(res.Std) {
				if len(values[i]) > 0 {
					rep.Degenerate = append(rep.Degenerate, c)
				}
				rep.Columns = append(rep.Columns, res)
				continue
			}
			for row, x := range values[i] {
				if math.Abs(x-res.Mean)/res.Std >= opt.Threshold {
					if !drop[row] {
						res.Removed++
					}
					drop[row] = true
				}
			}
			rep.Columns = append(rep.Columns, res)
		}
		next := keep[:0:0]
		for _, row := range keep {
			if !drop[row] {
				next = append(next, row)
			}
		}
		keep = next
	}

	out := t.Select(keep)
	rep.RowsOut = out.Len()
	return out, rep, nil
}

func gather(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for k, i := range idx {
		out[k] = v[i]
	}
	return out
}
