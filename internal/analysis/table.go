// Package analysis summarizes speech-feature datasets: per-column descriptive
// statistics, missing values, class balance and feature correlations.
package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/pdspeech-cli/internal/pipeline"
	"github.com/KaramelBytes/pdspeech-cli/internal/table"
)

// Options controls analysis behavior for tabular data.
type Options struct {
	// SampleRows determines how many head rows to include in the report.
	SampleRows int
	// Target names the label column whose class counts are reported.
	Target string
	// Outlier detection via robust Z-score (MAD). If Outliers is true, counts |z|>threshold.
	Outliers         bool
	OutlierThreshold float64
	// Correlation is "", "kendall" or "pearson".
	Correlation Method
	// TopValues caps the categorical value list per text column.
	TopValues int
}

// DefaultOptions returns reasonable defaults for dataset analysis.
func DefaultOptions() Options {
	return Options{
		SampleRows:       2,
		Target:           pipeline.DefaultTarget,
		Outliers:         true,
		OutlierThreshold: 3.5,
		TopValues:        5,
	}
}

// Report is a markdown-friendly analysis of a tabular dataset.
type Report struct {
	Name           string
	Rows           int
	Cols           []ColumnSummary
	Samples        [][]string
	MissingColumns []string
	Classes        []ClassCount
	Corr           *CorrMatrix
	Warnings       []string
}

// ClassCount is a label value and how many rows carry it.
type ClassCount struct {
	Label string
	Count int
}

// ColumnSummary captures inferred type and statistics per column.
type ColumnSummary struct {
	Name    string
	Kind    string // numeric|text
	NonNull int
	Missing int
	Unique  int
	// Numeric stats; Std is the sample standard deviation
	Mean   float64
	Std    float64
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64
	// Outliers (robust Z via MAD)
	OutliersCount    int
	OutliersMaxAbsZ  float64
	OutlierThreshold float64
	// Categorical top values
	TopValues []CategoryCount
}

type CategoryCount struct {
	Value string
	Count int
}

// Analyze describes every column of t.
func Analyze(t *table.Table, opt Options) *Report {
	rep := &Report{Name: t.Name, Rows: t.Len()}
	if opt.SampleRows < 0 {
		opt.SampleRows = 0
	}
	for i := 0; i < min(opt.SampleRows, t.Len()); i++ {
		rep.Samples = append(rep.Samples, append([]string(nil), t.Rows[i]...))
	}

	var numeric []string
	for j, name := range t.Columns {
		cs := describeColumn(t, j, opt)
		rep.Cols = append(rep.Cols, cs)
		if cs.Missing > 0 {
			rep.MissingColumns = append(rep.MissingColumns, name)
		}
		if cs.Kind == "numeric" {
			numeric = append(numeric, name)
		}
	}

	if opt.Target != "" {
		if j := t.Index(opt.Target); j >= 0 {
			counts := map[string]int{}
			for _, r := range t.Rows {
				counts[r[j]]++
			}
			for v, n := range counts {
				rep.Classes = append(rep.Classes, ClassCount{Label: v, Count: n})
			}
			sort.Slice(rep.Classes, func(a, b int) bool { return rep.Classes[a].Label < rep.Classes[b].Label })
		} else {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("target column %q not found; class counts skipped", opt.Target))
		}
	}

	if opt.Correlation != "" && len(numeric) >= 2 {
		cm, err := Correlate(t, numeric, opt.Correlation)
		if err != nil {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("correlations skipped: %v", err))
		} else {
			rep.Corr = cm
		}
	}
	return rep
}

func describeColumn(t *table.Table, j int, opt Options) ColumnSummary {
	cs := ColumnSummary{Name: t.Columns[j]}
	cats := map[string]int{}
	var vals []float64
	textCnt := 0
	for _, r := range t.Rows {
		c := r[j]
		if table.IsMissing(c) {
			cs.Missing++
			continue
		}
		cs.NonNull++
		cats[strings.TrimSpace(c)]++
		if v, ok := table.ParseFloat(c); ok {
			vals = append(vals, v)
		} else {
			textCnt++
		}
	}
	cs.Unique = len(cats)

	if cs.NonNull == 0 || textCnt > 0 {
		cs.Kind = "text"
		cs.TopValues = topValues(cats, opt.TopValues)
		return cs
	}

	cs.Kind = "numeric"
	cs.Mean, cs.Std = stat.MeanStdDev(vals, nil)
	if len(vals) < 2 {
		cs.Std = math.NaN()
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	cs.Min = sorted[0]
	cs.Max = sorted[len(sorted)-1]
	cs.Q1 = quantile(sorted, 0.25)
	cs.Median = quantile(sorted, 0.5)
	cs.Q3 = quantile(sorted, 0.75)

	if opt.Outliers {
		thr := opt.OutlierThreshold
		if thr <= 0 {
			thr = 3.5
		}
		cs.OutlierThreshold = thr
		med, mad := medianMAD(vals)
		if mad > 0 {
			for _, v := range vals {
				z := 0.6745 * math.Abs(v-med) / mad
				if z > thr {
					cs.OutliersCount++
				}
				if z > cs.OutliersMaxAbsZ {
					cs.OutliersMaxAbsZ = z
				}
			}
		}
	}
	return cs
}

func topValues(cats map[string]int, n int) []CategoryCount {
	if n <= 0 {
		n = 5
	}
	out := make([]CategoryCount, 0, len(cats))
	for v, c := range cats {
		out = append(out, CategoryCount{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Value < out[j].Value
		}
		return out[i].Count > out[j].Count
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Markdown renders the report in bracketed sections.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(r.Cols)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		total := c.NonNull + c.Missing
		missPct := 0.0
		if total > 0 {
			missPct = float64(c.Missing) * 100.0 / float64(total)
		}
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %.1f%%)", safeName(c.Name), c.Kind, c.NonNull, missPct))
		switch c.Kind {
		case "numeric":
			b.WriteString(fmt.Sprintf(": mean %.4g, std %.4g, min %.4g, 25%% %.4g, 50%% %.4g, 75%% %.4g, max %.4g",
				c.Mean, c.Std, c.Min, c.Q1, c.Median, c.Q3, c.Max))
			if c.OutlierThreshold > 0 {
				b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f", c.OutliersCount, c.OutlierThreshold))
				if c.OutliersMaxAbsZ > 0 {
					b.WriteString(fmt.Sprintf(" (max |z|≈%.2f)", c.OutliersMaxAbsZ))
				}
			}
		case "text":
			if len(c.TopValues) > 0 {
				b.WriteString(": top ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
				if c.Unique > len(c.TopValues) {
					b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
				}
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("\n[MISSING VALUES]\n")
	if len(r.MissingColumns) == 0 {
		b.WriteString("There are no columns with missing values.\n")
	} else {
		for _, c := range r.MissingColumns {
			b.WriteString("- " + safeName(c) + "\n")
		}
	}

	if len(r.Classes) > 0 {
		b.WriteString("\n[CLASS BALANCE]\n")
		for _, c := range r.Classes {
			pct := float64(c.Count) * 100 / float64(max(r.Rows, 1))
			b.WriteString(fmt.Sprintf("- %s: %d (%.1f%%)\n", safeVal(c.Label), c.Count, pct))
		}
	}

	if r.Corr != nil && len(r.Corr.Columns) >= 2 {
		b.WriteString(fmt.Sprintf("\n[CORRELATIONS] (%s)\n", r.Corr.Method))
		pairs := r.Corr.TopPairs(10)
		for _, p := range pairs {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
		}
	}
	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		b.WriteString("| ")
		for i, c := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c.Name))
		}
		b.WriteString(" |\n| ")
		for i := range r.Cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for _, row := range r.Samples {
			b.WriteString("| ")
			for i := range r.Cols {
				if i > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if i < len(row) {
					val = row[i]
				}
				if len(val) > 80 {
					val = val[:77] + "..."
				}
				b.WriteString(safeVal(val))
			}
			b.WriteString(" |\n")
		}
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}
func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

// medianMAD computes median and MAD (median absolute deviation) of values.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

// quantile interpolates linearly between closest ranks.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
