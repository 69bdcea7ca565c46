// Package render turns reports into terminal text: tables, a correlation
// heatmap, feature-importance bars and a decision-tree outline.
package render

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/KaramelBytes/pdspeech-cli/internal/analysis"
	"github.com/KaramelBytes/pdspeech-cli/internal/model"
)

// Align is a column alignment.
type Align int

const (
	AlignLeft Align = iota
	AlignRight
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Options controls styling.
type Options struct {
	// Fancy selects rounded box drawing and colour; plain ASCII otherwise.
	Fancy bool
}

// For picks fancy output when w is a terminal.
func For(w io.Writer) Options { return Options{Fancy: IsTerminal(w)} }

// Table renders rows under headers.
func Table(headers []string, rows [][]string, aligns []Align, opt Options) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}
	tw := table.NewWriter()
	if opt.Fancy {
		tw.SetStyle(table.StyleRounded)
	} else {
		tw.SetStyle(table.StyleDefault)
	}
	// column names are data; keep their case
	tw.Style().Format.Header = text.FormatDefault

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)
	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == AlignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

var shades = []string{" ", "░", "▒", "▓", "█"}

func shade(v float64) string {
	if math.IsNaN(v) {
		return "?"
	}
	i := int(math.Abs(v) * float64(len(shades)-1))
	return shades[min(i, len(shades)-1)]
}

// Heatmap renders a correlation matrix with a shade per cell; with Fancy,
// positive values are red and negative values blue.
func Heatmap(cm *analysis.CorrMatrix, opt Options) string {
	headers := append([]string{string(cm.Method)}, cm.Columns...)
	aligns := make([]Align, len(headers))
	for i := 1; i < len(aligns); i++ {
		aligns[i] = AlignRight
	}
	rows := make([][]string, len(cm.Columns))
	for i, name := range cm.Columns {
		row := []string{name}
		for j := range cm.Columns {
			v := cm.Values[i][j]
			cell := fmt.Sprintf("%s %5.2f", shade(v), v)
			if opt.Fancy && !math.IsNaN(v) && i != j {
				if v >= 0 {
					cell = text.Colors{text.FgRed}.Sprint(cell)
				} else {
					cell = text.Colors{text.FgBlue}.Sprint(cell)
				}
			}
			row = append(row, cell)
		}
		rows[i] = row
	}
	return Table(headers, rows, aligns, opt)
}

// Importances renders a horizontal bar per feature, largest first.
func Importances(features []string, values []float64, width int) string {
	if width <= 0 {
		width = 40
	}
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] > values[idx[b]] })
	pad := 0
	for _, f := range features {
		pad = max(pad, len(f))
	}
	var b strings.Builder
	for _, i := range idx {
		n := int(math.Round(values[i] * float64(width)))
		fmt.Fprintf(&b, "%-*s %s %.3f\n", pad, features[i], strings.Repeat("█", n), values[i])
	}
	return b.String()
}

// TreeOutline prints a tree as nested rules, like:
//
//	|--- rap <= 0.0042
//	|   |--- value: -1.25
func TreeOutline(t *model.Tree, features []string) string {
	if t == nil || len(t.Nodes) == 0 {
		return ""
	}
	var b strings.Builder
	var walk func(i, depth int)
	walk = func(i, depth int) {
		n := t.Nodes[i]
		indent := strings.Repeat("|   ", depth)
		if n.IsLeaf() {
			fmt.Fprintf(&b, "%s|--- value: %.4g (samples %d)\n", indent, n.Value, n.Samples)
			return
		}
		name := fmt.Sprintf("feature_%d", n.Feature)
		if n.Feature < len(features) {
			name = features[n.Feature]
		}
		fmt.Fprintf(&b, "%s|--- %s <= %.4g\n", indent, name, n.Threshold)
		walk(n.Left, depth+1)
		fmt.Fprintf(&b, "%s|--- %s >  %.4g\n", indent, name, n.Threshold)
		walk(n.Right, depth+1)
	}
	walk(0, 0)
	return b.String()
}

// ClassificationReport renders per-class precision, recall, f1 and support
// followed by accuracy and the averages.
func ClassificationReport(r *model.Report, opt Options) string {
	f := func(v float64) string { return fmt.Sprintf("%.2f", v) }
	var rows [][]string
	for _, c := range r.Classes {
		label := fmt.Sprintf("%d", c.Label)
		if name, ok := model.ClassLabels[c.Label]; ok {
			label = fmt.Sprintf("%d (%s)", c.Label, name)
		}
		rows = append(rows, []string{label, f(c.Precision), f(c.Recall), f(c.F1), fmt.Sprint(c.Support)})
	}
	rows = append(rows,
		[]string{"accuracy", "", "", f(r.Accuracy), fmt.Sprint(r.Total)},
		[]string{"macro avg", f(r.Macro.Precision), f(r.Macro.Recall), f(r.Macro.F1), fmt.Sprint(r.Total)},
		[]string{"weighted avg", f(r.Weighted.Precision), f(r.Weighted.Recall), f(r.Weighted.F1), fmt.Sprint(r.Total)},
	)
	return Table([]string{"", "precision", "recall", "f1-score", "support"}, rows,
		[]Align{AlignLeft, AlignRight, AlignRight, AlignRight, AlignRight}, opt)
}

// Confusion renders the 2x2 confusion matrix.
func Confusion(r *model.Report, opt Options) string {
	rows := [][]string{
		{"true 0", fmt.Sprint(r.Confusion[0][0]), fmt.Sprint(r.Confusion[0][1])},
		{"true 1", fmt.Sprint(r.Confusion[1][0]), fmt.Sprint(r.Confusion[1][1])},
	}
	return Table([]string{"", "pred 0", "pred 1"}, rows, []Align{AlignLeft, AlignRight, AlignRight}, opt)
}
