package render

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/KaramelBytes/pdspeech-cli/internal/analysis"
	"github.com/KaramelBytes/pdspeech-cli/internal/model"
)

func TestTablePlain(t *testing.T) {
	out := Table([]string{"name", "rows"}, [][]string{{"little_2008", "195"}, {"short"}}, []Align{AlignLeft, AlignRight}, Options{})
	if !strings.Contains(out, "little_2008") || !strings.Contains(out, "195") {
		t.Fatalf("missing cells:\n%s", out)
	}
	if strings.Contains(out, "╭") {
		t.Fatalf("plain output should not use rounded borders:\n%s", out)
	}
	if Table(nil, nil, nil, Options{}) != "" {
		t.Fatal("expected empty output without headers")
	}
}

func TestIsTerminalOnBuffer(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Fatal("a buffer is not a terminal")
	}
}

func TestHeatmap(t *testing.T) {
	cm := &analysis.CorrMatrix{Method: analysis.Kendall, Columns: []string{"rap", "ppq"}, Values: [][]float64{{1, -0.5}, {-0.5, 1}}}
	out := Heatmap(cm, Options{})
	for _, want := range []string{"kendall", "rap", "ppq", "-0.50", "1.00"} {
		if !strings.Contains(out, want) {
			t.Fatalf("heatmap missing %q:\n%s", want, out)
		}
	}
	if shade(math.NaN()) != "?" || shade(1) != "█" || shade(0) != " " {
		t.Fatal("unexpected shades")
	}
}

func TestImportancesSorted(t *testing.T) {
	out := Importances([]string{"rap", "apq_11"}, []float64{0.25, 0.75}, 4)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "apq_11") || !strings.Contains(lines[0], "███") {
		t.Fatalf("unexpected bars:\n%s", out)
	}
}

func TestTreeOutline(t *testing.T) {
	tr := &model.Tree{Nodes: []model.Node{
		{Feature: 0, Threshold: 0.5, Left: 1, Right: 2, Samples: 4},
		{Feature: -1, Value: -2, Samples: 2},
		{Feature: -1, Value: 2, Samples: 2},
	}}
	out := TreeOutline(tr, []string{"rap"})
	if !strings.Contains(out, "|--- rap <= 0.5") || !strings.Contains(out, "|   |--- value: 2 (samples 2)") {
		t.Fatalf("unexpected outline:\n%s", out)
	}
}

func TestClassificationReport(t *testing.T) {
	r, err := model.Classify([]int{0, 1, 1}, []int{0, 1, 0})
	if err != nil {
		t.Fatal(err)
	}
	out := ClassificationReport(r, Options{})
	for _, want := range []string{"precision", "1 (parkinson's)", "weighted avg", "0.67"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(Confusion(r, Options{}), "pred 1") {
		t.Fatal("confusion header missing")
	}
}
