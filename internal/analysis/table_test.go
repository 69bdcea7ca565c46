package analysis

import (
	"math"
	"strings"
	"testing"

	"github.com/KaramelBytes/pdspeech-cli/internal/table"
)

func speechTable() *table.Table {
	return table.New("train_data.csv", []string{"subject_id", "rap", "ppq", "status"}, [][]string{
		{"s1", "0.1", "0.2", "1"},
		{"s2", "0.2", "0.4", "1"},
		{"s3", "0.3", "0.6", "0"},
		{"s4", "0.4", "", "1"},
		{"s5", "9.0", "1.0", "0"},
	})
}

func TestAnalyzeDescribesColumns(t *testing.T) {
	opt := DefaultOptions()
	opt.Correlation = Kendall
	rep := Analyze(speechTable(), opt)
	if rep.Rows != 5 || len(rep.Cols) != 4 {
		t.Fatalf("unexpected shape: rows=%d cols=%d", rep.Rows, len(rep.Cols))
	}
	id, rap, ppq := rep.Cols[0], rep.Cols[1], rep.Cols[2]
	if id.Kind != "text" || id.Unique != 5 {
		t.Fatalf("subject_id summary: %+v", id)
	}
	if rap.Kind != "numeric" || rap.Min != 0.1 || rap.Max != 9.0 || rap.Median != 0.3 {
		t.Fatalf("rap summary: %+v", rap)
	}
	if math.Abs(rap.Q1-0.2) > 1e-12 || math.Abs(rap.Q3-0.4) > 1e-12 {
		t.Fatalf("rap quartiles: %v %v", rap.Q1, rap.Q3)
	}
	if rap.OutliersCount != 1 {
		t.Fatalf("expected the 9.0 reading flagged, got %d", rap.OutliersCount)
	}
	if ppq.Missing != 1 || ppq.NonNull != 4 {
		t.Fatalf("ppq missing: %+v", ppq)
	}
	if len(rep.MissingColumns) != 1 || rep.MissingColumns[0] != "ppq" {
		t.Fatalf("missing columns: %v", rep.MissingColumns)
	}
	if len(rep.Classes) != 2 || rep.Classes[0].Label != "0" || rep.Classes[0].Count != 2 || rep.Classes[1].Count != 3 {
		t.Fatalf("class counts: %+v", rep.Classes)
	}
	if rep.Corr == nil || rep.Corr.Method != Kendall {
		t.Fatal("expected kendall correlations")
	}
	// rap and ppq are perfectly concordant on the rows both hold
	if r := rep.Corr.Values[0][1]; math.Abs(r-1) > 1e-12 {
		t.Fatalf("rap~ppq tau = %v, want 1", r)
	}
}

func TestMarkdownSections(t *testing.T) {
	opt := DefaultOptions()
	opt.Correlation = Pearson
	md := Analyze(speechTable(), opt).Markdown()
	for _, want := range []string{"[DATASET SUMMARY]", "File: train_data.csv", "[SCHEMA]", "[MISSING VALUES]", "- ppq", "[CLASS BALANCE]", "- 1: 3 (60.0%)", "[CORRELATIONS] (pearson)", "[HEAD AND SAMPLE ROWS]"} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestAnalyzeWarnsOnMissingTarget(t *testing.T) {
	tb := table.New("x", []string{"a"}, [][]string{{"1"}})
	rep := Analyze(tb, DefaultOptions())
	if len(rep.Warnings) != 1 || !strings.Contains(rep.Markdown(), "[NOTES]") {
		t.Fatalf("expected a note about the target column, got %v", rep.Warnings)
	}
	if !strings.Contains(rep.Markdown(), "There are no columns with missing values.") {
		t.Fatal("expected no-missing line")
	}
}

func TestCorrelateMethods(t *testing.T) {
	tb := table.New("x", []string{"a", "b", "c"}, [][]string{
		{"1", "2", "5"}, {"2", "4", "4"}, {"3", "6", "3"}, {"4", "8", "1"},
	})
	cm, err := Correlate(tb, []string{"a", "b", "c"}, Pearson)
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	if math.Abs(cm.Values[0][1]-1) > 1e-9 {
		t.Fatalf("a~b pearson = %v", cm.Values[0][1])
	}
	cm, err = Correlate(tb, []string{"a", "c"}, Kendall)
	if err != nil {
		t.Fatalf("correlate: %v", err)
	}
	if math.Abs(cm.Values[0][1]+1) > 1e-9 {
		t.Fatalf("a~c kendall = %v, want -1", cm.Values[0][1])
	}
	top := cm.TopPairs(5)
	if len(top) != 1 || top[0].A != "a" || top[0].B != "c" {
		t.Fatalf("top pairs: %+v", top)
	}
	if _, err := Correlate(tb, []string{"a", "zzz"}, Kendall); err == nil {
		t.Fatal("expected error for unknown column")
	}
	if _, err := ParseMethod("spearman"); err == nil {
		t.Fatal("expected error for unsupported method")
	}
}
