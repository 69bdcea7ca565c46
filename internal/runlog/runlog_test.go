package runlog

import (
	"errors"
	"io/fs"
	"testing"
)

func TestSaveLoadManifest(t *testing.T) {
	dir := t.TempDir()
	m := New(dir, Settings{DataDir: "data", ZScoreThreshold: 3, OutlierMode: "sequential"})
	if m.ID == "" {
		t.Fatal("expected run id")
	}
	m.AddSource(SourceRecord{Name: "little_2008", Role: "train", RowsRaw: 195, RowsPrepared: 195, RowsCleaned: 195})
	m.AddOutput("train", dir+"/train_data.csv", 195)
	m.Finish(errors.New("boom"))
	if err := m.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ID != m.ID || len(got.Sources) != 1 || got.Sources[0].RowsRaw != 195 {
		t.Fatalf("unexpected manifest: %+v", got)
	}
	if got.Error != "boom" || got.FinishedAt.IsZero() {
		t.Fatalf("finish not recorded: %+v", got)
	}
	if got.Path() != m.Path() {
		t.Fatalf("path mismatch %s vs %s", got.Path(), m.Path())
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir())
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestSaveWithoutDir(t *testing.T) {
	var m Manifest
	if err := m.Save(); err == nil {
		t.Fatal("expected error")
	}
}
