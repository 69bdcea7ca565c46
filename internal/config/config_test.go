package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.ZScoreThreshold != 3 || c.OutlierMode != "sequential" || c.RandomState != 0 {
		t.Fatalf("unexpected pipeline defaults: %+v", c)
	}
	if c.OutputDir != "train_and_test_sets" || c.ProcessedSuffix != "_processed" {
		t.Fatalf("unexpected layout defaults: %+v", c)
	}
	if c.GBTEstimators != 15 || c.GBTMaxDepth != 6 || c.KNNNeighbors != 2 || c.KNNWeights != "distance" {
		t.Fatalf("unexpected model defaults: %+v", c)
	}
	if c.StoreDSN != filepath.Join(c.DataDir, "pdspeech.db") {
		t.Fatalf("sqlite dsn not derived from data dir: %q", c.StoreDSN)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	t.Setenv("HOME", dir)
	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	c.DataDir = filepath.Join(dir, "data")
	c.ZScoreThreshold = 2.5
	c.BalanceTrain = true
	if err := Save(c, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if back.ZScoreThreshold != 2.5 || !back.BalanceTrain || back.DataDir != c.DataDir {
		t.Fatalf("round trip mismatch: %+v", back)
	}
	if back.OutputPath() != filepath.Join(c.DataDir, "train_and_test_sets") {
		t.Fatalf("output path: %s", back.OutputPath())
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	if err := os.WriteFile(path, []byte("random_state: 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PDSPEECH_RANDOM_STATE", "9")
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.RandomState != 9 {
		t.Fatalf("env should win over file, got %d", c.RandomState)
	}
}

func TestMalformedConfigFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(path, []byte("data_dir: [unclosed\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestSetParsesAndValidates(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := Set(c, "z_score_threshold", "2.5"); err != nil {
		t.Fatalf("set threshold: %v", err)
	}
	if err := Set(c, "balance_train", "true"); err != nil {
		t.Fatalf("set bool: %v", err)
	}
	if err := Set(c, "random_state", "42"); err != nil {
		t.Fatalf("set int: %v", err)
	}
	if c.ZScoreThreshold != 2.5 || !c.BalanceTrain || c.RandomState != 42 {
		t.Fatalf("values not applied: %+v", c)
	}
	if v, ok := Get(c, "random_state"); !ok || v != "42" {
		t.Fatalf("get random_state: %q %v", v, ok)
	}

	for _, tc := range []struct{ key, val string }{
		{"outlier_mode", "sideways"},
		{"z_score_threshold", "-1"},
		{"folds", "abc"},
		{"knn_weights", "cosine"},
		{"no_such_key", "1"},
	} {
		if err := Set(c, tc.key, tc.val); err == nil {
			t.Fatalf("expected error for %s=%s", tc.key, tc.val)
		}
	}
	if c.OutlierMode != "sequential" || c.KNNWeights != "distance" {
		t.Fatalf("failed set must leave config unchanged: %+v", c)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(path, []byte("outlier_mode: sideways\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestSetDataDirMovesDerivedDSN(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	dir := filepath.Join(t.TempDir(), "elsewhere")
	c.SetDataDir(dir)
	if c.DataDir != dir || c.StoreDSN != filepath.Join(dir, "pdspeech.db") {
		t.Fatalf("derived dsn not moved: %+v", c)
	}
	c.StoreDSN = "/srv/shared.db"
	c.SetDataDir(t.TempDir())
	if c.StoreDSN != "/srv/shared.db" {
		t.Fatalf("explicit dsn must be kept, got %s", c.StoreDSN)
	}
}
