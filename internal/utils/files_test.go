package utils

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSafeWriteFileReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.csv")
	if err := SafeWriteFile(path, []byte("a,b\n1,2\n")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := SafeWriteFile(path, []byte("a,b\n3,4\n")); err != nil {
		t.Fatalf("second write: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "a,b\n3,4\n" {
		t.Fatalf("unexpected content: %q", b)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestSafeWriteFileKeepsPreviousOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	// A directory squatting on the temp name makes the temp write fail.
	if err := os.Mkdir(path+".tmp", 0o755); err != nil {
		t.Fatal(err)
	}
	if err := SafeWriteFile(path, []byte("new")); err == nil {
		t.Fatalf("expected write error")
	}
	b, _ := os.ReadFile(path)
	if string(b) != "old" {
		t.Fatalf("previous file modified: %q", b)
	}
}

func TestWithSuffix(t *testing.T) {
	got := WithSuffix(filepath.Join("Sakar_et_al_2013", "train_data.csv"), "_processed")
	want := filepath.Join("Sakar_et_al_2013", "train_data_processed.csv")
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestRunLockIsExclusive(t *testing.T) {
	dir := t.TempDir()
	first, err := AcquireRunLock(dir)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer first.Release()
	if _, err := AcquireRunLock(dir); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	again, err := AcquireRunLock(dir)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	_ = again.Release()
}
