package utils

import (
	"errors"
	"os"
	"testing"
)

func TestAcquireRunLockExclusive(t *testing.T) {
	dir := t.TempDir()
	first, err := AcquireRunLock(dir)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if _, err := os.Stat(first.Path()); err != nil {
		t.Fatalf("lock file missing: %v", err)
	}
	if _, err := AcquireRunLock(dir); !errors.Is(err, ErrLocked) {
		t.Fatalf("second lock: want ErrLocked, got %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	again, err := AcquireRunLock(dir)
	if err != nil {
		t.Fatalf("relock after release: %v", err)
	}
	_ = again.Release()

	var nilLock *RunLock
	if err := nilLock.Release(); err != nil {
		t.Fatalf("nil release: %v", err)
	}
}
