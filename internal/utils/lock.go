package utils

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockFileName = ".pdspeech.lock"

// ErrLocked is returned when another pipeline run holds the data directory lock.
var ErrLocked = errors.New("another pdspeech run is using this data directory")

// RunLock guards a data directory against concurrent pipeline runs.
type RunLock struct {
	lock *flock.Flock
	path string
}

// AcquireRunLock takes the data directory lock without blocking.
func AcquireRunLock(dir string) (*RunLock, error) {
	if err := EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("ensure dir: %w", err)
	}
	path := filepath.Join(dir, lockFileName)
	l := flock.New(path)
	ok, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (%s)", ErrLocked, path)
	}
	return &RunLock{lock: l, path: path}, nil
}

// Path returns the lock file location.
func (r *RunLock) Path() string { return r.path }

// Release drops the lock. Safe to call on a nil lock.
func (r *RunLock) Release() error {
	if r == nil || r.lock == nil {
		return nil
	}
	return r.lock.Unlock()
}
