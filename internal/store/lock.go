package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	ragerrors "github.com/briany/genai-rag-chatbot/internal/errors"
)

// DataLock guards a data directory against a second ragchat process
// rewriting the same snapshot files.
type DataLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewDataLock returns a lock on <dir>/.ragchat.lock. It does not acquire it.
func NewDataLock(dir string) *DataLock {
	path := filepath.Join(dir, ".ragchat.lock")
	return &DataLock{path: path, flock: flock.New(path)}
}

// TryLock acquires the lock without blocking. A lock held by another
// process yields ErrCodeDataDirLocked.
func (l *DataLock) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return ragerrors.New(ragerrors.ErrCodeDataDirLocked,
			fmt.Sprintf("data directory %s is in use by another ragchat process", filepath.Dir(l.path)), nil).
			WithSuggestion("stop the other process or set data.dir to another directory")
	}
	l.locked = true
	return nil
}

// Unlock releases the lock. Calling it on an unlocked DataLock is a no-op.
func (l *DataLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

func (l *DataLock) Path() string { return l.path }

func (l *DataLock) IsLocked() bool { return l.locked }
