package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	ramerrors "github.com/Aman-CERP/ram/internal/errors"
)

// lockRetryDelay is how often a contended lock is re-tried.
const lockRetryDelay = 25 * time.Millisecond

// writeLock is the cross-process exclusive lock guarding appends to one store
// directory.
type writeLock struct {
	path  string
	flock *flock.Flock
}

func newWriteLock(dir string) *writeLock {
	path := filepath.Join(dir, lockFileName)
	return &writeLock{path: path, flock: flock.New(path)}
}

// acquire takes the lock within timeout. Running out of time yields StoreBusy;
// cancellation of ctx yields the context error.
func (l *writeLock) acquire(ctx context.Context, timeout time.Duration) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return ramerrors.New(ramerrors.ErrCodeStorageWrite, "failed to create lock directory", err)
	}

	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ok, err := l.flock.TryLockContext(lockCtx, lockRetryDelay)
	if ok {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil || errors.Is(err, context.DeadlineExceeded) {
		return ramerrors.New(ramerrors.ErrCodeStoreBusy,
			fmt.Sprintf("store %s is locked by another writer", filepath.Dir(l.path)), err).
			WithDetail("timeout", timeout.String()).
			WithSuggestion("another ram process is writing; try again shortly")
	}
	return ramerrors.New(ramerrors.ErrCodeStorageWrite, "failed to acquire write lock", err)
}

func (l *writeLock) release() error {
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
