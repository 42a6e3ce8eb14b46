package store

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	lockSuffix       = ".lock"
	lockPollInterval = 10 * time.Millisecond

	// DefaultLockTimeout bounds how long a caller waits for a path lock.
	DefaultLockTimeout = 5 * time.Second
	// DefaultLockStaleAfter is the age past which an unreleased lock marker
	// is treated as abandoned by a dead process.
	DefaultLockStaleAfter = 30 * time.Second
)

// LockManager hands out exclusive advisory locks keyed by file path.
// A lock is a marker file next to the target (<path>.lock) created with
// O_EXCL, so two processes sharing a storage root also exclude each other.
// Disjoint paths never contend.
type LockManager struct {
	timeout    time.Duration
	staleAfter time.Duration
	log        *slog.Logger
}

// NewLockManager builds a manager with the given acquisition timeout and
// staleness threshold. Zero durations fall back to the defaults.
func NewLockManager(timeout, staleAfter time.Duration, log *slog.Logger) *LockManager {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	if staleAfter <= 0 {
		staleAfter = DefaultLockStaleAfter
	}
	return &LockManager{timeout: timeout, staleAfter: staleAfter, log: log}
}

// FileLock is a held lock. Release removes the marker; releasing twice is safe.
type FileLock struct {
	marker   string
	released bool
}

// Release removes the lock marker. Always call on every exit path.
func (l *FileLock) Release() error {
	if l == nil || l.released {
		return nil
	}
	l.released = true
	if err := os.Remove(l.marker); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release lock %s: %w", l.marker, err)
	}
	return nil
}

// Acquire takes the exclusive lock for path, polling until it succeeds or the
// manager's timeout (or ctx) expires. On timeout it returns ErrLockTimeout.
func (m *LockManager) Acquire(ctx context.Context, path string) (*FileLock, error) {
	marker := path + lockSuffix
	if err := ensureDir(filepath.Dir(marker)); err != nil {
		return nil, err
	}
	deadline := time.Now().Add(m.timeout)
	for {
		f, err := os.OpenFile(marker, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "pid=%d\nacquired=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
			f.Close()
			return &FileLock{marker: marker}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("acquire lock %s: %w", marker, err)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("acquire lock %s after %s: %w", marker, m.timeout, ErrLockTimeout)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lock %s: %w", marker, ctx.Err())
		case <-time.After(lockPollInterval):
		}
	}
}

// CleanupStale walks root and removes lock markers older than the staleness
// threshold. These are locks abandoned by a crashed process, not held ones —
// a best-effort liveness recovery run at startup, not a correctness guarantee.
func (m *LockManager) CleanupStale(root string) (int, error) {
	removed := 0
	cutoff := time.Now().Add(-m.staleAfter)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, lockSuffix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err == nil {
				removed++
				if m.log != nil {
					m.log.Warn("removed stale lock", "path", path, "age", time.Since(info.ModTime()).Round(time.Second))
				}
			}
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("cleanup stale locks under %s: %w", root, err)
	}
	return removed, nil
}
