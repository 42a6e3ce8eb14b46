package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLock_AcquireRelease(t *testing.T) {
	dir := t.TempDir()
	m := NewLockManager(100*time.Millisecond, time.Minute, nil)
	target := filepath.Join(dir, "index.json")

	lock, err := m.Acquire(context.Background(), target)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := os.Stat(target + lockSuffix); err != nil {
		t.Fatalf("lock marker missing: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(target + lockSuffix); !os.IsNotExist(err) {
		t.Fatalf("lock marker still present after release")
	}
	// Double release is harmless.
	if err := lock.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
}

func TestLock_ContentionTimesOut(t *testing.T) {
	dir := t.TempDir()
	m := NewLockManager(60*time.Millisecond, time.Minute, nil)
	target := filepath.Join(dir, "index.json")

	held, err := m.Acquire(context.Background(), target)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer held.Release()

	_, err = m.Acquire(context.Background(), target)
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("want ErrLockTimeout, got %v", err)
	}
}

func TestLock_ReacquireAfterRelease(t *testing.T) {
	dir := t.TempDir()
	m := NewLockManager(100*time.Millisecond, time.Minute, nil)
	target := filepath.Join(dir, "case.json")

	first, err := m.Acquire(context.Background(), target)
	if err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	done := make(chan error, 1)
	go func() {
		lock, err := NewLockManager(500*time.Millisecond, time.Minute, nil).Acquire(context.Background(), target)
		if err == nil {
			lock.Release()
		}
		done <- err
	}()
	time.Sleep(30 * time.Millisecond)
	first.Release()
	if err := <-done; err != nil {
		t.Fatalf("waiter should acquire after release: %v", err)
	}
}

func TestLock_DisjointPathsDoNotContend(t *testing.T) {
	dir := t.TempDir()
	m := NewLockManager(50*time.Millisecond, time.Minute, nil)

	a, err := m.Acquire(context.Background(), filepath.Join(dir, "a.json"))
	if err != nil {
		t.Fatalf("Acquire a: %v", err)
	}
	defer a.Release()
	b, err := m.Acquire(context.Background(), filepath.Join(dir, "b.json"))
	if err != nil {
		t.Fatalf("Acquire b while holding a: %v", err)
	}
	b.Release()
}

func TestLock_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	m := NewLockManager(time.Minute, time.Minute, nil)
	target := filepath.Join(dir, "index.json")

	held, err := m.Acquire(context.Background(), target)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer held.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := m.Acquire(ctx, target); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want context.DeadlineExceeded, got %v", err)
	}
}

func TestCleanupStale_RemovesOnlyOldMarkers(t *testing.T) {
	dir := t.TempDir()
	m := NewLockManager(time.Second, 10*time.Second, nil)

	stale := filepath.Join(dir, "abandoned.json.lock")
	fresh := filepath.Join(dir, "held.json.lock")
	for _, path := range []string{stale, fresh} {
		if err := os.WriteFile(path, []byte("pid=0\n"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	old := time.Now().Add(-time.Minute)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	removed, err := m.CleanupStale(dir)
	if err != nil {
		t.Fatalf("CleanupStale: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale marker survived cleanup")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("fresh marker removed: %v", err)
	}
}
