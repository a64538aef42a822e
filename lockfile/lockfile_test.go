package lockfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestAcquireAndRelease(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	lock, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := os.Stat(lock.Path()); err != nil {
		t.Fatalf("lock file not on disk: %v", err)
	}

	if _, err := Acquire(dir); err == nil {
		t.Fatal("second Acquire succeeded while lock held")
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, LockFileName)); !os.IsNotExist(err) {
		t.Fatalf("lock file still on disk after release: %v", err)
	}

	// Releasing twice is a no-op.
	if err := lock.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
}

func TestAcquireTakesOverStaleLock(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	stale, err := yaml.Marshal(payload{PID: 1, Started: time.Now().Add(-time.Hour).UTC()})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, LockFileName), stale, 0644); err != nil {
		t.Fatal(err)
	}

	lock, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire over stale lock: %v", err)
	}
	defer lock.Release()
}

func TestAcquireTakesOverGarbageLock(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, LockFileName), []byte("not: [valid"), 0644); err != nil {
		t.Fatal(err)
	}

	lock, err := Acquire(dir)
	if err != nil {
		t.Fatalf("Acquire over unreadable lock: %v", err)
	}
	defer lock.Release()
}
