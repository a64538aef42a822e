// Package lockfile implements .keyling.lock — a single-writer run lock
// taken before fix mode rewrites locale files, so two concurrent runs
// cannot interleave their writes.
//
// The lock file lives inside the locales directory and records who holds
// it. A lock older than the stale threshold is treated as abandoned (a
// crashed run never releases) and taken over.
package lockfile

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// LockFileName is the lock file name inside the locales directory.
const LockFileName = ".keyling.lock"

// StaleAfter is how old a lock may be before it is considered abandoned.
const StaleAfter = 10 * time.Minute

// payload is what the holder writes into the lock file.
type payload struct {
	PID     int       `yaml:"pid"`
	Started time.Time `yaml:"started"`
}

// Lock is a held run lock. Release it when the run finishes.
type Lock struct {
	path string
}

// Acquire takes the run lock for dir. It fails when another live run holds
// the lock; a stale lock is removed and re-taken.
func Acquire(dir string) (*Lock, error) {
	path := filepath.Join(dir, LockFileName)

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			data, merr := yaml.Marshal(payload{PID: os.Getpid(), Started: time.Now().UTC()})
			if merr == nil {
				_, merr = f.Write(data)
			}
			cerr := f.Close()
			if merr != nil || cerr != nil {
				os.Remove(path)
				return nil, fmt.Errorf("writing lock file %s: %w", path, firstErr(merr, cerr))
			}
			return &Lock{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("creating lock file %s: %w", path, err)
		}

		holder, herr := read(path)
		if herr == nil && time.Since(holder.Started) < StaleAfter {
			return nil, fmt.Errorf("another run (pid %d, started %s) holds %s", holder.PID, holder.Started.Format(time.RFC3339), path)
		}
		// Unreadable or stale: take it over.
		if rerr := os.Remove(path); rerr != nil && !os.IsNotExist(rerr) {
			return nil, fmt.Errorf("removing stale lock file %s: %w", path, rerr)
		}
	}
	return nil, fmt.Errorf("could not acquire lock file %s", path)
}

// Release removes the lock file. Safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.path == "" {
		return nil
	}
	err := os.Remove(l.path)
	l.path = ""
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Path returns the lock file path while held.
func (l *Lock) Path() string { return l.path }

func read(path string) (payload, error) {
	var p payload
	data, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, err
	}
	return p, nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
