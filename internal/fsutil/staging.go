package fsutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Staging is a private directory next to the destination entries. Output is
// written there first and then swapped into place with os.Rename, so a
// reader never observes a half-written entry and a failed run leaves the
// previous output untouched.
//
// Each entry is replaced atomically on its own; the set of entries is not.
// A reader that does not take the destination lock may see a new entry next
// to an old one while Publish runs. Readers that need a consistent tree take
// the lock with AcquireLock before loading.
type Staging struct {
	Dst string
	Dir string

	LockRetries int
	LockBackoff time.Duration
}

// NewStaging creates dst (if needed) and dst/.staging-<runID>.
func NewStaging(dst, runID string) (*Staging, error) {
	if err := os.MkdirAll(dst, 0755); err != nil {
		return nil, fmt.Errorf("create destination %s: %w", dst, err)
	}
	dir := filepath.Join(dst, ".staging-"+runID)
	if err := os.Mkdir(dir, 0755); err != nil {
		return nil, fmt.Errorf("create staging %s: %w", dir, err)
	}
	return &Staging{
		Dst:         dst,
		Dir:         dir,
		LockRetries: 8,
		LockBackoff: 10 * time.Millisecond,
	}, nil
}

// Path returns the staging path of a destination entry.
func (s *Staging) Path(name string) string {
	return filepath.Join(s.Dir, name)
}

// Publish moves the named staged entries into the destination under the
// destination lock. An existing entry is first moved aside into the staging
// area. If any swap fails, the entries already swapped are restored.
func (s *Staging) Publish(names ...string) error {
	lock, err := AcquireLock(s.Dst, s.LockRetries, s.LockBackoff)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			slog.Warn("Failed to release publication lock", "error", err)
		}
	}()

	trash := filepath.Join(s.Dir, ".replaced")
	if err := os.MkdirAll(trash, 0755); err != nil {
		return fmt.Errorf("create %s: %w", trash, err)
	}

	type swap struct {
		name     string
		replaced bool
	}
	done := make([]swap, 0, len(names))
	rollback := func() {
		for i := len(done) - 1; i >= 0; i-- {
			sw := done[i]
			target := filepath.Join(s.Dst, sw.name)
			if err := os.Rename(target, s.Path(sw.name)); err != nil {
				slog.Error("Rollback failed", "entry", target, "error", err)
				continue
			}
			if sw.replaced {
				if err := os.Rename(filepath.Join(trash, sw.name), target); err != nil {
					slog.Error("Rollback failed", "entry", target, "error", err)
				}
			}
		}
	}

	for _, name := range names {
		target := filepath.Join(s.Dst, name)
		replaced := false

		// 1. Move the live entry aside.
		if _, err := os.Lstat(target); err == nil {
			if err := os.Rename(target, filepath.Join(trash, name)); err != nil {
				rollback()
				return fmt.Errorf("move aside %s: %w", target, err)
			}
			replaced = true
		} else if !errors.Is(err, os.ErrNotExist) {
			rollback()
			return fmt.Errorf("stat %s: %w", target, err)
		}

		// 2. Swap the staged entry in.
		if err := os.Rename(s.Path(name), target); err != nil {
			if replaced {
				if rerr := os.Rename(filepath.Join(trash, name), target); rerr != nil {
					slog.Error("Rollback failed", "entry", target, "error", rerr)
				}
			}
			rollback()
			return fmt.Errorf("publish %s: %w", target, err)
		}
		done = append(done, swap{name: name, replaced: replaced})
	}

	slog.Info("Output published", "destination", s.Dst, "entries", len(names))
	return nil
}

// Cleanup removes the staging directory, including replaced entries.
func (s *Staging) Cleanup() error {
	if err := os.RemoveAll(s.Dir); err != nil {
		return fmt.Errorf("remove staging %s: %w", s.Dir, err)
	}
	return nil
}
