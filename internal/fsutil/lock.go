// Package fsutil publishes generated directory trees into a destination
// that readers may already be using.
package fsutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// LockFile is created inside the destination while a publication runs.
const LockFile = ".minigraph.lock"

// ErrLocked is returned when the lock could not be taken within the retries.
var ErrLocked = errors.New("fsutil: destination is locked by another process")

// Lock is an exclusive advisory lock backed by an O_EXCL file.
type Lock struct {
	path string
}

// AcquireLock creates dir/LockFile, retrying with exponential back-off while
// another holder owns it. A lock whose recorded holder process no longer
// exists is removed once and taken over.
func AcquireLock(dir string, retries int, backoff time.Duration) (*Lock, error) {
	path := filepath.Join(dir, LockFile)
	reclaimed := false
	for attempt := 0; ; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			_, werr := f.WriteString(strconv.Itoa(os.Getpid()))
			if cerr := f.Close(); werr == nil {
				werr = cerr
			}
			if werr != nil {
				os.Remove(path)
				return nil, fmt.Errorf("write lock %s: %w", path, werr)
			}
			return &Lock{path: path}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create lock %s: %w", path, err)
		}
		if !reclaimed && staleLock(path) {
			reclaimed = true
			if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("remove stale lock %s: %w", path, err)
			}
			slog.Warn("Removed stale lock", "path", path)
			attempt--
			continue
		}
		if attempt >= retries {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		time.Sleep(backoff << attempt)
	}
}

// staleLock reports whether the lock at path records a pid that is no longer
// running. Unreadable or partially written locks count as live.
func staleLock(path string) bool {
	raw, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(raw)))
	if err != nil || pid <= 0 || pid == os.Getpid() {
		return false
	}
	return !processAlive(pid)
}

// Release removes the lock file.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	return nil
}
