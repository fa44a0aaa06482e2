// Package lock provides an exclusive, staleness-aware cross-process
// lock backed by a PID record file. The lock is cooperative: it
// arbitrates between processes that honor it, it is not enforced by
// the kernel.
package lock

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// ErrContended reports a lock held by another live, non-stale process.
var ErrContended = errors.New("lock held by another process")

// Record describes an existing lock file.
type Record struct {
	Path string
	PID  int
	// AcquiredAt is the lock file's modification time; record age is
	// measured from it.
	AcquiredAt time.Time
}

// Manager owns one lock path for the lifetime of a restore.
type Manager struct {
	path       string
	staleAfter time.Duration
	logger     *slog.Logger

	// alive is swappable for tests.
	alive func(pid int) bool

	acquired bool
}

// NewManager creates a lock manager for path. Records older than
// staleAfter, or owned by a dead process, are reclaimed on Acquire.
func NewManager(path string, staleAfter time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		path:       path,
		staleAfter: staleAfter,
		logger:     logger,
		alive:      processAlive,
	}
}

// Acquire takes the lock or fails with ErrContended. A stale record is
// removed and reacquired; the creation itself uses an exclusive-create
// open so two reclaiming processes cannot both win.
func (m *Manager) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}

	// Two attempts: the second runs after a stale record was removed.
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(m.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			_, werr := fmt.Fprintf(f, "%d\n", os.Getpid())
			if cerr := f.Close(); werr == nil {
				werr = cerr
			}
			if werr != nil {
				_ = os.Remove(m.path)
				return fmt.Errorf("writing lock record: %w", werr)
			}
			m.acquired = true
			return nil
		}
		if !errors.Is(err, os.ErrExist) {
			return fmt.Errorf("creating lock record %s: %w", m.path, err)
		}

		rec, rerr := Inspect(m.path)
		if rerr != nil {
			if errors.Is(rerr, os.ErrNotExist) {
				// Owner released between our open and inspect.
				continue
			}
			// Unreadable records are reclaimed only once old enough.
			info, serr := os.Stat(m.path)
			if serr != nil || time.Since(info.ModTime()) < m.staleAfter {
				return fmt.Errorf("%w: unreadable record at %s", ErrContended, m.path)
			}
			m.logger.Warn("removing unreadable stale lock record", "path", m.path, "error", rerr)
			if err := os.Remove(m.path); err != nil {
				return fmt.Errorf("removing stale lock record: %w", err)
			}
			continue
		}

		if !m.stale(rec) {
			return fmt.Errorf("%w: pid %d holds %s (age %s)",
				ErrContended, rec.PID, m.path, time.Since(rec.AcquiredAt).Round(time.Second))
		}

		m.logger.Warn("reclaiming stale lock record",
			"path", m.path, "owner_pid", rec.PID, "age", time.Since(rec.AcquiredAt).Round(time.Second))
		if err := os.Remove(m.path); err != nil {
			return fmt.Errorf("removing stale lock record: %w", err)
		}
	}

	return fmt.Errorf("%w: lost exclusive-create race on %s", ErrContended, m.path)
}

// Release removes the lock record if this process owns it. A record
// owned by someone else is left alone. Safe to call on every exit
// path, including before a successful Acquire.
func (m *Manager) Release() {
	if !m.acquired {
		return
	}
	m.acquired = false

	rec, err := Inspect(m.path)
	if err != nil {
		m.logger.Warn("lock record missing or unreadable on release", "path", m.path, "error", err)
		return
	}
	if rec.PID != os.Getpid() {
		m.logger.Warn("lock record not owned by this process, leaving in place",
			"path", m.path, "owner_pid", rec.PID)
		return
	}
	if err := os.Remove(m.path); err != nil {
		m.logger.Warn("failed to remove lock record", "path", m.path, "error", err)
	}
}

// stale reports whether rec may be reclaimed.
func (m *Manager) stale(rec *Record) bool {
	if !m.alive(rec.PID) {
		return true
	}
	return time.Since(rec.AcquiredAt) >= m.staleAfter
}

// Inspect reads an existing lock record.
func Inspect(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("malformed lock record %s: %w", path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &Record{Path: path, PID: pid, AcquiredAt: info.ModTime()}, nil
}

// IsStale reports whether the record at path may be reclaimed given
// the staleness threshold. Used by the unlock command.
func IsStale(rec *Record, staleAfter time.Duration) bool {
	if !processAlive(rec.PID) {
		return true
	}
	return time.Since(rec.AcquiredAt) >= staleAfter
}

// processAlive probes a PID with signal 0. EPERM means the process
// exists but belongs to another user, so it counts as alive.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}
