// Package lock serializes whole maintenance runs with an advisory file
// lock.
//
// Two concurrent runs against the same log directory or destination
// repository would interleave log lines and race on commits; the lock
// makes the second invocation fail fast instead. flock is released by
// the kernel when the holding process exits, so a crashed run never
// wedges the next one.
package lock

import (
	"fmt"
	"os"
	"strings"
	"syscall"
)

// RunLock is a non-blocking advisory lock on a well-known file. The
// holder's PID is written into the file for diagnostics.
type RunLock struct {
	path string
	file *os.File
}

// New creates a lock handle for path. Nothing is acquired yet.
func New(path string) *RunLock {
	return &RunLock{path: path}
}

// Acquire takes the lock without blocking.
//
// When another process holds it, the returned error names that
// process's PID (read from the lock file, best-effort).
func (l *RunLock) Acquire() error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		holder := readHolderPID(f)
		f.Close()
		if holder != "" {
			return fmt.Errorf("another instance is running (pid %s)", holder)
		}
		return fmt.Errorf("another instance is running: %w", err)
	}

	if err := f.Truncate(0); err != nil {
		releaseAndClose(f)
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		releaseAndClose(f)
		return fmt.Errorf("seek lock file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		releaseAndClose(f)
		return fmt.Errorf("write PID to lock file: %w", err)
	}
	if err := f.Sync(); err != nil {
		releaseAndClose(f)
		return fmt.Errorf("sync lock file: %w", err)
	}

	l.file = f
	return nil
}

// Release drops the lock and removes the lock file. Safe to call when
// nothing is held.
func (l *RunLock) Release() error {
	if l.file == nil {
		return nil
	}

	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		l.file.Close()
		l.file = nil
		return fmt.Errorf("release lock: %w", err)
	}
	if err := l.file.Close(); err != nil {
		l.file = nil
		return fmt.Errorf("close lock file: %w", err)
	}

	os.Remove(l.path)
	l.file = nil
	return nil
}

// readHolderPID reads the PID the current holder wrote, if any.
func readHolderPID(f *os.File) string {
	buf := make([]byte, 32)
	n, err := f.ReadAt(buf, 0)
	if n == 0 && err != nil {
		return ""
	}
	return strings.TrimSpace(string(buf[:n]))
}

func releaseAndClose(f *os.File) {
	syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	f.Close()
}
