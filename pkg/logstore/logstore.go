// Package logstore implements the run log: an append-only, timestamped
// text log with size-triggered rotation and count-bounded retention.
//
// The log file is the durable diagnostic record of every maintenance
// run. Each entry is one line in a stable, parseable format:
//
//	[2026-01-02T15:04:05+0000] [INFO] message
//
// INFO and WARN entries echo to stdout, ERROR and FATAL to stderr, so
// interactive and scheduled invocations surface problems immediately
// while the file keeps the full history.
package logstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dshills/brewvault/pkg/validation"
)

// Level is the severity of a log entry.
type Level string

const (
	// LevelInfo marks routine progress entries.
	LevelInfo Level = "INFO"
	// LevelWarn marks recoverable oddities that need no action.
	LevelWarn Level = "WARN"
	// LevelError marks step failures that do not abort the run.
	LevelError Level = "ERROR"
	// LevelFatal marks failures that abort the run.
	LevelFatal Level = "FATAL"
)

const (
	// ActiveLogName is the active log file name inside the log directory.
	ActiveLogName = "brewvault.log"

	// entryTimeFormat renders UTC wall time at second precision with an
	// explicit numeric offset (always +0000).
	entryTimeFormat = "2006-01-02T15:04:05-0700"

	// rotationTimeFormat names rotated files; lexicographic order of the
	// suffix matches chronological order.
	rotationTimeFormat = "20060102T150405"
)

// Store is the append-only log with rotation and retention.
//
// Writes never fail the caller: an entry that cannot reach the file is
// reported on stderr and dropped. Only construction is strict, because
// a run without a log directory has no diagnostic record at all.
type Store struct {
	dir      string
	path     string
	maxSize  int64
	maxFiles int
	file     *os.File
	stdout   io.Writer
	stderr   io.Writer
	verbose  bool
}

// New opens (or creates) the active log file inside dir.
//
// The directory is created if missing. Failure to create or open is
// returned as a *validation.PathError: diagnostics are a hard
// prerequisite for a run, and the caller maps this to the
// permission-error exit status.
func New(dir string, maxSize int64, maxFiles int) (*Store, error) {
	return NewWithWriters(dir, maxSize, maxFiles, os.Stdout, os.Stderr)
}

// NewWithWriters is New with explicit echo destinations. Tests use it
// to capture the stdout/stderr echo streams.
func NewWithWriters(dir string, maxSize int64, maxFiles int, stdout, stderr io.Writer) (*Store, error) {
	if err := validation.EnsureDir(dir); err != nil {
		return nil, err
	}

	s := &Store{
		dir:      dir,
		path:     filepath.Join(dir, ActiveLogName),
		maxSize:  maxSize,
		maxFiles: maxFiles,
		stdout:   stdout,
		stderr:   stderr,
	}
	if err := s.openActive(); err != nil {
		return nil, err
	}
	return s, nil
}

// openActive opens the active log file for appending.
func (s *Store) openActive() error {
	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return &validation.PathError{
			Path:      s.path,
			Reason:    "cannot open log file",
			Timestamp: time.Now().UTC(),
			Cause:     err,
		}
	}
	s.file = file
	return nil
}

// SetVerbose toggles the extra detail lines written by Verbosef.
func (s *Store) SetVerbose(verbose bool) {
	s.verbose = verbose
}

// Path returns the active log file path.
func (s *Store) Path() string {
	return s.path
}

// Dir returns the log directory.
func (s *Store) Dir() string {
	return s.dir
}

// Append formats and writes one entry to the active log file and echoes
// it to stdout (INFO, WARN) or stderr (ERROR, FATAL).
//
// A failed file write never aborts the run: the loss is reported on
// stderr and the entry is dropped from the durable record.
func (s *Store) Append(level Level, message string) {
	line := fmt.Sprintf("[%s] [%s] %s",
		time.Now().UTC().Format(entryTimeFormat), level, message)

	switch level {
	case LevelError, LevelFatal:
		fmt.Fprintln(s.stderr, line)
	default:
		fmt.Fprintln(s.stdout, line)
	}

	if s.file == nil {
		fmt.Fprintf(s.stderr, "log write skipped (no open log file): %s\n", line)
		return
	}
	if _, err := s.file.WriteString(line + "\n"); err != nil {
		fmt.Fprintf(s.stderr, "failed to write log entry: %v\n", err)
		return
	}
	if err := s.file.Sync(); err != nil {
		fmt.Fprintf(s.stderr, "failed to sync log file: %v\n", err)
	}
}

// Infof appends an INFO entry with Sprintf formatting.
func (s *Store) Infof(format string, args ...interface{}) {
	s.Append(LevelInfo, fmt.Sprintf(format, args...))
}

// Warnf appends a WARN entry with Sprintf formatting.
func (s *Store) Warnf(format string, args ...interface{}) {
	s.Append(LevelWarn, fmt.Sprintf(format, args...))
}

// Errorf appends an ERROR entry with Sprintf formatting.
func (s *Store) Errorf(format string, args ...interface{}) {
	s.Append(LevelError, fmt.Sprintf(format, args...))
}

// Fatalf appends a FATAL entry with Sprintf formatting. It does not
// exit; the orchestrator owns process termination.
func (s *Store) Fatalf(format string, args ...interface{}) {
	s.Append(LevelFatal, fmt.Sprintf(format, args...))
}

// Verbosef appends an INFO entry only when verbose mode is on. Used for
// subprocess command lines and output tails.
func (s *Store) Verbosef(format string, args ...interface{}) {
	if !s.verbose {
		return
	}
	s.Infof(format, args...)
}

// RotateIfNeeded rotates the active log file when its size has reached
// the configured maximum.
//
// Rotation renames the active file to ActiveLogName + "." + a UTC
// rotation timestamp at second precision, then starts a fresh empty
// active file and enforces retention. When the active file does not
// exist the call is a no-op. The size comparison is >=, so a maximum of
// 0 rotates on every call.
func (s *Store) RotateIfNeeded() error {
	info, err := os.Stat(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	if info.Size() < s.maxSize {
		return nil
	}

	if s.file != nil {
		if err := s.file.Close(); err != nil {
			return fmt.Errorf("failed to close log file before rotation: %w", err)
		}
		s.file = nil
	}

	rotated := s.rotatedName(time.Now().UTC())
	if err := os.Rename(s.path, rotated); err != nil {
		// Keep logging into the old file rather than losing entries.
		if reopenErr := s.openActive(); reopenErr != nil {
			return fmt.Errorf("failed to rename log file: %v (reopen also failed: %w)", err, reopenErr)
		}
		return fmt.Errorf("failed to rename log file: %w", err)
	}

	if err := s.openActive(); err != nil {
		return fmt.Errorf("failed to open fresh log file after rotation: %w", err)
	}

	return s.enforceRetention()
}

// rotatedName picks a rotated file name for the given rotation time,
// appending a numeric counter when a rotation in the same second
// already produced that name.
func (s *Store) rotatedName(now time.Time) string {
	base := s.path + "." + now.Format(rotationTimeFormat)
	name := base
	for n := 1; ; n++ {
		if _, err := os.Stat(name); os.IsNotExist(err) {
			return name
		}
		name = fmt.Sprintf("%s.%d", base, n)
	}
}

// enforceRetention deletes rotated log files, oldest first, until at
// most maxFiles remain. Oldest is decided by modification time; equal
// times fall back to lexicographic name order, which for rotation
// suffixes is chronological.
func (s *Store) enforceRetention() error {
	rotated, err := s.listRotated()
	if err != nil {
		return err
	}
	if len(rotated) <= s.maxFiles {
		return nil
	}

	var firstErr error
	for _, file := range rotated[:len(rotated)-s.maxFiles] {
		if err := os.Remove(file.path); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to delete rotated log %s: %w", filepath.Base(file.path), err)
		}
	}
	return firstErr
}

type rotatedFile struct {
	path    string
	modTime time.Time
}

// listRotated returns the rotated log files sorted oldest first.
func (s *Store) listRotated() ([]rotatedFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list log directory: %w", err)
	}

	files := make([]rotatedFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == ActiveLogName || !strings.HasPrefix(name, ActiveLogName+".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, rotatedFile{
			path:    filepath.Join(s.dir, name),
			modTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].modTime.Equal(files[j].modTime) {
			return files[i].path < files[j].path
		}
		return files[i].modTime.Before(files[j].modTime)
	})
	return files, nil
}

// Close syncs and closes the active log file.
func (s *Store) Close() error {
	if s.file == nil {
		return nil
	}
	if err := s.file.Sync(); err != nil {
		s.file.Close()
		s.file = nil
		return err
	}
	err := s.file.Close()
	s.file = nil
	return err
}
