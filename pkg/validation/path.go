package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// PathError represents a required directory that cannot be used.
//
// It is distinct from FieldError: the configuration value parsed fine,
// but the filesystem refuses it (missing permissions, uncreatable
// parent). Callers map it to the permission-error exit status.
type PathError struct {
	Path      string    // Directory that was rejected
	Reason    string    // Human-readable reason for rejection
	Timestamp time.Time // When the check failed
	Cause     error     // Underlying OS error (optional)
}

// Error implements the error interface.
//
// Format: "path not usable: {Path}: {Reason}"
func (e *PathError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("path not usable: %s: %s: %v", e.Path, e.Reason, e.Cause)
	}
	return fmt.Sprintf("path not usable: %s: %s", e.Path, e.Reason)
}

// Unwrap returns the underlying OS error for errors.Is/As support.
func (e *PathError) Unwrap() error {
	return e.Cause
}

// CheckWritableDir validates that dir is a writable directory, or that
// it could be created under a writable existing ancestor.
//
// The check is a real write probe: for an existing directory a temp
// file is created and removed; for a missing one the nearest existing
// ancestor is probed the same way.
//
// Returns nil when usable, or a *PathError describing the refusal.
func CheckWritableDir(dir string) error {
	if dir == "" {
		return &PathError{
			Path:      dir,
			Reason:    "path cannot be empty",
			Timestamp: time.Now().UTC(),
		}
	}

	info, err := os.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return &PathError{
				Path:      dir,
				Reason:    "exists but is not a directory",
				Timestamp: time.Now().UTC(),
			}
		}
		return probeWrite(dir)
	case os.IsNotExist(err):
		ancestor := nearestExistingAncestor(dir)
		if ancestor == "" {
			return &PathError{
				Path:      dir,
				Reason:    "no existing ancestor directory",
				Timestamp: time.Now().UTC(),
			}
		}
		if probeErr := probeWrite(ancestor); probeErr != nil {
			return &PathError{
				Path:      dir,
				Reason:    fmt.Sprintf("cannot be created under %s", ancestor),
				Timestamp: time.Now().UTC(),
				Cause:     probeErr,
			}
		}
		return nil
	default:
		return &PathError{
			Path:      dir,
			Reason:    "cannot stat",
			Timestamp: time.Now().UTC(),
			Cause:     err,
		}
	}
}

// EnsureDir creates dir (and parents) if missing.
//
// Returns a *PathError when creation fails so callers can map it to the
// permission-error exit status.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &PathError{
			Path:      dir,
			Reason:    "cannot create directory",
			Timestamp: time.Now().UTC(),
			Cause:     err,
		}
	}
	return nil
}

// probeWrite verifies writability by creating and removing a temp file.
func probeWrite(dir string) error {
	f, err := os.CreateTemp(dir, ".writecheck-*")
	if err != nil {
		return &PathError{
			Path:      dir,
			Reason:    "not writable",
			Timestamp: time.Now().UTC(),
			Cause:     err,
		}
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return nil
}

// nearestExistingAncestor walks up from dir until a path that exists is
// found. Returns "" when nothing up to the root exists.
func nearestExistingAncestor(dir string) string {
	current := filepath.Clean(dir)
	for {
		if _, err := os.Stat(current); err == nil {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			return ""
		}
		current = parent
	}
}
