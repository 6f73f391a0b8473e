package logstore

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore builds a store writing echoes into buffers.
func newTestStore(t *testing.T, maxSize int64, maxFiles int) (*Store, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	s, err := NewWithWriters(t.TempDir(), maxSize, maxFiles, stdout, stderr)
	require.NoError(t, err)
	return s, stdout, stderr
}

func TestNewCreatesDirectoryAndFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs", "brewvault")

	s, err := NewWithWriters(dir, 1024, 3, &bytes.Buffer{}, &bytes.Buffer{})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	assert.Equal(t, dir, s.Dir())
	assert.Equal(t, filepath.Join(dir, ActiveLogName), s.Path())

	_, err = os.Stat(s.Path())
	assert.NoError(t, err)
}

func TestAppendEntryFormat(t *testing.T) {
	s, stdout, _ := newTestStore(t, 1024*1024, 3)
	defer func() { _ = s.Close() }()

	s.Infof("backup %s finished", "run-1")

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	// [YYYY-MM-DDTHH:MM:SS+0000] [LEVEL] message, UTC offset always +0000.
	pattern := regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\+0000\] \[INFO\] backup run-1 finished\n$`)
	assert.Regexp(t, pattern, string(data))
	assert.Equal(t, string(data), stdout.String())
}

func TestAppendLevelRouting(t *testing.T) {
	s, stdout, stderr := newTestStore(t, 1024*1024, 3)
	defer func() { _ = s.Close() }()

	s.Infof("info line")
	s.Warnf("warn line")
	s.Errorf("error line")
	s.Fatalf("fatal line")

	assert.Contains(t, stdout.String(), "[INFO] info line")
	assert.Contains(t, stdout.String(), "[WARN] warn line")
	assert.NotContains(t, stdout.String(), "error line")
	assert.NotContains(t, stdout.String(), "fatal line")

	assert.Contains(t, stderr.String(), "[ERROR] error line")
	assert.Contains(t, stderr.String(), "[FATAL] fatal line")
	assert.NotContains(t, stderr.String(), "info line")

	// The file keeps every level.
	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	for _, want := range []string{"[INFO] info line", "[WARN] warn line", "[ERROR] error line", "[FATAL] fatal line"} {
		assert.Contains(t, string(data), want)
	}
	assert.Equal(t, 4, strings.Count(string(data), "\n"))
}

func TestVerbosefGated(t *testing.T) {
	s, stdout, _ := newTestStore(t, 1024*1024, 3)
	defer func() { _ = s.Close() }()

	s.Verbosef("hidden detail")
	assert.NotContains(t, stdout.String(), "hidden detail")

	s.SetVerbose(true)
	s.Verbosef("visible detail")
	assert.Contains(t, stdout.String(), "[INFO] visible detail")
}

func TestAppendSurvivesWriteFailure(t *testing.T) {
	s, stdout, stderr := newTestStore(t, 1024*1024, 3)

	// Break the underlying file; logging must keep going.
	require.NoError(t, s.file.Close())
	s.Infof("lost line")

	assert.Contains(t, stdout.String(), "[INFO] lost line")
	assert.Contains(t, stderr.String(), "failed to write log entry")
	s.file = nil
}

func TestAppendWithoutOpenFile(t *testing.T) {
	s, stdout, stderr := newTestStore(t, 1024*1024, 3)
	require.NoError(t, s.Close())

	s.Infof("orphan line")

	assert.Contains(t, stdout.String(), "[INFO] orphan line")
	assert.Contains(t, stderr.String(), "log write skipped (no open log file)")
}

func TestRotateIfNeededBelowThreshold(t *testing.T) {
	s, _, _ := newTestStore(t, 1024*1024, 3)
	defer func() { _ = s.Close() }()

	s.Infof("small entry")
	require.NoError(t, s.RotateIfNeeded())

	rotated, err := s.listRotated()
	require.NoError(t, err)
	assert.Empty(t, rotated)
}

func TestRotateIfNeededMissingFile(t *testing.T) {
	s, _, _ := newTestStore(t, 1, 3)
	defer func() { _ = s.Close() }()

	require.NoError(t, os.Remove(s.Path()))
	assert.NoError(t, s.RotateIfNeeded())
}

func TestRotateIfNeededAtThreshold(t *testing.T) {
	dir := t.TempDir()
	out := &bytes.Buffer{}

	first, err := NewWithWriters(dir, 1024*1024, 3, out, out)
	require.NoError(t, err)
	first.Infof("the only entry")
	require.NoError(t, first.Close())

	content, err := os.ReadFile(filepath.Join(dir, ActiveLogName))
	require.NoError(t, err)
	size := int64(len(content))

	// Size equal to the maximum rotates; one byte more headroom does not.
	larger, err := NewWithWriters(dir, size+1, 3, out, out)
	require.NoError(t, err)
	require.NoError(t, larger.RotateIfNeeded())
	rotated, err := larger.listRotated()
	require.NoError(t, err)
	assert.Empty(t, rotated)
	require.NoError(t, larger.Close())

	exact, err := NewWithWriters(dir, size, 3, out, out)
	require.NoError(t, err)
	defer func() { _ = exact.Close() }()
	require.NoError(t, exact.RotateIfNeeded())

	rotated, err = exact.listRotated()
	require.NoError(t, err)
	require.Len(t, rotated, 1)

	// Rotation moves the content verbatim and starts a fresh active file.
	moved, err := os.ReadFile(rotated[0].path)
	require.NoError(t, err)
	assert.Equal(t, content, moved)

	active, err := os.ReadFile(exact.Path())
	require.NoError(t, err)
	assert.Empty(t, active)

	base := filepath.Base(rotated[0].path)
	assert.Regexp(t, regexp.MustCompile(`^`+regexp.QuoteMeta(ActiveLogName)+`\.\d{8}T\d{6}$`), base)
}

func TestRotatedNameCollision(t *testing.T) {
	s, _, _ := newTestStore(t, 1, 3)
	defer func() { _ = s.Close() }()

	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	base := s.Path() + "." + now.Format(rotationTimeFormat)

	assert.Equal(t, base, s.rotatedName(now))

	// A rotation in the same second gets a numeric counter.
	require.NoError(t, os.WriteFile(base, []byte("taken"), 0o644))
	assert.Equal(t, base+".1", s.rotatedName(now))

	require.NoError(t, os.WriteFile(base+".1", []byte("taken"), 0o644))
	assert.Equal(t, base+".2", s.rotatedName(now))
}

func TestEnforceRetentionDeletesOldestFirst(t *testing.T) {
	s, _, _ := newTestStore(t, 1024*1024, 2)
	defer func() { _ = s.Close() }()

	names := []string{
		ActiveLogName + ".20260101T120000",
		ActiveLogName + ".20260102T120000",
		ActiveLogName + ".20260103T120000",
		ActiveLogName + ".20260104T120000",
	}
	base := time.Now().Add(-24 * time.Hour)
	for i, name := range names {
		path := filepath.Join(s.Dir(), name)
		require.NoError(t, os.WriteFile(path, []byte(name), 0o644))
		stamp := base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, os.Chtimes(path, stamp, stamp))
	}

	require.NoError(t, s.enforceRetention())

	rotated, err := s.listRotated()
	require.NoError(t, err)
	require.Len(t, rotated, 2)
	assert.Equal(t, filepath.Join(s.Dir(), names[2]), rotated[0].path)
	assert.Equal(t, filepath.Join(s.Dir(), names[3]), rotated[1].path)
}

func TestEnforceRetentionTiesBreakLexicographically(t *testing.T) {
	s, _, _ := newTestStore(t, 1024*1024, 1)
	defer func() { _ = s.Close() }()

	older := filepath.Join(s.Dir(), ActiveLogName+".20260101T120000")
	newer := filepath.Join(s.Dir(), ActiveLogName+".20260102T120000")
	stamp := time.Now().Add(-time.Hour)
	for _, path := range []string{older, newer} {
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		require.NoError(t, os.Chtimes(path, stamp, stamp))
	}

	require.NoError(t, s.enforceRetention())

	// Equal modification times fall back to name order, so the earlier
	// rotation suffix goes first.
	_, err := os.Stat(older)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(newer)
	assert.NoError(t, err)
}

func TestRotateIfNeededEnforcesRetention(t *testing.T) {
	s, _, _ := newTestStore(t, 1, 1)
	defer func() { _ = s.Close() }()

	s.Infof("first generation")
	require.NoError(t, s.RotateIfNeeded())
	s.Infof("second generation")
	require.NoError(t, s.RotateIfNeeded())

	rotated, err := s.listRotated()
	require.NoError(t, err)
	require.Len(t, rotated, 1)

	content, err := os.ReadFile(rotated[0].path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "second generation")
}

func TestCloseIdempotent(t *testing.T) {
	s, _, _ := newTestStore(t, 1024, 3)

	require.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}
