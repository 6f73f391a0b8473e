package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/brewvault/pkg/validation"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestLoadFileEmpty(t *testing.T) {
	path := writeConfig(t, "# only comments here\n")

	source, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, path, source.Name)
	assert.Equal(t, Partial{}, source.Values)
}

func TestLoadFileValues(t *testing.T) {
	path := writeConfig(t, `
destination: /data/backup
log_dir: /data/logs
max_log_size: 2048
max_log_files: 7
commit_enabled: false
command_timeout: 45m
notify_on_failure: true
`)

	source, err := LoadFile(path)
	require.NoError(t, err)

	require.NotNil(t, source.Values.Destination)
	assert.Equal(t, "/data/backup", *source.Values.Destination)
	require.NotNil(t, source.Values.LogDir)
	assert.Equal(t, "/data/logs", *source.Values.LogDir)
	require.NotNil(t, source.Values.MaxLogSize)
	assert.Equal(t, int64(2048), *source.Values.MaxLogSize)
	require.NotNil(t, source.Values.MaxLogFiles)
	assert.Equal(t, 7, *source.Values.MaxLogFiles)
	require.NotNil(t, source.Values.CommitEnabled)
	assert.False(t, *source.Values.CommitEnabled)
	require.NotNil(t, source.Values.CommandTimeout)
	assert.Equal(t, 45*time.Minute, *source.Values.CommandTimeout)
	require.NotNil(t, source.Values.NotifyOnFailure)
	assert.True(t, *source.Values.NotifyOnFailure)
}

func TestLoadFilePartialValues(t *testing.T) {
	path := writeConfig(t, "max_log_files: 3\n")

	source, err := LoadFile(path)
	require.NoError(t, err)

	require.NotNil(t, source.Values.MaxLogFiles)
	assert.Equal(t, 3, *source.Values.MaxLogFiles)
	assert.Nil(t, source.Values.Destination)
	assert.Nil(t, source.Values.MaxLogSize)
}

func TestLoadFileRejectsUnknownKey(t *testing.T) {
	path := writeConfig(t, "destinaton: /data/backup\n")

	_, err := LoadFile(path)

	var fieldErr *validation.FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Contains(t, fieldErr.Error(), "destinaton")
}

func TestLoadFileRejectsWrongType(t *testing.T) {
	tests := []struct {
		name    string
		content string
		mention string
	}{
		{
			name:    "destination as number",
			content: "destination: 42\n",
			mention: "destination",
		},
		{
			name:    "max_log_size as string",
			content: "max_log_size: plenty\n",
			mention: "max_log_size",
		},
		{
			name:    "commit_enabled as string",
			content: "commit_enabled: definitely\n",
			mention: "commit_enabled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)

			_, err := LoadFile(path)

			var fieldErr *validation.FieldError
			require.ErrorAs(t, err, &fieldErr)
			assert.Contains(t, fieldErr.Error(), tt.mention)
		})
	}
}

func TestLoadFileRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, "command_timeout: banana\n")

	_, err := LoadFile(path)

	var fieldErr *validation.FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "command_timeout", fieldErr.Field)
	assert.Equal(t, "banana", fieldErr.Value)
}

func TestLoadFileRejectsInvalidYAML(t *testing.T) {
	path := writeConfig(t, "destination: [unclosed\n")

	_, err := LoadFile(path)

	var fieldErr *validation.FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Contains(t, fieldErr.Error(), "not valid YAML")
}

func TestWriteStarter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	require.NoError(t, WriteStarter(path))

	// The starter is fully commented: loading it sets nothing.
	source, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Partial{}, source.Values)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "#destination:")
	assert.Contains(t, string(content), "#commit_enabled: true")
}

func TestWriteStarterRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("destination: /keep/me\n"), 0o644))

	err := WriteStarter(path)

	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrExist))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "destination: /keep/me\n", string(content))
}
