package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/brewvault/pkg/validation"
)

func strPtr(s string) *string               { return &s }
func int64Ptr(v int64) *int64               { return &v }
func intPtr(v int) *int                     { return &v }
func boolPtr(v bool) *bool                  { return &v }
func durPtr(d time.Duration) *time.Duration { return &d }

// tempPaths returns a Source pinning destination and log_dir to fresh
// temp directories, so resolution never touches the real home.
func tempPaths(t *testing.T) Source {
	t.Helper()
	return Source{
		Name: "test paths",
		Values: Partial{
			Destination: strPtr(filepath.Join(t.TempDir(), "backup")),
			LogDir:      strPtr(filepath.Join(t.TempDir(), "logs")),
		},
	}
}

func TestDefaults(t *testing.T) {
	s := Defaults()

	assert.Equal(t, "~/.brewvault/backup", s.Destination)
	assert.Equal(t, "~/Library/Logs/brewvault", s.LogDir)
	assert.Equal(t, int64(10*1024*1024), s.MaxLogSize)
	assert.Equal(t, 5, s.MaxLogFiles)
	assert.True(t, s.CommitEnabled)
	assert.Equal(t, 30*time.Minute, s.CommandTimeout)
	assert.False(t, s.NotifyOnFailure)
}

func TestArtifactPath(t *testing.T) {
	s := Settings{Destination: "/backups/brew"}
	assert.Equal(t, filepath.Join("/backups/brew", "Brewfile"), s.ArtifactPath())
}

func TestResolveLaterSourcesWin(t *testing.T) {
	low := tempPaths(t)
	lowDest := *low.Values.Destination

	highDest := filepath.Join(t.TempDir(), "override")
	high := Source{
		Name:   "command line",
		Values: Partial{Destination: strPtr(highDest)},
	}

	settings, err := Resolve(low, high)
	require.NoError(t, err)
	assert.Equal(t, highDest, settings.Destination)
	assert.NotEqual(t, lowDest, settings.Destination)

	// Fields the higher source leaves unset fall through.
	assert.Equal(t, *low.Values.LogDir, settings.LogDir)
	assert.Equal(t, DefaultMaxLogSize, settings.MaxLogSize)
}

func TestResolveMergesDisjointFields(t *testing.T) {
	settings, err := Resolve(
		tempPaths(t),
		Source{Name: "env", Values: Partial{MaxLogSize: int64Ptr(2048), CommitEnabled: boolPtr(false)}},
		Source{Name: "file", Values: Partial{MaxLogFiles: intPtr(9), CommandTimeout: durPtr(5 * time.Minute)}},
		Source{Name: "cli", Values: Partial{NotifyOnFailure: boolPtr(true)}},
	)

	require.NoError(t, err)
	assert.Equal(t, int64(2048), settings.MaxLogSize)
	assert.Equal(t, 9, settings.MaxLogFiles)
	assert.False(t, settings.CommitEnabled)
	assert.Equal(t, 5*time.Minute, settings.CommandTimeout)
	assert.True(t, settings.NotifyOnFailure)
}

func TestResolveExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	settings, err := Resolve(Source{
		Name: "test",
		Values: Partial{
			Destination: strPtr("~/brewvault-resolve-test/backup"),
			LogDir:      strPtr(filepath.Join(t.TempDir(), "logs")),
		},
	})

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "brewvault-resolve-test", "backup"), settings.Destination)
}

func TestResolveExpandsEnvVars(t *testing.T) {
	root := t.TempDir()
	t.Setenv("BREWVAULT_TEST_ROOT", root)

	settings, err := Resolve(Source{
		Name: "test",
		Values: Partial{
			Destination: strPtr("$BREWVAULT_TEST_ROOT/backup"),
			LogDir:      strPtr(filepath.Join(t.TempDir(), "logs")),
		},
	})

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "backup"), settings.Destination)
}

func TestResolveRejectsNegativeValues(t *testing.T) {
	tests := []struct {
		name   string
		values Partial
		field  string
	}{
		{
			name:   "negative max_log_size",
			values: Partial{MaxLogSize: int64Ptr(-1)},
			field:  "max_log_size",
		},
		{
			name:   "negative max_log_files",
			values: Partial{MaxLogFiles: intPtr(-3)},
			field:  "max_log_files",
		},
		{
			name:   "negative command_timeout",
			values: Partial{CommandTimeout: durPtr(-time.Second)},
			field:  "command_timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tempPaths(t), Source{Name: "bad", Values: tt.values})

			var fieldErr *validation.FieldError
			require.ErrorAs(t, err, &fieldErr)
			assert.Equal(t, tt.field, fieldErr.Field)
		})
	}
}

func TestResolveRejectsUnusableDestination(t *testing.T) {
	file := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := Resolve(Source{
		Name: "test",
		Values: Partial{
			Destination: strPtr(file),
			LogDir:      strPtr(filepath.Join(t.TempDir(), "logs")),
		},
	})

	var pathErr *validation.PathError
	require.ErrorAs(t, err, &pathErr)
	assert.Equal(t, file, pathErr.Path)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("BREWVAULT_TEST_VAR", "varvalue")

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "empty", path: "", want: ""},
		{name: "plain", path: "/var/backups", want: "/var/backups"},
		{name: "bare tilde", path: "~", want: home},
		{name: "tilde prefix", path: "~/backups", want: filepath.Join(home, "backups")},
		{name: "env var", path: "/data/$BREWVAULT_TEST_VAR/x", want: "/data/varvalue/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandPath(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromEnvUnsetLeavesFieldsNil(t *testing.T) {
	for _, key := range []string{
		EnvDestination, EnvLogDir, EnvMaxLogSize, EnvMaxLogFiles,
		EnvCommitEnabled, EnvCommandTimeout, EnvNotify,
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	source, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "environment", source.Name)
	assert.Nil(t, source.Values.Destination)
	assert.Nil(t, source.Values.LogDir)
	assert.Nil(t, source.Values.MaxLogSize)
	assert.Nil(t, source.Values.MaxLogFiles)
	assert.Nil(t, source.Values.CommitEnabled)
	assert.Nil(t, source.Values.CommandTimeout)
	assert.Nil(t, source.Values.NotifyOnFailure)
}

func TestFromEnvParsesValues(t *testing.T) {
	t.Setenv(EnvDestination, "/data/backup")
	t.Setenv(EnvLogDir, "/data/logs")
	t.Setenv(EnvMaxLogSize, "2048")
	t.Setenv(EnvMaxLogFiles, "7")
	t.Setenv(EnvCommitEnabled, "false")
	t.Setenv(EnvCommandTimeout, "15m")
	t.Setenv(EnvNotify, "true")

	source, err := FromEnv()
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
	assert.Equal(t, 15*time.Minute, *source.Values.CommandTimeout)
	require.NotNil(t, source.Values.NotifyOnFailure)
	assert.True(t, *source.Values.NotifyOnFailure)
}

func TestFromEnvRejectsUnparseableValues(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		value string
		field string
	}{
		{name: "bad size", env: EnvMaxLogSize, value: "ten", field: "max_log_size"},
		{name: "bad count", env: EnvMaxLogFiles, value: "1.5", field: "max_log_files"},
		{name: "bad bool", env: EnvCommitEnabled, value: "yep", field: "commit_enabled"},
		{name: "bad duration", env: EnvCommandTimeout, value: "30", field: "command_timeout"},
		{name: "bad notify", env: EnvNotify, value: "sometimes", field: "notify_on_failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.value)

			_, err := FromEnv()

			var fieldErr *validation.FieldError
			require.ErrorAs(t, err, &fieldErr)
			assert.Equal(t, tt.field, fieldErr.Field)
			assert.Equal(t, tt.value, fieldErr.Value)
		})
	}
}

func TestAppDirHonorsEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)

	appDir, err := AppDir()
	require.NoError(t, err)
	assert.Equal(t, dir, appDir)

	configPath, err := DefaultConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), configPath)

	historyPath, err := HistoryPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "history.db"), historyPath)

	lockPath, err := LockPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "brewvault.lock"), lockPath)
}

func TestAppDirDefaultsToHome(t *testing.T) {
	t.Setenv(EnvConfigDir, "")
	require.NoError(t, os.Unsetenv(EnvConfigDir))

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	appDir, err := AppDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".brewvault"), appDir)
}
