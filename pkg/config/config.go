// Package config resolves the layered run configuration into one
// immutable Settings value.
//
// Precedence, highest to lowest:
//
//  1. explicit command-line flag values
//  2. user-specified configuration file (--config)
//  3. default configuration file (~/.brewvault/config.yaml)
//  4. BREWVAULT_* environment variables
//  5. built-in defaults
//
// Sources are modeled as an ordered list of partial settings and folded
// lowest-precedence first; each later source overwrites only the fields
// it explicitly sets. After folding, path fields expand a leading ~ and
// embedded $VAR references, then validation runs. Validation failures
// surface as *validation.FieldError (configuration error) or
// *validation.PathError (permission error) so the CLI can map them to
// the documented exit codes.
package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	// ArtifactName is the fixed file name of the generated artifact
	// inside the destination directory.
	ArtifactName = "Brewfile"

	// EnvConfigDir relocates the application directory (config file,
	// history database, run lock). Used by tests and nonstandard setups.
	EnvConfigDir = "BREWVAULT_CONFIG_DIR"

	appDirName      = ".brewvault"
	configFileName  = "config.yaml"
	historyFileName = "history.db"
	lockFileName    = "brewvault.lock"

	defaultDestination = "~/.brewvault/backup"
	defaultLogDir      = "~/Library/Logs/brewvault"

	// DefaultMaxLogSize is the rotation threshold: 10 MiB.
	DefaultMaxLogSize = int64(10 * 1024 * 1024)
	// DefaultMaxLogFiles is how many rotated logs are retained.
	DefaultMaxLogFiles = 5
	// DefaultCommandTimeout bounds each external tool invocation.
	DefaultCommandTimeout = 30 * time.Minute
)

// Settings is the resolved configuration of one run. It is produced
// once by Resolve and never mutated afterwards.
type Settings struct {
	// Destination is the directory receiving the Brewfile artifact and,
	// when it is a git working tree, the commit history.
	Destination string
	// LogDir is where the rotating run log lives.
	LogDir string
	// MaxLogSize is the rotation threshold in bytes.
	MaxLogSize int64
	// MaxLogFiles is the retained rotated-log count.
	MaxLogFiles int
	// CommitEnabled gates the git commit step.
	CommitEnabled bool
	// CommandTimeout bounds each subprocess call; 0 disables the deadline.
	CommandTimeout time.Duration
	// NotifyOnFailure fires a macOS notification when a run fails.
	NotifyOnFailure bool
}

// ArtifactPath returns the full path of the artifact file.
func (s Settings) ArtifactPath() string {
	return filepath.Join(s.Destination, ArtifactName)
}

// Partial is one source's contribution to the configuration. A nil
// field means "not set here": it falls through to the sources below.
type Partial struct {
	Destination     *string
	LogDir          *string
	MaxLogSize      *int64
	MaxLogFiles     *int
	CommitEnabled   *bool
	CommandTimeout  *time.Duration
	NotifyOnFailure *bool
}

// Source pairs a Partial with the name of where it came from, for
// error messages and the resolved-config display.
type Source struct {
	Name   string
	Values Partial
}

// Defaults returns the built-in defaults. Path fields are returned
// unexpanded; Resolve expands them along with every other source.
func Defaults() Settings {
	return Settings{
		Destination:     defaultDestination,
		LogDir:          defaultLogDir,
		MaxLogSize:      DefaultMaxLogSize,
		MaxLogFiles:     DefaultMaxLogFiles,
		CommitEnabled:   true,
		CommandTimeout:  DefaultCommandTimeout,
		NotifyOnFailure: false,
	}
}

// apply overwrites the fields that p explicitly sets.
func (s *Settings) apply(p Partial) {
	if p.Destination != nil {
		s.Destination = *p.Destination
	}
	if p.LogDir != nil {
		s.LogDir = *p.LogDir
	}
	if p.MaxLogSize != nil {
		s.MaxLogSize = *p.MaxLogSize
	}
	if p.MaxLogFiles != nil {
		s.MaxLogFiles = *p.MaxLogFiles
	}
	if p.CommitEnabled != nil {
		s.CommitEnabled = *p.CommitEnabled
	}
	if p.CommandTimeout != nil {
		s.CommandTimeout = *p.CommandTimeout
	}
	if p.NotifyOnFailure != nil {
		s.NotifyOnFailure = *p.NotifyOnFailure
	}
}

// AppDir returns the application directory: $BREWVAULT_CONFIG_DIR when
// set, otherwise ~/.brewvault.
func AppDir() (string, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDirName), nil
}

// DefaultConfigPath returns the fixed well-known config file location.
func DefaultConfigPath() (string, error) {
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// HistoryPath returns the run-history database location.
func HistoryPath() (string, error) {
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, historyFileName), nil
}

// LockPath returns the run-lock file location.
func LockPath() (string, error) {
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, lockFileName), nil
}
