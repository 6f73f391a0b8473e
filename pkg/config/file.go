package config

import (
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/brewvault/pkg/validation"
)

// fileConfig is the YAML shape of a configuration file. Pointer fields
// distinguish "absent" from zero values so a file only overrides what
// it actually says.
type fileConfig struct {
	Destination     *string `yaml:"destination"`
	LogDir          *string `yaml:"log_dir"`
	MaxLogSize      *int64  `yaml:"max_log_size"`
	MaxLogFiles     *int    `yaml:"max_log_files"`
	CommitEnabled   *bool   `yaml:"commit_enabled"`
	CommandTimeout  *string `yaml:"command_timeout"`
	NotifyOnFailure *bool   `yaml:"notify_on_failure"`
}

// LoadFile reads one YAML configuration file into a Source.
//
// The raw document is schema-checked before any value is accepted, so
// unknown keys and wrong-typed values are rejected as configuration
// errors naming the offending field. A missing file is returned as an
// error satisfying errors.Is(err, fs.ErrNotExist); callers decide
// whether that is fatal (an explicitly requested file) or fine (the
// default file simply is not there).
func LoadFile(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// An empty or comment-only file sets nothing.
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Source{}, validation.NewFieldError("config file", path,
			fmt.Sprintf("not valid YAML: %v", err))
	}
	if doc == nil {
		return Source{Name: path}, nil
	}

	if err := validateRaw(doc); err != nil {
		return Source{}, err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Source{}, validation.NewFieldError("config file", path,
			fmt.Sprintf("cannot decode: %v", err))
	}

	p := Partial{
		Destination:     fc.Destination,
		LogDir:          fc.LogDir,
		MaxLogSize:      fc.MaxLogSize,
		MaxLogFiles:     fc.MaxLogFiles,
		CommitEnabled:   fc.CommitEnabled,
		NotifyOnFailure: fc.NotifyOnFailure,
	}
	if fc.CommandTimeout != nil {
		timeout, err := time.ParseDuration(*fc.CommandTimeout)
		if err != nil {
			return Source{}, validation.NewFieldError("command_timeout", *fc.CommandTimeout,
				"must be a duration such as 30m")
		}
		p.CommandTimeout = &timeout
	}

	return Source{Name: path, Values: p}, nil
}

// starterTemplate is the commented config written by `brewvault init`.
// Values track the built-in defaults; everything is commented out so
// the file documents the knobs without pinning them.
const starterTemplate = `# brewvault configuration
#
# Every key is optional. Unset keys fall through to environment
# variables (BREWVAULT_*) and then to the built-in defaults shown here.

# Directory receiving the Brewfile artifact. Make it a git repository
# to get commit history for every change.
#destination: %s

# Directory for the rotating run log.
#log_dir: %s

# Rotation threshold in bytes (default 10 MiB).
#max_log_size: %d

# How many rotated log files to keep.
#max_log_files: %d

# Set false to skip the git commit step entirely.
#commit_enabled: true

# Deadline for each external command (Go duration; 0 disables).
#command_timeout: 30m

# macOS notification when a run fails.
#notify_on_failure: false
`

// WriteStarter writes the commented starter configuration to path,
// atomically (temp file + rename). It refuses to overwrite an existing
// file, returning an error satisfying errors.Is(err, fs.ErrExist).
func WriteStarter(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s: %w", path, fs.ErrExist)
	}

	content := fmt.Sprintf(starterTemplate,
		defaultDestination, defaultLogDir, DefaultMaxLogSize, DefaultMaxLogFiles)
	return writeFileAtomic(path, []byte(content))
}

// writeFileAtomic writes data via a temp file + rename so readers never
// observe a half-written file.
func writeFileAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"

	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tempPath, err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
