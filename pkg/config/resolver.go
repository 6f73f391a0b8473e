package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dshills/brewvault/pkg/validation"
)

// Resolve folds the given sources over the built-in defaults, lowest
// precedence first, then expands path fields and validates the result.
//
// Callers pass sources in precedence order (lowest first); Resolve does
// not reorder them. The returned Settings is complete and validated:
// numeric fields are non-negative and both the destination and the log
// directory are writable or creatable.
func Resolve(sources ...Source) (Settings, error) {
	s := Defaults()
	for _, src := range sources {
		s.apply(src.Values)
	}

	var err error
	if s.Destination, err = ExpandPath(s.Destination); err != nil {
		return Settings{}, validation.NewFieldError("destination", s.Destination, err.Error())
	}
	if s.LogDir, err = ExpandPath(s.LogDir); err != nil {
		return Settings{}, validation.NewFieldError("log_dir", s.LogDir, err.Error())
	}

	if err := validate(s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// validate enforces the Settings invariants.
func validate(s Settings) error {
	if err := validation.NonNegative("max_log_size", s.MaxLogSize); err != nil {
		return err
	}
	if err := validation.NonNegative("max_log_files", int64(s.MaxLogFiles)); err != nil {
		return err
	}
	if s.CommandTimeout < 0 {
		return validation.NewFieldError("command_timeout", s.CommandTimeout.String(),
			"must be a non-negative duration")
	}
	if err := validation.CheckWritableDir(s.Destination); err != nil {
		return err
	}
	if err := validation.CheckWritableDir(s.LogDir); err != nil {
		return err
	}
	return nil
}

// ExpandPath expands a leading ~ to the user's home directory and
// embedded $VAR references to their environment values.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot expand ~: %w", err)
		}
		if path == "~" {
			path = home
		} else {
			path = filepath.Join(home, path[2:])
		}
	}
	return os.ExpandEnv(path), nil
}

// Environment variable names recognized by FromEnv.
const (
	EnvDestination    = "BREWVAULT_DESTINATION"
	EnvLogDir         = "BREWVAULT_LOG_DIR"
	EnvMaxLogSize     = "BREWVAULT_MAX_LOG_SIZE"
	EnvMaxLogFiles    = "BREWVAULT_MAX_LOG_FILES"
	EnvCommitEnabled  = "BREWVAULT_COMMIT_ENABLED"
	EnvCommandTimeout = "BREWVAULT_COMMAND_TIMEOUT"
	EnvNotify         = "BREWVAULT_NOTIFY"
)

// FromEnv builds the environment-variable source. Unset variables leave
// their fields nil. A set-but-unparseable variable is a configuration
// error.
func FromEnv() (Source, error) {
	var p Partial

	if v, ok := os.LookupEnv(EnvDestination); ok {
		p.Destination = &v
	}
	if v, ok := os.LookupEnv(EnvLogDir); ok {
		p.LogDir = &v
	}
	if v, ok := os.LookupEnv(EnvMaxLogSize); ok {
		size, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Source{}, validation.NewFieldError("max_log_size", v,
				fmt.Sprintf("%s must be an integer", EnvMaxLogSize))
		}
		p.MaxLogSize = &size
	}
	if v, ok := os.LookupEnv(EnvMaxLogFiles); ok {
		count, err := strconv.Atoi(v)
		if err != nil {
			return Source{}, validation.NewFieldError("max_log_files", v,
				fmt.Sprintf("%s must be an integer", EnvMaxLogFiles))
		}
		p.MaxLogFiles = &count
	}
	if v, ok := os.LookupEnv(EnvCommitEnabled); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return Source{}, validation.NewFieldError("commit_enabled", v,
				fmt.Sprintf("%s must be a boolean", EnvCommitEnabled))
		}
		p.CommitEnabled = &enabled
	}
	if v, ok := os.LookupEnv(EnvCommandTimeout); ok {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return Source{}, validation.NewFieldError("command_timeout", v,
				fmt.Sprintf("%s must be a duration such as 30m", EnvCommandTimeout))
		}
		p.CommandTimeout = &timeout
	}
	if v, ok := os.LookupEnv(EnvNotify); ok {
		notify, err := strconv.ParseBool(v)
		if err != nil {
			return Source{}, validation.NewFieldError("notify_on_failure", v,
				fmt.Sprintf("%s must be a boolean", EnvNotify))
		}
		p.NotifyOnFailure = &notify
	}

	return Source{Name: "environment", Values: p}, nil
}
