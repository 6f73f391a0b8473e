// Package cli wires the command tree and maps outcomes to process exit
// codes.
package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/brewvault/pkg/backup"
	"github.com/dshills/brewvault/pkg/config"
)

const (
	// Version is the current version of brewvault
	Version = "1.0.0"
)

// GlobalFlags holds the flags shared by all subcommands
type GlobalFlags struct {
	ConfigFile string
	Verbose    bool
}

// NewRootCommand creates the root cobra command for brewvault
func NewRootCommand() *cobra.Command {
	flags := &GlobalFlags{}

	cmd := &cobra.Command{
		Use:   "brewvault",
		Short: "brewvault - Homebrew configuration backup",
		Long: `brewvault keeps your Homebrew configuration backed up.
Each run makes sure Homebrew is installed and up to date, exports the
installed packages to a Brewfile, and commits it to a local git
repository so every change to your setup stays in history.

Designed to run unattended on a schedule via launchd.`,
		Version:      Version,
		SilenceUsage: true,
	}

	// Persistent flags (available to all subcommands)
	cmd.PersistentFlags().StringVar(&flags.ConfigFile, "config", "", "Configuration file (default: ~/.brewvault/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewRunCommand(flags))
	cmd.AddCommand(NewInitCommand(flags))
	cmd.AddCommand(NewHistoryCommand())
	cmd.AddCommand(NewLogsCommand(flags))
	cmd.AddCommand(NewConfigCommand(flags))
	cmd.AddCommand(NewScheduleCommand(flags))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

// loadSources assembles the configuration layers below the command-line
// flags, lowest precedence first: environment variables, the default
// config file (when present), then an explicitly named config file.
func loadSources(configFile string) ([]config.Source, error) {
	sources := make([]config.Source, 0, 3)

	envSource, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	sources = append(sources, envSource)

	defaultPath, err := config.DefaultConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to locate default config: %w", err)
	}
	fileSource, err := config.LoadFile(defaultPath)
	switch {
	case err == nil:
		sources = append(sources, fileSource)
	case errors.Is(err, fs.ErrNotExist):
		// No default config file is fine.
	default:
		return nil, err
	}

	if configFile != "" {
		// An explicitly named file must exist.
		userSource, err := config.LoadFile(configFile)
		if err != nil {
			return nil, err
		}
		sources = append(sources, userSource)
	}

	return sources, nil
}

// resolveSettings folds the shared layers plus a command's own flag
// values into the effective settings.
func resolveSettings(flags *GlobalFlags, cmdline ...config.Source) (config.Settings, error) {
	sources, err := loadSources(flags.ConfigFile)
	if err != nil {
		return config.Settings{}, err
	}
	sources = append(sources, cmdline...)
	return config.Resolve(sources...)
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	cmd := NewRootCommand()
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	if err := cmd.Execute(); err != nil {
		return backup.ExitCodeFor(err)
	}
	return backup.ExitSuccess
}
