package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCommand creates the config command
func NewConfigCommand(global *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Print the resolved configuration as YAML.

This is the configuration a run would use right now, after folding
built-in defaults, BREWVAULT_* environment variables, the config file,
and command-line flags, with paths fully expanded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := resolveSettings(global)
			if err != nil {
				return err
			}

			out := struct {
				Destination     string `yaml:"destination"`
				LogDir          string `yaml:"log_dir"`
				MaxLogSize      int64  `yaml:"max_log_size"`
				MaxLogFiles     int    `yaml:"max_log_files"`
				CommitEnabled   bool   `yaml:"commit_enabled"`
				CommandTimeout  string `yaml:"command_timeout"`
				NotifyOnFailure bool   `yaml:"notify_on_failure"`
			}{
				Destination:     settings.Destination,
				LogDir:          settings.LogDir,
				MaxLogSize:      settings.MaxLogSize,
				MaxLogFiles:     settings.MaxLogFiles,
				CommitEnabled:   settings.CommitEnabled,
				CommandTimeout:  settings.CommandTimeout.String(),
				NotifyOnFailure: settings.NotifyOnFailure,
			}

			data, err := yaml.Marshal(out)
			if err != nil {
				return fmt.Errorf("failed to marshal configuration: %w", err)
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	return cmd
}
