package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dshills/brewvault/pkg/launchd"
	"github.com/dshills/brewvault/pkg/runner"
)

// NewScheduleCommand creates the schedule command
func NewScheduleCommand(global *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage the daily launchd schedule",
		Long: `Manage the LaunchAgent that runs the backup on a daily schedule.

Examples:
  # Run every day at noon
  brewvault schedule install

  # Run every day at 09:30
  brewvault schedule install --hour 9 --minute 30

  # Stop scheduled runs
  brewvault schedule uninstall

  # Check whether the agent is installed and loaded
  brewvault schedule status`,
	}

	cmd.AddCommand(newScheduleInstallCommand(global))
	cmd.AddCommand(newScheduleUninstallCommand())
	cmd.AddCommand(newScheduleStatusCommand())

	return cmd
}

// newScheduleInstallCommand creates the schedule install command
func newScheduleInstallCommand(global *GlobalFlags) *cobra.Command {
	var (
		hour   int
		minute int
	)

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the LaunchAgent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := resolveSettings(global)
			if err != nil {
				return err
			}

			executable, err := os.Executable()
			if err != nil {
				return fmt.Errorf("failed to locate executable: %w", err)
			}

			job := launchd.Job{
				Program:    executable,
				Args:       []string{"run"},
				Hour:       hour,
				Minute:     minute,
				StdoutPath: filepath.Join(settings.LogDir, "launchd.out.log"),
				StderrPath: filepath.Join(settings.LogDir, "launchd.err.log"),
			}

			manager, err := launchd.NewManager(runner.NewExecRunner(0))
			if err != nil {
				return err
			}
			if err := manager.Install(cmd.Context(), job); err != nil {
				return fmt.Errorf("failed to install LaunchAgent: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Installed LaunchAgent: %s\n", launchd.Label)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  Schedule: daily at %02d:%02d\n", hour, minute)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  Plist: %s\n", manager.PlistPath())

			return nil
		},
	}

	cmd.Flags().IntVar(&hour, "hour", 12, "Hour of day to run (0-23)")
	cmd.Flags().IntVar(&minute, "minute", 0, "Minute of the hour to run (0-59)")

	return cmd
}

// newScheduleUninstallCommand creates the schedule uninstall command
func newScheduleUninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the LaunchAgent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := launchd.NewManager(runner.NewExecRunner(0))
			if err != nil {
				return err
			}
			if err := manager.Uninstall(cmd.Context()); err != nil {
				return fmt.Errorf("failed to uninstall LaunchAgent: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed LaunchAgent: %s\n", launchd.Label)
			return nil
		},
	}
}

// newScheduleStatusCommand creates the schedule status command
func newScheduleStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the LaunchAgent state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := launchd.NewManager(runner.NewExecRunner(0))
			if err != nil {
				return err
			}
			status, err := manager.Inspect(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to inspect LaunchAgent: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Agent: %s\n", launchd.Label)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Plist: %s\n", status.PlistPath)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Installed: %s\n", yesNo(status.Installed))
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Loaded: %s\n", yesNo(status.Loaded))

			return nil
		},
	}
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
