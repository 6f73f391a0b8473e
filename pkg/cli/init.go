package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/brewvault/pkg/config"
	"github.com/dshills/brewvault/pkg/runner"
)

// NewInitCommand creates the init command
func NewInitCommand(global *GlobalFlags) *cobra.Command {
	var initRepo bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize brewvault",
		Long: `Create the application directory with a starter configuration file
and the backup destination directory.

The starter config documents every setting with its default value; edit
it to change where backups go or how logs rotate.

Examples:
  brewvault init
  brewvault init --repo  # also git init the destination`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := resolveSettings(global)
			if err != nil {
				return err
			}

			appDir, err := config.AppDir()
			if err != nil {
				return fmt.Errorf("failed to locate application directory: %w", err)
			}
			if err := os.MkdirAll(appDir, 0755); err != nil {
				return fmt.Errorf("failed to create application directory: %w", err)
			}

			configPath, err := config.DefaultConfigPath()
			if err != nil {
				return fmt.Errorf("failed to locate default config: %w", err)
			}
			wrote, err := writeStarterConfig(configPath)
			if err != nil {
				return err
			}
			if wrote {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Created config: %s\n", configPath)
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  Config already exists: %s\n", configPath)
			}

			if err := os.MkdirAll(settings.Destination, 0755); err != nil {
				return fmt.Errorf("failed to create destination directory: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Created destination: %s\n", settings.Destination)

			if initRepo {
				if err := initGitRepo(cmd, settings.Destination); err != nil {
					return err
				}
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "\nNext steps:")
			step := 1
			if !initRepo {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  %d. Make the destination a git repository: git -C %s init\n", step, settings.Destination)
				step++
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  %d. Run a backup: brewvault run\n", step)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  %d. Schedule daily runs: brewvault schedule install\n", step+1)

			return nil
		},
	}

	cmd.Flags().BoolVar(&initRepo, "repo", false, "Initialize the destination as a git repository")

	return cmd
}

// writeStarterConfig writes the starter file unless one already exists.
// Returns whether a file was written.
func writeStarterConfig(path string) (bool, error) {
	err := config.WriteStarter(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	return false, err
}

// initGitRepo runs git init in the destination directory.
func initGitRepo(cmd *cobra.Command, dir string) error {
	r := runner.NewExecRunner(0)
	result, err := r.Run(cmd.Context(), runner.Command{
		Name: "git",
		Args: []string{"init"},
		Dir:  dir,
	})
	if err != nil {
		return fmt.Errorf("failed to run git: %w", err)
	}
	if !result.Success() {
		return fmt.Errorf("git init: %s", result.Output())
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Initialized git repository in %s\n", dir)
	return nil
}
