package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/brewvault/pkg/backup"
	"github.com/dshills/brewvault/pkg/brew"
	"github.com/dshills/brewvault/pkg/config"
	"github.com/dshills/brewvault/pkg/gitrepo"
	"github.com/dshills/brewvault/pkg/lock"
	"github.com/dshills/brewvault/pkg/logstore"
	"github.com/dshills/brewvault/pkg/notify"
	"github.com/dshills/brewvault/pkg/runner"
	"github.com/dshills/brewvault/pkg/storage"
)

// NewRunCommand creates the run command
func NewRunCommand(global *GlobalFlags) *cobra.Command {
	var (
		destination string
		noCommit    bool
		force       bool
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a maintenance pass",
		Long: `Run one maintenance pass: make sure Homebrew is installed and up to
date, export the installed packages to a Brewfile, and commit it to the
destination git repository.

Only one run executes at a time; a second invocation fails immediately
while another is in progress.

Examples:
  # Run a backup (scheduled mode)
  brewvault run

  # Run with verbose logging
  brewvault run --verbose

  # Commit even if the Brewfile is unchanged
  brewvault run --force

  # Generate the Brewfile but change nothing
  brewvault run --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Command-line layer: only flags the user actually set.
			var cmdline config.Partial
			if cmd.Flags().Changed("destination") {
				cmdline.Destination = &destination
			}
			if noCommit {
				enabled := false
				cmdline.CommitEnabled = &enabled
			}

			settings, err := resolveSettings(global, config.Source{Name: "command line", Values: cmdline})
			if err != nil {
				return err
			}

			log, err := logstore.New(settings.LogDir, settings.MaxLogSize, settings.MaxLogFiles)
			if err != nil {
				return err
			}
			defer func() { _ = log.Close() }()
			log.SetVerbose(global.Verbose)

			appDir, err := config.AppDir()
			if err != nil {
				return fmt.Errorf("failed to locate application directory: %w", err)
			}
			if err := os.MkdirAll(appDir, 0755); err != nil {
				return fmt.Errorf("failed to create application directory: %w", err)
			}

			lockPath, err := config.LockPath()
			if err != nil {
				return fmt.Errorf("failed to locate lock file: %w", err)
			}
			runLock := lock.New(lockPath)
			if err := runLock.Acquire(); err != nil {
				log.Fatalf("Cannot start: %v", err)
				return err
			}
			defer func() { _ = runLock.Release() }()

			r := runner.NewExecRunner(settings.CommandTimeout)

			// A broken history store degrades the run, never fails it.
			var history backup.RunRepository
			if repo, err := storage.NewSQLiteRunRepository(); err != nil {
				log.Warnf("Run history unavailable: %v", err)
			} else {
				history = repo
				defer func() { _ = repo.Close() }()
			}

			var notifier backup.Notifier
			if settings.NotifyOnFailure {
				notifier = notify.New(r)
			}

			orch := backup.NewOrchestrator(backup.Deps{
				Settings:  settings,
				Log:       log,
				Brew:      brew.New(r),
				Committer: gitrepo.NewCommitter(r, settings.Destination, config.ArtifactName),
				History:   history,
				Notifier:  notifier,
				Force:     force,
				DryRun:    dryRun,
			})

			_, err = orch.Execute(cmd.Context())
			return err
		},
	}

	cmd.Flags().StringVarP(&destination, "destination", "d", "", "Backup destination directory")
	cmd.Flags().BoolVar(&noCommit, "no-commit", false, "Skip the git commit step")
	cmd.Flags().BoolVar(&force, "force", false, "Commit even if the Brewfile is unchanged")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Generate the Brewfile but skip install, upgrade, and commit")

	return cmd
}
