// Package backup runs the maintenance sequence: make sure Homebrew is
// present and current, export the installed-package state to a
// Brewfile, record it in the destination git repository, and rotate the
// run log.
//
// The sequence is fixed and totally ordered; each step is statically
// classified as critical (abort the run) or non-critical (log and
// continue). The orchestrator owns the per-run RunState, logs every
// transition before the next step starts, and closes each run with a
// one-line summary of every step's outcome.
package backup

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/brewvault/pkg/brew"
	"github.com/dshills/brewvault/pkg/config"
	"github.com/dshills/brewvault/pkg/errors"
	"github.com/dshills/brewvault/pkg/gitrepo"
	"github.com/dshills/brewvault/pkg/logstore"
	"github.com/dshills/brewvault/pkg/validation"
)

// totalSteps is the length of the fixed sequence, used for the
// "Step n/6" progress lines.
const totalSteps = 6

// dryRunArtifactName holds the throwaway dump of a dry run so the real
// artifact is never touched.
const dryRunArtifactName = ".Brewfile.dry-run"

// Notifier delivers a user-visible notice about a failed run.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// Deps wires one run's collaborators. History and Notifier are
// optional; everything else is required.
type Deps struct {
	Settings  config.Settings
	Log       *logstore.Store
	Brew      *brew.Homebrew
	Committer *gitrepo.Committer
	History   RunRepository
	Notifier  Notifier

	// Force commits even when the artifact is unchanged.
	Force bool
	// DryRun skips the install, upgrade, and commit steps and discards
	// the generated artifact.
	DryRun bool
}

// Orchestrator executes the maintenance sequence exactly once.
type Orchestrator struct {
	deps Deps
}

// NewOrchestrator creates a single-use orchestrator.
func NewOrchestrator(deps Deps) *Orchestrator {
	return &Orchestrator{deps: deps}
}

// Execute runs the full sequence and returns the run record plus the
// critical error, if one aborted the run.
//
// Non-critical step failures are logged and recorded but produce a nil
// error: only critical failures (dependency install, artifact
// generation, an unusable required directory) surface here. The record
// is always returned, with the ledger as far as the run got.
func (o *Orchestrator) Execute(ctx context.Context) (*RunRecord, error) {
	log := o.deps.Log
	state := NewRunState()
	record := &RunRecord{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
		DryRun:    o.deps.DryRun,
	}

	log.Infof("Starting maintenance run %s", record.ID)
	if o.deps.DryRun {
		log.Infof("Dry run: install, upgrade, and commit steps will be skipped")
	}

	runErr := o.run(ctx, state, record)

	record.FinishedAt = time.Now().UTC()
	record.Steps = state.Steps
	if runErr != nil {
		record.Status = RunFailed
		record.ExitCode = ExitCodeFor(runErr)
	} else {
		record.Status = RunSuccess
		record.ExitCode = ExitSuccess
		log.Infof("Maintenance run completed successfully")
	}

	o.saveHistory(ctx, record)
	o.notifyFailure(ctx, record)

	// The summary is the final line of every run.
	log.Infof("%s", state.Summary())

	return record, runErr
}

// run walks the step sequence. It returns nil or the critical error
// that aborted the run; non-critical failures are absorbed into state.
func (o *Orchestrator) run(ctx context.Context, state *RunState, record *RunRecord) error {
	log := o.deps.Log

	// Step 1: dependency check (critical).
	log.Infof("Step 1/%d: Checking for Homebrew", totalSteps)
	started := time.Now().UTC()
	version, present, err := o.deps.Brew.Installed(ctx)
	if err != nil {
		state.RecordFailure(StepDependencyCheck, err.Error(), started, true)
		log.Fatalf("Homebrew check failed: %v", err)
		return errors.NewStepError(string(StepDependencyCheck), true, err)
	}
	state.DependencyPresent = present
	if present {
		state.RecordOK(StepDependencyCheck, version, started)
		log.Infof("Found %s", version)
	} else {
		state.RecordOK(StepDependencyCheck, "not installed", started)
		log.Warnf("Homebrew is not installed")
	}

	// Step 2: install (critical), skipped when already present.
	switch {
	case present:
		state.RecordSkip(StepInstall, "already installed")
		log.Infof("Step 2/%d: Install skipped (already installed)", totalSteps)
	case o.deps.DryRun:
		state.RecordSkip(StepInstall, "dry run")
		log.Infof("Step 2/%d: Install skipped (dry run)", totalSteps)
	default:
		log.Infof("Step 2/%d: Installing Homebrew", totalSteps)
		started = time.Now().UTC()
		if err := o.deps.Brew.Install(ctx); err != nil {
			state.RecordFailure(StepInstall, err.Error(), started, true)
			log.Fatalf("Homebrew installation failed: %v", err)
			return errors.NewStepError(string(StepInstall), true, err)
		}
		state.Installed = true
		state.RecordOK(StepInstall, "", started)
		log.Infof("Homebrew installed")
	}

	// Step 3: upgrade (non-critical).
	if o.deps.DryRun {
		state.RecordSkip(StepUpgrade, "dry run")
		log.Infof("Step 3/%d: Upgrade skipped (dry run)", totalSteps)
	} else {
		log.Infof("Step 3/%d: Upgrading packages", totalSteps)
		started = time.Now().UTC()
		detail, err := o.upgrade(ctx)
		if err != nil {
			state.RecordFailure(StepUpgrade, err.Error(), started, false)
			log.Errorf("Upgrade failed: %v", err)
		} else {
			state.Upgraded = true
			state.RecordOK(StepUpgrade, detail, started)
		}
	}

	// Step 4: generate artifact (critical).
	log.Infof("Step 4/%d: Generating Brewfile", totalSteps)
	started = time.Now().UTC()
	if err := validation.EnsureDir(o.deps.Settings.Destination); err != nil {
		state.RecordFailure(StepGenerate, err.Error(), started, true)
		log.Fatalf("Cannot create destination directory: %v", err)
		return err
	}
	artifactPath := o.deps.Settings.ArtifactPath()
	if o.deps.DryRun {
		artifactPath = filepath.Join(o.deps.Settings.Destination, dryRunArtifactName)
	}
	if err := o.generate(ctx, artifactPath, record); err != nil {
		state.RecordFailure(StepGenerate, err.Error(), started, true)
		log.Fatalf("Brewfile generation failed: %v", err)
		return errors.NewStepError(string(StepGenerate), true, err)
	}
	if o.deps.DryRun {
		if err := os.Remove(artifactPath); err != nil {
			log.Warnf("Failed to remove dry-run artifact: %v", err)
		}
		state.RecordOK(StepGenerate, "dry run (artifact discarded)", started)
		log.Infof("Dry run: artifact discarded")
	} else {
		state.ArtifactGenerated = true
		state.RecordOK(StepGenerate, fmt.Sprintf("%d bytes", record.ArtifactBytes), started)
	}

	// Step 5: commit (non-critical).
	if o.deps.DryRun {
		state.RecordSkip(StepCommit, "dry run")
		log.Infof("Step 5/%d: Commit skipped (dry run)", totalSteps)
	} else {
		log.Infof("Step 5/%d: Committing Brewfile", totalSteps)
		started = time.Now().UTC()
		o.commit(ctx, state, record, started)
	}

	// Step 6: rotate log (non-critical), always the last step of a
	// non-aborted run.
	log.Infof("Step 6/%d: Rotating log if needed", totalSteps)
	started = time.Now().UTC()
	if err := log.RotateIfNeeded(); err != nil {
		state.RecordFailure(StepRotateLog, err.Error(), started, false)
		log.Warnf("Log rotation failed: %v", err)
	} else {
		state.LogRotated = true
		state.RecordOK(StepRotateLog, "", started)
	}

	return nil
}

// upgrade refreshes metadata, reports what is outdated, and upgrades
// when there is anything to do. Returns the ledger detail line.
func (o *Orchestrator) upgrade(ctx context.Context) (string, error) {
	log := o.deps.Log

	if err := o.deps.Brew.Update(ctx); err != nil {
		return "", err
	}
	outdated, err := o.deps.Brew.Outdated(ctx)
	if err != nil {
		return "", err
	}
	if len(outdated) == 0 {
		log.Infof("Everything up to date")
		return "everything up to date", nil
	}

	log.Infof("%d packages outdated", len(outdated))
	log.Verbosef("Outdated: %s", strings.Join(outdated, ", "))
	if err := o.deps.Brew.UpgradeAll(ctx); err != nil {
		return "", err
	}
	return fmt.Sprintf("upgraded %d packages", len(outdated)), nil
}

// generate dumps the Brewfile to path and records its size, line
// count, and SHA-256. A dump that succeeds but leaves an unreadable
// file counts as a generation failure.
func (o *Orchestrator) generate(ctx context.Context, path string, record *RunRecord) error {
	log := o.deps.Log

	if err := o.deps.Brew.BundleDump(ctx, path); err != nil {
		return err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read generated Brewfile: %w", err)
	}
	if len(content) == 0 {
		log.Warnf("Generated Brewfile is empty (no packages installed?)")
	}

	record.ArtifactBytes = int64(len(content))
	record.ArtifactSHA256 = fmt.Sprintf("%x", sha256.Sum256(content))

	log.Infof("Generated Brewfile: %d bytes, %d lines", len(content), countLines(content))
	log.Infof("Brewfile SHA-256: %s", record.ArtifactSHA256)
	return nil
}

// commit delegates to the change-tracked committer and translates its
// outcome into ledger entries and log lines.
func (o *Orchestrator) commit(ctx context.Context, state *RunState, record *RunRecord, started time.Time) {
	log := o.deps.Log

	result, err := o.deps.Committer.Commit(ctx, gitrepo.Options{
		Enabled: o.deps.Settings.CommitEnabled,
		Force:   o.deps.Force,
	})
	if err != nil {
		state.RecordFailure(StepCommit, err.Error(), started, false)
		log.Errorf("Commit failed: %v", err)
		return
	}

	if result.Committed {
		state.Committed = true
		record.CommitHash = result.Hash
		detail := "committed"
		if result.Forced {
			detail = "forced empty commit"
			log.Infof("Forced commit despite unchanged artifact")
		}
		if result.Hash != "" {
			log.Infof("Committed %s", result.Hash)
		} else {
			log.Infof("Commit created")
		}
		state.RecordOK(StepCommit, detail, started)
		return
	}

	switch result.SkipReason {
	case gitrepo.SkipDisabled:
		log.Infof("Commit skipped: disabled by configuration")
	case gitrepo.SkipNotRepository:
		log.Warnf("Commit skipped: destination is not a git repository")
	case gitrepo.SkipUnchanged:
		log.Infof("Brewfile unchanged since last commit")
		log.Infof("Commit skipped (use --force to commit anyway)")
	}
	state.RecordSkip(StepCommit, result.SkipReason)
}

// saveHistory persists the run record; history never changes a run's
// outcome.
func (o *Orchestrator) saveHistory(ctx context.Context, record *RunRecord) {
	if o.deps.History == nil {
		return
	}
	if err := o.deps.History.Save(ctx, record); err != nil {
		o.deps.Log.Warnf("Failed to save run history: %v", err)
	}
}

// notifyFailure raises a user notification for failed runs when
// configured to.
func (o *Orchestrator) notifyFailure(ctx context.Context, record *RunRecord) {
	if o.deps.Notifier == nil || !o.deps.Settings.NotifyOnFailure || record.Status != RunFailed {
		return
	}
	message := fmt.Sprintf("Maintenance run failed (exit %d)", record.ExitCode)
	if err := o.deps.Notifier.Notify(ctx, "brewvault", message); err != nil {
		o.deps.Log.Warnf("Failed to send notification: %v", err)
	}
}

// countLines counts lines the way an editor would: a trailing byte
// without a final newline still counts as a line.
func countLines(content []byte) int {
	if len(content) == 0 {
		return 0
	}
	lines := 0
	for _, b := range content {
		if b == '\n' {
			lines++
		}
	}
	if content[len(content)-1] != '\n' {
		lines++
	}
	return lines
}
