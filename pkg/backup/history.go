package backup

import (
	"context"
	"time"
)

// Run statuses persisted in the history store.
const (
	// RunSuccess: the run finished with exit status 0.
	RunSuccess = "success"
	// RunFailed: the run aborted or a critical step failed.
	RunFailed = "failed"
)

// RunRecord is the persisted outcome of one maintenance run.
type RunRecord struct {
	// ID is the run's UUID.
	ID string `json:"id"`
	// StartedAt and FinishedAt bound the run in UTC.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	// Status is RunSuccess or RunFailed.
	Status string `json:"status"`
	// ExitCode is the process exit status the run mapped to.
	ExitCode int `json:"exit_code"`
	// ArtifactSHA256 and ArtifactBytes describe the generated Brewfile;
	// empty/zero when generation never succeeded.
	ArtifactSHA256 string `json:"artifact_sha256,omitempty"`
	ArtifactBytes  int64  `json:"artifact_bytes,omitempty"`
	// CommitHash is the short hash of the commit this run created, if any.
	CommitHash string `json:"commit_hash,omitempty"`
	// DryRun marks runs that skipped every mutating step.
	DryRun bool `json:"dry_run,omitempty"`
	// Steps is the per-step ledger.
	Steps []StepRecord `json:"steps"`
}

// RunRepository persists run records. The orchestrator treats every
// method as best-effort: history must never change a run's outcome.
type RunRepository interface {
	// Save persists one run record.
	Save(ctx context.Context, record *RunRecord) error
	// List returns the most recent runs, newest first. limit <= 0 means
	// no limit.
	List(ctx context.Context, limit int) ([]*RunRecord, error)
	// Get returns one run by ID.
	Get(ctx context.Context, id string) (*RunRecord, error)
	// Prune deletes all but the newest keep records.
	Prune(ctx context.Context, keep int) error
}
