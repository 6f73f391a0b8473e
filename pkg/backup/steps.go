package backup

import "time"

// StepName identifies one step of the fixed maintenance sequence.
type StepName string

const (
	// StepDependencyCheck probes for the brew binary.
	StepDependencyCheck StepName = "dependency_check"
	// StepInstall installs Homebrew; skipped when already present.
	StepInstall StepName = "install"
	// StepUpgrade refreshes metadata and upgrades outdated packages.
	StepUpgrade StepName = "upgrade"
	// StepGenerate exports the Brewfile artifact.
	StepGenerate StepName = "generate_artifact"
	// StepCommit records the artifact in the destination repository.
	StepCommit StepName = "commit"
	// StepRotateLog rotates the run log when it outgrew its size limit.
	StepRotateLog StepName = "rotate_log"
)

// stepOrder is the fixed execution sequence. The summary line walks it
// so unreached steps still show up.
var stepOrder = []StepName{
	StepDependencyCheck,
	StepInstall,
	StepUpgrade,
	StepGenerate,
	StepCommit,
	StepRotateLog,
}

// StepStatus is the recorded outcome of one step.
type StepStatus string

const (
	// StatusOK marks a step that ran and succeeded.
	StatusOK StepStatus = "ok"
	// StatusFailed marks a step that ran and failed.
	StatusFailed StepStatus = "failed"
	// StatusSkipped marks a step that did not run; Detail says why.
	StatusSkipped StepStatus = "skipped"
)

// StepRecord is one entry of the per-run step ledger.
type StepRecord struct {
	Name       StepName   `json:"name"`
	Status     StepStatus `json:"status"`
	Detail     string     `json:"detail,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
}
