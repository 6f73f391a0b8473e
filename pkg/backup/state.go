package backup

import (
	"fmt"
	"strings"
	"time"
)

// Classification ranks how badly a run has gone so far.
type Classification int

const (
	// ClassNone: no failure seen.
	ClassNone Classification = iota
	// ClassNonCritical: something failed but the run continued.
	ClassNonCritical
	// ClassCritical: the run aborted.
	ClassCritical
)

// RunState is the transient per-run record of what each step achieved.
//
// It is created at run start, threaded explicitly through the step
// sequence, and consumed at the end for the summary line and the exit
// status. It is never shared outside the run that owns it.
type RunState struct {
	DependencyPresent bool
	Installed         bool
	Upgraded          bool
	ArtifactGenerated bool
	Committed         bool
	LogRotated        bool

	Steps []StepRecord

	worst Classification
}

// NewRunState returns an empty state ready for the first step.
func NewRunState() *RunState {
	return &RunState{}
}

// RecordOK appends a successful step to the ledger.
func (s *RunState) RecordOK(name StepName, detail string, started time.Time) {
	s.record(name, StatusOK, detail, started)
}

// RecordSkip appends a skipped step with its reason.
func (s *RunState) RecordSkip(name StepName, reason string) {
	now := time.Now().UTC()
	s.Steps = append(s.Steps, StepRecord{
		Name:       name,
		Status:     StatusSkipped,
		Detail:     reason,
		StartedAt:  now,
		FinishedAt: now,
	})
}

// RecordFailure appends a failed step and raises the worst
// classification seen.
func (s *RunState) RecordFailure(name StepName, detail string, started time.Time, critical bool) {
	s.record(name, StatusFailed, detail, started)
	class := ClassNonCritical
	if critical {
		class = ClassCritical
	}
	if class > s.worst {
		s.worst = class
	}
}

func (s *RunState) record(name StepName, status StepStatus, detail string, started time.Time) {
	s.Steps = append(s.Steps, StepRecord{
		Name:       name,
		Status:     status,
		Detail:     detail,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	})
}

// Worst returns the worst failure classification seen so far.
func (s *RunState) Worst() Classification {
	return s.worst
}

// Aborted reports whether a critical failure ended the run early.
func (s *RunState) Aborted() bool {
	return s.worst == ClassCritical
}

// Summary renders the one-line per-step outcome that closes every run
// log. Steps the run never reached are shown as skipped(aborted).
func (s *RunState) Summary() string {
	recorded := make(map[StepName]StepRecord, len(s.Steps))
	for _, step := range s.Steps {
		recorded[step.Name] = step
	}

	parts := make([]string, 0, len(stepOrder))
	for _, name := range stepOrder {
		step, ok := recorded[name]
		if !ok {
			parts = append(parts, fmt.Sprintf("%s=skipped(aborted)", name))
			continue
		}
		switch {
		case step.Status == StatusSkipped:
			parts = append(parts, fmt.Sprintf("%s=skipped(%s)", name, step.Detail))
		case step.Status == StatusFailed:
			parts = append(parts, fmt.Sprintf("%s=failed", name))
		default:
			parts = append(parts, fmt.Sprintf("%s=ok", name))
		}
	}
	return "Run summary: " + strings.Join(parts, " ")
}
