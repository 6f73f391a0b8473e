package errors

import (
	"errors"
	"fmt"
	"time"
)

// StepError represents a maintenance step failure with its context.
//
// It wraps errors with the step name, the failure classification, and
// the external tool output that explains the failure. This keeps the
// final exit-status mapping and the diagnostic log free of string
// matching.
type StepError struct {
	Step      string    // Which step failed
	Critical  bool      // Whether the failure aborts the remaining steps
	Timestamp time.Time // When the failure occurred
	Output    string    // Trimmed output of the external tool (optional)
	Cause     error     // Underlying error
}

// NewStepError creates a StepError wrapping an error.
//
// Returns nil if cause is nil (no error to wrap).
func NewStepError(step string, critical bool, cause error) *StepError {
	if cause == nil {
		return nil
	}

	return &StepError{
		Step:      step,
		Critical:  critical,
		Timestamp: time.Now().UTC(),
		Cause:     cause,
	}
}

// NewStepErrorWithOutput creates a StepError carrying the failed tool's
// combined output.
//
// Returns nil if cause is nil (no error to wrap).
func NewStepErrorWithOutput(step string, critical bool, output string, cause error) *StepError {
	if cause == nil {
		return nil
	}

	return &StepError{
		Step:      step,
		Critical:  critical,
		Timestamp: time.Now().UTC(),
		Output:    output,
		Cause:     cause,
	}
}

// Error implements the error interface.
//
// Format: "step {name}: {cause}". Tool output is not embedded here;
// callers log it separately so error strings stay single-line.
func (e *StepError) Error() string {
	if e == nil {
		return "<nil StepError>"
	}
	return fmt.Sprintf("step %s: %v", e.Step, e.Cause)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *StepError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsCritical reports whether err is, or wraps, a critical StepError.
func IsCritical(err error) bool {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Critical
	}
	return false
}
