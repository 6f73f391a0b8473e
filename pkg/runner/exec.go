package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// ExecRunner runs commands with os/exec.
//
// A Timeout > 0 bounds every invocation with a context deadline; a
// command that outlives it is killed and Run returns an error rather
// than a Result.
type ExecRunner struct {
	Timeout time.Duration
}

// NewExecRunner creates a runner with a per-command timeout.
// A zero timeout disables the deadline.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout}
}

// Run executes cmd and blocks until it exits.
//
// The returned error is non-nil only when the command could not be run
// to completion: the binary is missing, the context was cancelled, or
// the timeout elapsed. A process that ran and exited non-zero yields
// (Result{ExitCode: n, ...}, nil).
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	if cmd.Name == "" {
		return Result{}, fmt.Errorf("command name cannot be empty")
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	execCmd := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	execCmd.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		env := os.Environ()
		for key, value := range cmd.Env {
			env = append(env, fmt.Sprintf("%s=%s", key, value))
		}
		execCmd.Env = env
	}

	var stdout, stderr bytes.Buffer
	execCmd.Stdout = &stdout
	execCmd.Stderr = &stderr

	start := time.Now()
	err := execCmd.Run()
	result := Result{
		ExitCode: 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// The process ran and exited non-zero. Unless the context
			// expired, that is a result, not a runner error.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return Result{}, fmt.Errorf("command %q: %w", cmd.String(), ctxErr)
			}
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, fmt.Errorf("command %q: %w", cmd.String(), ctxErr)
		}
		return Result{}, fmt.Errorf("failed to run %q: %w", cmd.String(), err)
	}

	return result, nil
}
