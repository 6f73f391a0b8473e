package runner

import (
	"context"
	"strings"
	"time"
)

// Command describes one external tool invocation.
//
// Name and Args are passed to the OS directly; there is no shell
// interpolation anywhere in the system.
type Command struct {
	Name string            // Executable name or path
	Args []string          // Arguments, not including the executable
	Dir  string            // Working directory ("" = inherit)
	Env  map[string]string // Extra environment entries appended to the inherited environment
}

// Result captures what a finished subprocess left behind.
//
// A non-zero exit status is data, not a Go error: callers inspect
// ExitCode and decide. Errors are reserved for failures to run the
// command at all (missing binary, context cancellation, timeout).
type Result struct {
	ExitCode int           // Process exit status
	Stdout   string        // Captured standard output
	Stderr   string        // Captured standard error
	Duration time.Duration // Wall-clock time from start to exit
}

// Success reports whether the process exited zero.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Output returns stdout and stderr joined, trimmed, for error messages
// and diagnostics. Stdout comes first.
func (r Result) Output() string {
	out := strings.TrimSpace(r.Stdout)
	errOut := strings.TrimSpace(r.Stderr)
	switch {
	case out == "":
		return errOut
	case errOut == "":
		return out
	default:
		return out + "\n" + errOut
	}
}

// Runner is the narrow subprocess boundary: run one command, block
// until it exits, report exit status and captured output.
//
// The orchestration and commit layers depend on this interface only,
// which keeps them free of exec details and testable with a scripted
// fake.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// String renders the command for log lines.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}
