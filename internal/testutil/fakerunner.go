// Package testutil provides shared test doubles.
package testutil

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/dshills/brewvault/pkg/runner"
)

// Response is one scripted reply from the fake runner.
type Response struct {
	Result runner.Result
	Err    error
}

type stub struct {
	prefix    string
	responses []Response
	handler   func(cmd runner.Command) (runner.Result, error)
}

// FakeRunner is a scripted runner.Runner for tests. Commands are
// matched against stubbed prefixes (longest match wins, on word
// boundaries); multiple responses for the same prefix are consumed in
// order, with the last one repeating. Unmatched commands return an
// error so tests fail loudly on unexpected invocations.
type FakeRunner struct {
	mu    sync.Mutex
	stubs []*stub
	calls []runner.Command
}

// NewFakeRunner creates an empty fake. Every command fails until
// stubbed.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{}
}

// Stub queues a response for commands matching prefix, e.g.
// "git commit" or "brew --version".
func (f *FakeRunner) Stub(prefix string, res Response) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.stubs {
		if s.prefix == prefix {
			s.responses = append(s.responses, res)
			return f
		}
	}
	f.stubs = append(f.stubs, &stub{prefix: prefix, responses: []Response{res}})
	return f
}

// StubOK queues a zero-exit response with the given stdout.
func (f *FakeRunner) StubOK(prefix, stdout string) *FakeRunner {
	return f.Stub(prefix, Response{Result: runner.Result{ExitCode: 0, Stdout: stdout}})
}

// StubFail queues a non-zero-exit response with the given stderr.
func (f *FakeRunner) StubFail(prefix string, exitCode int, stderr string) *FakeRunner {
	return f.Stub(prefix, Response{Result: runner.Result{ExitCode: exitCode, Stderr: stderr}})
}

// StubError queues a transport-level error (the command could not run
// at all).
func (f *FakeRunner) StubError(prefix string, err error) *FakeRunner {
	return f.Stub(prefix, Response{Err: err})
}

// StubFunc registers a handler for commands matching prefix. The
// handler sees the full command, so it can inspect arguments or produce
// side effects such as writing the file the real command would write.
func (f *FakeRunner) StubFunc(prefix string, fn func(cmd runner.Command) (runner.Result, error)) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stubs = append(f.stubs, &stub{prefix: prefix, handler: fn})
	return f
}

// Run implements runner.Runner.
func (f *FakeRunner) Run(_ context.Context, cmd runner.Command) (runner.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, cmd)
	line := commandLine(cmd)

	var best *stub
	for _, s := range f.stubs {
		if !matchesPrefix(line, s.prefix) {
			continue
		}
		if best == nil || len(s.prefix) > len(best.prefix) {
			best = s
		}
	}
	if best == nil {
		return runner.Result{}, fmt.Errorf("no stub for command: %s", line)
	}

	if best.handler != nil {
		return best.handler(cmd)
	}
	res := best.responses[0]
	if len(best.responses) > 1 {
		best.responses = best.responses[1:]
	}
	return res.Result, res.Err
}

// Calls returns every command run so far, in order.
func (f *FakeRunner) Calls() []runner.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]runner.Command, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallLines returns the commands run so far as single strings.
func (f *FakeRunner) CallLines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, len(f.calls))
	for i, c := range f.calls {
		lines[i] = commandLine(c)
	}
	return lines
}

// CalledWith reports whether any command so far matches prefix.
func (f *FakeRunner) CalledWith(prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if matchesPrefix(commandLine(c), prefix) {
			return true
		}
	}
	return false
}

// NotFoundError builds the error the real runner returns for a binary
// missing from PATH, so stubs satisfy errors.Is(err, exec.ErrNotFound).
func NotFoundError(name string) error {
	return fmt.Errorf("failed to run %q: %w", name, exec.ErrNotFound)
}

func commandLine(cmd runner.Command) string {
	return strings.Join(append([]string{cmd.Name}, cmd.Args...), " ")
}

func matchesPrefix(line, prefix string) bool {
	return line == prefix || strings.HasPrefix(line, prefix+" ")
}
