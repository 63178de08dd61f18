package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/specialistvlad/synbuild/internal/executor"
)

// FakeRunner records every command and answers with scripted exit codes.
type FakeRunner struct {
	mu    sync.Mutex
	calls []executor.Command
	// failures are checked in registration order; the first pattern found in
	// the command line picks the exit code. Unmatched commands succeed.
	failures []failure
	// hook runs for every command before the exit code is chosen.
	hook func(executor.Command)
}

type failure struct {
	pattern string
	code    int
}

// NewFakeRunner creates a runner where every command succeeds.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{}
}

// FailOn makes every command whose line contains pattern exit with code.
// Registering a pattern again changes its code but keeps its position.
func (f *FakeRunner) FailOn(pattern string, code int) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.failures {
		if f.failures[i].pattern == pattern {
			f.failures[i].code = code
			return f
		}
	}
	f.failures = append(f.failures, failure{pattern: pattern, code: code})
	return f
}

// OnRun installs a hook called with every command, before it completes.
func (f *FakeRunner) OnRun(hook func(executor.Command)) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hook = hook
	return f
}

// Run implements executor.Runner.
func (f *FakeRunner) Run(ctx context.Context, cmd executor.Command) (int, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	hook := f.hook
	line := cmd.String()
	code := 0
	for _, fl := range f.failures {
		if strings.Contains(line, fl.pattern) {
			code = fl.code
			break
		}
	}
	f.mu.Unlock()

	if hook != nil {
		hook(cmd)
	}
	if err := ctx.Err(); err != nil {
		return -1, err
	}
	return code, nil
}

// Calls returns the recorded commands in call order.
func (f *FakeRunner) Calls() []executor.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]executor.Command(nil), f.calls...)
}

// Lines returns the recorded command lines.
func (f *FakeRunner) Lines() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.String()
	}
	return out
}
