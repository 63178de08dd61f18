package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/specialistvlad/synbuild/internal/ctxlog"
)

// Exec runs commands on the host with os/exec.
type Exec struct {
	// Stdout and Stderr receive the child output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer
	// Timeout bounds every command when positive.
	Timeout time.Duration
}

// NewExec creates a runner that passes child output through to the given
// writers.
func NewExec(stdout, stderr io.Writer, timeout time.Duration) *Exec {
	return &Exec{Stdout: stdout, Stderr: stderr, Timeout: timeout}
}

// Run implements Runner.
func (e *Exec) Run(ctx context.Context, c Command) (int, error) {
	return e.run(ctx, c, e.Stdout)
}

// Output runs c and returns what it wrote to stdout.
func (e *Exec) Output(ctx context.Context, c Command) ([]byte, int, error) {
	var buf bytes.Buffer
	code, err := e.run(ctx, c, &buf)
	return buf.Bytes(), code, err
}

func (e *Exec) run(ctx context.Context, c Command, stdout io.Writer) (int, error) {
	logger := ctxlog.FromContext(ctx)
	ctxlog.Command(ctx, c.String(), "dir", c.Dir)

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdout = stdout
	cmd.Stderr = e.Stderr
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		logger.Debug("Command exited with non-zero status.", "command", c.String(), "code", exitErr.ExitCode())
		if ctx.Err() != nil {
			return exitErr.ExitCode(), fmt.Errorf("%s: %w", c.Name, ctx.Err())
		}
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("failed to start %s: %w", c.Name, err)
}

// LookPath reports whether name can be found in PATH.
func LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
