// Package executor defines the contract for spawning external tools (git,
// make, tar, bash) and an os/exec backed implementation of it.
package executor

import (
	"context"
	"strings"
)

// Command is a single external process invocation.
type Command struct {
	Name string
	Args []string
	// Dir is the working directory, the current one when empty.
	Dir string
	// Env entries are appended to the inherited environment.
	Env []string
}

// String renders the command line for logging.
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Runner spawns a command and waits for it. The returned exit code is 0 on
// success. A command that could not be spawned at all reports -1 together
// with the cause.
type Runner interface {
	Run(ctx context.Context, cmd Command) (int, error)
}

// Succeeded reports whether a Run result means success.
func Succeeded(code int, err error) bool {
	return err == nil && code == 0
}
