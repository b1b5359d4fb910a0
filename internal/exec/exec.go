// Package exec runs external commands and captures their output.
package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// ErrOutputLimit is returned when a command writes more than the executor's
// MaxOutput bytes to stdout or stderr.
var ErrOutputLimit = errors.New("command output exceeded limit")

// ExecutionResult holds the outcome of a command execution.
type ExecutionResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Executor defines an interface for running external commands.
// This allows for mocking in tests.
type Executor interface {
	Run(ctx context.Context, command string, args ...string) (*ExecutionResult, error)
}

// CommandExecutor is a concrete implementation of the Executor interface
// that runs actual commands on the host system.
type CommandExecutor struct {
	// Dir is the working directory; empty means the current one.
	Dir string
	// MaxOutput caps each of stdout and stderr in bytes. Zero means no cap.
	MaxOutput int
}

// NewCommandExecutor creates a CommandExecutor running in dir with the given
// output cap.
func NewCommandExecutor(dir string, maxOutput int) *CommandExecutor {
	return &CommandExecutor{Dir: dir, MaxOutput: maxOutput}
}

// Run executes the given command and returns its result. A non-zero exit is
// reported through ExitCode, not as an error.
func (e *CommandExecutor) Run(ctx context.Context, command string, args ...string) (*ExecutionResult, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = e.Dir
	stdout := &limitedBuffer{limit: e.MaxOutput}
	stderr := &limitedBuffer{limit: e.MaxOutput}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	err := cmd.Run()

	if stdout.exceeded || stderr.exceeded {
		return nil, fmt.Errorf("%s: %w (%d bytes)", command, ErrOutputLimit, e.MaxOutput)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%s: %w", command, ctxErr)
	}
	// Only failures to start or wait are errors.
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, err
		}
	}

	return &ExecutionResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
	}, nil
}

// limitedBuffer refuses writes past limit, which stops the copy from the
// child's pipe. The buffer is not embedded: an inherited ReadFrom would let
// io.Copy bypass Write.
type limitedBuffer struct {
	buf      bytes.Buffer
	limit    int
	exceeded bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if b.limit > 0 && b.buf.Len()+len(p) > b.limit {
		b.exceeded = true
		return 0, ErrOutputLimit
	}
	return b.buf.Write(p)
}

func (b *limitedBuffer) String() string {
	return b.buf.String()
}
