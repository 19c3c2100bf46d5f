package resolve

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/vk/splode/internal/ctxlog"
)

const (
	// DefaultTimeout bounds one child run.
	DefaultTimeout = 60 * time.Second
	// DefaultWaitDelay bounds the wait for I/O after the child was killed.
	DefaultWaitDelay = 5 * time.Second
	// ChildCommand is the subcommand that runs Execute in the child.
	ChildCommand = "resolve-cycle"
)

// Runner runs a command in an isolated execution context.
type Runner interface {
	Run(ctx context.Context, cmd Command) (ExitStatus, error)
}

// ExecRunner runs commands in a fresh process of Executable.
type ExecRunner struct {
	Executable string
	// Args defaults to []string{ChildCommand}.
	Args      []string
	Env       []string
	Timeout   time.Duration
	WaitDelay time.Duration
}

var _ Runner = (*ExecRunner)(nil)

// Run launches the child, sends cmd on its stdin and waits for it. A child
// that overruns Timeout is killed and ErrTimeout is returned.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (ExitStatus, error) {
	logger := ctxlog.FromContext(ctx)

	if r.Executable == "" {
		return 0, fmt.Errorf("no executable configured for secondary resolution")
	}
	var stdin bytes.Buffer
	if err := Encode(&stdin, cmd); err != nil {
		return 0, err
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	waitDelay := r.WaitDelay
	if waitDelay <= 0 {
		waitDelay = DefaultWaitDelay
	}
	args := r.Args
	if len(args) == 0 {
		args = []string{ChildCommand}
	}

	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	child := exec.CommandContext(cmdCtx, r.Executable, args...)
	child.Stdin = &stdin
	var stderr bytes.Buffer
	child.Stdout = &stderr
	child.Stderr = &stderr
	child.WaitDelay = waitDelay
	if len(r.Env) > 0 {
		child.Env = append(os.Environ(), r.Env...)
	}

	logger.Debug("Launching secondary resolution.", "executable", r.Executable, "unit", cmd.Unit, "timeout", timeout)
	err := child.Run()

	if errors.Is(cmdCtx.Err(), context.DeadlineExceeded) {
		logger.Error("Secondary resolution timed out, child killed.", "unit", cmd.Unit, "timeout", timeout)
		return 0, fmt.Errorf("%w after %s (unit %s)", ErrTimeout, timeout, cmd.Unit)
	}
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return 0, fmt.Errorf("failed to run secondary resolution: %w", err)
		}
		status, known := StatusFromCode(exitErr.ExitCode())
		if !known {
			return 0, &UnexpectedExitError{Code: exitErr.ExitCode(), Stderr: strings.TrimSpace(stderr.String())}
		}
		logger.Debug("Secondary resolution finished.", "unit", cmd.Unit, "status", status.String())
		return status, nil
	}

	logger.Debug("Secondary resolution finished.", "unit", cmd.Unit, "status", StatusOK.String())
	return StatusOK, nil
}

// InProcessRunner runs Execute in the calling goroutine.
type InProcessRunner struct{}

var _ Runner = InProcessRunner{}

// Run implements Runner.
func (InProcessRunner) Run(ctx context.Context, cmd Command) (ExitStatus, error) {
	return Execute(ctx, cmd)
}
