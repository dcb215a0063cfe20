// Package executor runs external commands for the shell adapters.
//
// Every docker and git interaction funnels through the Runner interface,
// so orchestration logic can be driven by scripted results in tests
// instead of a live daemon.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/innerline/local-ai-packaged/internal/core/stack"
)

// =============================================================================
// Runner Interface
// =============================================================================

// Result is the complete outcome of one command: exit code plus both
// captured streams. A non-zero exit code is data, not an error - probes
// rely on it - so Run only returns an error when the command could not be
// executed at all.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner executes one external command to completion.
type Runner interface {
	Run(ctx context.Context, inv stack.Invocation) (Result, error)
}

// ErrEmptyCommand is returned for an invocation with no argv.
var ErrEmptyCommand = errors.New("empty command")

// =============================================================================
// Exit Errors
// =============================================================================

// ExitError reports a command that ran to completion and exited non-zero.
type ExitError struct {
	Argv     []string
	Dir      string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s: exit status %d", strings.Join(e.Argv, " "), e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// Checked runs inv and converts a non-zero exit into an *ExitError. Use it
// at call sites where any failure is fatal; probe-style callers should
// inspect Result.ExitCode themselves.
func Checked(ctx context.Context, r Runner, inv stack.Invocation) (Result, error) {
	res, err := r.Run(ctx, inv)
	if err != nil {
		return res, err
	}
	if res.ExitCode != 0 {
		return res, &ExitError{
			Argv:     inv.Argv,
			Dir:      inv.Dir,
			ExitCode: res.ExitCode,
			Stderr:   res.Stderr,
		}
	}
	return res, nil
}

// =============================================================================
// Exec Runner
// =============================================================================

// ExecRunner is the production Runner backed by os/exec. Argv is passed to
// the kernel verbatim; no shell is involved.
type ExecRunner struct {
	logger *log.Logger

	mirrorOut io.Writer
	mirrorErr io.Writer
}

// NewExecRunner creates a Runner that executes commands on the host.
func NewExecRunner(logger *log.Logger) *ExecRunner {
	if logger == nil {
		logger = log.Default()
	}
	return &ExecRunner{logger: logger}
}

// Mirror streams child output live to the given writers in addition to
// capturing it, so long-running compose pulls stay visible to the
// operator. Either writer may be nil.
func (r *ExecRunner) Mirror(stdout, stderr io.Writer) {
	r.mirrorOut = stdout
	r.mirrorErr = stderr
}

// Run executes the invocation and captures both streams in full. The
// process is killed when ctx is cancelled.
func (r *ExecRunner) Run(ctx context.Context, inv stack.Invocation) (Result, error) {
	if len(inv.Argv) == 0 {
		return Result{}, ErrEmptyCommand
	}

	cmd := exec.CommandContext(ctx, inv.Argv[0], inv.Argv[1:]...)
	cmd.Dir = inv.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if r.mirrorOut != nil {
		cmd.Stdout = io.MultiWriter(&stdout, r.mirrorOut)
	}
	if r.mirrorErr != nil {
		cmd.Stderr = io.MultiWriter(&stderr, r.mirrorErr)
	}

	r.logger.Debug("exec", "cmd", inv.String(), "dir", inv.Dir)

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			r.logger.Debug("exec finished", "cmd", inv.Argv[0], "exit", res.ExitCode)
			return res, nil
		}
		return res, fmt.Errorf("starting %q: %w", inv.Argv[0], err)
	}

	res.ExitCode = cmd.ProcessState.ExitCode()
	return res, nil
}
