// Package toolrunner is the boundary to external collaborators: the
// environment manager, the data processor, the application entry point, and
// the test runner. It invokes a configured command line and propagates exit
// code and output without interpreting either.
package toolrunner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
)

// ExitError reports a tool that ran but exited non-zero.
type ExitError struct {
	Tool string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Tool, e.Code)
}

// Result captures a completed invocation.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner executes external tools with a fixed working directory.
type Runner struct {
	workDir string
	logger  *slog.Logger

	// Stdout/Stderr receive streamed tool output. Defaults to the
	// process's own stdio.
	Stdout io.Writer
	Stderr io.Writer
}

// New creates a Runner rooted at workDir.
func New(workDir string, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{
		workDir: workDir,
		logger:  logger,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// Stream runs command via sh -c with output attached to the runner's stdio.
// name labels the tool in diagnostics. A non-zero exit returns *ExitError.
func (r *Runner) Stream(ctx context.Context, name, command string) error {
	r.logger.Debug("invoking tool", slog.String("tool", name), slog.String("command", command))

	cmd := r.command(ctx, command)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	cmd.Stdin = os.Stdin

	return r.wait(name, cmd)
}

// Capture runs command via sh -c with stdout and stderr buffered. The
// Result is returned even on a non-zero exit, alongside *ExitError.
func (r *Runner) Capture(ctx context.Context, name, command string) (*Result, error) {
	r.logger.Debug("invoking tool", slog.String("tool", name), slog.String("command", command))

	var stdout, stderr bytes.Buffer
	cmd := r.command(ctx, command)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := r.wait(name, cmd)
	res := &Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.Code
	}
	return res, err
}

func (r *Runner) command(ctx context.Context, command string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = r.workDir
	// Own process group so cancellation kills the whole tree.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	return cmd
}

func (r *Runner) wait(name string, cmd *exec.Cmd) error {
	err := cmd.Run()
	if err == nil {
		return nil
	}

	var ee *exec.ExitError
	if errors.As(err, &ee) {
		code := ee.ExitCode()
		r.logger.Debug("tool failed", slog.String("tool", name), slog.Int("exit_code", code))
		return &ExitError{Tool: name, Code: code}
	}
	return fmt.Errorf("start %s: %w", name, err)
}
