package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"mediarelay/internal/metrics"
)

// Runner executes the extractor with an explicit argument vector.
// Run blocks until the process exits and its output has been drained.
type Runner interface {
	Run(ctx context.Context, args []string, stdout, stderr io.Writer) error
}

// ExitError reports that the extractor ran and exited unsuccessfully.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("extractor exited with status %d", e.Code)
}

// SpawnError reports that the extractor could not be started at all.
type SpawnError struct {
	Err error
}

func (e *SpawnError) Error() string { return "starting extractor: " + e.Err.Error() }

func (e *SpawnError) Unwrap() error { return e.Err }

// ExecRunner runs the extractor binary as a child process in its own process
// group. Cancelling the context terminates the whole group: SIGTERM first,
// SIGKILL after KillGrace.
type ExecRunner struct {
	Bin       string
	KillGrace time.Duration
}

// NewExecRunner returns a runner for the extractor at bin.
func NewExecRunner(bin string, killGrace time.Duration) *ExecRunner {
	if killGrace <= 0 {
		killGrace = 3 * time.Second
	}
	return &ExecRunner{Bin: bin, KillGrace: killGrace}
}

// Run starts the extractor and waits for it. When stdout is not an *os.File,
// os/exec copies the pipe into it with a fixed buffer, so a blocked writer
// blocks the child on its pipe instead of accumulating data.
func (r *ExecRunner) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	// #nosec G204 - Bin comes from configuration; args are built by this package
	cmd := exec.CommandContext(ctx, r.Bin, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		terminateGroup(cmd, r.KillGrace)
		return nil
	}
	// Grandchildren (ffmpeg) may keep the pipes open after the leader dies.
	cmd.WaitDelay = r.KillGrace + time.Second

	if err := cmd.Start(); err != nil {
		return &SpawnError{Err: err}
	}

	metrics.ActiveExtractors.Inc()
	defer metrics.ActiveExtractors.Dec()

	err := cmd.Wait()
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Code: exitErr.ExitCode()}
	}
	return fmt.Errorf("waiting for extractor: %w", err)
}
