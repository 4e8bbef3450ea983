package vdrun

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/sa6mwa/vdrun/adapters/commandcapture"
	"github.com/sa6mwa/vdrun/adapters/commandrunner"
	"github.com/sa6mwa/vdrun/port"
)

// ProcessRunner starts an executable with a literal argument vector, merges
// its stdout and stderr, and waits for it to exit.
type ProcessRunner struct {
	// Runner defaults to commandrunner.Default.
	Runner port.CommandRunner
	// Sink receives each output line as it is produced.
	Sink func(line string)
	// Timeout kills the child and fails with ErrTimeout once exceeded. Zero
	// waits indefinitely.
	Timeout time.Duration
	// KillOnCancel kills the child when ctx is cancelled. Otherwise the child
	// keeps running after Run returns ErrInterrupted and is reaped in the
	// background.
	KillOnCancel bool
}

// Run executes path with args. A non-zero exit is reported through
// Result.Success, not as an error. Errors match ErrLaunchFailed,
// ErrInterrupted or ErrTimeout.
func (p *ProcessRunner) Run(ctx context.Context, path string, args ...string) (Result, error) {
	runner := p.Runner
	if runner == nil {
		runner = commandrunner.Default
	}
	// #nosec G204 -- argv is passed verbatim, no shell is involved.
	cmd := exec.Command(path, args...)
	capture := commandcapture.New(p.Sink)
	cmd.Stdout = capture
	cmd.Stderr = capture

	if err := runner.Start(cmd); err != nil {
		if hint := launchHint(err); hint != "" {
			return Result{ExitCode: -1}, fmt.Errorf("%w: %s (%s): %w", ErrLaunchFailed, path, hint, err)
		}
		return Result{ExitCode: -1}, fmt.Errorf("%w: %s: %w", ErrLaunchFailed, path, err)
	}
	done := make(chan error, 1)
	go func() {
		done <- runner.Wait(cmd)
	}()

	var expired <-chan time.Time
	if p.Timeout > 0 {
		timer := time.NewTimer(p.Timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case err := <-done:
		return finish(cmd, capture, err)
	case <-expired:
		runner.Kill(cmd)
		<-done
		capture.Flush()
		return Result{ExitCode: -1, CombinedOutput: capture.Bytes()},
			fmt.Errorf("%w: %s did not exit within %s", ErrTimeout, path, p.Timeout)
	case <-ctx.Done():
		if p.KillOnCancel {
			runner.Kill(cmd)
			<-done
		}
		capture.Flush()
		return Result{ExitCode: -1, CombinedOutput: capture.Bytes()},
			fmt.Errorf("%w: waiting for %s: %w", ErrInterrupted, path, ctx.Err())
	}
}

func finish(cmd *exec.Cmd, capture port.CommandCapture, waitErr error) (Result, error) {
	capture.Flush()
	res := Result{
		ExitCode:       exitCodeFrom(waitErr, cmd.ProcessState),
		CombinedOutput: capture.Bytes(),
	}
	if waitErr != nil && !isExitStatus(waitErr) {
		return res, fmt.Errorf("wait for %s: %w", cmd.Path, waitErr)
	}
	res.Success = res.ExitCode == 0
	return res, nil
}

type exitCoder interface {
	ExitCode() int
}

func isExitStatus(err error) bool {
	var ec exitCoder
	return errors.As(err, &ec)
}

func exitCodeFrom(waitErr error, state *os.ProcessState) int {
	if state != nil {
		return state.ExitCode()
	}
	if waitErr == nil {
		return 0
	}
	var ec exitCoder
	if errors.As(waitErr, &ec) {
		return ec.ExitCode()
	}
	return -1
}
