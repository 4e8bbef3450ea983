package mockrunner

import (
	"context"
	"fmt"
	"os/exec"
	"slices"
	"sync"

	"github.com/sa6mwa/vdrun/port"
)

// Behavior simulates one process. It runs when Wait is called, may write to
// cmd.Stdout, and its return value becomes Wait's error. ctx is cancelled
// when the command is killed.
type Behavior func(ctx context.Context, cmd *exec.Cmd) error

// ExitStatus is the error a Behavior returns to simulate a non-zero exit.
type ExitStatus int

func (e ExitStatus) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func (e ExitStatus) ExitCode() int { return int(e) }

// Print returns a Behavior that writes output and exits with code.
func Print(output string, code int) Behavior {
	return func(_ context.Context, cmd *exec.Cmd) error {
		if _, err := cmd.Stdout.Write([]byte(output)); err != nil {
			return err
		}
		if code != 0 {
			return ExitStatus(code)
		}
		return nil
	}
}

// Hang returns a Behavior that blocks until the command is killed or
// release is closed.
func Hang(release <-chan struct{}) Behavior {
	return func(ctx context.Context, _ *exec.Cmd) error {
		select {
		case <-ctx.Done():
			return ExitStatus(-1)
		case <-release:
			return nil
		}
	}
}

type process struct {
	behavior Behavior
	ctx      context.Context
	cancel   context.CancelFunc
}

// Runner is a thread-safe mock implementation of port.CommandRunner.
type Runner struct {
	mu        sync.Mutex
	behaviors []Behavior
	procs     map[*exec.Cmd]*process
	// StartErr, when set, is returned by every Start call.
	StartErr error
	// StartHook, when set, is consulted on every Start call after StartErr;
	// a non-nil return fails that start.
	StartHook func(cmd *exec.Cmd) error
	Calls    int
	Kills    int
	Paths    []string
	Args     [][]string
}

var _ port.CommandRunner = (*Runner)(nil)

// New constructs a Runner that will consume behaviors sequentially, one per
// started command. Commands started after the queue is empty exit 0 without
// output.
func New(behaviors ...Behavior) *Runner {
	return &Runner{
		behaviors: slices.Clone(behaviors),
		procs:     make(map[*exec.Cmd]*process),
	}
}

func (r *Runner) Start(cmd *exec.Cmd) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls++
	r.Paths = append(r.Paths, cmd.Path)
	r.Args = append(r.Args, slices.Clone(cmd.Args))
	if r.StartErr != nil {
		return r.StartErr
	}
	if r.StartHook != nil {
		if err := r.StartHook(cmd); err != nil {
			return err
		}
	}
	var b Behavior
	if len(r.behaviors) > 0 {
		b = r.behaviors[0]
		r.behaviors = r.behaviors[1:]
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.procs[cmd] = &process{behavior: b, ctx: ctx, cancel: cancel}
	return nil
}

func (r *Runner) Wait(cmd *exec.Cmd) error {
	r.mu.Lock()
	p, ok := r.procs[cmd]
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("mockrunner: command not started")
	}
	defer p.cancel()
	if p.behavior == nil {
		return nil
	}
	return p.behavior(p.ctx, cmd)
}

func (r *Runner) Kill(cmd *exec.Cmd) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Kills++
	if p, ok := r.procs[cmd]; ok {
		p.cancel()
	}
	return nil
}

// Started returns the number of Start calls so far.
func (r *Runner) Started() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Calls
}

// Killed returns the number of Kill calls so far.
func (r *Runner) Killed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Kills
}

// Remaining returns the number of queued behaviors that have not yet been consumed.
func (r *Runner) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.behaviors)
}
