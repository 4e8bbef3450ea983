package vdrun

import "context"

// Background is the handle of an invocation running on its own goroutine.
// Cancel interrupts it; Done delivers exactly one Result.
type Background struct {
	Context context.Context
	Cancel  context.CancelFunc
	Done    <-chan Result
}

// Wait blocks until the invocation delivers its Result. Cancellation of the
// stored context does not end the wait: the interrupted invocation still
// delivers its own Result (matching ErrInterrupted), which Wait returns.
func (bg *Background) Wait() Result {
	if bg == nil {
		return Result{}
	}
	return bg.WaitWithContext(context.Background())
}

// WaitWithContext blocks until the invocation completes or ctx is
// cancelled. A result that is already available wins over cancellation;
// otherwise cancellation returns a Result whose Error is ctx.Err().
func (bg *Background) WaitWithContext(ctx context.Context) Result {
	if bg == nil || bg.Done == nil {
		return Result{}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case res, ok := <-bg.Done:
		if !ok {
			return Result{}
		}
		return res
	case <-ctx.Done():
		select {
		case res, ok := <-bg.Done:
			if ok {
				return res
			}
		default:
		}
		return Result{ExitCode: -1, Error: ctx.Err()}
	}
}

// Result describes a finished tool run.
type Result struct {
	// RunID identifies the invocation in diagnostics.
	RunID          string
	ExitCode       int
	Success        bool
	CombinedOutput []byte
	// Error is set when the pipeline failed; it is only populated on results
	// delivered through Background or InvokeAll.
	Error error
}
