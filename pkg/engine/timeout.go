package engine

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// EvalTimeout is the hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when an evaluation runs past EvalTimeout.
	ErrTimeout = errors.New("evaluation timed out")
	// ErrSuperseded is returned when a newer Evaluate call started while
	// this one was running.
	ErrSuperseded = errors.New("evaluation superseded")
)

// evalResult passes evaluation results through channels.
type evalResult struct {
	design *Design
	errors []EvalError
	err    error
}

// wait blocks until ch delivers or ctx is done. A result whose generation
// is no longer current is discarded. On timeout the evaluating goroutine
// may still be running; ctx cancellation stops any scatter run it is in.
func (e *Engine) wait(ctx context.Context, ch <-chan evalResult, gen uint64) (*Design, []EvalError, error) {
	select {
	case res := <-ch:
		e.mu.Lock()
		current := e.generation
		e.mu.Unlock()

		if gen != current {
			return nil, nil, fmt.Errorf("%w: generation %d replaced by %d", ErrSuperseded, gen, current)
		}
		return res.design, res.errors, res.err

	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, nil, fmt.Errorf("%w after %s (generation %d)", ErrTimeout, EvalTimeout, gen)
		}
		return nil, nil, fmt.Errorf("generation %d: %w", gen, ctx.Err())
	}
}
