package plugin

import (
	"context"
	"fmt"
	"time"

	"github.com/hearthware/aura/core"
	"github.com/hearthware/aura/memory"
)

// TimeoutError reports a handler that exceeded its deadline. The handler
// goroutine may still be running; its eventual result is discarded.
type TimeoutError struct {
	Plugin  string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("plugin %q timed out after %s", e.Plugin, e.Timeout)
}

// ExecutionError reports a handler that returned an error or panicked.
type ExecutionError struct {
	Plugin string
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("plugin %q failed: %v", e.Plugin, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Outcome is the result of dispatching one intention.
type Outcome struct {
	// State is the terminal state of the dispatch.
	State core.TurnState

	// Plugin is the handling plugin's name, empty when no handler exists.
	Plugin string

	// Reply is the handler's spoken reply on success.
	Reply string

	// Err is the typed failure (TimeoutError or ExecutionError) when State
	// is StateTimedOut or StateFailed.
	Err error
}

// Dispatcher routes intentions to registered handlers with enforced
// per-plugin deadlines.
type Dispatcher struct {
	registry *Registry
	logger   memory.Logger
}

// NewDispatcher creates a dispatcher over a registry.
func NewDispatcher(registry *Registry, logger memory.Logger) *Dispatcher {
	if logger == nil {
		logger = memory.NopLogger{}
	}
	return &Dispatcher{registry: registry, logger: logger}
}

type handlerResult struct {
	reply string
	err   error
}

// Invoke runs the handler for the intention's category.
//
// A missing handler is StateNoHandler, not an error: the caller decides
// whether to fall back to conversation. Timeouts and handler failures come
// back as typed errors inside the outcome so the orchestrator can record
// them, never as panics.
func (d *Dispatcher) Invoke(ctx context.Context, intention core.Intention) Outcome {
	desc, ok := d.registry.Lookup(intention.Category)
	if !ok {
		return Outcome{State: core.StateNoHandler}
	}

	timeout := desc.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Buffered so an abandoned handler can finish without leaking a
	// goroutine blocked on send.
	results := make(chan handlerResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				results <- handlerResult{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		reply, err := desc.Handler(ctx, intention)
		results <- handlerResult{reply: reply, err: err}
	}()

	select {
	case res := <-results:
		if res.err != nil {
			d.logger.Error("plugin execution failed", "plugin", desc.Name, "error", res.err)
			return Outcome{
				State:  core.StateFailed,
				Plugin: desc.Name,
				Err:    &ExecutionError{Plugin: desc.Name, Err: res.err},
			}
		}
		return Outcome{State: core.StateSucceeded, Plugin: desc.Name, Reply: res.reply}

	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			d.logger.Warn("plugin timed out", "plugin", desc.Name, "timeout", timeout)
			return Outcome{
				State:  core.StateTimedOut,
				Plugin: desc.Name,
				Err:    &TimeoutError{Plugin: desc.Name, Timeout: timeout},
			}
		}
		return Outcome{
			State:  core.StateFailed,
			Plugin: desc.Name,
			Err:    &ExecutionError{Plugin: desc.Name, Err: ctx.Err()},
		}
	}
}
