package core

// TurnState tracks a dispatched intention through the turn pipeline.
//
// Classified -> Dispatched -> {Succeeded | TimedOut | Failed | NoHandler}
//
// Every terminal state produces a memory record, so failed actions still
// leave a trace the assistant can recall later.
type TurnState int

const (
	// StateClassified means the utterance has an intention but no dispatch
	// has happened yet.
	StateClassified TurnState = iota

	// StateDispatched means a plugin handler is running.
	StateDispatched

	// StateSucceeded means the handler returned a result in budget.
	StateSucceeded

	// StateTimedOut means the handler exceeded its declared timeout.
	StateTimedOut

	// StateFailed means the handler returned or panicked with an error.
	StateFailed

	// StateNoHandler means no plugin is registered for the category.
	// This is the normal path for conversational turns, not an error.
	StateNoHandler
)

// String returns the state name for logging and diagnostics.
func (s TurnState) String() string {
	switch s {
	case StateClassified:
		return "classified"
	case StateDispatched:
		return "dispatched"
	case StateSucceeded:
		return "succeeded"
	case StateTimedOut:
		return "timed_out"
	case StateFailed:
		return "failed"
	case StateNoHandler:
		return "no_handler"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is one of the four terminal outcomes.
func (s TurnState) Terminal() bool {
	switch s {
	case StateSucceeded, StateTimedOut, StateFailed, StateNoHandler:
		return true
	}
	return false
}
