package transition

import (
	"fmt"

	"conductor/internal/api"
)

// Transition names the lifecycle change a workflow drives.
type Transition string

const (
	TransitionStart  Transition = "START"
	TransitionStop   Transition = "STOP"
	TransitionCreate Transition = "CREATE"
	TransitionDelete Transition = "DELETE"
	TransitionUpdate Transition = "UPDATE"
)

// verb is the word used for the transition in human-readable messages.
func (t Transition) verb() string {
	switch t {
	case TransitionStart:
		return "start"
	case TransitionStop:
		return "stop"
	case TransitionCreate:
		return "create"
	case TransitionDelete:
		return "remove"
	case TransitionUpdate:
		return "update"
	default:
		return string(t)
	}
}

// Outcome is the terminal outcome of a workflow.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
)

// Result is the single terminal outcome of one transition workflow.
type Result struct {
	Key        api.ServiceKey
	Kind       api.ServiceKind
	Transition Transition
	Outcome    Outcome

	// Snapshot is the last observed state, if any.
	Snapshot *api.Snapshot
	Err      error
	Message  string
	Attempts int

	// Skipped marks a CREATE that found the service already present.
	Skipped bool
}

// Succeeded reports whether the workflow reached its target state.
func (r Result) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}

// FailureError is the terminal error of a failed transition. Its message is
// the human-readable text shown to operators.
type FailureError struct {
	Transition Transition
	Kind       api.ServiceKind
	Key        api.ServiceKey
	Attempts   int
	// Retries counts the attempts after the first one.
	Retries int
	// Exhausted is set when the retry budget ran out.
	Exhausted bool

	// Actual is the last observed state when the workflow gave up.
	Actual api.ServiceState
	// Snapshot is the last observed snapshot, if any.
	Snapshot *api.Snapshot
	Cause    error
}

func (e *FailureError) Error() string {
	switch {
	case e.Exhausted && e.Transition == TransitionStart:
		return fmt.Sprintf("Try to %s %s: %q failed after retry %d times. Expected state: %s, Actual state: %s",
			e.Transition.verb(), e.Kind, e.Key.Name, e.Retries, api.StateRunning, e.Actual)
	case e.Exhausted && (e.Transition == TransitionStop || e.Transition == TransitionDelete):
		return fmt.Sprintf("Try to %s %s: %q failed after retry %d times. Expected state is nonexistent, Actual state: %s",
			e.Transition.verb(), e.Kind, e.Key.Name, e.Retries, e.Actual)
	default:
		return fmt.Sprintf("Try to %s %s: %q failed: %v", e.Transition.verb(), e.Kind, e.Key.Name, e.Cause)
	}
}

func (e *FailureError) Unwrap() error {
	return e.Cause
}
