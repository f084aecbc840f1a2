package events

import (
	"time"

	"conductor/internal/api"
)

// EventType is the severity of an event as shown in the event log.
type EventType string

const (
	// EventTypeInfo marks progress and success events.
	EventTypeInfo EventType = "INFO"

	// EventTypeError marks failures that need an operator's attention.
	EventTypeError EventType = "ERROR"
)

// EventReason represents the reason code for an event.
type EventReason string

// Composite workflow event reasons
const (
	// ReasonStepSucceeded is the progress event of a finished step.
	ReasonStepSucceeded EventReason = "StepSucceeded"

	// ReasonStepFailed is the progress event of a failed step.
	ReasonStepFailed EventReason = "StepFailed"

	// ReasonRestartSucceeded indicates a workspace restart completed.
	ReasonRestartSucceeded EventReason = "RestartSucceeded"

	// ReasonRestartFailed indicates the restart workflow itself broke, for
	// example a step panicked. At most one is emitted per run; failed steps
	// only emit their own events.
	ReasonRestartFailed EventReason = "RestartFailure"
)

// Single transition event reasons
const (
	// ReasonTransitionSucceeded indicates a dispatched transition completed.
	ReasonTransitionSucceeded EventReason = "TransitionSucceeded"

	// ReasonTransitionFailed indicates a dispatched transition failed.
	ReasonTransitionFailed EventReason = "TransitionFailed"
)

// EventData holds contextual information for event message templating.
type EventData struct {
	// Name is the name of the object involved in the event.
	Name string

	// Kind is the service kind of the object.
	Kind string

	// Operation is the transition that triggered the event (e.g. "start").
	Operation string

	// Description is the human-readable description of a step.
	Description string

	// Timestamp is the formatted time prefix of progress titles.
	Timestamp string

	// Error contains error information for failure events.
	Error string

	// Duration is the duration of a run.
	Duration time.Duration
}

// Event is one record sent to the event sink.
type Event struct {
	RunID     string                 `json:"runId,omitempty"`
	Type      EventType              `json:"type"`
	Reason    EventReason            `json:"reason"`
	Title     string                 `json:"title"`
	Kind      api.ServiceKind        `json:"kind,omitempty"`
	Key       api.ServiceKey         `json:"key"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// IsError reports whether the event is an ERROR record.
func (e Event) IsError() bool {
	return e.Type == EventTypeError
}

// getEventType returns the appropriate EventType for a given EventReason.
func getEventType(reason EventReason) EventType {
	switch reason {
	case ReasonStepFailed,
		ReasonRestartFailed,
		ReasonTransitionFailed:
		return EventTypeError
	default:
		return EventTypeInfo
	}
}
