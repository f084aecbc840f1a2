package events

import (
	"github.com/jonboulle/clockwork"

	"conductor/internal/api"
	"conductor/pkg/logging"
)

// TimestampLayout is the time prefix of progress titles.
const TimestampLayout = "2006-01-02 15:04:05"

// Emitter renders event titles from templates and records the events on a
// sink.
type Emitter struct {
	sink      Sink
	templates *MessageTemplateEngine
	clock     clockwork.Clock
}

// EmitterOption configures an Emitter.
type EmitterOption func(*Emitter)

// WithClock sets the clock used for event timestamps.
func WithClock(c clockwork.Clock) EmitterOption {
	return func(e *Emitter) {
		e.clock = c
	}
}

// WithTemplates replaces the default template engine.
func WithTemplates(t *MessageTemplateEngine) EmitterOption {
	return func(e *Emitter) {
		e.templates = t
	}
}

// NewEmitter creates an Emitter that records on sink. A nil sink drops
// every event.
func NewEmitter(sink Sink, opts ...EmitterOption) *Emitter {
	if sink == nil {
		sink = NoOpSink{}
	}
	e := &Emitter{
		sink:      sink,
		templates: NewMessageTemplateEngine(),
		clock:     clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Emit renders the title for reason and records the event. The run id may
// be empty for events outside a composite run.
func (e *Emitter) Emit(runID string, reason EventReason, kind api.ServiceKind, key api.ServiceKey, data EventData) Event {
	now := e.clock.Now()
	if data.Timestamp == "" {
		data.Timestamp = now.Format(TimestampLayout)
	}
	if data.Name == "" {
		data.Name = key.Name
	}
	if data.Kind == "" {
		data.Kind = string(kind)
	}

	ev := Event{
		RunID:     runID,
		Type:      getEventType(reason),
		Reason:    reason,
		Title:     e.templates.Render(reason, data),
		Kind:      kind,
		Key:       key,
		Timestamp: now,
	}
	if data.Error != "" {
		ev.Payload = map[string]interface{}{"error": data.Error}
	}

	logging.Debug("Events", "Recording event: reason=%s, type=%s, title=%s", ev.Reason, ev.Type, ev.Title)
	e.sink.Record(ev)
	return ev
}
