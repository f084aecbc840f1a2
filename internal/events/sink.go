package events

import (
	"errors"
	"sync"

	"conductor/pkg/logging"
)

// Sink receives events. Record must not block for long; workflows call it
// inline.
type Sink interface {
	Record(ev Event)
}

// NoOpSink drops every event.
type NoOpSink struct{}

func (NoOpSink) Record(Event) {}

// LogSink writes every event to the structured log.
type LogSink struct{}

func (LogSink) Record(ev Event) {
	if ev.IsError() {
		var err error
		if msg, ok := ev.Payload["error"].(string); ok {
			err = errors.New(msg)
		}
		logging.Error("Events", err, "[%s] %s", ev.Reason, ev.Title)
		return
	}
	logging.Info("Events", "[%s] %s", ev.Reason, ev.Title)
}

// MultiSink fans every event out to all sinks in order.
type MultiSink []Sink

func (m MultiSink) Record(ev Event) {
	for _, s := range m {
		if s != nil {
			s.Record(ev)
		}
	}
}

// MemorySink keeps every event in memory. It is used by tests and by the CLI
// to print a run's event log.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func (m *MemorySink) Record(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

// Events returns a copy of all recorded events.
func (m *MemorySink) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// ByReason returns the recorded events with the given reason.
func (m *MemorySink) ByReason(reason EventReason) []Event {
	var out []Event
	for _, ev := range m.Events() {
		if ev.Reason == reason {
			out = append(out, ev)
		}
	}
	return out
}

// Titles returns the titles of all recorded events in order.
func (m *MemorySink) Titles() []string {
	events := m.Events()
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Title
	}
	return out
}
