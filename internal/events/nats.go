package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"conductor/pkg/logging"
)

// publisher is the part of *nats.Conn the sink needs.
type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSSink publishes every event as JSON on a NATS subject. The subject is
// the configured prefix followed by the lower-cased event type, for example
// "conductor.events.error".
type NATSSink struct {
	conn    *nats.Conn
	pub     publisher
	subject string
}

// NewNATSSink connects to the NATS server at url.
func NewNATSSink(url, subject string) (*NATSSink, error) {
	if url == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	if subject == "" {
		return nil, fmt.Errorf("nats subject is required")
	}

	conn, err := nats.Connect(url,
		nats.Name("conductor"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logging.Info("Events", "NATS event sink connected to %s, subject %s", url, subject)
	return &NATSSink{conn: conn, pub: conn, subject: subject}, nil
}

func newNATSSinkWithPublisher(pub publisher, subject string) *NATSSink {
	return &NATSSink{pub: pub, subject: subject}
}

// Subject returns the subject an event is published on.
func (s *NATSSink) Subject(ev Event) string {
	return s.subject + "." + strings.ToLower(string(ev.Type))
}

func (s *NATSSink) Record(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		logging.Error("Events", err, "Failed to marshal event %s", ev.Reason)
		return
	}
	if err := s.pub.Publish(s.Subject(ev), data); err != nil {
		logging.Error("Events", err, "Failed to publish event %s", ev.Reason)
	}
}

// Close flushes pending messages and closes the connection.
func (s *NATSSink) Close() error {
	if s.conn == nil {
		return nil
	}
	if err := s.conn.Flush(); err != nil {
		s.conn.Close()
		return fmt.Errorf("failed to flush NATS connection: %w", err)
	}
	s.conn.Close()
	return nil
}

// Subscribe delivers the events published under subject to handle until
// ctx is done. Messages that are not events are logged and dropped.
func Subscribe(ctx context.Context, url, subject string, handle func(Event)) error {
	conn, err := nats.Connect(url, nats.Name("conductor-events"), nats.Timeout(5*time.Second))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}
	defer conn.Close()

	sub, err := conn.Subscribe(subject+".>", func(msg *nats.Msg) {
		ev, err := decodeEvent(msg.Data)
		if err != nil {
			logging.Warn("Events", "Dropping message on %s: %v", msg.Subject, err)
			return
		}
		handle(ev)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	logging.Debug("Events", "Subscribed to %s.> on %s", subject, url)
	<-ctx.Done()
	return nil
}

func decodeEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, err
	}
	if ev.Reason == "" {
		return Event{}, fmt.Errorf("event without reason")
	}
	return ev, nil
}
