// Package events defines the events emitted by lifecycle workflows and the
// sinks that receive them.
//
// Titles are rendered from per-reason templates, for example
//
//	"{{.Timestamp}} {{.Description}} success..."
//	"Successfully Restart workspace {{.Name}}."
//
// The Emitter fills in timestamps, renders the title and records the event
// on a Sink. Sinks available:
//
//   - LogSink: writes events to the structured log
//   - NATSSink: publishes events as JSON on a NATS subject
//   - MemorySink: keeps events in memory for tests and CLI output
//   - MultiSink: fans out to several sinks
//
// Usage:
//
//	emitter := events.NewEmitter(events.MultiSink{events.LogSink{}, natsSink})
//	emitter.Emit(run.ID, events.ReasonStepSucceeded, api.KindWorker, key, events.EventData{Description: "Stop worker"})
package events
