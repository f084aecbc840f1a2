// Package dispatch routes operator intents to the transition workflow or the
// restart orchestrator.
//
// Identical intents (same intent kind, service kind and target) that arrive
// while one is in flight share its outcome: the remote calls are issued
// once and every caller receives the same result. The shared work runs with
// the context of the first caller.
//
// Every terminal outcome is recorded: single transitions emit a
// TransitionSucceeded or TransitionFailed event, restarts emit the events of
// the orchestrator, and all of them are observed by the metrics recorder.
package dispatch
