// Package metrics records lifecycle metrics: transition outcomes and attempt
// counts, deduplicated intents, composite steps and runs.
//
// Components receive a Recorder and default to NoopRecorder, so no nil
// checks are needed. The CLI swaps in a PrometheusRecorder and serves it
// with HTTPHandler when a metrics address is configured.
package metrics
