package metrics

import "time"

// ResultLabel enumerates outcome categories for counters.
type ResultLabel string

const (
	ResultSuccess   ResultLabel = "success"
	ResultFailure   ResultLabel = "failure"
	ResultSkipped   ResultLabel = "skipped"
	ResultCancelled ResultLabel = "cancelled"
)

// Recorder receives lifecycle metrics. Implementations must be safe for
// concurrent use.
type Recorder interface {
	// ObserveTransition records one finished transition workflow.
	ObserveTransition(kind, transition string, result ResultLabel, attempts int, d time.Duration)
	// IncDeduplicated counts an intent that joined an identical in-flight one.
	IncDeduplicated(intent string)
	// ObserveStep records one composite workflow step.
	ObserveStep(layer string, result ResultLabel, d time.Duration)
	// ObserveRun records a finished composite run.
	ObserveRun(result ResultLabel, d time.Duration)
	// SetActiveRuns reports the number of composite runs in flight.
	SetActiveRuns(n int)
}

// NoopRecorder is the default Recorder; it does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveTransition(string, string, ResultLabel, int, time.Duration) {}
func (NoopRecorder) IncDeduplicated(string)                                            {}
func (NoopRecorder) ObserveStep(string, ResultLabel, time.Duration)                    {}
func (NoopRecorder) ObserveRun(ResultLabel, time.Duration)                             {}
func (NoopRecorder) SetActiveRuns(int)                                                 {}

// OrNoop returns r, or NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
