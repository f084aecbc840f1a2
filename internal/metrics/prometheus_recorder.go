package metrics

import (
	"net/http"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	transitions        *prom.CounterVec
	transitionDuration *prom.HistogramVec
	attempts           *prom.HistogramVec
	deduplicated       *prom.CounterVec
	steps              *prom.CounterVec
	stepDuration       *prom.HistogramVec
	runs               *prom.CounterVec
	runDuration        prom.Histogram
	activeRuns         prom.Gauge
}

// NewPrometheusRecorder constructs the metrics and registers them on reg.
// A nil registry gets a fresh one.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		transitions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "conductor",
			Name:      "transitions_total",
			Help:      "Transition workflows by service kind, transition and result",
		}, []string{"kind", "transition", "result"}),
		transitionDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "conductor",
			Name:      "transition_duration_seconds",
			Help:      "Duration of transition workflows including retry delays",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"kind", "transition"}),
		attempts: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "conductor",
			Name:      "transition_attempts",
			Help:      "Attempts needed by transition workflows",
			Buckets:   []float64{1, 2, 3, 5, 10},
		}, []string{"kind", "transition", "exhausted"}),
		deduplicated: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "conductor",
			Name:      "intents_deduplicated_total",
			Help:      "Intents that joined an identical in-flight intent",
		}, []string{"intent"}),
		steps: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "conductor",
			Name:      "restart_steps_total",
			Help:      "Composite workflow steps by layer and result",
		}, []string{"layer", "result"}),
		stepDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "conductor",
			Name:      "restart_step_duration_seconds",
			Help:      "Duration of composite workflow steps",
			Buckets:   prom.DefBuckets,
		}, []string{"layer"}),
		runs: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "conductor",
			Name:      "restart_runs_total",
			Help:      "Composite runs by final result",
		}, []string{"result"}),
		runDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "conductor",
			Name:      "restart_run_duration_seconds",
			Help:      "Total duration of composite runs",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}),
		activeRuns: prom.NewGauge(prom.GaugeOpts{
			Namespace: "conductor",
			Name:      "restart_runs_active",
			Help:      "Composite runs currently in flight",
		}),
	}
	reg.MustRegister(pr.transitions, pr.transitionDuration, pr.attempts, pr.deduplicated,
		pr.steps, pr.stepDuration, pr.runs, pr.runDuration, pr.activeRuns)
	return pr
}

func (p *PrometheusRecorder) ObserveTransition(kind, transition string, result ResultLabel, attempts int, d time.Duration) {
	if p == nil {
		return
	}
	p.transitions.WithLabelValues(kind, transition, string(result)).Inc()
	p.transitionDuration.WithLabelValues(kind, transition).Observe(d.Seconds())
	if attempts > 0 {
		exhausted := strconv.FormatBool(result == ResultFailure)
		p.attempts.WithLabelValues(kind, transition, exhausted).Observe(float64(attempts))
	}
}

func (p *PrometheusRecorder) IncDeduplicated(intent string) {
	if p == nil {
		return
	}
	p.deduplicated.WithLabelValues(intent).Inc()
}

func (p *PrometheusRecorder) ObserveStep(layer string, result ResultLabel, d time.Duration) {
	if p == nil {
		return
	}
	if layer == "" {
		layer = "none"
	}
	p.steps.WithLabelValues(layer, string(result)).Inc()
	if result == ResultSuccess || result == ResultFailure {
		p.stepDuration.WithLabelValues(layer).Observe(d.Seconds())
	}
}

func (p *PrometheusRecorder) ObserveRun(result ResultLabel, d time.Duration) {
	if p == nil {
		return
	}
	p.runs.WithLabelValues(string(result)).Inc()
	p.runDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetActiveRuns(n int) {
	if p == nil {
		return
	}
	p.activeRuns.Set(float64(n))
}

// HTTPHandler returns an http.Handler that serves the metrics of reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	if reg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
