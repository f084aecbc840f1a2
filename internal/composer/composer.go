package composer

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"conductor/internal/dependency"
	"conductor/internal/events"
	"conductor/internal/metrics"
)

// Composer executes composite workflows: steps arranged in a dependency
// graph, run level by level, with scope filtering, guards, a continuation
// policy and pause support.
type Composer struct {
	emitter        *events.Emitter
	policy         ContinuationPolicy
	maxConcurrency int
	recorder       metrics.Recorder
	clock          clockwork.Clock
}

// Option configures a Composer.
type Option func(*Composer)

// WithEmitter sets where progress events go.
func WithEmitter(e *events.Emitter) Option {
	return func(c *Composer) {
		c.emitter = e
	}
}

// WithPolicy sets the continuation policy.
func WithPolicy(p ContinuationPolicy) Option {
	return func(c *Composer) {
		c.policy = p
	}
}

// WithMaxConcurrency caps concurrent steps within a level. Zero means no
// cap.
func WithMaxConcurrency(n int) Option {
	return func(c *Composer) {
		c.maxConcurrency = n
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(c *Composer) {
		c.recorder = metrics.OrNoop(r)
	}
}

// WithClock sets the clock used for durations.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Composer) {
		c.clock = clock
	}
}

// New creates a Composer. Without options it drops events, continues after
// failures and runs every step of a level concurrently.
func New(opts ...Option) *Composer {
	c := &Composer{
		emitter:  events.NewEmitter(nil),
		policy:   ContinueOnFailure,
		recorder: metrics.NoopRecorder{},
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Emitter returns the emitter the composer reports progress on.
func (c *Composer) Emitter() *events.Emitter {
	return c.emitter
}

// execution is the mutable state of one Execute call.
type execution struct {
	run   *Run
	graph *dependency.Graph
	steps map[string]Step

	mu      sync.Mutex
	results map[string]*StepResult
}

func (e *execution) result(id string) StepResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.results[id]
}

func (e *execution) set(res StepResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.results[res.ID] = &res
}

// Execute runs the steps of a composite workflow and returns the report.
// The error is a *CompositeError when at least one step failed, ErrPaused
// when the run was paused before every step ran, ctx.Err() when ctx ended
// the run, or a validation error when the steps do not form a valid graph.
func (c *Composer) Execute(ctx context.Context, run *Run, steps []Step) (*Report, error) {
	graph := dependency.New()
	byID := make(map[string]Step, len(steps))
	for _, s := range steps {
		if s.Run == nil {
			return nil, fmt.Errorf("step %q has no run function", s.ID)
		}
		deps := make([]dependency.NodeID, len(s.DependsOn))
		for i, d := range s.DependsOn {
			deps[i] = dependency.NodeID(d)
		}
		if err := graph.AddNode(dependency.Node{ID: dependency.NodeID(s.ID), FriendlyName: s.Description, DependsOn: deps}); err != nil {
			return nil, fmt.Errorf("invalid workflow: %w", err)
		}
		byID[s.ID] = s
	}
	levels, err := graph.Levels()
	if err != nil {
		return nil, fmt.Errorf("invalid workflow: %w", err)
	}

	exec := &execution{
		run:     run,
		graph:   graph,
		steps:   byID,
		results: make(map[string]*StepResult, len(steps)),
	}
	for _, s := range steps {
		exec.set(StepResult{ID: s.ID, Description: s.Description, Layer: s.Layer, Key: s.Key, Status: StatusCancelled})
	}

	log := run.Log()
	log.Info("Executing %d steps in %d levels (scope %s, policy %s)", len(steps), len(levels), run.Scope, c.policy)

	cancelled := false
	for _, level := range levels {
		if c.interrupted(ctx, run) {
			cancelled = true
			break
		}

		var g errgroup.Group
		if c.maxConcurrency > 0 {
			g.SetLimit(c.maxConcurrency)
		}
		var levelCancelled bool
		var cancelMu sync.Mutex
		for _, id := range level {
			step := byID[string(id)]
			g.Go(func() error {
				if c.interrupted(ctx, run) {
					cancelMu.Lock()
					levelCancelled = true
					cancelMu.Unlock()
					return nil
				}
				exec.set(c.activate(ctx, exec, step))
				return nil
			})
		}
		_ = g.Wait()
		if levelCancelled {
			cancelled = true
			break
		}
	}

	report := &Report{
		RunID:     run.ID,
		Workspace: run.Workspace,
		Scope:     run.Scope,
		StartedAt: run.StartedAt,
		Duration:  c.clock.Since(run.StartedAt),
		Cancelled: cancelled,
	}
	for _, s := range steps {
		res := exec.result(s.ID)
		if res.Status == StatusCancelled {
			c.recorder.ObserveStep(string(s.Layer), metrics.ResultCancelled, 0)
		}
		report.Steps = append(report.Steps, res)
	}

	if failed := report.Failed(); len(failed) > 0 {
		log.Warn("%d of %d steps failed", len(failed), len(steps))
		return report, &CompositeError{Failures: failed}
	}
	if cancelled {
		log.Info("Run interrupted, %d steps not started", report.Count(StatusCancelled))
		if !run.Paused() && ctx.Err() != nil {
			return report, ctx.Err()
		}
		return report, ErrPaused
	}
	log.Info("All steps completed in %s", report.Duration)
	return report, nil
}

func (c *Composer) interrupted(ctx context.Context, run *Run) bool {
	return run.Paused() || ctx.Err() != nil
}

// activate applies the pre-activation checks in order and runs the step.
func (c *Composer) activate(ctx context.Context, exec *execution, step Step) StepResult {
	run := exec.run
	res := StepResult{ID: step.ID, Description: step.Description, Layer: step.Layer, Key: step.Key}

	if !run.Scope.Includes(step.Layer) {
		res.Status = StatusSkipped
		res.Reason = SkipOutOfScope
		run.Log().Debug("Skipping %s: layer %s is out of scope %s", step.ID, step.Layer, run.Scope)
		c.recorder.ObserveStep(string(step.Layer), metrics.ResultSkipped, 0)
		return res
	}

	if c.policy == SkipDependents {
		for _, dep := range step.DependsOn {
			d := exec.result(dep)
			if d.Status == StatusFailed || (d.Status == StatusSkipped && d.Reason == SkipDependencyFailed) {
				res.Status = StatusSkipped
				res.Reason = SkipDependencyFailed
				run.Log().Info("Skipping %s: dependency %s did not succeed", step.ID, dep)
				c.recorder.ObserveStep(string(step.Layer), metrics.ResultSkipped, 0)
				return res
			}
		}
	}

	started := c.clock.Now()
	err := c.guardAndRun(ctx, run, step, &res)
	res.Duration = c.clock.Since(started)
	if res.Status == StatusSkipped {
		c.recorder.ObserveStep(string(step.Layer), metrics.ResultSkipped, res.Duration)
		return res
	}

	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		run.Log().Error(err, "Step %s failed", step.ID)
		c.emitter.Emit(run.ID, events.ReasonStepFailed, step.Kind, step.Key, events.EventData{
			Description: step.Description,
			Error:       err.Error(),
		})
		c.emitter.Emit(run.ID, events.ReasonTransitionFailed, step.Kind, step.Key, events.EventData{
			Error: err.Error(),
		})
		c.recorder.ObserveStep(string(step.Layer), metrics.ResultFailure, res.Duration)
		return res
	}

	res.Status = StatusSucceeded
	run.Log().Debug("Step %s succeeded in %s", step.ID, res.Duration)
	if !step.Quiet {
		c.emitter.Emit(run.ID, events.ReasonStepSucceeded, step.Kind, step.Key, events.EventData{
			Description: step.Description,
		})
	}
	c.recorder.ObserveStep(string(step.Layer), metrics.ResultSuccess, res.Duration)
	return res
}

// guardAndRun evaluates the guard and runs the step, turning a panic into a
// PanicError.
func (c *Composer) guardAndRun(ctx context.Context, run *Run, step Step, res *StepResult) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{StepID: step.ID, Value: r}
		}
	}()

	if step.Guard != nil {
		ok, gerr := step.Guard(ctx, run)
		if gerr != nil {
			return fmt.Errorf("guard of %s: %w", step.ID, gerr)
		}
		if !ok {
			res.Status = StatusSkipped
			res.Reason = SkipGuard
			run.Log().Debug("Skipping %s: guard declined", step.ID)
			return nil
		}
	}
	return step.Run(ctx, run)
}
