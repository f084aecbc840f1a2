package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"conductor/internal/api"
	"conductor/internal/composer"
	"conductor/internal/events"
	"conductor/internal/metrics"
	"conductor/internal/transition"
	"conductor/pkg/logging"
)

const subsystem = "Orchestrator"

// ErrRestartInProgress is returned when a workspace already has an active
// restart. The new trigger is dropped, not queued.
var ErrRestartInProgress = errors.New("restart already in progress for workspace")

// Orchestrator restarts workspaces: it stops, updates and starts the service
// stack of a workspace in dependency order, restricted to the requested
// scope.
type Orchestrator struct {
	remote    api.ServiceAPI
	specs     api.SpecStore
	workflow  *transition.Workflow
	composer  *composer.Composer
	refresher api.Refresher
	policies  transition.PolicyFunc
	recorder  metrics.Recorder
	clock     clockwork.Clock

	// active runs by workspace ID
	active map[string]*composer.Run

	mu sync.Mutex
}

// Config holds the collaborators of the orchestrator.
type Config struct {
	Remote   api.ServiceAPI // Required
	Specs    api.SpecStore  // Required for create-if-absent and settings persistence
	Workflow *transition.Workflow
	Composer *composer.Composer

	Refresher api.Refresher
	Policies  transition.PolicyFunc
	Recorder  metrics.Recorder
	Clock     clockwork.Clock
}

// New creates a new orchestrator. Missing optional collaborators fall back
// to defaults.
func New(cfg Config) *Orchestrator {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	wf := cfg.Workflow
	if wf == nil {
		wf = transition.New(cfg.Remote, transition.WithSpecStore(cfg.Specs), transition.WithClock(clock))
	}
	comp := cfg.Composer
	if comp == nil {
		comp = composer.New(composer.WithClock(clock))
	}
	refresher := cfg.Refresher
	if refresher == nil {
		refresher = api.NoOpRefresher{}
	}
	policies := cfg.Policies
	if policies == nil {
		policies = transition.DefaultPolicy
	}

	return &Orchestrator{
		remote:    cfg.Remote,
		specs:     cfg.Specs,
		workflow:  wf,
		composer:  comp,
		refresher: refresher,
		policies:  policies,
		recorder:  metrics.OrNoop(cfg.Recorder),
		clock:     clock,
		active:    make(map[string]*composer.Run),
	}
}

// RestartWorkspace runs a workspace restart to completion and returns its
// report. The error is a *composer.CompositeError when steps failed,
// composer.ErrPaused when the run was paused, ErrRestartInProgress when
// another restart of the workspace is active, or a validation error.
//
// Failed steps are reported on their own and do not fail the restart: the
// remaining steps run, the success event is emitted and the read models are
// refreshed. Only a broken workflow (a step that panicked or an invalid
// plan) emits RestartFailed.
func (o *Orchestrator) RestartWorkspace(ctx context.Context, req api.RestartRequest) (*composer.Report, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	scope := req.Scope
	if scope == "" {
		scope = api.ScopeFull
	}

	run, err := o.begin(req.Workspace, scope)
	if err != nil {
		return nil, err
	}
	defer o.end(req.Workspace)

	logging.Info(subsystem, "Restarting workspace %s with scope %s (run %s)", req.Workspace.Name, scope, run.ID)

	steps := o.plan(req)
	report, err := o.composer.Execute(ctx, run, steps)
	if report == nil {
		o.fail(run, req.Workspace, err, o.clock.Since(run.StartedAt))
		return nil, err
	}
	o.finalize(ctx, req, run, report)
	return report, err
}

// Pause cancels the active restart of a workspace at its next step
// boundary. It reports whether a restart was active.
func (o *Orchestrator) Pause(workspace api.ServiceKey) bool {
	o.mu.Lock()
	run, ok := o.active[workspace.ID()]
	o.mu.Unlock()
	if !ok {
		logging.Debug(subsystem, "Pause requested for workspace %s but no restart is active", workspace.Name)
		return false
	}
	run.Pause()
	return true
}

// ActiveRun returns the id of the active restart of a workspace.
func (o *Orchestrator) ActiveRun(workspace api.ServiceKey) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	run, ok := o.active[workspace.ID()]
	if !ok {
		return "", false
	}
	return run.ID, true
}

func (o *Orchestrator) begin(workspace api.ServiceKey, scope api.Scope) (*composer.Run, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if existing, ok := o.active[workspace.ID()]; ok {
		logging.Info(subsystem, "Ignoring restart of workspace %s, run %s is still active", workspace.Name, existing.ID)
		return nil, fmt.Errorf("%w %s (run %s)", ErrRestartInProgress, workspace.Name, existing.ID)
	}
	run := composer.NewRun(workspace, scope, o.clock.Now())
	o.active[workspace.ID()] = run
	o.recorder.SetActiveRuns(len(o.active))
	return run, nil
}

func (o *Orchestrator) end(workspace api.ServiceKey) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, workspace.ID())
	o.recorder.SetActiveRuns(len(o.active))
}

// finalize emits the terminal event of a run and triggers the refreshes of
// the dependent read models. A paused run emits nothing.
func (o *Orchestrator) finalize(ctx context.Context, req api.RestartRequest, run *composer.Run, report *composer.Report) {
	ws := req.Workspace

	if perr := brokenStep(report); perr != nil {
		o.fail(run, ws, perr, report.Duration)
		return
	}

	if report.Cancelled {
		o.recorder.ObserveRun(metrics.ResultCancelled, report.Duration)
		logging.Info(subsystem, "Restart of workspace %s paused after %d steps", ws.Name, report.Count(composer.StatusSucceeded))
		return
	}

	if failed := report.Failed(); len(failed) > 0 {
		o.recorder.ObserveRun(metrics.ResultFailure, report.Duration)
		logging.Warn(subsystem, "Restart of workspace %s completed in %s with %d failed steps", ws.Name, report.Duration, len(failed))
	} else {
		o.recorder.ObserveRun(metrics.ResultSuccess, report.Duration)
		logging.Info(subsystem, "Restart of workspace %s completed in %s", ws.Name, report.Duration)
	}
	o.composer.Emitter().Emit(run.ID, events.ReasonRestartSucceeded, api.KindWorkspace, ws, events.EventData{
		Duration: report.Duration,
	})

	o.refresher.Refresh(ctx, api.RefreshNodes, ws)
	o.refresher.Refresh(ctx, api.RefreshWorker, req.Worker)
	o.refresher.Refresh(ctx, api.RefreshBroker, req.Broker)
	o.refresher.Refresh(ctx, api.RefreshZookeeper, req.Zookeeper)
}

// fail emits the single RestartFailed event of a broken run.
func (o *Orchestrator) fail(run *composer.Run, ws api.ServiceKey, err error, elapsed time.Duration) {
	o.composer.Emitter().Emit(run.ID, events.ReasonRestartFailed, api.KindWorkspace, ws, events.EventData{
		Error:    err.Error(),
		Duration: elapsed,
	})
	o.recorder.ObserveRun(metrics.ResultFailure, elapsed)
	logging.Error(subsystem, err, "Restart of workspace %s failed", ws.Name)
}

// brokenStep returns the panic of the first step that panicked.
func brokenStep(report *composer.Report) error {
	for _, step := range report.Failed() {
		var perr *composer.PanicError
		if errors.As(step.Err, &perr) {
			return perr
		}
	}
	return nil
}

func validate(req api.RestartRequest) error {
	missing := func(name string, key api.ServiceKey) error {
		if key.Name == "" {
			return fmt.Errorf("%w: %s key is required", api.ErrInvalidIntent, name)
		}
		return nil
	}
	for _, check := range []error{
		missing("workspace", req.Workspace),
		missing("zookeeper", req.Zookeeper),
		missing("broker", req.Broker),
		missing("worker", req.Worker),
	} {
		if check != nil {
			return check
		}
	}
	for _, topic := range req.Topics {
		if topic.Name == "" {
			return fmt.Errorf("%w: topic key without name", api.ErrInvalidIntent)
		}
	}
	switch req.Scope {
	case "", api.ScopeFull, api.ScopeBrokerAndWorker, api.ScopeWorkerOnly:
		return nil
	default:
		return fmt.Errorf("%w: unknown scope %q", api.ErrInvalidIntent, req.Scope)
	}
}
