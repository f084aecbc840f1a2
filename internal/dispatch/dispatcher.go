package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"conductor/internal/api"
	"conductor/internal/composer"
	"conductor/internal/events"
	"conductor/internal/metrics"
	"conductor/internal/orchestrator"
	"conductor/internal/transition"
	"conductor/pkg/logging"
)

const subsystem = "Dispatch"

// Outcome is what a caller of Dispatch receives.
type Outcome struct {
	Intent api.Intent

	// Result is set for single transitions.
	Result *transition.Result
	// Report is set for restarts that ran.
	Report *composer.Report

	// Shared is set when the outcome came from an identical intent that was
	// already in flight.
	Shared bool
}

// Dispatcher executes intents.
type Dispatcher struct {
	workflow     *transition.Workflow
	orchestrator *orchestrator.Orchestrator
	policies     transition.PolicyFunc
	emitter      *events.Emitter
	recorder     metrics.Recorder
	clock        clockwork.Clock

	group singleflight.Group

	mu       sync.Mutex
	inflight map[string]int
}

// Config holds the collaborators of a Dispatcher.
type Config struct {
	Workflow     *transition.Workflow // Required
	Orchestrator *orchestrator.Orchestrator

	Policies transition.PolicyFunc
	Emitter  *events.Emitter
	Recorder metrics.Recorder
	Clock    clockwork.Clock
}

// New creates a Dispatcher.
func New(cfg Config) *Dispatcher {
	d := &Dispatcher{
		workflow:     cfg.Workflow,
		orchestrator: cfg.Orchestrator,
		policies:     cfg.Policies,
		emitter:      cfg.Emitter,
		recorder:     metrics.OrNoop(cfg.Recorder),
		clock:        cfg.Clock,
		inflight:     make(map[string]int),
	}
	if d.policies == nil {
		d.policies = transition.DefaultPolicy
	}
	if d.emitter == nil {
		d.emitter = events.NewEmitter(nil)
	}
	if d.clock == nil {
		d.clock = clockwork.NewRealClock()
	}
	return d
}

// Dispatch runs an intent to its terminal outcome. The returned error is
// the terminal error of the transition or restart, or a validation error
// wrapping api.ErrInvalidIntent.
func (d *Dispatcher) Dispatch(ctx context.Context, intent api.Intent) (*Outcome, error) {
	if err := validate(intent, d.orchestrator != nil); err != nil {
		return nil, err
	}
	if intent.Kind == api.IntentRestart && intent.Target.IsZero() {
		intent.ServiceKind = api.KindWorkspace
		intent.Target = intent.Restart.Workspace
	}

	fp := intent.Fingerprint()
	if callers := d.join(fp); callers > 1 {
		logging.Debug(subsystem, "Joining in-flight intent %s (%d callers)", fp, callers)
		d.recorder.IncDeduplicated(string(intent.Kind))
	}
	defer d.leave(fp)

	v, err, shared := d.group.Do(fp, func() (interface{}, error) {
		return d.execute(ctx, intent)
	})
	out, _ := v.(*Outcome)
	if out == nil {
		return nil, err
	}
	copied := *out
	copied.Shared = shared
	return &copied, err
}

// join registers a caller for fp and returns the number of callers now in
// flight for it.
func (d *Dispatcher) join(fp string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inflight[fp]++
	return d.inflight[fp]
}

func (d *Dispatcher) leave(fp string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inflight[fp]--
	if d.inflight[fp] <= 0 {
		delete(d.inflight, fp)
	}
}

func (d *Dispatcher) execute(ctx context.Context, intent api.Intent) (*Outcome, error) {
	out := &Outcome{Intent: intent}

	if intent.Kind == api.IntentRestart {
		req := *intent.Restart
		if req.Scope == "" {
			req.Scope = intent.Scope
		}
		report, err := d.orchestrator.RestartWorkspace(ctx, req)
		out.Report = report
		return out, err
	}

	started := d.clock.Now()
	result := d.transition(ctx, intent)
	elapsed := d.clock.Since(started)
	out.Result = &result

	label := metrics.ResultSuccess
	switch {
	case !result.Succeeded():
		label = metrics.ResultFailure
	case result.Skipped:
		label = metrics.ResultSkipped
	}
	d.recorder.ObserveTransition(string(intent.ServiceKind), string(result.Transition), label, result.Attempts, elapsed)

	if !result.Succeeded() {
		logging.Error(subsystem, result.Err, "%s %s %s failed", intent.Kind, intent.ServiceKind, intent.Target)
		d.emitter.Emit("", events.ReasonTransitionFailed, intent.ServiceKind, intent.Target, events.EventData{
			Operation: pastTense[result.Transition],
			Error:     result.Err.Error(),
		})
		return out, result.Err
	}

	logging.Info(subsystem, "%s %s %s succeeded after %d attempt(s)", intent.Kind, intent.ServiceKind, intent.Target, result.Attempts)
	d.emitter.Emit("", events.ReasonTransitionSucceeded, intent.ServiceKind, intent.Target, events.EventData{
		Operation: pastTense[result.Transition],
		Duration:  elapsed,
	})
	return out, nil
}

func (d *Dispatcher) transition(ctx context.Context, intent api.Intent) transition.Result {
	kind, key := intent.ServiceKind, intent.Target
	switch intent.Kind {
	case api.IntentStart:
		return d.workflow.Start(ctx, kind, key, d.policies(kind, transition.TransitionStart), intent.Adapter)
	case api.IntentStop:
		return d.workflow.Stop(ctx, kind, key, d.policies(kind, transition.TransitionStop), intent.Adapter)
	case api.IntentDelete:
		return d.workflow.Delete(ctx, kind, key, d.policies(kind, transition.TransitionDelete), intent.Adapter)
	case api.IntentCreate:
		return d.workflow.Create(ctx, kind, key, intent.Workspace)
	default:
		return d.workflow.Update(ctx, kind, key, intent.Payload)
	}
}

var pastTense = map[transition.Transition]string{
	transition.TransitionStart:  "started",
	transition.TransitionStop:   "stopped",
	transition.TransitionCreate: "created",
	transition.TransitionDelete: "removed",
	transition.TransitionUpdate: "updated",
}

func validate(intent api.Intent, canRestart bool) error {
	switch intent.Kind {
	case api.IntentRestart:
		if intent.Restart == nil {
			return fmt.Errorf("%w: restart intent without restart request", api.ErrInvalidIntent)
		}
		if !canRestart {
			return fmt.Errorf("%w: no orchestrator configured for restarts", api.ErrInvalidIntent)
		}
		return nil
	case api.IntentStart, api.IntentStop, api.IntentDelete, api.IntentCreate, api.IntentUpdate:
	default:
		return fmt.Errorf("%w: unknown intent kind %q", api.ErrInvalidIntent, intent.Kind)
	}
	if intent.ServiceKind == "" {
		return fmt.Errorf("%w: service kind is required", api.ErrInvalidIntent)
	}
	if intent.Target.Name == "" {
		return fmt.Errorf("%w: target name is required", api.ErrInvalidIntent)
	}
	if intent.Kind == api.IntentCreate && intent.Workspace.Name == "" {
		return fmt.Errorf("%w: create requires a workspace", api.ErrInvalidIntent)
	}
	return nil
}
