package transition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"conductor/internal/api"
	"conductor/internal/retry"
	"conductor/pkg/logging"
)

const subsystem = "Transition"

// errNotConverged is the retryable failure of a poll that did not yet
// observe the target state.
var errNotConverged = errors.New("target state not reached")

// Workflow drives single services to a confirmed target state. It is safe
// for concurrent use; each call runs its own independent retry loop.
type Workflow struct {
	remote api.ServiceAPI
	specs  api.SpecStore
	clock  clockwork.Clock
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithClock sets the clock used for retry delays.
func WithClock(c clockwork.Clock) Option {
	return func(w *Workflow) {
		w.clock = c
	}
}

// WithSpecStore sets the store CREATE reads workspace specs from.
func WithSpecStore(s api.SpecStore) Option {
	return func(w *Workflow) {
		w.specs = s
	}
}

// New creates a Workflow on top of the remote API.
func New(remote api.ServiceAPI, opts ...Option) *Workflow {
	w := &Workflow{
		remote: remote,
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// observation tracks the last thing a poll told us about a service.
type observation struct {
	snapshot *api.Snapshot
	notFound bool
	seen     bool
}

func (o *observation) record(snap *api.Snapshot, err error) {
	o.seen = true
	o.snapshot = snap
	o.notFound = api.IsNotFound(err)
}

func (o *observation) state() api.ServiceState {
	switch {
	case o.snapshot != nil:
		return o.snapshot.ObservedState()
	case o.notFound:
		return api.StateNonexistent
	default:
		return api.StateUnknown
	}
}

func (w *Workflow) notify(t Transition, kind api.ServiceKind, key api.ServiceKey) retry.Option {
	return retry.WithNotify(func(attempt int, err error, next time.Duration) {
		logging.Debug(subsystem, "%s %s %s attempt %d not converged (%v), retrying in %s",
			t, kind, key, attempt, err, next)
	})
}

// Start starts the service and polls until it reports RUNNING.
func (w *Workflow) Start(ctx context.Context, kind api.ServiceKind, key api.ServiceKey, policy retry.Policy, adapter api.StatusAdapter) Result {
	adapter = api.AdapterOrNoOp(adapter)
	adapter.SetPending(key)

	var obs observation
	attempts, err := retry.Do(ctx, policy, func(ctx context.Context, _ int) error {
		if err := w.remote.Start(ctx, kind, key); err != nil {
			return fmt.Errorf("start %s %s: %w", kind, key.Name, err)
		}
		snap, err := w.remote.Get(ctx, kind, key)
		obs.record(snap, err)
		if err != nil {
			return fmt.Errorf("get %s %s: %w", kind, key.Name, err)
		}
		if !snap.IsRunning() {
			return errNotConverged
		}
		return nil
	}, retry.WithClock(w.clock), w.notify(TransitionStart, kind, key))

	if err != nil {
		adapter.SetFinalState(key, api.ElementFailed)
		return w.failure(TransitionStart, kind, key, attempts, &obs, err)
	}
	adapter.SetFinalState(key, api.ElementRunning)
	return w.success(TransitionStart, kind, key, attempts, obs.snapshot)
}

// Stop stops the service and polls until it reports no state. A not-found
// answer from either call means the service is already gone.
func (w *Workflow) Stop(ctx context.Context, kind api.ServiceKind, key api.ServiceKey, policy retry.Policy, adapter api.StatusAdapter) Result {
	adapter = api.AdapterOrNoOp(adapter)
	adapter.SetPending(key)

	var obs observation
	attempts, err := retry.Do(ctx, policy, func(ctx context.Context, _ int) error {
		if err := w.remote.Stop(ctx, kind, key); err != nil {
			if api.IsNotFound(err) {
				obs.record(nil, err)
			}
			return fmt.Errorf("stop %s %s: %w", kind, key.Name, err)
		}
		snap, err := w.remote.Get(ctx, kind, key)
		obs.record(snap, err)
		if err != nil {
			return fmt.Errorf("get %s %s: %w", kind, key.Name, err)
		}
		if snap.Exists() {
			return errNotConverged
		}
		return nil
	}, retry.WithClock(w.clock), retry.WithSuccessWhen(api.IsNotFound), w.notify(TransitionStop, kind, key))

	if err != nil {
		result := w.failure(TransitionStop, kind, key, attempts, &obs, err)
		adapter.SetFinalState(key, finalStatusFor(obs.state()))
		return result
	}
	adapter.SetFinalState(key, api.ElementStopped)
	return w.success(TransitionStop, kind, key, attempts, obs.snapshot)
}

// Delete removes the service and lists its group until the name is gone.
func (w *Workflow) Delete(ctx context.Context, kind api.ServiceKind, key api.ServiceKey, policy retry.Policy, adapter api.StatusAdapter) Result {
	adapter = api.AdapterOrNoOp(adapter)
	adapter.SetPending(key)

	var obs observation
	attempts, err := retry.Do(ctx, policy, func(ctx context.Context, _ int) error {
		if err := w.remote.Remove(ctx, kind, key); err != nil && !api.IsNotFound(err) {
			return fmt.Errorf("remove %s %s: %w", kind, key.Name, err)
		}
		list, err := w.remote.List(ctx, kind, key.Group)
		if err != nil {
			return fmt.Errorf("list %s in %s: %w", kind, key.Group, err)
		}
		if snap := find(list, key); snap != nil {
			obs.record(snap, nil)
			return errNotConverged
		}
		obs.record(nil, api.NewNotFoundError(kind, key))
		return nil
	}, retry.WithClock(w.clock), w.notify(TransitionDelete, kind, key))

	if err != nil {
		adapter.SetFinalState(key, api.ElementFailed)
		return w.failure(TransitionDelete, kind, key, attempts, &obs, err)
	}
	adapter.RemoveElement(key)
	return w.success(TransitionDelete, kind, key, attempts, nil)
}

// Create creates the service from the workspace's stored spec unless an
// object with the same name already exists in the group.
func (w *Workflow) Create(ctx context.Context, kind api.ServiceKind, key api.ServiceKey, workspace api.ServiceKey) Result {
	list, err := w.remote.List(ctx, kind, key.Group)
	if err != nil {
		return w.failure(TransitionCreate, kind, key, 1, &observation{}, fmt.Errorf("list %s in %s: %w", kind, key.Group, err))
	}
	if snap := find(list, key); snap != nil {
		logging.Debug(subsystem, "%s %s already exists, skipping create", kind, key)
		result := w.success(TransitionCreate, kind, key, 1, snap)
		result.Skipped = true
		result.Message = fmt.Sprintf("%s %q already exists", kind, key.Name)
		return result
	}

	if w.specs == nil {
		return w.failure(TransitionCreate, kind, key, 1, &observation{}, api.ErrNoSpecStore)
	}
	stored, err := w.specs.GetSpecFor(ctx, workspace, kind)
	if err != nil {
		return w.failure(TransitionCreate, kind, key, 1, &observation{}, fmt.Errorf("load %s spec of workspace %s: %w", kind, workspace.Name, err))
	}

	spec := make(api.Spec, len(stored)+2)
	for k, v := range stored {
		spec[k] = v
	}
	spec["name"] = key.Name
	spec["group"] = key.Group

	snap, err := w.remote.Create(ctx, kind, spec)
	if err != nil {
		return w.failure(TransitionCreate, kind, key, 1, &observation{}, fmt.Errorf("create %s %s: %w", kind, key.Name, err))
	}
	return w.success(TransitionCreate, kind, key, 1, snap)
}

// Update applies settings in a single synchronous call.
func (w *Workflow) Update(ctx context.Context, kind api.ServiceKind, key api.ServiceKey, settings api.Spec) Result {
	snap, err := w.remote.Update(ctx, kind, key, settings)
	if err != nil {
		return w.failure(TransitionUpdate, kind, key, 1, &observation{}, fmt.Errorf("update %s %s: %w", kind, key.Name, err))
	}
	return w.success(TransitionUpdate, kind, key, 1, snap)
}

func (w *Workflow) success(t Transition, kind api.ServiceKind, key api.ServiceKey, attempts int, snap *api.Snapshot) Result {
	logging.Debug(subsystem, "%s %s %s succeeded after %d attempt(s)", t, kind, key, attempts)
	return Result{
		Key:        key,
		Kind:       kind,
		Transition: t,
		Outcome:    OutcomeSuccess,
		Snapshot:   snap,
		Message:    fmt.Sprintf("%s %s %q success", t.verb(), kind, key.Name),
		Attempts:   attempts,
	}
}

func (w *Workflow) failure(t Transition, kind api.ServiceKind, key api.ServiceKey, attempts int, obs *observation, err error) Result {
	ferr := &FailureError{
		Transition: t,
		Kind:       kind,
		Key:        key,
		Attempts:   attempts,
		Retries:    max(attempts-1, 0),
		Actual:     obs.state(),
		Snapshot:   obs.snapshot,
		Cause:      err,
	}
	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		ferr.Exhausted = true
		ferr.Retries = exhausted.Retries()
		ferr.Cause = exhausted.Last
	}
	logging.Warn(subsystem, "%s", ferr.Error())
	return Result{
		Key:        key,
		Kind:       kind,
		Transition: t,
		Outcome:    OutcomeFailure,
		Snapshot:   obs.snapshot,
		Err:        ferr,
		Message:    ferr.Error(),
		Attempts:   attempts,
	}
}

// finalStatusFor maps the state observed by a failed STOP to the status
// shown for the service.
func finalStatusFor(state api.ServiceState) api.ElementStatus {
	if state == api.StateUnknown {
		return api.ElementFailed
	}
	return api.ElementStatusFor(state)
}

func find(list []api.Snapshot, key api.ServiceKey) *api.Snapshot {
	for i := range list {
		if list[i].Key.Name == key.Name && list[i].Key.Group == key.Group {
			return &list[i]
		}
	}
	return nil
}
