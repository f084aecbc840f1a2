package api

import "context"

// ServiceAPI is the remote control-plane API. Start and Stop only
// acknowledge the command; the state transition is confirmed by polling Get.
type ServiceAPI interface {
	// Get returns the latest observed state, or a NotFoundError.
	Get(ctx context.Context, kind ServiceKind, key ServiceKey) (*Snapshot, error)
	// List returns all objects of a kind within a group.
	List(ctx context.Context, kind ServiceKind, group string) ([]Snapshot, error)

	Start(ctx context.Context, kind ServiceKind, key ServiceKey) error
	Stop(ctx context.Context, kind ServiceKind, key ServiceKey) error

	Create(ctx context.Context, kind ServiceKind, spec Spec) (*Snapshot, error)
	Remove(ctx context.Context, kind ServiceKind, key ServiceKey) error

	// Update is synchronous on the remote side.
	Update(ctx context.Context, kind ServiceKind, key ServiceKey, settings Spec) (*Snapshot, error)
}

// SpecStore holds the workspace-owned specs used to (re)create services.
type SpecStore interface {
	GetSpecFor(ctx context.Context, workspace ServiceKey, kind ServiceKind) (Spec, error)
	// UpdateSettings persists per-kind settings on the workspace object.
	UpdateSettings(ctx context.Context, workspace ServiceKey, settings map[ServiceKind]Spec) error
}

// ElementStatus is the status shown for a service on the visual canvas.
type ElementStatus string

const (
	ElementPending ElementStatus = "PENDING"
	ElementRunning ElementStatus = "RUNNING"
	ElementStopped ElementStatus = "STOPPED"
	ElementFailed  ElementStatus = "FAILED"
)

// ElementStatusFor maps an observed state to the status shown to the user.
func ElementStatusFor(state ServiceState) ElementStatus {
	switch state {
	case StateRunning:
		return ElementRunning
	case StateNonexistent, "":
		return ElementStopped
	case StateFailed:
		return ElementFailed
	default:
		return ElementStatus(state)
	}
}

// StatusAdapter receives per-service status updates. Implementations must
// not block; the workflows call them inline.
type StatusAdapter interface {
	SetPending(key ServiceKey)
	SetFinalState(key ServiceKey, status ElementStatus)
	RemoveElement(key ServiceKey)
}

// NoOpStatusAdapter ignores every update.
type NoOpStatusAdapter struct{}

func (NoOpStatusAdapter) SetPending(ServiceKey)                    {}
func (NoOpStatusAdapter) SetFinalState(ServiceKey, ElementStatus) {}
func (NoOpStatusAdapter) RemoveElement(ServiceKey)                 {}

// AdapterOrNoOp returns a usable adapter for a possibly nil one.
func AdapterOrNoOp(a StatusAdapter) StatusAdapter {
	if a == nil {
		return NoOpStatusAdapter{}
	}
	return a
}

// RefreshTarget names a read model that should be re-fetched after a
// composite workflow changed the stack.
type RefreshTarget string

const (
	RefreshNodes     RefreshTarget = "nodes"
	RefreshWorker    RefreshTarget = "worker"
	RefreshBroker    RefreshTarget = "broker"
	RefreshZookeeper RefreshTarget = "zookeeper"
)

// Refresher triggers follow-up fetches of dependent read models.
type Refresher interface {
	Refresh(ctx context.Context, target RefreshTarget, key ServiceKey)
}

// NoOpRefresher ignores refresh requests.
type NoOpRefresher struct{}

func (NoOpRefresher) Refresh(context.Context, RefreshTarget, ServiceKey) {}
