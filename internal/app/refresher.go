package app

import (
	"context"
	"sync"

	"conductor/internal/api"
	"conductor/pkg/logging"
)

// StatusRefresher re-fetches services from the remote system after a
// restart and keeps the latest snapshot per target. The nodes target has no
// remote resource of its own; it lists the brokers and workers of the
// workspace group.
type StatusRefresher struct {
	remote api.ServiceAPI

	mu        sync.RWMutex
	snapshots map[api.RefreshTarget][]api.Snapshot
}

// NewStatusRefresher creates a refresher reading from remote.
func NewStatusRefresher(remote api.ServiceAPI) *StatusRefresher {
	return &StatusRefresher{
		remote:    remote,
		snapshots: make(map[api.RefreshTarget][]api.Snapshot),
	}
}

// Refresh fetches the read model of target. Errors are logged; a failed
// refresh never fails the restart that triggered it.
func (r *StatusRefresher) Refresh(ctx context.Context, target api.RefreshTarget, key api.ServiceKey) {
	var (
		snapshots []api.Snapshot
		err       error
	)
	switch target {
	case api.RefreshNodes:
		snapshots, err = r.nodes(ctx, key.Group)
	case api.RefreshWorker:
		snapshots, err = r.one(ctx, api.KindWorker, key)
	case api.RefreshBroker:
		snapshots, err = r.one(ctx, api.KindBroker, key)
	case api.RefreshZookeeper:
		snapshots, err = r.one(ctx, api.KindZookeeper, key)
	default:
		logging.Warn("Refresher", "Unknown refresh target %q", target)
		return
	}
	if err != nil {
		logging.Warn("Refresher", "Failed to refresh %s %s: %v", target, key, err)
		return
	}

	r.mu.Lock()
	r.snapshots[target] = snapshots
	r.mu.Unlock()
	logging.Debug("Refresher", "Refreshed %s %s (%d object(s))", target, key, len(snapshots))
}

// Snapshots returns the snapshots of the last successful refresh of target.
func (r *StatusRefresher) Snapshots(target api.RefreshTarget) []api.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]api.Snapshot, len(r.snapshots[target]))
	copy(out, r.snapshots[target])
	return out
}

func (r *StatusRefresher) one(ctx context.Context, kind api.ServiceKind, key api.ServiceKey) ([]api.Snapshot, error) {
	snap, err := r.remote.Get(ctx, kind, key)
	if err != nil {
		if api.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return []api.Snapshot{*snap}, nil
}

func (r *StatusRefresher) nodes(ctx context.Context, group string) ([]api.Snapshot, error) {
	var out []api.Snapshot
	for _, kind := range []api.ServiceKind{api.KindZookeeper, api.KindBroker, api.KindWorker} {
		snaps, err := r.remote.List(ctx, kind, group)
		if err != nil {
			return nil, err
		}
		out = append(out, snaps...)
	}
	return out, nil
}

var _ api.Refresher = (*StatusRefresher)(nil)
