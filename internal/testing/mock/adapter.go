package mock

import (
	"context"
	"sync"

	"conductor/internal/api"
)

// Removed is the pseudo status recorded for RemoveElement.
const Removed = "REMOVED"

// StatusAdapter records every status update per service key.
type StatusAdapter struct {
	mu      sync.Mutex
	updates map[api.ServiceKey][]string
}

// NewStatusAdapter creates an empty recording adapter.
func NewStatusAdapter() *StatusAdapter {
	return &StatusAdapter{updates: make(map[api.ServiceKey][]string)}
}

func (a *StatusAdapter) record(key api.ServiceKey, status string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.updates[key] = append(a.updates[key], status)
}

func (a *StatusAdapter) SetPending(key api.ServiceKey) {
	a.record(key, string(api.ElementPending))
}

func (a *StatusAdapter) SetFinalState(key api.ServiceKey, status api.ElementStatus) {
	a.record(key, string(status))
}

func (a *StatusAdapter) RemoveElement(key api.ServiceKey) {
	a.record(key, Removed)
}

// Updates returns the recorded statuses for a key in order.
func (a *StatusAdapter) Updates(key api.ServiceKey) []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.updates[key]))
	copy(out, a.updates[key])
	return out
}

// Refresher records refresh requests.
type Refresher struct {
	mu      sync.Mutex
	targets []api.RefreshTarget
}

func (r *Refresher) Refresh(_ context.Context, target api.RefreshTarget, _ api.ServiceKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.targets = append(r.targets, target)
}

// Targets returns the refreshed read models in call order.
func (r *Refresher) Targets() []api.RefreshTarget {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]api.RefreshTarget, len(r.targets))
	copy(out, r.targets)
	return out
}

// SpecStore is an in-memory api.SpecStore.
type SpecStore struct {
	mu       sync.Mutex
	specs    map[string]map[api.ServiceKind]api.Spec
	settings map[string][]map[api.ServiceKind]api.Spec
	err      error
}

// NewSpecStore creates an empty spec store.
func NewSpecStore() *SpecStore {
	return &SpecStore{
		specs:    make(map[string]map[api.ServiceKind]api.Spec),
		settings: make(map[string][]map[api.ServiceKind]api.Spec),
	}
}

// PutSpec stores the creation spec of a kind for a workspace.
func (s *SpecStore) PutSpec(workspace api.ServiceKey, kind api.ServiceKind, spec api.Spec) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.specs[workspace.ID()] == nil {
		s.specs[workspace.ID()] = make(map[api.ServiceKind]api.Spec)
	}
	s.specs[workspace.ID()][kind] = spec
}

// SetError makes UpdateSettings fail.
func (s *SpecStore) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *SpecStore) GetSpecFor(_ context.Context, workspace api.ServiceKey, kind api.ServiceKind) (api.Spec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	spec, ok := s.specs[workspace.ID()][kind]
	if !ok {
		return nil, api.NewNotFoundError(kind, workspace)
	}
	return spec, nil
}

func (s *SpecStore) UpdateSettings(_ context.Context, workspace api.ServiceKey, settings map[api.ServiceKind]api.Spec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.settings[workspace.ID()] = append(s.settings[workspace.ID()], settings)
	return nil
}

// SettingsUpdates returns every settings update recorded for a workspace.
func (s *SpecStore) SettingsUpdates(workspace api.ServiceKey) []map[api.ServiceKind]api.Spec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[api.ServiceKind]api.Spec(nil), s.settings[workspace.ID()]...)
}

var (
	_ api.StatusAdapter = (*StatusAdapter)(nil)
	_ api.Refresher     = (*Refresher)(nil)
	_ api.SpecStore     = (*SpecStore)(nil)
)
