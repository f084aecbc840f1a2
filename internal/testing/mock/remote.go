package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"conductor/internal/api"
)

// Operation names recorded in the call log.
const (
	OpGet    = "get"
	OpList   = "list"
	OpStart  = "start"
	OpStop   = "stop"
	OpCreate = "create"
	OpRemove = "remove"
	OpUpdate = "update"
)

// Call is one recorded invocation of the mock remote API.
type Call struct {
	Op   string
	Kind api.ServiceKind
	Key  api.ServiceKey
}

func (c Call) String() string {
	return fmt.Sprintf("%s %s %s", c.Op, c.Kind, c.Key.Name)
}

// Response is one scripted answer for Get.
type Response struct {
	State api.ServiceState
	Err   error
}

// Hook runs before an operation takes effect. A non-nil error fails the
// operation with that error. Hooks may block, which is how tests hold a
// call in flight.
type Hook func(ctx context.Context, kind api.ServiceKind, key api.ServiceKey) error

type objectKey struct {
	kind api.ServiceKind
	key  api.ServiceKey
}

type opKey struct {
	op string
	objectKey
}

// ServiceAPI is an in-memory api.ServiceAPI. Objects behave like the remote
// configurator: Start sets RUNNING, Stop clears the state, Remove deletes
// the object. Get answers can be scripted per object to simulate slow or
// failed convergence.
type ServiceAPI struct {
	mu      sync.Mutex
	objects map[objectKey]*api.Snapshot
	order   []objectKey
	scripts map[objectKey][]Response
	errs    map[opKey]error
	stuck   map[objectKey]bool
	hooks   map[string]Hook
	calls   []Call
}

// NewServiceAPI creates an empty mock remote API.
func NewServiceAPI() *ServiceAPI {
	return &ServiceAPI{
		objects: make(map[objectKey]*api.Snapshot),
		scripts: make(map[objectKey][]Response),
		errs:    make(map[opKey]error),
		stuck:   make(map[objectKey]bool),
		hooks:   make(map[string]Hook),
	}
}

// Put creates or replaces an object. An empty state means the object exists
// but is not running.
func (m *ServiceAPI) Put(kind api.ServiceKind, key api.ServiceKey, state api.ServiceState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(kind, key, state)
}

func (m *ServiceAPI) put(kind api.ServiceKind, key api.ServiceKey, state api.ServiceState) *api.Snapshot {
	ok := objectKey{kind: kind, key: key}
	if existing, found := m.objects[ok]; found {
		existing.State = state
		return existing
	}
	snap := &api.Snapshot{
		Key:   key,
		Kind:  kind,
		State: state,
		Raw:   map[string]interface{}{"name": key.Name, "group": key.Group},
	}
	m.objects[ok] = snap
	m.order = append(m.order, ok)
	return snap
}

// ScriptGet queues answers for Get on one object. Once the queue is drained
// Get falls back to the stored object.
func (m *ServiceAPI) ScriptGet(kind api.ServiceKind, key api.ServiceKey, responses ...Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ok := objectKey{kind: kind, key: key}
	m.scripts[ok] = append(m.scripts[ok], responses...)
}

// RepeatGet queues the same answer n times.
func (m *ServiceAPI) RepeatGet(kind api.ServiceKind, key api.ServiceKey, state api.ServiceState, n int) {
	responses := make([]Response, n)
	for i := range responses {
		responses[i] = Response{State: state}
	}
	m.ScriptGet(kind, key, responses...)
}

// SetError makes every call of op on the object fail with err. A nil err
// clears it.
func (m *ServiceAPI) SetError(op string, kind api.ServiceKind, key api.ServiceKey, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := opKey{op: op, objectKey: objectKey{kind: kind, key: key}}
	if err == nil {
		delete(m.errs, k)
		return
	}
	m.errs[k] = err
}

// SetStuck makes Start, Stop and Remove acknowledge without any effect on
// the object.
func (m *ServiceAPI) SetStuck(kind api.ServiceKind, key api.ServiceKey, stuck bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stuck[objectKey{kind: kind, key: key}] = stuck
}

// SetHook installs a hook for an operation on every object.
func (m *ServiceAPI) SetHook(op string, hook Hook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hook == nil {
		delete(m.hooks, op)
		return
	}
	m.hooks[op] = hook
}

// Calls returns a copy of the call log.
func (m *ServiceAPI) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// MutatingCalls returns the call log without reads.
func (m *ServiceAPI) MutatingCalls() []Call {
	var out []Call
	for _, c := range m.Calls() {
		if c.Op == OpGet || c.Op == OpList {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Count returns how often op was called for a kind.
func (m *ServiceAPI) Count(op string, kind api.ServiceKind) int {
	n := 0
	for _, c := range m.Calls() {
		if c.Op == op && c.Kind == kind {
			n++
		}
	}
	return n
}

// State returns the stored state of an object and whether it exists.
func (m *ServiceAPI) State(kind api.ServiceKind, key api.ServiceKey) (api.ServiceState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.objects[objectKey{kind: kind, key: key}]
	if !ok {
		return "", false
	}
	return snap.State, true
}

// Settings returns the raw fields of a stored object.
func (m *ServiceAPI) Settings(kind api.ServiceKind, key api.ServiceKey) map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.objects[objectKey{kind: kind, key: key}]
	if !ok {
		return nil
	}
	return copyRaw(snap.Raw)
}

// enter records the call, runs the hook and returns the injected error.
func (m *ServiceAPI) enter(ctx context.Context, op string, kind api.ServiceKind, key api.ServiceKey) error {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Op: op, Kind: kind, Key: key})
	hook := m.hooks[op]
	m.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, kind, key); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errs[opKey{op: op, objectKey: objectKey{kind: kind, key: key}}]
}

func (m *ServiceAPI) Get(ctx context.Context, kind api.ServiceKind, key api.ServiceKey) (*api.Snapshot, error) {
	if err := m.enter(ctx, OpGet, kind, key); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	ok := objectKey{kind: kind, key: key}
	if script := m.scripts[ok]; len(script) > 0 {
		next := script[0]
		m.scripts[ok] = script[1:]
		if next.Err != nil {
			return nil, next.Err
		}
		return &api.Snapshot{Key: key, Kind: kind, State: next.State}, nil
	}

	snap, found := m.objects[ok]
	if !found {
		return nil, api.NewNotFoundError(kind, key)
	}
	out := *snap
	out.Raw = copyRaw(snap.Raw)
	return &out, nil
}

func (m *ServiceAPI) List(ctx context.Context, kind api.ServiceKind, group string) ([]api.Snapshot, error) {
	if err := m.enter(ctx, OpList, kind, api.ServiceKey{Group: group}); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var out []api.Snapshot
	for _, ok := range m.order {
		snap, found := m.objects[ok]
		if !found || ok.kind != kind || ok.key.Group != group {
			continue
		}
		out = append(out, *snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Name < out[j].Key.Name })
	return out, nil
}

func (m *ServiceAPI) Start(ctx context.Context, kind api.ServiceKind, key api.ServiceKey) error {
	return m.mutate(ctx, OpStart, kind, key, func(ok objectKey, snap *api.Snapshot) {
		snap.State = api.StateRunning
	})
}

func (m *ServiceAPI) Stop(ctx context.Context, kind api.ServiceKind, key api.ServiceKey) error {
	return m.mutate(ctx, OpStop, kind, key, func(ok objectKey, snap *api.Snapshot) {
		snap.State = ""
	})
}

func (m *ServiceAPI) Remove(ctx context.Context, kind api.ServiceKind, key api.ServiceKey) error {
	return m.mutate(ctx, OpRemove, kind, key, func(ok objectKey, _ *api.Snapshot) {
		delete(m.objects, ok)
		for i, existing := range m.order {
			if existing == ok {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	})
}

func (m *ServiceAPI) mutate(ctx context.Context, op string, kind api.ServiceKind, key api.ServiceKey, apply func(objectKey, *api.Snapshot)) error {
	if err := m.enter(ctx, op, kind, key); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	ok := objectKey{kind: kind, key: key}
	snap, found := m.objects[ok]
	if !found {
		return api.NewNotFoundError(kind, key)
	}
	if m.stuck[ok] {
		return nil
	}
	apply(ok, snap)
	return nil
}

func (m *ServiceAPI) Create(ctx context.Context, kind api.ServiceKind, spec api.Spec) (*api.Snapshot, error) {
	key := api.ServiceKey{}
	if name, ok := spec["name"].(string); ok {
		key.Name = name
	}
	if group, ok := spec["group"].(string); ok {
		key.Group = group
	}
	if err := m.enter(ctx, OpCreate, kind, key); err != nil {
		return nil, err
	}
	if key.Name == "" {
		return nil, &api.RemoteError{StatusCode: 400, Message: "name is required"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.objects[objectKey{kind: kind, key: key}]; exists {
		return nil, &api.RemoteError{StatusCode: 409, Message: fmt.Sprintf("%s %s already exists", kind, key.Name)}
	}
	snap := m.put(kind, key, "")
	for k, v := range spec {
		snap.Raw[k] = v
	}
	out := *snap
	out.Raw = copyRaw(snap.Raw)
	return &out, nil
}

func (m *ServiceAPI) Update(ctx context.Context, kind api.ServiceKind, key api.ServiceKey, settings api.Spec) (*api.Snapshot, error) {
	if err := m.enter(ctx, OpUpdate, kind, key); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	snap, found := m.objects[objectKey{kind: kind, key: key}]
	if !found {
		return nil, api.NewNotFoundError(kind, key)
	}
	for k, v := range settings {
		snap.Raw[k] = v
	}
	out := *snap
	out.Raw = copyRaw(snap.Raw)
	return &out, nil
}

func copyRaw(raw map[string]interface{}) map[string]interface{} {
	if raw == nil {
		return nil
	}
	out := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		out[k] = v
	}
	return out
}

var _ api.ServiceAPI = (*ServiceAPI)(nil)
