package workspace

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"sigs.k8s.io/yaml"

	"conductor/internal/api"
	"conductor/pkg/logging"
)

// Workspace is the stored definition of a workspace: the specs used to
// create its zookeeper, broker and worker, plus the settings persisted by
// restarts.
type Workspace struct {
	Name  string `json:"name"`
	Group string `json:"group,omitempty"`

	Zookeeper api.Spec `json:"zookeeper,omitempty"`
	Broker    api.Spec `json:"broker,omitempty"`
	Worker    api.Spec `json:"worker,omitempty"`

	// Topics are the names of the topics owned by the workspace broker.
	Topics []string `json:"topics,omitempty"`
}

// Key returns the service key of the workspace.
func (w *Workspace) Key() api.ServiceKey {
	return api.ServiceKey{Group: w.Group, Name: w.Name}
}

// ServiceKey returns the key of the workspace service of kind. The "name"
// and "group" fields of the stored spec win over the workspace key.
func (w *Workspace) ServiceKey(kind api.ServiceKind) api.ServiceKey {
	key := w.Key()
	spec, ok := w.specFor(kind)
	if !ok || spec == nil {
		return key
	}
	if name, ok := (*spec)["name"].(string); ok && name != "" {
		key.Name = name
	}
	if group, ok := (*spec)["group"].(string); ok && group != "" {
		key.Group = group
	}
	return key
}

// RestartRequest builds the restart request for the workspace stack.
// Settings are left empty for the caller to fill.
func (w *Workspace) RestartRequest(scope api.Scope) api.RestartRequest {
	req := api.RestartRequest{
		Workspace: w.Key(),
		Zookeeper: w.ServiceKey(api.KindZookeeper),
		Broker:    w.ServiceKey(api.KindBroker),
		Worker:    w.ServiceKey(api.KindWorker),
		Scope:     scope,
	}
	for _, topic := range w.Topics {
		req.Topics = append(req.Topics, api.ServiceKey{Group: w.Group, Name: topic})
	}
	return req
}

func (w *Workspace) specFor(kind api.ServiceKind) (*api.Spec, bool) {
	switch kind {
	case api.KindZookeeper:
		return &w.Zookeeper, true
	case api.KindBroker:
		return &w.Broker, true
	case api.KindWorker:
		return &w.Worker, true
	default:
		return nil, false
	}
}

// FileStore is an api.SpecStore backed by one YAML file per workspace.
// Parsed workspaces are cached until the file changes (see Watch) or the
// store writes it.
type FileStore struct {
	storage *storage

	mu    sync.RWMutex
	cache map[string]*Workspace
}

// NewFileStore creates a store rooted at dir. The directory is created on
// the first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{
		storage: newStorage(dir),
		cache:   make(map[string]*Workspace),
	}
}

// Get returns a copy of the named workspace.
func (s *FileStore) Get(name string) (*Workspace, error) {
	ws, err := s.get(name)
	if err != nil {
		return nil, err
	}
	return ws.clone(), nil
}

// Put writes a workspace, replacing any previous definition.
func (s *FileStore) Put(ws *Workspace) error {
	if ws == nil || ws.Name == "" {
		return fmt.Errorf("workspace name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(ws.clone())
}

// Delete removes a workspace.
func (s *FileStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, name)
	if err := s.storage.delete(name); err != nil {
		if errors.Is(err, errFileNotFound) {
			return api.NewNotFoundError(api.KindWorkspace, api.ServiceKey{Name: name})
		}
		return err
	}
	return nil
}

// List returns the names of all stored workspaces, sorted.
func (s *FileStore) List() ([]string, error) {
	names, err := s.storage.list()
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// GetSpecFor returns the stored spec of kind for the workspace.
func (s *FileStore) GetSpecFor(_ context.Context, workspace api.ServiceKey, kind api.ServiceKind) (api.Spec, error) {
	ws, err := s.get(workspace.Name)
	if err != nil {
		return nil, err
	}
	spec, ok := ws.specFor(kind)
	if !ok {
		return nil, fmt.Errorf("workspace %s has no spec for %s", workspace.Name, kind)
	}
	if len(*spec) == 0 {
		return nil, api.NewNotFoundError(kind, workspace)
	}
	return copySpec(*spec), nil
}

// UpdateSettings merges settings into the stored specs of the workspace and
// writes the file.
func (s *FileStore) UpdateSettings(_ context.Context, workspace api.ServiceKey, settings map[api.ServiceKind]api.Spec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, err := s.getLocked(workspace.Name)
	if err != nil {
		return err
	}
	updated := ws.clone()
	for kind, values := range settings {
		spec, ok := updated.specFor(kind)
		if !ok {
			return fmt.Errorf("workspace %s has no spec for %s", workspace.Name, kind)
		}
		if *spec == nil {
			*spec = make(api.Spec, len(values))
		}
		for k, v := range values {
			(*spec)[k] = v
		}
	}
	if err := s.write(updated); err != nil {
		return err
	}
	logging.Info("WorkspaceStore", "Updated settings of workspace %s (%d layer(s))", workspace.Name, len(settings))
	return nil
}

// Invalidate drops the cached copy of a workspace.
func (s *FileStore) Invalidate(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, name)
}

func (s *FileStore) get(name string) (*Workspace, error) {
	s.mu.RLock()
	ws, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return ws, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(name)
}

func (s *FileStore) getLocked(name string) (*Workspace, error) {
	if ws, ok := s.cache[name]; ok {
		return ws, nil
	}
	data, err := s.storage.load(name)
	if err != nil {
		if errors.Is(err, errFileNotFound) {
			return nil, api.NewNotFoundError(api.KindWorkspace, api.ServiceKey{Name: name})
		}
		return nil, err
	}
	var ws Workspace
	if err := yaml.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("failed to parse workspace %s: %w", name, err)
	}
	if ws.Name == "" {
		ws.Name = name
	}
	s.cache[name] = &ws
	return &ws, nil
}

func (s *FileStore) write(ws *Workspace) error {
	data, err := yaml.Marshal(ws)
	if err != nil {
		return fmt.Errorf("failed to marshal workspace %s: %w", ws.Name, err)
	}
	if err := s.storage.save(ws.Name, data); err != nil {
		return err
	}
	s.cache[ws.Name] = ws
	return nil
}

func (w *Workspace) clone() *Workspace {
	out := *w
	out.Zookeeper = copySpec(w.Zookeeper)
	out.Broker = copySpec(w.Broker)
	out.Worker = copySpec(w.Worker)
	out.Topics = append([]string(nil), w.Topics...)
	return &out
}

func copySpec(s api.Spec) api.Spec {
	if s == nil {
		return nil
	}
	out := make(api.Spec, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

var _ api.SpecStore = (*FileStore)(nil)
