package workspace

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"conductor/pkg/logging"
)

// ChangeOperation is the kind of change seen on a workspace file.
type ChangeOperation string

const (
	OperationCreate ChangeOperation = "create"
	OperationUpdate ChangeOperation = "update"
	OperationDelete ChangeOperation = "delete"
)

// ChangeEvent is a debounced change of one workspace file.
type ChangeEvent struct {
	Name      string
	Operation ChangeOperation
	FilePath  string
}

// DefaultDebounceInterval is how long Watch waits for further changes of
// the same file before reporting it.
const DefaultDebounceInterval = 200 * time.Millisecond

// Watch invalidates cached workspaces when their files change and reports
// each debounced change to onChange, which may be nil. It blocks until ctx
// is done.
func (s *FileStore) Watch(ctx context.Context, debounce time.Duration, onChange func(ChangeEvent)) error {
	if debounce <= 0 {
		debounce = DefaultDebounceInterval
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := os.MkdirAll(s.storage.dir, 0755); err != nil {
		return err
	}
	if err := watcher.Add(s.storage.dir); err != nil {
		return err
	}
	logging.Info("WorkspaceStore", "Watching %s for workspace changes", s.storage.dir)

	d := &debouncer{
		interval: debounce,
		pending:  make(map[string]*debounceEntry),
		emit: func(ev ChangeEvent) {
			s.Invalidate(ev.Name)
			logging.Debug("WorkspaceStore", "Workspace %s changed (%s)", ev.Name, ev.Operation)
			if onChange != nil {
				onChange(ev)
			}
		},
	}
	defer d.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isYAMLFile(event.Name) {
				continue
			}
			var operation ChangeOperation
			switch {
			case event.Op&fsnotify.Create == fsnotify.Create:
				operation = OperationCreate
			case event.Op&fsnotify.Write == fsnotify.Write:
				operation = OperationUpdate
			case event.Op&fsnotify.Remove == fsnotify.Remove:
				operation = OperationDelete
			case event.Op&fsnotify.Rename == fsnotify.Rename:
				// the new name triggers a create
				operation = OperationDelete
			default:
				continue
			}
			d.add(ChangeEvent{Name: nameFromPath(event.Name), Operation: operation, FilePath: event.Name})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Error("WorkspaceStore", err, "Filesystem watcher error")
		}
	}
}

type debounceEntry struct {
	event ChangeEvent
	timer *time.Timer
}

// debouncer coalesces rapid successive changes of the same file.
type debouncer struct {
	interval time.Duration
	emit     func(ChangeEvent)

	mu      sync.Mutex
	pending map[string]*debounceEntry
	stopped bool
}

func (d *debouncer) add(event ChangeEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	if entry, ok := d.pending[event.Name]; ok {
		entry.timer.Stop()
		event.Operation = mergeOperations(entry.event.Operation, event.Operation)
	}

	name := event.Name
	d.pending[name] = &debounceEntry{
		event: event,
		timer: time.AfterFunc(d.interval, func() {
			d.mu.Lock()
			entry, ok := d.pending[name]
			if ok {
				delete(d.pending, name)
			}
			stopped := d.stopped
			d.mu.Unlock()

			if ok && !stopped {
				d.emit(entry.event)
			}
		}),
	}
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	for _, entry := range d.pending {
		entry.timer.Stop()
	}
	d.pending = make(map[string]*debounceEntry)
}

// mergeOperations merges two operations into a single logical operation.
func mergeOperations(old, new ChangeOperation) ChangeOperation {
	switch {
	case old == OperationCreate && new == OperationDelete:
		return OperationDelete
	case old == OperationCreate:
		return OperationCreate
	default:
		return new
	}
}
