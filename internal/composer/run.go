package composer

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"conductor/internal/api"
	"conductor/pkg/logging"
)

// Run is the context of one composite workflow execution. It is passed
// explicitly to every step instead of being captured by closures.
type Run struct {
	ID        string
	StartedAt time.Time
	Scope     api.Scope
	Workspace api.ServiceKey

	pauseOnce sync.Once
	paused    chan struct{}
	log       logging.RunLogger
}

// NewRun creates a run with a fresh id.
func NewRun(workspace api.ServiceKey, scope api.Scope, startedAt time.Time) *Run {
	id := uuid.New().String()
	return &Run{
		ID:        id,
		StartedAt: startedAt,
		Scope:     scope,
		Workspace: workspace,
		paused:    make(chan struct{}),
		log:       logging.ForRun("Composer", id),
	}
}

// Pause asks the run to stop at the next step boundary. In-flight steps
// finish normally. Pausing twice is a no-op.
func (r *Run) Pause() {
	r.pauseOnce.Do(func() {
		r.log.Info("Pause requested for run on workspace %s", r.Workspace.Name)
		close(r.paused)
	})
}

// Paused reports whether Pause was called.
func (r *Run) Paused() bool {
	select {
	case <-r.paused:
		return true
	default:
		return false
	}
}

// Log returns the run-scoped logger.
func (r *Run) Log() logging.RunLogger {
	return r.log
}
