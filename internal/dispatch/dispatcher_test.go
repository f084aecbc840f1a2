package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conductor/internal/api"
	"conductor/internal/composer"
	"conductor/internal/events"
	"conductor/internal/metrics"
	"conductor/internal/orchestrator"
	"conductor/internal/retry"
	"conductor/internal/testing/mock"
	"conductor/internal/transition"
)

var (
	wk1 = api.ServiceKey{Group: "worker", Name: "wk1"}
	wk2 = api.ServiceKey{Group: "worker", Name: "wk2"}
)

type recorder struct {
	metrics.NoopRecorder

	mu     sync.Mutex
	dedup  int
	labels []metrics.ResultLabel
}

func (r *recorder) IncDeduplicated(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dedup++
}

func (r *recorder) ObserveTransition(_ string, _ string, result metrics.ResultLabel, _ int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.labels = append(r.labels, result)
}

func (r *recorder) snapshot() (int, []metrics.ResultLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dedup, append([]metrics.ResultLabel(nil), r.labels...)
}

func fastPolicy(api.ServiceKind, transition.Transition) retry.Policy {
	return retry.Policy{Interval: time.Millisecond, MaxRetries: 3}
}

// inflight returns the fingerprints that still have callers.
func (f *fixture) inflight() map[string]int {
	f.d.mu.Lock()
	defer f.d.mu.Unlock()
	out := make(map[string]int, len(f.d.inflight))
	for fp, n := range f.d.inflight {
		out[fp] = n
	}
	return out
}

type fixture struct {
	remote *mock.ServiceAPI
	specs  *mock.SpecStore
	sink   *events.MemorySink
	rec    *recorder
	d      *Dispatcher
}

func newFixture(t *testing.T, withOrchestrator bool) *fixture {
	t.Helper()
	f := &fixture{
		remote: mock.NewServiceAPI(),
		specs:  mock.NewSpecStore(),
		sink:   &events.MemorySink{},
		rec:    &recorder{},
	}
	emitter := events.NewEmitter(f.sink)
	wf := transition.New(f.remote, transition.WithSpecStore(f.specs))
	cfg := Config{
		Workflow: wf,
		Policies: fastPolicy,
		Emitter:  emitter,
		Recorder: f.rec,
	}
	if withOrchestrator {
		cfg.Orchestrator = orchestrator.New(orchestrator.Config{
			Remote:   f.remote,
			Specs:    f.specs,
			Workflow: wf,
			Composer: composer.New(composer.WithEmitter(emitter)),
			Policies: fastPolicy,
		})
	}
	f.d = New(cfg)
	return f
}

func stopIntent(key api.ServiceKey) api.Intent {
	return api.Intent{Kind: api.IntentStop, ServiceKind: api.KindWorker, Target: key}
}

type dispatched struct {
	out *Outcome
	err error
}

func TestDispatch_DeduplicatesIdenticalIntents(t *testing.T) {
	f := newFixture(t, false)
	f.remote.Put(api.KindWorker, wk1, api.StateRunning)

	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	f.remote.SetHook(mock.OpStop, func(ctx context.Context, kind api.ServiceKind, key api.ServiceKey) error {
		entered <- struct{}{}
		<-release
		return nil
	})

	intent := stopIntent(wk1)
	results := make(chan dispatched, 2)
	for i := 0; i < 2; i++ {
		go func() {
			out, err := f.d.Dispatch(context.Background(), intent)
			results <- dispatched{out, err}
		}()
	}

	<-entered
	require.Eventually(t, func() bool {
		dedup, _ := f.rec.snapshot()
		return dedup == 1
	}, 5*time.Second, time.Millisecond)
	// let the second caller reach the shared call
	time.Sleep(20 * time.Millisecond)
	close(release)

	for i := 0; i < 2; i++ {
		r := <-results
		require.NoError(t, r.err)
		require.NotNil(t, r.out.Result)
		assert.True(t, r.out.Result.Succeeded())
		assert.True(t, r.out.Shared)
	}

	assert.Equal(t, 1, f.remote.Count(mock.OpStop, api.KindWorker))
	assert.Len(t, f.sink.ByReason(events.ReasonTransitionSucceeded), 1)
	dedup, labels := f.rec.snapshot()
	assert.Equal(t, 1, dedup)
	assert.Equal(t, []metrics.ResultLabel{metrics.ResultSuccess}, labels)
	assert.Empty(t, f.inflight())
}

func TestDispatch_DifferentPayloadsAreNotDeduplicated(t *testing.T) {
	f := newFixture(t, false)
	f.remote.Put(api.KindWorker, wk1, api.StateRunning)

	release := make(chan struct{})
	f.remote.SetHook(mock.OpUpdate, func(ctx context.Context, kind api.ServiceKind, key api.ServiceKey) error {
		<-release
		return nil
	})

	results := make(chan dispatched, 2)
	for _, xmx := range []int{1, 2} {
		go func(xmx int) {
			intent := api.Intent{Kind: api.IntentUpdate, ServiceKind: api.KindWorker, Target: wk1, Payload: api.Spec{"xmx": xmx}}
			out, err := f.d.Dispatch(context.Background(), intent)
			results <- dispatched{out, err}
		}(xmx)
	}

	// both updates reach the remote while neither has finished
	require.Eventually(t, func() bool {
		return f.remote.Count(mock.OpUpdate, api.KindWorker) == 2
	}, 5*time.Second, time.Millisecond)
	close(release)

	for i := 0; i < 2; i++ {
		r := <-results
		require.NoError(t, r.err)
		assert.False(t, r.out.Shared)
	}
	dedup, _ := f.rec.snapshot()
	assert.Zero(t, dedup)
}

func TestDispatch_DistinctTargetsRunIndependently(t *testing.T) {
	f := newFixture(t, false)
	f.remote.Put(api.KindWorker, wk1, api.StateRunning)
	f.remote.Put(api.KindWorker, wk2, api.StateRunning)

	release := make(chan struct{})
	f.remote.SetHook(mock.OpStop, func(ctx context.Context, kind api.ServiceKind, key api.ServiceKey) error {
		<-release
		return nil
	})

	results := make(chan dispatched, 2)
	for _, key := range []api.ServiceKey{wk1, wk2} {
		go func(key api.ServiceKey) {
			out, err := f.d.Dispatch(context.Background(), stopIntent(key))
			results <- dispatched{out, err}
		}(key)
	}

	// both stops are in flight at the same time
	require.Eventually(t, func() bool {
		return f.remote.Count(mock.OpStop, api.KindWorker) == 2
	}, 5*time.Second, time.Millisecond)
	close(release)

	for i := 0; i < 2; i++ {
		r := <-results
		require.NoError(t, r.err)
		assert.False(t, r.out.Shared)
	}
	dedup, _ := f.rec.snapshot()
	assert.Zero(t, dedup)
}

func TestDispatch_FailureEmitsErrorEvent(t *testing.T) {
	f := newFixture(t, false)
	f.remote.Put(api.KindWorker, wk1, api.StateRunning)
	f.remote.SetStuck(api.KindWorker, wk1, true)

	out, err := f.d.Dispatch(context.Background(), stopIntent(wk1))

	require.Error(t, err)
	var failure *transition.FailureError
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, 4, failure.Attempts)
	assert.Equal(t, 3, failure.Retries)
	require.NotNil(t, out)
	assert.Equal(t, transition.OutcomeFailure, out.Result.Outcome)

	failed := f.sink.ByReason(events.ReasonTransitionFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, events.EventTypeError, failed[0].Type)
	assert.Equal(t, `Try to stop worker: "wk1" failed after retry 3 times. Expected state is nonexistent, Actual state: RUNNING`, failed[0].Title)
	assert.Empty(t, f.sink.ByReason(events.ReasonTransitionSucceeded))

	_, labels := f.rec.snapshot()
	assert.Equal(t, []metrics.ResultLabel{metrics.ResultFailure}, labels)
}

func TestDispatch_SuccessEvent(t *testing.T) {
	f := newFixture(t, false)
	f.remote.Put(api.KindWorker, wk1, "")

	out, err := f.d.Dispatch(context.Background(), api.Intent{Kind: api.IntentStart, ServiceKind: api.KindWorker, Target: wk1})

	require.NoError(t, err)
	assert.Equal(t, transition.TransitionStart, out.Result.Transition)
	succeeded := f.sink.ByReason(events.ReasonTransitionSucceeded)
	require.Len(t, succeeded, 1)
	assert.Contains(t, succeeded[0].Title, "Successfully started worker wk1")
	assert.Equal(t, events.EventTypeInfo, succeeded[0].Type)
}

func TestDispatch_DeleteUpdatesAdapter(t *testing.T) {
	f := newFixture(t, false)
	f.remote.Put(api.KindTopic, api.ServiceKey{Group: "topic", Name: "t1"}, "")
	adapter := mock.NewStatusAdapter()
	key := api.ServiceKey{Group: "topic", Name: "t1"}

	_, err := f.d.Dispatch(context.Background(), api.Intent{
		Kind:        api.IntentDelete,
		ServiceKind: api.KindTopic,
		Target:      key,
		Adapter:     adapter,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"PENDING", mock.Removed}, adapter.Updates(key))
	_, exists := f.remote.State(api.KindTopic, key)
	assert.False(t, exists)
}

func TestDispatch_CreateSkippedWhenPresent(t *testing.T) {
	f := newFixture(t, false)
	f.remote.Put(api.KindWorker, wk1, api.StateRunning)

	out, err := f.d.Dispatch(context.Background(), api.Intent{
		Kind:        api.IntentCreate,
		ServiceKind: api.KindWorker,
		Target:      wk1,
		Workspace:   api.ServiceKey{Group: "workspace", Name: "ws1"},
	})

	require.NoError(t, err)
	assert.True(t, out.Result.Skipped)
	assert.Zero(t, f.remote.Count(mock.OpCreate, api.KindWorker))
	_, labels := f.rec.snapshot()
	assert.Equal(t, []metrics.ResultLabel{metrics.ResultSkipped}, labels)
}

func TestDispatch_UpdateSendsPayload(t *testing.T) {
	f := newFixture(t, false)
	f.remote.Put(api.KindBroker, api.ServiceKey{Group: "broker", Name: "bk"}, api.StateRunning)

	_, err := f.d.Dispatch(context.Background(), api.Intent{
		Kind:        api.IntentUpdate,
		ServiceKind: api.KindBroker,
		Target:      api.ServiceKey{Group: "broker", Name: "bk"},
		Payload:     api.Spec{"xmx": 1024},
	})

	require.NoError(t, err)
	assert.Equal(t, 1024, f.remote.Settings(api.KindBroker, api.ServiceKey{Group: "broker", Name: "bk"})["xmx"])
}

func TestDispatch_RestartRoutesToOrchestrator(t *testing.T) {
	f := newFixture(t, true)
	ws := api.ServiceKey{Group: "workspace", Name: "ws1"}
	zk := api.ServiceKey{Group: "zookeeper", Name: "ws1"}
	bk := api.ServiceKey{Group: "broker", Name: "ws1"}
	wk := api.ServiceKey{Group: "worker", Name: "ws1"}
	f.remote.Put(api.KindZookeeper, zk, api.StateRunning)
	f.remote.Put(api.KindBroker, bk, api.StateRunning)
	f.remote.Put(api.KindWorker, wk, api.StateRunning)

	out, err := f.d.Dispatch(context.Background(), api.Intent{
		Kind:  api.IntentRestart,
		Scope: api.ScopeWorkerOnly,
		Restart: &api.RestartRequest{
			Workspace: ws,
			Zookeeper: zk,
			Broker:    bk,
			Worker:    wk,
		},
	})

	require.NoError(t, err)
	require.NotNil(t, out.Report)
	assert.Nil(t, out.Result)
	assert.Equal(t, api.ScopeWorkerOnly, out.Report.Scope)
	assert.Equal(t, 1, f.remote.Count(mock.OpStop, api.KindWorker))
	assert.Zero(t, f.remote.Count(mock.OpStop, api.KindBroker))
	assert.Len(t, f.sink.ByReason(events.ReasonRestartSucceeded), 1)
}

func TestDispatch_InvalidIntents(t *testing.T) {
	tests := []struct {
		name   string
		intent api.Intent
	}{
		{"unknown kind", api.Intent{Kind: "RESTORE", ServiceKind: api.KindWorker, Target: wk1}},
		{"missing service kind", api.Intent{Kind: api.IntentStart, Target: wk1}},
		{"missing target", api.Intent{Kind: api.IntentStop, ServiceKind: api.KindWorker}},
		{"create without workspace", api.Intent{Kind: api.IntentCreate, ServiceKind: api.KindWorker, Target: wk1}},
		{"restart without request", api.Intent{Kind: api.IntentRestart}},
		{"restart without orchestrator", api.Intent{Kind: api.IntentRestart, Restart: &api.RestartRequest{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, false)
			out, err := f.d.Dispatch(context.Background(), tt.intent)
			assert.Nil(t, out)
			assert.ErrorIs(t, err, api.ErrInvalidIntent)
			assert.Empty(t, f.remote.Calls())
		})
	}
}
