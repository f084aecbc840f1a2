package transition

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conductor/internal/api"
	"conductor/internal/retry"
	"conductor/internal/testing/mock"
)

func driveClock(fc *clockwork.FakeClock, step time.Duration) func() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if err := fc.BlockUntilContext(ctx, 1); err != nil {
				return
			}
			fc.Advance(step)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func newWorkflow(t *testing.T) (*Workflow, *mock.ServiceAPI, *clockwork.FakeClock) {
	t.Helper()
	remote := mock.NewServiceAPI()
	fc := clockwork.NewFakeClock()
	return New(remote, WithClock(fc)), remote, fc
}

var (
	zkKey     = api.ServiceKey{Group: "zookeeper", Name: "zk1"}
	bkKey     = api.ServiceKey{Group: "broker", Name: "bk1"}
	wkKey     = api.ServiceKey{Group: "worker", Name: "wk1"}
	streamKey = api.ServiceKey{Group: "pipeline", Name: "stream1"}
	wsKey     = api.ServiceKey{Group: "workspace", Name: "ws1"}
	policy    = retry.Policy{Interval: 2 * time.Second, MaxRetries: 10}
)

func TestStart_ConvergesAfterPolling(t *testing.T) {
	wf, remote, fc := newWorkflow(t)
	adapter := mock.NewStatusAdapter()
	remote.Put(api.KindZookeeper, zkKey, "")
	remote.ScriptGet(api.KindZookeeper, zkKey,
		mock.Response{State: "STARTING"},
		mock.Response{State: "STARTING"},
	)

	stop := driveClock(fc, policy.Interval)
	defer stop()

	result := wf.Start(context.Background(), api.KindZookeeper, zkKey, policy, adapter)

	require.True(t, result.Succeeded(), result.Message)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 3, remote.Count(mock.OpStart, api.KindZookeeper))
	assert.Equal(t, api.StateRunning, result.Snapshot.State)
	assert.Equal(t, []string{"PENDING", "RUNNING"}, adapter.Updates(zkKey))
}

func TestStart_ExhaustedReportsLastState(t *testing.T) {
	wf, remote, fc := newWorkflow(t)
	adapter := mock.NewStatusAdapter()
	remote.Put(api.KindZookeeper, zkKey, "")
	remote.SetStuck(api.KindZookeeper, zkKey, true)

	stop := driveClock(fc, policy.Interval)
	defer stop()

	begin := fc.Now()
	result := wf.Start(context.Background(), api.KindZookeeper, zkKey, policy, adapter)

	require.False(t, result.Succeeded())
	assert.Equal(t, 11, result.Attempts)
	assert.Equal(t, 11, remote.Count(mock.OpGet, api.KindZookeeper))
	assert.Equal(t, 20*time.Second, fc.Since(begin))
	assert.Equal(t,
		`Try to start zookeeper: "zk1" failed after retry 10 times. Expected state: RUNNING, Actual state: NONEXISTENT`,
		result.Message)

	var ferr *FailureError
	require.True(t, errors.As(result.Err, &ferr))
	assert.True(t, ferr.Exhausted)
	assert.Equal(t, api.StateNonexistent, ferr.Actual)
	assert.Equal(t, []string{"PENDING", "FAILED"}, adapter.Updates(zkKey))
}

func TestStart_ReportsFailedState(t *testing.T) {
	wf, remote, fc := newWorkflow(t)
	remote.Put(api.KindBroker, bkKey, "")
	remote.RepeatGet(api.KindBroker, bkKey, api.StateFailed, 4)

	stop := driveClock(fc, time.Second)
	defer stop()

	result := wf.Start(context.Background(), api.KindBroker, bkKey, retry.Policy{Interval: time.Second, MaxRetries: 3}, nil)

	require.False(t, result.Succeeded())
	assert.Equal(t,
		`Try to start broker: "bk1" failed after retry 3 times. Expected state: RUNNING, Actual state: FAILED`,
		result.Message)
}

func TestStop_StreamNeverStops(t *testing.T) {
	wf, remote, fc := newWorkflow(t)
	adapter := mock.NewStatusAdapter()
	remote.Put(api.KindStream, streamKey, api.StateRunning)
	remote.RepeatGet(api.KindStream, streamKey, api.StateRunning, 20)

	stop := driveClock(fc, 2*time.Second)
	defer stop()

	begin := fc.Now()
	result := wf.Stop(context.Background(), api.KindStream, streamKey, DefaultPolicy(api.KindStream, TransitionStop), adapter)

	require.False(t, result.Succeeded())
	assert.Equal(t, 10*time.Second, fc.Since(begin))
	assert.Equal(t, 6, result.Attempts)
	assert.Equal(t, 6, remote.Count(mock.OpStop, api.KindStream))
	assert.Equal(t, 6, remote.Count(mock.OpGet, api.KindStream))
	assert.Equal(t,
		`Try to stop stream: "stream1" failed after retry 5 times. Expected state is nonexistent, Actual state: RUNNING`,
		result.Message)
	assert.Equal(t, []string{"PENDING", "RUNNING"}, adapter.Updates(streamKey))
}

func TestStop_NotFoundIsSuccess(t *testing.T) {
	wf, remote, _ := newWorkflow(t)
	adapter := mock.NewStatusAdapter()

	result := wf.Stop(context.Background(), api.KindBroker, bkKey, policy, adapter)

	require.True(t, result.Succeeded(), result.Message)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, remote.Count(mock.OpStop, api.KindBroker))
	assert.Equal(t, 0, remote.Count(mock.OpGet, api.KindBroker))
	assert.Equal(t, []string{"PENDING", "STOPPED"}, adapter.Updates(bkKey))
}

func TestStop_NotFoundOnPollIsSuccess(t *testing.T) {
	wf, remote, _ := newWorkflow(t)
	remote.Put(api.KindWorker, wkKey, api.StateRunning)
	remote.ScriptGet(api.KindWorker, wkKey, mock.Response{Err: api.NewNotFoundError(api.KindWorker, wkKey)})

	result := wf.Stop(context.Background(), api.KindWorker, wkKey, policy, nil)

	require.True(t, result.Succeeded(), result.Message)
	assert.Equal(t, 1, result.Attempts)
}

func TestStop_ConvergesOnFirstPoll(t *testing.T) {
	wf, remote, _ := newWorkflow(t)
	remote.Put(api.KindBroker, bkKey, api.StateRunning)

	result := wf.Stop(context.Background(), api.KindBroker, bkKey, policy, nil)

	require.True(t, result.Succeeded(), result.Message)
	assert.Equal(t, 1, result.Attempts)
	state, exists := remote.State(api.KindBroker, bkKey)
	assert.True(t, exists)
	assert.Empty(t, state)
}

func TestStop_TransientErrorIsRetried(t *testing.T) {
	wf, remote, fc := newWorkflow(t)
	remote.Put(api.KindBroker, bkKey, api.StateRunning)
	remote.ScriptGet(api.KindBroker, bkKey, mock.Response{Err: errors.New("connection reset")})

	stop := driveClock(fc, policy.Interval)
	defer stop()

	result := wf.Stop(context.Background(), api.KindBroker, bkKey, policy, nil)

	require.True(t, result.Succeeded(), result.Message)
	assert.Equal(t, 2, result.Attempts)
}

func TestStart_CancelledWhileWaiting(t *testing.T) {
	wf, remote, fc := newWorkflow(t)
	remote.Put(api.KindWorker, wkKey, "")
	remote.SetStuck(api.KindWorker, wkKey, true)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = fc.BlockUntilContext(context.Background(), 1)
		cancel()
	}()

	result := wf.Start(ctx, api.KindWorker, wkKey, policy, nil)

	require.False(t, result.Succeeded())
	assert.ErrorIs(t, result.Err, context.Canceled)
	var ferr *FailureError
	require.True(t, errors.As(result.Err, &ferr))
	assert.False(t, ferr.Exhausted)
	assert.Equal(t, 1, result.Attempts)
}

func TestDelete_RemovesElement(t *testing.T) {
	wf, remote, _ := newWorkflow(t)
	adapter := mock.NewStatusAdapter()
	key := api.ServiceKey{Group: "pipeline", Name: "shabondi1"}
	remote.Put(api.KindShabondi, key, "")

	result := wf.Delete(context.Background(), api.KindShabondi, key, retry.Policy{Interval: 2 * time.Second, MaxRetries: 5}, adapter)

	require.True(t, result.Succeeded(), result.Message)
	assert.Equal(t, 1, result.Attempts)
	_, exists := remote.State(api.KindShabondi, key)
	assert.False(t, exists)
	assert.Equal(t, []string{"PENDING", mock.Removed}, adapter.Updates(key))
}

func TestDelete_AlreadyGone(t *testing.T) {
	wf, remote, _ := newWorkflow(t)
	key := api.ServiceKey{Group: "pipeline", Name: "shabondi1"}

	result := wf.Delete(context.Background(), api.KindShabondi, key, retry.Policy{Interval: time.Second, MaxRetries: 5}, nil)

	require.True(t, result.Succeeded(), result.Message)
	assert.Equal(t, 1, remote.Count(mock.OpList, api.KindShabondi))
}

func TestDelete_Exhausted(t *testing.T) {
	wf, remote, fc := newWorkflow(t)
	adapter := mock.NewStatusAdapter()
	key := api.ServiceKey{Group: "pipeline", Name: "shabondi1"}
	remote.Put(api.KindShabondi, key, api.StateRunning)
	remote.SetStuck(api.KindShabondi, key, true)

	stop := driveClock(fc, 2*time.Second)
	defer stop()

	result := wf.Delete(context.Background(), api.KindShabondi, key, retry.Policy{Interval: 2 * time.Second, MaxRetries: 5}, adapter)

	require.False(t, result.Succeeded())
	assert.Equal(t, 6, remote.Count(mock.OpRemove, api.KindShabondi))
	assert.Equal(t,
		`Try to remove shabondi: "shabondi1" failed after retry 5 times. Expected state is nonexistent, Actual state: RUNNING`,
		result.Message)
	assert.Equal(t, []string{"PENDING", "FAILED"}, adapter.Updates(key))
}

func TestCreate(t *testing.T) {
	t.Run("skips existing service", func(t *testing.T) {
		wf, remote, _ := newWorkflow(t)
		remote.Put(api.KindWorker, wkKey, api.StateRunning)

		result := wf.Create(context.Background(), api.KindWorker, wkKey, wsKey)

		require.True(t, result.Succeeded())
		assert.True(t, result.Skipped)
		assert.Equal(t, 0, remote.Count(mock.OpCreate, api.KindWorker))
	})

	t.Run("creates from stored spec", func(t *testing.T) {
		remote := mock.NewServiceAPI()
		specs := mock.NewSpecStore()
		specs.PutSpec(wsKey, api.KindWorker, api.Spec{"nodeNames": []string{"n1"}, "name": "ignored"})
		wf := New(remote, WithSpecStore(specs))

		result := wf.Create(context.Background(), api.KindWorker, wkKey, wsKey)

		require.True(t, result.Succeeded(), result.Message)
		assert.False(t, result.Skipped)
		assert.Equal(t, 1, remote.Count(mock.OpCreate, api.KindWorker))
		settings := remote.Settings(api.KindWorker, wkKey)
		assert.Equal(t, "wk1", settings["name"])
		assert.Equal(t, []string{"n1"}, settings["nodeNames"])
	})

	t.Run("fails without spec store", func(t *testing.T) {
		wf, _, _ := newWorkflow(t)

		result := wf.Create(context.Background(), api.KindWorker, wkKey, wsKey)

		require.False(t, result.Succeeded())
		assert.ErrorIs(t, result.Err, api.ErrNoSpecStore)
	})

	t.Run("fails when workspace has no spec", func(t *testing.T) {
		wf := New(mock.NewServiceAPI(), WithSpecStore(mock.NewSpecStore()))

		result := wf.Create(context.Background(), api.KindBroker, bkKey, wsKey)

		require.False(t, result.Succeeded())
		assert.True(t, api.IsNotFound(result.Err))
	})
}

func TestUpdate(t *testing.T) {
	wf, remote, _ := newWorkflow(t)
	remote.Put(api.KindBroker, bkKey, "")

	result := wf.Update(context.Background(), api.KindBroker, bkKey, api.Spec{"xms": 1024})
	require.True(t, result.Succeeded(), result.Message)
	assert.Equal(t, 1024, remote.Settings(api.KindBroker, bkKey)["xms"])
	assert.Equal(t, 0, remote.Count(mock.OpGet, api.KindBroker))

	missing := wf.Update(context.Background(), api.KindWorker, wkKey, api.Spec{"xms": 1024})
	require.False(t, missing.Succeeded())
	assert.True(t, api.IsNotFound(missing.Err))
	assert.Contains(t, missing.Message, `Try to update worker: "wk1" failed`)
}

func TestDefaultPolicy(t *testing.T) {
	assert.Equal(t, 5, DefaultPolicy(api.KindStream, TransitionStop).MaxRetries)
	assert.Equal(t, 10*time.Second, DefaultPolicy(api.KindStream, TransitionStop).Budget())
	assert.Equal(t, 10, DefaultPolicy(api.KindBroker, TransitionStop).MaxRetries)
	assert.Equal(t, 10, DefaultPolicy(api.KindZookeeper, TransitionStart).MaxRetries)
	assert.Equal(t, 5, DefaultPolicy(api.KindShabondi, TransitionDelete).MaxRetries)
	assert.Equal(t, 1, DefaultPolicy(api.KindWorker, TransitionUpdate).MaxAttempts())
	assert.Equal(t, DefaultInterval, DefaultPolicy(api.KindWorker, TransitionStart).Interval)
}
