package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/algomesh/algomsg/health"
)

// fakeStartable counts calls and fails on demand.
type fakeStartable struct {
	starts   atomic.Int64
	stops    atomic.Int64
	startErr error
	stopErr  error
}

func (f *fakeStartable) Start() error {
	f.starts.Inc()
	return f.startErr
}

func (f *fakeStartable) Stop() error {
	f.stops.Inc()
	return f.stopErr
}

func newTestService(t *testing.T, startable Startable, checks ...*health.Check) *Service {
	t.Helper()
	svc, err := NewService(Config{Name: "backend", Checks: checks}, startable)
	require.NoError(t, err)
	return svc
}

func drainStates(events <-chan LifecycleEvent, n int) []State {
	states := make([]State, 0, n)
	for i := 0; i < n; i++ {
		select {
		case ev := <-events:
			states = append(states, ev.State)
		case <-time.After(time.Second):
			return states
		}
	}
	return states
}

func TestServiceLifecycle(t *testing.T) {
	fake := &fakeStartable{}
	svc := newTestService(t, fake)
	require.Equal(t, New, svc.State())

	events, cancel := svc.Subscribe()
	defer cancel()

	require.NoError(t, svc.Start())
	require.Equal(t, Running, svc.State())
	require.NoError(t, svc.AwaitRunning(time.Second))

	require.NoError(t, svc.Stop())
	require.Equal(t, Stopped, svc.State())
	require.NoError(t, svc.AwaitStopped(time.Second))

	require.EqualValues(t, 1, fake.starts.Load())
	require.EqualValues(t, 1, fake.stops.Load())

	// Transitions must arrive in lifecycle order.
	require.Equal(t, []State{Starting, Running, Stopping, Stopped}, drainStates(events, 4))
}

func TestServiceRestart(t *testing.T) {
	fake := &fakeStartable{}
	svc := newTestService(t, fake)

	events, cancel := svc.Subscribe()
	defer cancel()

	require.NoError(t, svc.Start())
	require.NoError(t, svc.Restart())
	require.Equal(t, Running, svc.State())
	require.NoError(t, svc.Stop())

	require.EqualValues(t, 2, fake.starts.Load())
	require.EqualValues(t, 2, fake.stops.Load())

	require.Equal(t, []State{
		Starting, Running,
		Stopping, Stopped,
		Starting, Running,
		Stopping, Stopped,
	}, drainStates(events, 8))
}

func TestServiceStartFailure(t *testing.T) {
	cause := errors.New("port already in use")
	fake := &fakeStartable{startErr: cause}
	svc := newTestService(t, fake)

	err := svc.Start()
	var startErr *StartError
	require.ErrorAs(t, err, &startErr)
	require.Equal(t, "backend", startErr.Service)
	require.ErrorIs(t, err, cause)
	require.Equal(t, StartFailed, svc.State())

	// A failed start must release partially acquired resources.
	require.EqualValues(t, 1, fake.stops.Load())

	// The service never came up, so awaiting stopped succeeds and awaiting
	// running times out.
	require.NoError(t, svc.AwaitStopped(time.Second))
	require.ErrorIs(t, svc.AwaitRunning(20*time.Millisecond), ErrAwaitTimeout)

	// The service can be started again once the fault clears.
	fake.startErr = nil
	require.NoError(t, svc.Start())
	require.Equal(t, Running, svc.State())
	require.NoError(t, svc.Stop())
}

func TestServiceStartAndCleanupFailure(t *testing.T) {
	startCause := errors.New("port already in use")
	stopCause := errors.New("release failed")
	fake := &fakeStartable{startErr: startCause, stopErr: stopCause}
	svc := newTestService(t, fake)

	err := svc.Start()
	var startErr *StartError
	require.ErrorAs(t, err, &startErr)
	require.Equal(t, StartFailed, svc.State())

	// Both the start failure and the cleanup-stop failure must surface.
	var serviceErrs *ServiceErrors
	require.ErrorAs(t, err, &serviceErrs)
	require.Len(t, serviceErrs.Errors, 2)
	require.ErrorIs(t, err, startCause)
	require.ErrorIs(t, err, stopCause)
}

func TestServiceStopFailure(t *testing.T) {
	cause := errors.New("flush failed")
	fake := &fakeStartable{stopErr: cause}
	svc := newTestService(t, fake)

	require.NoError(t, svc.Start())

	err := svc.Stop()
	var stopErr *StopError
	require.ErrorAs(t, err, &stopErr)
	require.ErrorIs(t, err, cause)

	// Even a failed stop lands in Stopped.
	require.Equal(t, Stopped, svc.State())
	require.NoError(t, svc.AwaitStopped(time.Second))
}

func TestServiceStartFromRunningRejected(t *testing.T) {
	svc := newTestService(t, &fakeStartable{})
	require.NoError(t, svc.Start())
	defer svc.Stop()

	err := svc.Start()
	var startErr *StartError
	require.ErrorAs(t, err, &startErr)
}

func TestServiceStopWhenNotRunning(t *testing.T) {
	svc := newTestService(t, &fakeStartable{})
	require.NoError(t, svc.Stop())
	require.Equal(t, Stopped, svc.State())
	require.NoError(t, svc.Stop())
}

func TestServiceAwaitZeroTimeout(t *testing.T) {
	svc := newTestService(t, &fakeStartable{})

	require.NoError(t, svc.Start())
	// A state that has already been reached wins over an expired timeout.
	require.NoError(t, svc.AwaitRunning(0))

	require.NoError(t, svc.Stop())
	require.NoError(t, svc.AwaitStopped(0))
}

func TestServiceSchedulesHealthChecks(t *testing.T) {
	check, err := health.NewCheck(
		health.Config{Name: "backend.ping", RunInterval: 10 * time.Millisecond},
		func(context.Context) health.Outcome { return health.Ok() },
	)
	require.NoError(t, err)

	svc := newTestService(t, &fakeStartable{}, check)
	results, cancel := svc.SubscribeHealth()
	defer cancel()

	require.NoError(t, svc.Start())
	defer svc.Stop()

	select {
	case result := <-results:
		require.Equal(t, "backend.ping", result.Name)
		require.Equal(t, health.Green, result.Status)
	case <-time.After(time.Second):
		t.Fatal("scheduled health check did not run")
	}
}

func TestServiceRunHealthChecks(t *testing.T) {
	green, err := health.NewCheck(health.Config{Name: "green"}, func(context.Context) health.Outcome {
		return health.Ok()
	})
	require.NoError(t, err)
	red, err := health.NewCheck(health.Config{Name: "red"}, func(context.Context) health.Outcome {
		return health.Failed(errors.New("down"))
	})
	require.NoError(t, err)

	svc := newTestService(t, &fakeStartable{}, green, red)
	results := svc.RunHealthChecks(context.Background())
	require.Len(t, results, 2)

	byName := map[string]health.Status{}
	for _, result := range results {
		byName[result.Name] = result.Status
	}
	require.Equal(t, map[string]health.Status{"green": health.Green, "red": health.Red}, byName)
}
