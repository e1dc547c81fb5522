package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/algomesh/algomsg/events"
	"github.com/algomesh/algomsg/health"
)

// LifecycleEvent records one service state transition.
type LifecycleEvent struct {
	Service   string
	State     State
	Timestamp time.Time
	// Err carries the failure for StartFailed transitions and for Stopped
	// transitions that followed a failed stop.
	Err error
}

// Config describes a service.
type Config struct {
	// Name must be unique within a Manager.
	Name string
	// Logger for lifecycle transitions. Defaults to slog.Default.
	Logger *slog.Logger
	// Checks are health checks owned by this service. They are scheduled
	// on their run intervals while the service is running.
	Checks []*health.Check
}

// Service wraps a Startable with an explicit lifecycle state machine.
// All methods are safe for concurrent use.
type Service struct {
	name      string
	startable Startable
	log       *slog.Logger
	checks    []*health.Check

	lifecycle *events.Hub[LifecycleEvent]
	healthHub *events.Hub[health.Result]

	mu        sync.Mutex
	state     State
	runningCh chan struct{}
	stoppedCh chan struct{}

	schedulerCancel context.CancelFunc
	schedulerWG     sync.WaitGroup
}

// NewService wraps startable in a lifecycle-managed service.
func NewService(cfg Config, startable Startable) (*Service, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("service name is required")
	}
	if startable == nil {
		return nil, fmt.Errorf("service %q: startable is required", cfg.Name)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		name:      cfg.Name,
		startable: startable,
		log:       log.With("service", cfg.Name),
		checks:    append([]*health.Check(nil), cfg.Checks...),
		lifecycle: events.NewHub[LifecycleEvent](events.DefaultBuffer),
		healthHub: events.NewHub[health.Result](events.DefaultBuffer),
		state:     New,
		runningCh: make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}, nil
}

// Name returns the service name.
func (s *Service) Name() string { return s.name }

// State returns the current lifecycle state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// HealthChecks returns the checks owned by this service.
func (s *Service) HealthChecks() []*health.Check {
	return append([]*health.Check(nil), s.checks...)
}

// Subscribe returns a stream of lifecycle events along with an unsubscribe
// function.
func (s *Service) Subscribe() (<-chan LifecycleEvent, func()) {
	return s.lifecycle.Subscribe()
}

// SubscribeHealth returns a stream of health check results produced by this
// service's scheduled and on-demand runs.
func (s *Service) SubscribeHealth() (<-chan health.Result, func()) {
	return s.healthHub.Subscribe()
}

// Start transitions the service to running. It may be called from the New,
// Stopped, and StartFailed states. When the underlying Start fails, the
// service runs a cleanup stop to release partially acquired resources and
// lands in StartFailed; the returned StartError wraps the start failure and,
// if the cleanup also failed, that error too.
func (s *Service) Start() error {
	s.mu.Lock()
	if !s.state.startable() {
		state := s.state
		s.mu.Unlock()
		return &StartError{Service: s.name, Err: fmt.Errorf("cannot start from state %s", state)}
	}
	s.runningCh = make(chan struct{})
	s.stoppedCh = make(chan struct{})
	s.transitionLocked(Starting, nil)
	s.mu.Unlock()

	if err := s.startable.Start(); err != nil {
		startErr := err
		if cleanupErr := s.startable.Stop(); cleanupErr != nil {
			startErr = &ServiceErrors{Errors: []error{err, cleanupErr}}
		}

		s.mu.Lock()
		s.transitionLocked(StartFailed, startErr)
		// The service is not running and will not be until started again.
		close(s.stoppedCh)
		s.mu.Unlock()
		return &StartError{Service: s.name, Err: startErr}
	}

	s.mu.Lock()
	s.transitionLocked(Running, nil)
	close(s.runningCh)
	s.startSchedulerLocked()
	s.mu.Unlock()
	return nil
}

// Stop transitions the service to stopped. Stopping a service that is not
// running is a no-op. Even when the underlying Stop fails the service ends
// in the Stopped state, with the failure reported as a StopError.
func (s *Service) Stop() error {
	s.mu.Lock()
	switch s.state {
	case Stopped, StartFailed:
		s.mu.Unlock()
		return nil
	case New:
		s.transitionLocked(Stopped, nil)
		close(s.stoppedCh)
		s.mu.Unlock()
		return nil
	case Starting, Stopping:
		state := s.state
		s.mu.Unlock()
		return &StopError{Service: s.name, Err: fmt.Errorf("cannot stop from state %s", state)}
	}
	s.transitionLocked(Stopping, nil)
	cancel := s.schedulerCancel
	s.schedulerCancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		s.schedulerWG.Wait()
	}

	err := s.startable.Stop()

	s.mu.Lock()
	s.transitionLocked(Stopped, err)
	close(s.stoppedCh)
	s.mu.Unlock()

	if err != nil {
		return &StopError{Service: s.name, Err: err}
	}
	return nil
}

// Restart stops the service and starts it again. Errors from both phases are
// aggregated; a stop failure does not prevent the start.
func (s *Service) Restart() error {
	var errs []error
	if err := s.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := s.Start(); err != nil {
		errs = append(errs, err)
	}
	return collect(errs)
}

// AwaitRunning blocks until the service is running or the timeout elapses.
func (s *Service) AwaitRunning(timeout time.Duration) error {
	return s.await(s.currentRunningCh(), timeout)
}

// AwaitStopped blocks until the service is stopped (or failed to start) or
// the timeout elapses.
func (s *Service) AwaitStopped(timeout time.Duration) error {
	return s.await(s.currentStoppedCh(), timeout)
}

func (s *Service) currentRunningCh() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runningCh
}

func (s *Service) currentStoppedCh() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stoppedCh
}

func (s *Service) await(ch <-chan struct{}, timeout time.Duration) error {
	// An already-reached state must win over an already-expired timeout.
	select {
	case <-ch:
		return nil
	default:
	}
	select {
	case <-ch:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("service %q: %w", s.name, ErrAwaitTimeout)
	}
}

// RunHealthChecks executes all of the service's checks concurrently,
// publishes their results, and returns them in completion order.
func (s *Service) RunHealthChecks(ctx context.Context) []health.Result {
	results := make([]health.Result, 0, len(s.checks))
	resultCh := make(chan health.Result)
	for _, check := range s.checks {
		go func(check *health.Check) {
			resultCh <- check.Run(ctx)
		}(check)
	}
	for range s.checks {
		result := <-resultCh
		s.healthHub.Publish(result)
		results = append(results, result)
	}
	return results
}

// startSchedulerLocked launches one goroutine per check, ticking on the
// check's run interval until the service stops.
func (s *Service) startSchedulerLocked() {
	if len(s.checks) == 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.schedulerCancel = cancel

	for _, check := range s.checks {
		s.schedulerWG.Add(1)
		go func(check *health.Check) {
			defer s.schedulerWG.Done()
			ticker := time.NewTicker(check.RunInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					s.healthHub.Publish(check.Run(ctx))
				}
			}
		}(check)
	}
}

func (s *Service) transitionLocked(state State, err error) {
	s.state = state
	if err != nil {
		s.log.Warn("lifecycle transition", "state", state, "err", err)
	} else {
		s.log.Info("lifecycle transition", "state", state)
	}
	s.lifecycle.Publish(LifecycleEvent{
		Service:   s.name,
		State:     state,
		Timestamp: time.Now().UTC(),
		Err:       err,
	})
}
