package services

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/algomesh/algomsg/events"
	"github.com/algomesh/algomsg/health"
)

// Manager composes services into an application. Services start in
// registration order and stop in reverse. The manager aggregates every
// service's health checks into one registry and fans all lifecycle events
// into a single stream.
type Manager struct {
	log      *slog.Logger
	services []*Service
	byName   map[string]*Service

	lifecycle *events.Hub[LifecycleEvent]
	health    *health.Registry

	unsubscribes []func()
}

// ManagerOption configures a Manager.
type ManagerOption func(*managerConfig)

type managerConfig struct {
	log           *slog.Logger
	healthOptions []health.RegistryOption
}

// WithLogger sets the manager's logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) ManagerOption {
	return func(cfg *managerConfig) {
		cfg.log = log
	}
}

// WithHealthOptions passes options through to the aggregated health
// registry, e.g. health.WithMetrics.
func WithHealthOptions(opts ...health.RegistryOption) ManagerOption {
	return func(cfg *managerConfig) {
		cfg.healthOptions = append(cfg.healthOptions, opts...)
	}
}

// NewManager builds a manager over the given services. Service names and
// health check names must be unique across the whole group.
func NewManager(services []*Service, opts ...ManagerOption) (*Manager, error) {
	cfg := managerConfig{log: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	byName := make(map[string]*Service, len(services))
	var checks []*health.Check
	for _, svc := range services {
		if _, ok := byName[svc.Name()]; ok {
			return nil, fmt.Errorf("duplicate service name: %q", svc.Name())
		}
		byName[svc.Name()] = svc
		checks = append(checks, svc.HealthChecks()...)
	}

	registry, err := health.NewRegistry(checks, cfg.healthOptions...)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		log:       cfg.log,
		services:  append([]*Service(nil), services...),
		byName:    byName,
		lifecycle: events.NewHub[LifecycleEvent](events.DefaultBuffer),
		health:    registry,
	}

	// Fan every service's streams into the manager-level ones. The forwarding
	// goroutines exit when Close unsubscribes them from the sources.
	for _, svc := range m.services {
		lifecycleCh, cancelLifecycle := svc.Subscribe()
		healthCh, cancelHealth := svc.SubscribeHealth()
		m.unsubscribes = append(m.unsubscribes, cancelLifecycle, cancelHealth)

		go m.lifecycle.Forward(lifecycleCh)
		go func() {
			for result := range healthCh {
				m.health.Publish(result)
			}
		}()
	}
	return m, nil
}

// Services returns the managed services in registration order.
func (m *Manager) Services() []*Service {
	return append([]*Service(nil), m.services...)
}

// Service looks up a managed service by name.
func (m *Manager) Service(name string) (*Service, bool) {
	svc, ok := m.byName[name]
	return svc, ok
}

// HealthRegistry returns the registry aggregating every service's checks.
func (m *Manager) HealthRegistry() *health.Registry {
	return m.health
}

// Subscribe returns the combined lifecycle event stream of all services.
func (m *Manager) Subscribe() (<-chan LifecycleEvent, func()) {
	return m.lifecycle.Subscribe()
}

// StartAll starts every service in registration order. A failure does not
// stop the sweep; all failures are aggregated into the returned error.
func (m *Manager) StartAll() error {
	var errs []error
	for _, svc := range m.services {
		if err := svc.Start(); err != nil {
			m.log.Error("service start failed", "service", svc.Name(), "err", err)
			errs = append(errs, err)
		}
	}
	return collect(errs)
}

// StopAll stops every service in reverse registration order, continuing past
// failures.
func (m *Manager) StopAll() error {
	var errs []error
	for i := len(m.services) - 1; i >= 0; i-- {
		svc := m.services[i]
		if err := svc.Stop(); err != nil {
			m.log.Error("service stop failed", "service", svc.Name(), "err", err)
			errs = append(errs, err)
		}
	}
	return collect(errs)
}

// AwaitAllRunning blocks until every service is running. The timeout applies
// to the whole group.
func (m *Manager) AwaitAllRunning(timeout time.Duration) error {
	return m.awaitAll(timeout, (*Service).AwaitRunning)
}

// AwaitAllStopped blocks until every service is stopped. The timeout applies
// to the whole group.
func (m *Manager) AwaitAllStopped(timeout time.Duration) error {
	return m.awaitAll(timeout, (*Service).AwaitStopped)
}

func (m *Manager) awaitAll(timeout time.Duration, await func(*Service, time.Duration) error) error {
	deadline := time.Now().Add(timeout)
	for _, svc := range m.services {
		remaining := time.Until(deadline)
		if remaining < 0 {
			remaining = 0
		}
		if err := await(svc, remaining); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the manager's event plumbing. It does not stop the
// services; call StopAll first.
func (m *Manager) Close() {
	for _, cancel := range m.unsubscribes {
		cancel()
	}
	m.lifecycle.Close()
	m.health.Close()
}
