package health

import (
	"context"
	"fmt"
	"sync"

	"github.com/algomesh/algomsg/events"
)

// Registry holds a fixed set of health checks and aggregates their latest
// results. Several services can depend on the same resource (for example one
// database); registering the shared check once here avoids every service
// running a redundant copy.
type Registry struct {
	checks  []*Check
	hub     *events.Hub[Result]
	metrics *Metrics
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithMetrics attaches prometheus instrumentation to every result the
// registry observes.
func WithMetrics(m *Metrics) RegistryOption {
	return func(r *Registry) {
		r.metrics = m
	}
}

// NewRegistry creates a registry over the given checks.
// Check names must be unique.
func NewRegistry(checks []*Check, opts ...RegistryOption) (*Registry, error) {
	names := make(map[string]bool, len(checks))
	for _, check := range checks {
		if names[check.Name] {
			return nil, fmt.Errorf("duplicate health check name: %q", check.Name)
		}
		names[check.Name] = true
	}

	registry := &Registry{
		checks: append([]*Check(nil), checks...),
		hub:    events.NewHub[Result](events.DefaultBuffer),
	}
	for _, opt := range opts {
		opt(registry)
	}
	return registry, nil
}

// Checks returns the registered checks.
func (r *Registry) Checks() []*Check {
	return append([]*Check(nil), r.checks...)
}

// Subscribe returns a channel of results published as checks complete,
// along with an unsubscribe function.
func (r *Registry) Subscribe() (<-chan Result, func()) {
	return r.hub.Subscribe()
}

// RunAll executes every check concurrently and publishes each result to the
// registry's subscribers as it completes. Results arrive in completion
// order, which is unspecified across checks. RunAll returns once every
// check has finished.
func (r *Registry) RunAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, check := range r.checks {
		wg.Add(1)
		go func(check *Check) {
			defer wg.Done()
			r.Publish(check.Run(ctx))
		}(check)
	}
	wg.Wait()
}

// Publish records a result with the registry's instrumentation and fans it
// out to subscribers.
func (r *Registry) Publish(result Result) {
	if r.metrics != nil {
		r.metrics.Observe(result)
	}
	r.hub.Publish(result)
}

// LatestResults returns the most recent result of every check that has run
// at least once.
func (r *Registry) LatestResults() []Result {
	results := make([]Result, 0, len(r.checks))
	for _, check := range r.checks {
		if result, ok := check.LastResult(); ok {
			results = append(results, result)
		}
	}
	return results
}

// IsHealthy reports whether every latest result is green.
func (r *Registry) IsHealthy() bool {
	for _, result := range r.LatestResults() {
		if result.Status != Green {
			return false
		}
	}
	return true
}

// ResultsByStatus groups the latest results by status.
func (r *Registry) ResultsByStatus() map[Status][]Result {
	grouped := make(map[Status][]Result)
	for _, result := range r.LatestResults() {
		grouped[result.Status] = append(grouped[result.Status], result)
	}
	return grouped
}

// Close tears down the result stream.
func (r *Registry) Close() {
	r.hub.Close()
}
