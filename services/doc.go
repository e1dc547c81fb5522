// Package services manages the lifecycle of application components.
//
// A component plugs in by implementing Startable, a two-method interface,
// rather than by embedding a base type. Service wraps a Startable with an
// explicit state machine (New, Starting, Running, Stopping, Stopped, plus
// StartFailed), publishes every transition as a LifecycleEvent, and schedules
// the component's health checks while it is running.
//
// Stopping is best effort and never leaves a service stuck: a failed stop
// still lands in Stopped, with the error reported to the caller. A failed
// start triggers a cleanup stop so partially acquired resources are released,
// which requires Startable.Stop to tolerate being called before Start
// completed.
//
// Manager composes services into an application: it starts them in
// registration order, stops them in reverse, aggregates their health checks
// into one registry, and fans all lifecycle events into a single stream.
// Group operations keep going past individual failures and report everything
// that went wrong at the end.
package services
