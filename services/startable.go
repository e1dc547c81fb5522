package services

import "fmt"

// Startable is implemented by components whose lifecycle a Service manages.
//
// Start acquires the component's resources and returns once the component is
// ready to serve. Stop releases them. Stop must be idempotent and must be
// safe to call after a failed Start, because a start failure triggers a
// cleanup stop.
type Startable interface {
	Start() error
	Stop() error
}

// State is a service lifecycle state.
type State int

const (
	// New means the service has never been started.
	New State = iota
	// Starting means Start is in progress.
	Starting
	// StartFailed means Start returned an error. The service may be
	// started again.
	StartFailed
	// Running means the service started successfully.
	Running
	// Stopping means Stop is in progress.
	Stopping
	// Stopped means the service is not running. It may be started again.
	Stopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case New:
		return "new"
	case Starting:
		return "starting"
	case StartFailed:
		return "start-failed"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// startable reports whether Start may be called from this state.
func (s State) startable() bool {
	switch s {
	case New, StartFailed, Stopped:
		return true
	default:
		return false
	}
}
