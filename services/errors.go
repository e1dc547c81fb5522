package services

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAwaitTimeout is returned when a service does not reach the awaited
// state within the deadline.
var ErrAwaitTimeout = errors.New("timed out awaiting service state")

// StartError reports that a service failed to start.
type StartError struct {
	Service string
	Err     error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("service %q failed to start: %v", e.Service, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

// StopError reports that a service failed to stop cleanly. The service still
// ends up in the stopped state.
type StopError struct {
	Service string
	Err     error
}

func (e *StopError) Error() string {
	return fmt.Sprintf("service %q failed to stop: %v", e.Service, e.Err)
}

func (e *StopError) Unwrap() error { return e.Err }

// ServiceErrors aggregates failures from a group operation that kept going
// past individual failures.
type ServiceErrors struct {
	Errors []error
}

func (e *ServiceErrors) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d service error(s): %s", len(e.Errors), strings.Join(msgs, "; "))
}

func (e *ServiceErrors) Unwrap() []error { return e.Errors }

// collect returns nil, the single error, or a ServiceErrors.
func collect(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return &ServiceErrors{Errors: errs}
	}
}
