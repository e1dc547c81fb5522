package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/atomic"
)

// Status is the traffic-light severity of a health check result.
type Status int

const (
	// Green means healthy.
	Green Status = iota
	// Yellow means functioning but requiring attention, e.g. low resources,
	// degraded performance, or intermittent failures.
	Yellow
	// Red means unhealthy, e.g. a dependency is down or missing its SLA.
	Red
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case Green:
		return "green"
	case Yellow:
		return "yellow"
	case Red:
		return "red"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Impact indicates how severe a failure of this check is for the overall
// application, independent of the result status. It is used to prioritize
// alerts: red/high before red/low before yellow/high.
type Impact int

const (
	High Impact = iota
	Medium
	Low
)

// String returns the impact name.
func (i Impact) String() string {
	switch i {
	case High:
		return "high"
	case Medium:
		return "medium"
	case Low:
		return "low"
	default:
		return fmt.Sprintf("impact(%d)", int(i))
	}
}

// Outcome is the tagged result of one check execution. Construct with Ok,
// Degraded, or Failed.
type Outcome struct {
	status Status
	err    error
}

// Ok reports a healthy execution.
func Ok() Outcome {
	return Outcome{status: Green}
}

// Degraded reports a yellow execution with its cause.
func Degraded(cause error) Outcome {
	if cause == nil {
		cause = errors.New("health check degraded")
	}
	return Outcome{status: Yellow, err: cause}
}

// Failed reports a red execution with its cause.
func Failed(cause error) Outcome {
	if cause == nil {
		cause = errors.New("health check failed")
	}
	return Outcome{status: Red, err: cause}
}

// Result is the outcome of one health check execution.
type Result struct {
	// Name of the check that produced this result.
	Name string
	// Status severity.
	Status Status
	// Timestamp when the run started.
	Timestamp time.Time
	// Duration of the run.
	Duration time.Duration
	// Err is the cause for yellow and red results, nil for green.
	Err error
}

// CheckFunc executes one health check. It must be safe to call repeatedly
// and from an arbitrary goroutine.
type CheckFunc func(ctx context.Context) Outcome

// Config describes a health check.
type Config struct {
	// Name must be unique within a Registry.
	Name string
	// Description of what the check measures.
	Description string
	// Impact of failures in the context of the application.
	Impact Impact
	// Tags categorize checks, e.g. "database", "algod".
	Tags []string
	// RunInterval is how often a scheduled runner should execute the check.
	// Defaults to 30 seconds.
	RunInterval time.Duration
}

// DefaultRunInterval is applied when Config.RunInterval is zero.
const DefaultRunInterval = 30 * time.Second

// Check pairs a Config with its run function and retains the most recent
// Result. Safe for concurrent use; the last result is swapped atomically.
type Check struct {
	Config
	run  CheckFunc
	last atomic.Pointer[Result]
}

// NewCheck creates a check. The run function is required.
func NewCheck(cfg Config, run CheckFunc) (*Check, error) {
	if cfg.Name == "" {
		return nil, errors.New("health check name is required")
	}
	if run == nil {
		return nil, errors.New("health check run function is required")
	}
	if cfg.RunInterval <= 0 {
		cfg.RunInterval = DefaultRunInterval
	}
	return &Check{Config: cfg, run: run}, nil
}

// Run executes the check, records the result as the check's latest, and
// returns it. A panic in the run function is treated as red.
func (c *Check) Run(ctx context.Context) Result {
	start := time.Now()
	outcome := c.execute(ctx)

	result := Result{
		Name:      c.Name,
		Status:    outcome.status,
		Timestamp: start.UTC(),
		Duration:  time.Since(start),
		Err:       outcome.err,
	}
	c.last.Store(&result)
	return result
}

func (c *Check) execute(ctx context.Context) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = Failed(fmt.Errorf("health check panic: %v", r))
		}
	}()
	return c.run(ctx)
}

// LastResult returns the most recent result, or false if the check has not
// run yet.
func (c *Check) LastResult() (Result, bool) {
	result := c.last.Load()
	if result == nil {
		return Result{}, false
	}
	return *result, true
}
