package client

import "github.com/panjf2000/ants/v2"

// Executor runs submitted tasks, typically on a bounded worker pool. It is
// injected so callers can share one pool across many clients, or substitute
// a synchronous executor in tests.
type Executor interface {
	// Submit schedules the task. It may block until a worker is free.
	Submit(task func()) error
	// Release shuts the executor down.
	Release()
}

// PoolExecutor is an Executor backed by a goroutine pool of fixed size.
type PoolExecutor struct {
	pool *ants.Pool
}

// NewPoolExecutor creates a pool with the given number of workers.
func NewPoolExecutor(size int) (*PoolExecutor, error) {
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, err
	}
	return &PoolExecutor{pool: pool}, nil
}

// Submit schedules the task on the pool, blocking while all workers are busy.
func (e *PoolExecutor) Submit(task func()) error {
	return e.pool.Submit(task)
}

// Release shuts the pool down.
func (e *PoolExecutor) Release() {
	e.pool.Release()
}
