package workerpool

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned when work is submitted to a closed pool.
var ErrClosed = errors.New("worker pool is closed")

// Pool runs blocking functions on a fixed set of worker goroutines. Do
// hands a job to an idle worker and waits for it to finish, so no more
// jobs run concurrently than there are workers.
type Pool struct {
	jobs chan func()
	done chan struct{}

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New starts a pool with the given number of workers.
func New(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		jobs: make(chan func()),
		done: make(chan struct{}),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// worker executes handed-off jobs until the pool is closed.
func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case job := <-p.jobs:
			job()
		case <-p.done:
			return
		}
	}
}

// Do hands fn to an idle worker and blocks until it has run. The wait for
// a free worker is abandoned when ctx ends; once a worker has picked the
// job up it runs to completion, but Do still returns as soon as ctx ends.
// When Do returns an error, fn's side effects must not be relied on.
func (p *Pool) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	job := func() {
		defer close(finished)
		fn()
	}

	select {
	case p.jobs <- job:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return ErrClosed
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the workers and waits for jobs already picked up to finish.
// Submitters still waiting for a worker receive ErrClosed.
func (p *Pool) Close() {
	p.closeOnce.Do(func() { close(p.done) })
	p.wg.Wait()
}
