package system

import (
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Task is one unit of work handed to a Pool.
type Task func() error

// Pool is a fixed set of worker goroutines reused across batches and phases.
type Pool struct {
	workers int
	tasks   chan func()
	group   errgroup.Group
	closed  atomic.Bool
}

// NewPool starts workers goroutines; workers <= 0 uses GOMAXPROCS.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := &Pool{workers: workers, tasks: make(chan func())}
	for i := 0; i < workers; i++ {
		p.group.Go(func() error {
			for task := range p.tasks {
				task()
			}
			return nil
		})
	}
	return p
}

func (p *Pool) Workers() int { return p.workers }

// Run executes tasks on the workers and blocks until all returned. A panic
// inside a task becomes a *TaskError; errors are combined.
func (p *Pool) Run(tasks ...Task) error {
	if p.closed.Load() {
		panic("scheduler: pool is closed")
	}
	errs := make([]error, len(tasks))
	var wg sync.WaitGroup
	wg.Add(len(tasks))
	for i, task := range tasks {
		p.tasks <- func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = &TaskError{System: "task", Value: r, Stack: debug.Stack()}
				}
			}()
			errs[i] = task()
		}
	}
	wg.Wait()
	return multierr.Combine(errs...)
}

// Close stops the workers after queued tasks have finished.
func (p *Pool) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	close(p.tasks)
	return p.group.Wait()
}
