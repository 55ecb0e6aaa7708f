// Package ctxrun runs at most one task at a time, canceling the previous
// task's context whenever a new one starts.
package ctxrun

import (
	"context"
	"sync"
)

func New() *Runner { return new(Runner) }

// Runner runs tasks in goroutines. Starting a new task cancels the context
// of the previous one without waiting for it to return.
type Runner struct {
	lock    sync.Mutex
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	stopped bool
}

// Go cancels the context of the currently running task (if any) and runs
// fn in a new goroutine. fn receives a context derived from ctx.
// Noop after Stop.
func (r *Runner) Go(ctx context.Context, fn func(ctx context.Context)) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.stopped {
		return
	}
	if r.cancel != nil {
		r.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		fn(ctx)
	}()
}

// Stop cancels the current task and waits for all started tasks to return.
// Calls to Go after Stop are ignored.
func (r *Runner) Stop() {
	r.lock.Lock()
	r.stopped = true
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.lock.Unlock()
	r.wg.Wait()
}
