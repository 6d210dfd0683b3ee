// Package tasks runs fire-and-forget background work. Tasks are detached
// from the request that scheduled them: they receive a fresh context,
// their errors and panics are routed to structured logging only, and
// nothing is ever reported back to the caller.
package tasks

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog/log"
)

// Runner schedules detached background tasks. Once scheduled a task runs
// to completion; there is no cancellation hook and no timeout.
type Runner struct {
	wg sync.WaitGroup
}

// NewRunner creates a task runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Submit schedules fn to run in the background and returns immediately.
// A panic inside fn is caught, logged with its stack, and swallowed.
func (r *Runner) Submit(name string, fn func(ctx context.Context)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().
					Str("task", name).
					Interface("panic", rec).
					Str("stack", string(debug.Stack())).
					Msg("Background task panicked")
			}
		}()
		fn(context.Background())
	}()
}

// Wait blocks until all scheduled tasks have finished. Used for graceful
// shutdown and by tests.
func (r *Runner) Wait() {
	r.wg.Wait()
}
