package pipeline

import (
	"context"
	"sync"

	"call-insights/pkg/logger"
)

type JobRunner interface {
	Process(ctx context.Context, job Job) error
}

// Dispatcher runs jobs in the background, detached from the request that triggered
// them but bound to the process lifetime context.
type Dispatcher struct {
	runner JobRunner
	base   context.Context
	wg     sync.WaitGroup
}

// NewDispatcher returns a Dispatcher whose jobs are cancelled when base is.
func NewDispatcher(base context.Context, runner JobRunner) *Dispatcher {
	return &Dispatcher{runner: runner, base: base}
}

// Dispatch starts job and returns immediately. Values on ctx (the request logger)
// are kept; its cancellation is not.
func (d *Dispatcher) Dispatch(ctx context.Context, job Job) {
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(d.base, cancel)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()
		defer stop()
		defer func() {
			if r := recover(); r != nil {
				logger.From(jobCtx).Error("call processing panicked", "record_id", job.RecordID, "panic", r)
			}
		}()
		// Failures are logged and recorded by the processor.
		_ = d.runner.Process(jobCtx, job)
	}()
}

// Wait blocks until every dispatched job has finished or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
