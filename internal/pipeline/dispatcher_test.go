package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runnerFunc func(ctx context.Context, job Job) error

func (f runnerFunc) Process(ctx context.Context, job Job) error { return f(ctx, job) }

func TestDispatcher_SurvivesRequestCancellation(t *testing.T) {
	var done int32
	d := NewDispatcher(context.Background(), runnerFunc(func(ctx context.Context, job Job) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(20 * time.Millisecond):
			atomic.AddInt32(&done, 1)
			return nil
		}
	}))

	reqCtx, cancel := context.WithCancel(context.Background())
	d.Dispatch(reqCtx, Job{RecordID: "r1"})
	cancel()

	waitCtx, stop := context.WithTimeout(context.Background(), time.Second)
	defer stop()
	require.NoError(t, d.Wait(waitCtx))
	assert.EqualValues(t, 1, done)
}

func TestDispatcher_BaseCancellationStopsJobs(t *testing.T) {
	base, cancelBase := context.WithCancel(context.Background())
	var cancelled int32
	d := NewDispatcher(base, runnerFunc(func(ctx context.Context, job Job) error {
		<-ctx.Done()
		atomic.AddInt32(&cancelled, 1)
		return ctx.Err()
	}))

	d.Dispatch(context.Background(), Job{RecordID: "r1"})
	d.Dispatch(context.Background(), Job{RecordID: "r2"})
	cancelBase()

	waitCtx, stop := context.WithTimeout(context.Background(), time.Second)
	defer stop()
	require.NoError(t, d.Wait(waitCtx))
	assert.EqualValues(t, 2, cancelled)
}

func TestDispatcher_WaitTimesOut(t *testing.T) {
	release := make(chan struct{})
	d := NewDispatcher(context.Background(), runnerFunc(func(ctx context.Context, job Job) error {
		<-release
		return nil
	}))
	d.Dispatch(context.Background(), Job{})

	waitCtx, stop := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer stop()
	assert.ErrorIs(t, d.Wait(waitCtx), context.DeadlineExceeded)
	close(release)
}

func TestDispatcher_RecoversPanics(t *testing.T) {
	d := NewDispatcher(context.Background(), runnerFunc(func(ctx context.Context, job Job) error {
		panic("boom")
	}))
	d.Dispatch(context.Background(), Job{})
	waitCtx, stop := context.WithTimeout(context.Background(), time.Second)
	defer stop()
	require.NoError(t, d.Wait(waitCtx))
}
