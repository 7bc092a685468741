package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_RunsAllTasks(t *testing.T) {
	wp := NewWorkerPool("test", 3, 10)

	var count atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		require.NoError(t, wp.SubmitWait(context.Background(), func(ctx context.Context) error {
			defer wg.Done()
			count.Add(1)
			return nil
		}))
	}
	wg.Wait()

	assert.Equal(t, int32(20), count.Load())
	assert.NoError(t, wp.Shutdown(context.Background()))
}

func TestWorkerPool_SurvivesFailingTasks(t *testing.T) {
	wp := NewWorkerPool("test", 1, 10)

	var ran atomic.Bool
	require.NoError(t, wp.Submit(func(ctx context.Context) error { return errors.New("boom") }))
	require.NoError(t, wp.Submit(func(ctx context.Context) error { panic("bad task") }))
	require.NoError(t, wp.Submit(func(ctx context.Context) error {
		ran.Store(true)
		return nil
	}))

	require.NoError(t, wp.Shutdown(context.Background()))
	assert.True(t, ran.Load())
}

func TestWorkerPool_SubmitAfterShutdown(t *testing.T) {
	wp := NewWorkerPool("test", 1, 1)
	require.NoError(t, wp.Shutdown(context.Background()))

	assert.ErrorIs(t, wp.Submit(func(ctx context.Context) error { return nil }), ErrClosed)
	assert.ErrorIs(t, wp.SubmitWait(context.Background(), func(ctx context.Context) error { return nil }), ErrClosed)
	assert.NoError(t, wp.Shutdown(context.Background()))
}

func TestWorkerPool_QueueFull(t *testing.T) {
	wp := NewWorkerPool("test", 1, 1)
	release := make(chan struct{})
	started := make(chan struct{})

	require.NoError(t, wp.Submit(func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}))
	<-started
	require.NoError(t, wp.Submit(func(ctx context.Context) error { return nil }))

	assert.ErrorIs(t, wp.Submit(func(ctx context.Context) error { return nil }), ErrQueueFull)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, wp.SubmitWait(ctx, func(ctx context.Context) error { return nil }), context.DeadlineExceeded)

	close(release)
	assert.NoError(t, wp.Shutdown(context.Background()))
}

func TestWorkerPool_ShutdownTimeoutCancelsTasks(t *testing.T) {
	wp := NewWorkerPool("test", 1, 1)
	started := make(chan struct{})
	var cancelled atomic.Bool

	require.NoError(t, wp.Submit(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
		return ctx.Err()
	}))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, wp.Shutdown(ctx), context.DeadlineExceeded)
	assert.True(t, cancelled.Load())
}

func TestWorkerPool_ShutdownReleasesBlockedProducer(t *testing.T) {
	wp := NewWorkerPool("test", 1, 1)
	started := make(chan struct{})

	require.NoError(t, wp.Submit(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}))
	<-started
	require.NoError(t, wp.Submit(func(ctx context.Context) error { return nil }))

	submitErr := make(chan error, 1)
	go func() {
		submitErr <- wp.SubmitWait(context.Background(), func(ctx context.Context) error { return nil })
	}()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	begin := time.Now()
	assert.ErrorIs(t, wp.Shutdown(ctx), context.DeadlineExceeded)
	assert.Less(t, time.Since(begin), time.Second)

	select {
	case err := <-submitErr:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(time.Second):
		t.Fatal("SubmitWait still blocked after Shutdown")
	}
}
