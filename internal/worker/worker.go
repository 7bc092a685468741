package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mcn-dashboard/internal/logging"
)

// Task is a function that represents a background job
type Task func(ctx context.Context) error

var (
	ErrClosed    = errors.New("worker pool is shut down")
	ErrQueueFull = errors.New("worker task queue is full")
)

type WorkerPool struct {
	name      string
	taskQueue chan Task
	wg        sync.WaitGroup

	mu     sync.RWMutex // guards closed against sends on a closed queue
	closed bool

	// quit is closed before Shutdown takes mu so blocked producers let go.
	quit     chan struct{}
	quitOnce sync.Once

	// ctx is handed to every task and cancelled when Shutdown gives up waiting.
	ctx    context.Context
	cancel context.CancelFunc
}

func NewWorkerPool(name string, size, queueSize int) *WorkerPool {
	if size < 1 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	wp := &WorkerPool{
		name:      name,
		taskQueue: make(chan Task, queueSize),
		quit:      make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}

	for i := range size {
		wp.wg.Add(1)
		go wp.startWorker(i)
	}

	logging.Info().Str("pool", name).Int("workers", size).Msg("worker pool started")
	return wp
}

func (wp *WorkerPool) startWorker(id int) {
	defer wp.wg.Done()
	for task := range wp.taskQueue {
		wp.run(id, task)
	}
}

func (wp *WorkerPool) run(id int, task Task) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logging.Error().
				Str("pool", wp.name).
				Int("worker", id).
				Str("panic", fmt.Sprint(r)).
				Msg("worker task panicked")
		}
	}()

	if err := task(wp.ctx); err != nil {
		logging.Warn().
			Err(err).
			Str("pool", wp.name).
			Int("worker", id).
			Dur("duration", time.Since(start)).
			Msg("worker task failed")
	}
}

// Submit queues t without blocking.
func (wp *WorkerPool) Submit(t Task) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		logging.Warn().Str("pool", wp.name).Msg("task submitted during shutdown, dropping")
		return ErrClosed
	}
	select {
	case wp.taskQueue <- t:
		return nil
	default:
		logging.Warn().Str("pool", wp.name).Msg("task queue full, dropping task")
		return ErrQueueFull
	}
}

// SubmitWait blocks until t is queued, the pool shuts down or ctx is done.
func (wp *WorkerPool) SubmitWait(ctx context.Context, t Task) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return ErrClosed
	}
	select {
	case wp.taskQueue <- t:
		return nil
	case <-wp.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting tasks and waits for queued ones to finish. If ctx
// expires first, running tasks see their context cancelled.
func (wp *WorkerPool) Shutdown(ctx context.Context) error {
	wp.quitOnce.Do(func() { close(wp.quit) })

	wp.mu.Lock()
	if wp.closed {
		wp.mu.Unlock()
		return nil
	}
	wp.closed = true
	close(wp.taskQueue)
	wp.mu.Unlock()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		wp.cancel()
		logging.Info().Str("pool", wp.name).Msg("worker pool stopped")
		return nil
	case <-ctx.Done():
		wp.cancel()
		<-done
		return ctx.Err()
	}
}
