// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// ErrStopped is returned by Submit after Stop.
var ErrStopped = errors.New("task runner stopped")

// =============================================================================
// TASK RUNNER
// =============================================================================

// Options configure a Runner.
type Options struct {
	// MaxConcurrent bounds the number of tasks running at once (default 5)
	MaxConcurrent int

	// Timeout bounds each task (0 = no timeout)
	Timeout time.Duration

	// Rate and Burst pace task starts; a zero Rate means unlimited
	Rate  rate.Limit
	Burst int

	// OnDone is called from the worker goroutine after every task with the
	// error it returned. It must not block.
	OnDone func(task *Task, err error)
}

// DefaultOptions stay below the service's global request rate.
func DefaultOptions() Options {
	return Options{
		MaxConcurrent: 5,
		Timeout:       30 * time.Second,
		Rate:          rate.Limit(5),
		Burst:         5,
	}
}

// Runner executes submitted tasks in the background.
type Runner struct {
	queue       *Queue
	wg          sync.WaitGroup
	stopped     atomic.Bool
	semaphore   chan struct{}
	limiter     *rate.Limiter
	taskTimeout time.Duration
	onDone      func(*Task, error)

	// ctx is canceled by Stop so that queued tasks give up waiting
	ctx    context.Context
	cancel context.CancelFunc
}

// NewRunner creates a runner tracking its tasks in queue.
func NewRunner(queue *Queue, opts Options) *Runner {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 5
	}
	limit := opts.Rate
	if limit == 0 {
		limit = rate.Inf
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		queue:       queue,
		semaphore:   make(chan struct{}, opts.MaxConcurrent),
		limiter:     rate.NewLimiter(limit, opts.Burst),
		taskTimeout: opts.Timeout,
		onDone:      opts.OnDone,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Queue returns the queue the runner tracks its tasks in.
func (r *Runner) Queue() *Queue { return r.queue }

// =============================================================================
// RUNNER LIFECYCLE
// =============================================================================

// Submit queues task and returns immediately.
func (r *Runner) Submit(task *Task) error {
	if r.stopped.Load() {
		return ErrStopped
	}
	if err := r.queue.Add(task); err != nil {
		return err
	}
	r.wg.Add(1)
	go r.executeTask(task)
	return nil
}

// Stop cancels outstanding tasks and waits for the workers to return.
func (r *Runner) Stop() {
	r.stopped.Store(true)
	r.cancel()
	r.wg.Wait()
}

// =============================================================================
// TASK PROCESSING
// =============================================================================

func (r *Runner) executeTask(task *Task) {
	defer r.wg.Done()

	var ctx context.Context
	var cancel context.CancelFunc
	if r.taskTimeout > 0 {
		ctx, cancel = context.WithTimeout(r.ctx, r.taskTimeout)
	} else {
		ctx, cancel = context.WithCancel(r.ctx)
	}
	task.SetCancelFunc(cancel)
	defer cancel()
	if task.GetStatus() == TaskStatusCanceled {
		// Canceled between Submit and SetCancelFunc.
		cancel()
	}

	err := r.acquire(ctx)
	if err == nil {
		defer func() { <-r.semaphore }()
		r.queue.MarkRunning(task)
		err = r.run(ctx, task)
	}

	switch {
	case err == nil:
		r.queue.MarkComplete(task)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		err = fmt.Errorf("%s timed out after %v: %w", task.Op, r.taskTimeout, err)
		r.queue.MarkFailed(task, err)
	case ctx.Err() != nil:
		r.queue.MarkCanceled(task)
	default:
		r.queue.MarkFailed(task, err)
	}

	if r.onDone != nil {
		r.onDone(task, err)
	}
	if task.then != nil {
		task.then(task, err)
	}
}

// acquire waits for a concurrency slot and then for the rate limiter.
func (r *Runner) acquire(ctx context.Context) error {
	select {
	case r.semaphore <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := r.limiter.Wait(ctx); err != nil {
		<-r.semaphore
		return err
	}
	return nil
}

// run calls the task function, turning a panic into an error.
func (r *Runner) run(ctx context.Context, task *Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s panicked: %v", task.Op, p)
		}
	}()
	if task.run == nil {
		return fmt.Errorf("%s: task has no function", task.Op)
	}
	return task.run(ctx)
}
