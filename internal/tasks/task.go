// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ktemkin/weechat-discord/internal/model"
)

// =============================================================================
// TASK STATUS
// =============================================================================

// TaskStatus represents the current state of a background task.
type TaskStatus string

const (
	// TaskStatusQueued indicates the task is waiting for a worker
	TaskStatusQueued TaskStatus = "Queued"

	// TaskStatusRunning indicates the task is currently executing
	TaskStatusRunning TaskStatus = "Running"

	// TaskStatusComplete indicates the task finished successfully
	TaskStatusComplete TaskStatus = "Complete"

	// TaskStatusFailed indicates the task returned an error
	TaskStatusFailed TaskStatus = "Failed"

	// TaskStatusCanceled indicates the task was canceled, usually because its
	// conversation was closed
	TaskStatusCanceled TaskStatus = "Canceled"
)

// String returns the string representation of the task status.
func (s TaskStatus) String() string {
	return string(s)
}

// =============================================================================
// TASK STRUCTURE
// =============================================================================

// Func is the work a task performs. It must return promptly once ctx is done.
type Func func(ctx context.Context) error

// Task is one outbound network operation: a send, a history or pins fetch,
// a member request or a subscription.
type Task struct {
	// ID is a unique identifier used to correlate log lines
	ID string

	// Op names the operation, e.g. "send" or "fetch_history"
	Op string

	// Conversation is the conversation the result belongs to
	Conversation model.ConversationID

	// Status is the current state of the task
	Status TaskStatus

	StartTime time.Time
	EndTime   time.Time

	// Error is the error message if the task failed
	Error string

	run    Func
	then   func(*Task, error)
	cancel context.CancelFunc
	mu     sync.RWMutex
}

// NewTask creates a queued task.
func NewTask(op string, conv model.ConversationID, run Func) *Task {
	return &Task{
		ID:           uuid.New().String(),
		Op:           op,
		Conversation: conv,
		Status:       TaskStatusQueued,
		run:          run,
	}
}

// =============================================================================
// TASK METHODS
// =============================================================================

// GetStatus returns the current task status (thread-safe).
func (t *Task) GetStatus() TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.Status
}

// MarkStarted marks the task as running.
func (t *Task) MarkStarted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Status = TaskStatusRunning
	t.StartTime = time.Now()
}

// MarkComplete marks the task as successfully completed.
func (t *Task) MarkComplete() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Status = TaskStatusComplete
	t.EndTime = time.Now()
}

// MarkFailed records err and marks the task as failed.
func (t *Task) MarkFailed(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.Error = err.Error()
	}
	t.Status = TaskStatusFailed
	t.EndTime = time.Now()
}

// MarkCanceled marks the task as canceled.
func (t *Task) MarkCanceled() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Status = TaskStatusCanceled
	t.EndTime = time.Now()
}

// Then registers fn to run on the worker goroutine after the task finished,
// with the error the runner reports for it. Call it before Submit.
func (t *Task) Then(fn func(task *Task, err error)) {
	t.then = fn
}

// SetCancelFunc stores the context cancel function for this task. It is set
// once, by the runner, before the task starts.
func (t *Task) SetCancelFunc(cancel context.CancelFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancel = cancel
}

// Cancel cancels the task if it has not finished.
// Returns true if the task was canceled.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Status != TaskStatusRunning && t.Status != TaskStatusQueued {
		return false
	}
	if t.cancel != nil {
		t.cancel()
	}
	t.Status = TaskStatusCanceled
	t.EndTime = time.Now()
	return true
}

// Duration returns how long the task has been running or took to complete.
func (t *Task) Duration() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.StartTime.IsZero() {
		return 0
	}
	if t.EndTime.IsZero() {
		return time.Since(t.StartTime)
	}
	return t.EndTime.Sub(t.StartTime)
}

// IsComplete returns true if the task has finished (success, failure, or canceled).
func (t *Task) IsComplete() bool {
	status := t.GetStatus()
	return status == TaskStatusComplete || status == TaskStatusFailed || status == TaskStatusCanceled
}
