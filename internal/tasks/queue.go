// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ktemkin/weechat-discord/internal/model"
)

// ErrQueueFull is returned by Add when maxQueueSize tasks are outstanding.
var ErrQueueFull = errors.New("task queue is full")

// =============================================================================
// TASK QUEUE
// =============================================================================

// Queue tracks outstanding tasks and a bounded history of finished ones.
type Queue struct {
	// tasks holds every tracked task in submission order
	tasks []*Task

	// maxHistory is the maximum number of finished tasks to keep
	maxHistory int

	// maxQueueSize is the maximum number of unfinished tasks (0 = unlimited)
	maxQueueSize int

	mu sync.RWMutex
}

// NewQueue creates a queue keeping at most maxHistory finished tasks
// (0 = unlimited).
func NewQueue(maxHistory int) *Queue {
	return NewQueueWithOptions(maxHistory, 0)
}

// NewQueueWithOptions creates a queue with a bound on unfinished tasks.
func NewQueueWithOptions(maxHistory, maxQueueSize int) *Queue {
	return &Queue{
		tasks:        make([]*Task, 0),
		maxHistory:   maxHistory,
		maxQueueSize: maxQueueSize,
	}
}

// =============================================================================
// TASK MANAGEMENT
// =============================================================================

// Add starts tracking task.
func (q *Queue) Add(task *Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.maxQueueSize > 0 && q.pendingLocked() >= q.maxQueueSize {
		return fmt.Errorf("%w (%d outstanding)", ErrQueueFull, q.maxQueueSize)
	}
	q.tasks = append(q.tasks, task)
	return nil
}

// CancelConversation cancels every unfinished task of conv and returns how
// many were canceled. Closing a conversation calls it so that pending
// fetches stop early.
func (q *Queue) CancelConversation(conv model.ConversationID) int {
	q.mu.RLock()
	var targets []*Task
	for _, task := range q.tasks {
		if task.Conversation == conv && !task.IsComplete() {
			targets = append(targets, task)
		}
	}
	q.mu.RUnlock()

	canceled := 0
	for _, task := range targets {
		if task.Cancel() {
			canceled++
		}
	}
	return canceled
}

// MarkRunning marks a task as running.
func (q *Queue) MarkRunning(task *Task) {
	q.mu.Lock()
	defer q.mu.Unlock()
	task.MarkStarted()
}

// MarkComplete marks a task as successfully completed.
func (q *Queue) MarkComplete(task *Task) {
	q.finish(task, func() { task.MarkComplete() })
}

// MarkFailed marks a task as failed with err.
func (q *Queue) MarkFailed(task *Task, err error) {
	q.finish(task, func() { task.MarkFailed(err) })
}

// MarkCanceled marks a task as canceled.
func (q *Queue) MarkCanceled(task *Task) {
	q.finish(task, func() { task.MarkCanceled() })
}

func (q *Queue) finish(task *Task, mark func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	mark()
	q.cleanupLocked()
}

// =============================================================================
// QUERIES
// =============================================================================

// Pending returns the number of unfinished tasks.
func (q *Queue) Pending() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.pendingLocked()
}

func (q *Queue) pendingLocked() int {
	n := 0
	for _, task := range q.tasks {
		if !task.IsComplete() {
			n++
		}
	}
	return n
}

// cleanupLocked drops the oldest finished tasks beyond maxHistory.
func (q *Queue) cleanupLocked() {
	if q.maxHistory <= 0 {
		return
	}

	completedCount := 0
	for _, task := range q.tasks {
		if task.IsComplete() {
			completedCount++
		}
	}
	if completedCount <= q.maxHistory {
		return
	}

	toRemove := completedCount - q.maxHistory
	kept := make([]*Task, 0, len(q.tasks)-toRemove)
	for _, task := range q.tasks {
		if task.IsComplete() && toRemove > 0 {
			toRemove--
			continue
		}
		kept = append(kept, task)
	}
	q.tasks = kept
}
