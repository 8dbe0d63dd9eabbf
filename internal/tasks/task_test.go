// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ktemkin/weechat-discord/internal/model"
)

var testConv = model.ConversationID{Guild: 1, Channel: 2}

func noop(context.Context) error { return nil }

func TestNewTask(t *testing.T) {
	task := NewTask("send", testConv, noop)

	if task.ID == "" {
		t.Error("Task ID should not be empty")
	}
	if task.Op != "send" {
		t.Errorf("Expected op 'send', got '%s'", task.Op)
	}
	if task.GetStatus() != TaskStatusQueued {
		t.Errorf("Expected status Queued, got %s", task.GetStatus())
	}
	if other := NewTask("send", testConv, noop); other.ID == task.ID {
		t.Error("Task IDs should be unique")
	}
}

func TestTaskCancel(t *testing.T) {
	task := NewTask("send", testConv, noop)
	task.MarkStarted()

	if !task.Cancel() {
		t.Error("Cancel should succeed for running task")
	}
	if task.GetStatus() != TaskStatusCanceled {
		t.Error("Task should be canceled")
	}
	if task.Cancel() {
		t.Error("Second cancel should fail")
	}
}

func TestQueue_HistoryIsBounded(t *testing.T) {
	queue := NewQueue(2)
	for i := 0; i < 5; i++ {
		task := NewTask("send", testConv, noop)
		if err := queue.Add(task); err != nil {
			t.Fatal(err)
		}
		queue.MarkRunning(task)
		queue.MarkComplete(task)
	}
	if len(queue.tasks) != 2 {
		t.Errorf("Expected 2 tracked tasks, got %d", len(queue.tasks))
	}
	if queue.Pending() != 0 {
		t.Errorf("Expected no pending tasks, got %d", queue.Pending())
	}
}

func TestQueue_Full(t *testing.T) {
	queue := NewQueueWithOptions(0, 1)
	if err := queue.Add(NewTask("send", testConv, noop)); err != nil {
		t.Fatal(err)
	}
	if err := queue.Add(NewTask("send", testConv, noop)); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Expected ErrQueueFull, got %v", err)
	}
}

func TestRunner_RunsAndReports(t *testing.T) {
	var (
		mu   sync.Mutex
		done = make(map[string]error)
		wg   sync.WaitGroup
	)
	runner := NewRunner(NewQueue(10), Options{
		MaxConcurrent: 2,
		OnDone: func(task *Task, err error) {
			mu.Lock()
			done[task.Op] = err
			mu.Unlock()
			wg.Done()
		},
	})
	defer runner.Stop()

	boom := errors.New("boom")
	wg.Add(3)
	for op, fn := range map[string]Func{
		"ok":    noop,
		"fail":  func(context.Context) error { return boom },
		"panic": func(context.Context) error { panic("bad") },
	} {
		if err := runner.Submit(NewTask(op, testConv, fn)); err != nil {
			t.Fatal(err)
		}
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if done["ok"] != nil {
		t.Errorf("ok task error = %v", done["ok"])
	}
	if !errors.Is(done["fail"], boom) {
		t.Errorf("fail task error = %v, want boom", done["fail"])
	}
	if done["panic"] == nil {
		t.Error("panicking task should report an error")
	}
}

func TestRunner_CancelConversation(t *testing.T) {
	finished := make(chan *Task, 1)
	runner := NewRunner(NewQueue(10), Options{
		OnDone: func(task *Task, err error) { finished <- task },
	})
	defer runner.Stop()

	started := make(chan struct{})
	task := NewTask("fetch_history", testConv, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	if err := runner.Submit(task); err != nil {
		t.Fatal(err)
	}
	<-started

	if n := runner.Queue().CancelConversation(testConv); n != 1 {
		t.Errorf("CancelConversation() = %d, want 1", n)
	}

	select {
	case got := <-finished:
		if got.GetStatus() != TaskStatusCanceled {
			t.Errorf("status = %s, want Canceled", got.GetStatus())
		}
	case <-time.After(2 * time.Second):
		t.Fatal("task did not stop after cancel")
	}
}

func TestRunner_SubmitAfterStop(t *testing.T) {
	runner := NewRunner(NewQueue(10), Options{})
	runner.Stop()
	if err := runner.Submit(NewTask("send", testConv, noop)); !errors.Is(err, ErrStopped) {
		t.Errorf("Submit after Stop = %v, want ErrStopped", err)
	}
}

func TestTask_ThenSeesWaitTimeout(t *testing.T) {
	runner := NewRunner(NewQueue(10), Options{MaxConcurrent: 1, Timeout: 50 * time.Millisecond})
	defer runner.Stop()

	release := make(chan struct{})
	defer close(release)
	started := make(chan struct{})
	busy := NewTask("fetch_history", testConv, func(context.Context) error {
		close(started)
		<-release
		return nil
	})
	if err := runner.Submit(busy); err != nil {
		t.Fatal(err)
	}
	<-started

	type result struct {
		status TaskStatus
		err    error
	}
	done := make(chan result, 1)
	ran := false
	waiting := NewTask("send", testConv, func(context.Context) error {
		ran = true
		return nil
	})
	waiting.Then(func(task *Task, err error) {
		done <- result{task.GetStatus(), err}
	})
	if err := runner.Submit(waiting); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-done:
		if got.status != TaskStatusFailed {
			t.Errorf("status = %s, want Failed", got.status)
		}
		if !errors.Is(got.err, context.DeadlineExceeded) {
			t.Errorf("err = %v, want a deadline error", got.err)
		}
		if ran {
			t.Error("task function ran although no slot was free")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Then was not called")
	}
}
