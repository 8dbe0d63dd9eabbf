// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tasks runs outbound network operations off the display goroutine.
//
// Sends, history and pin fetches, member requests and subscriptions are
// wrapped in a Task and submitted to a Runner. The runner bounds
// concurrency, paces starts with a token bucket and applies a per-task
// timeout. Results travel back to the display goroutine through the task
// function itself, which posts them to the dispatcher.
//
// # Key Types
//
//   - Task: one operation with a uuid, the conversation it serves and its status
//   - Queue: tracks outstanding tasks and a bounded history
//   - Runner: executes tasks with a semaphore, rate limiter and timeout
//   - TaskStatus: Queued, Running, Complete, Failed, Canceled
//
// # Usage
//
//	runner := tasks.NewRunner(tasks.NewQueue(100), tasks.DefaultOptions())
//	defer runner.Stop()
//
//	task := tasks.NewTask("fetch_pins", conv, func(ctx context.Context) error {
//	    msgs, err := outbox.FetchPins(ctx, conv.Channel)
//	    if err != nil {
//	        return err
//	    }
//	    dispatcher.Post(pinsLoaded{conv, msgs})
//	    return nil
//	})
//	if err := runner.Submit(task); err != nil {
//	    log.Printf("submit: %v", err)
//	}
package tasks
