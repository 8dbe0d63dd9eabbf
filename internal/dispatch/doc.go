// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dispatch is the display context of the client.
//
// A Dispatcher consumes inbound protocol events in arrival order and applies
// them to the per-conversation message stores, re-rendering what changed and
// pushing the result to a Sink. Network work (sends, history and pin
// fetches, member requests, subscriptions) runs on a tasks.Runner; results
// and failures come back as commands posted to the same loop, so the stores,
// the renderer and the typing tracker never need locks.
//
// Completions look their conversation up again by id and do nothing if it
// has been closed in the meantime.
//
// # Key Types
//
//   - Dispatcher: the event loop and owner of all conversation state
//   - Sink: display surface receiving printed lines, redraws and typing lists
//   - Outbox: network operations run from task goroutines
//   - Command: Open, OpenPins, Close, Send, Redraw, RedrawAll, ApplyOptions
//
// # Usage
//
//	d := dispatch.New(dispatch.Deps{
//	    Cache:  cache,
//	    Outbox: client,
//	    Sink:   ui,
//	    Runner: tasks.NewRunner(tasks.NewQueue(100), tasks.DefaultOptions()),
//	    Config: dispatch.DefaultConfig(),
//	})
//	d.Post(dispatch.Open{Conversation: conv})
//	err := d.Run(ctx, gateway.Events())
package dispatch
