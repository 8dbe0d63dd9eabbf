// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the per-buffer message store.
//
// Each open buffer has a Conversation: a bounded, insertion-ordered list of
// items. When an append pushes the list past its capacity the oldest items
// are evicted and handed back to the caller.
//
// # Key Types
//
//   - ConversationID: guild, channel and whether this is the pins view
//   - Item: closed sum of *Remote, *LocalEcho and *Notification
//   - ItemID: id tagged with its kind, so remote ids and nonces never collide
//   - Conversation: the bounded store with echo reconciliation
//   - Registry: id to Conversation map with liveness-checked lookup
//
// # Usage
//
// Show a pending send and reconcile it when the server confirms:
//
//	conv, _ := registry.Open(model.ConversationID{Guild: g, Channel: ch})
//	nonce := model.NewNonce()
//	conv.Append(&model.LocalEcho{Nonce: nonce, Content: "hi", CreatedAt: time.Now()})
//
//	// later, on MESSAGE_CREATE with that nonce
//	if conv.ReconcileEcho(nonce) {
//	    conv.Append(&model.Remote{Message: msg})
//	}
package model
