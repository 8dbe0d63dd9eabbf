// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package discord defines the wire-level data model of the chat service.
//
// Only the fields the message pipeline reads are modelled. Every type decodes
// from the JSON the gateway and REST API send, and snowflakes accept both the
// quoted and the bare numeric encoding.
//
// # Key Types
//
//   - ID: snowflake identifier (zero means absent)
//   - Message: a channel message with embeds, attachments and reactions
//   - Event: inbound gateway dispatch (MessageCreate, TypingStart, ...)
//
// # Usage
//
//	ev, err := discord.DecodeEvent(frame.T, frame.D)
//	if errors.Is(err, discord.ErrUnknownEvent) {
//	    // not consumed by this client
//	}
package discord
