// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dispatch

import (
	"context"

	"github.com/ktemkin/weechat-discord/internal/cache"
	"github.com/ktemkin/weechat-discord/internal/discord"
	"github.com/ktemkin/weechat-discord/internal/model"
	"github.com/ktemkin/weechat-discord/internal/render"
)

// MaxMemberRequest is the most user ids one member request may carry.
const MaxMemberRequest = 100

// =============================================================================
// UI SINK
// =============================================================================

// Sink is the display surface. It is called from the dispatcher goroutine
// only and must not block for long.
type Sink interface {
	// Print appends one line to the conversation's view.
	Print(conv model.ConversationID, line render.Line)
	// Redraw replaces the conversation's view with lines.
	Redraw(conv model.ConversationID, lines []render.Line)
	// Typing replaces the conversation's typing list, oldest first.
	Typing(conv model.ConversationID, names []string)
	// Notify signals activity with the display tags of the new line.
	Notify(conv model.ConversationID, tags []string)
	// MemberList forwards a lazy member list delta.
	MemberList(update *discord.MemberListUpdate)
	// Status shows a connection-level message.
	Status(text string)
}

// =============================================================================
// NETWORK OUTBOX
// =============================================================================

// SendRequest is one outbound chat message.
type SendRequest struct {
	ChannelID discord.ID
	Content   string
	Nonce     uint64
}

// Outbox performs network operations. Methods are called from task
// goroutines, never from the dispatcher goroutine.
type Outbox interface {
	SendMessage(ctx context.Context, req SendRequest) (discord.Message, error)
	// RequestMembers asks for at most MaxMemberRequest members. The nonce is
	// echoed back in the resulting member chunk.
	RequestMembers(ctx context.Context, guild discord.ID, ids []discord.ID, nonce string) error
	FetchPins(ctx context.Context, channel discord.ID) ([]discord.Message, error)
	FetchHistory(ctx context.Context, channel discord.ID, limit int) ([]discord.Message, error)
	// Subscribe registers interest in a guild channel's typing and member
	// list events.
	Subscribe(ctx context.Context, guild, channel discord.ID) error
}

// Cache is what the dispatcher needs from the entity cache: lookups for
// rendering and guild listings for outbound mention creation.
type Cache interface {
	cache.Reader
	cache.Directory
}
