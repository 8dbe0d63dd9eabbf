// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/ktemkin/weechat-discord/internal/discord"
	"github.com/ktemkin/weechat-discord/internal/model"
	"github.com/ktemkin/weechat-discord/internal/render"
)

// =============================================================================
// DISPATCHER MESSAGES
// =============================================================================

// These mirror the dispatch.Sink calls one to one. They cross from the
// dispatcher goroutine into the Bubble Tea loop and are never mutated.

// PrintMsg appends a line to a conversation.
type PrintMsg struct {
	Conversation model.ConversationID
	Line         render.Line
}

// RedrawMsg replaces a conversation's lines.
type RedrawMsg struct {
	Conversation model.ConversationID
	Lines        []render.Line
}

// TypingMsg replaces a conversation's typing list.
type TypingMsg struct {
	Conversation model.ConversationID
	Names        []string
}

// NotifyMsg signals activity in a conversation.
type NotifyMsg struct {
	Conversation model.ConversationID
	Tags         []string
}

// MemberListMsg carries a member list delta.
type MemberListMsg struct {
	Update *discord.MemberListUpdate
}

// StatusMsg shows a connection-level message.
type StatusMsg struct {
	Text string
}

// =============================================================================
// LOCAL MESSAGES
// =============================================================================

// postFailedMsg reports a command the dispatcher refused.
type postFailedMsg struct {
	err error
}

// helpRenderedMsg carries the help overlay once glamour has rendered it.
type helpRenderedMsg struct {
	width int
	text  string
}
