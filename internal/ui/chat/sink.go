// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ktemkin/weechat-discord/internal/discord"
	"github.com/ktemkin/weechat-discord/internal/model"
	"github.com/ktemkin/weechat-discord/internal/render"
)

// Sink implements dispatch.Sink by forwarding each call into a Bubble Tea
// program as a message.
type Sink struct {
	send func(tea.Msg)
}

// NewSink returns a sink that delivers through send, normally
// (*tea.Program).Send.
func NewSink(send func(tea.Msg)) *Sink {
	return &Sink{send: send}
}

func (s *Sink) Print(conv model.ConversationID, line render.Line) {
	s.send(PrintMsg{Conversation: conv, Line: line})
}

func (s *Sink) Redraw(conv model.ConversationID, lines []render.Line) {
	cp := make([]render.Line, len(lines))
	copy(cp, lines)
	s.send(RedrawMsg{Conversation: conv, Lines: cp})
}

func (s *Sink) Typing(conv model.ConversationID, names []string) {
	s.send(TypingMsg{Conversation: conv, Names: append([]string(nil), names...)})
}

func (s *Sink) Notify(conv model.ConversationID, tags []string) {
	s.send(NotifyMsg{Conversation: conv, Tags: append([]string(nil), tags...)})
}

func (s *Sink) MemberList(update *discord.MemberListUpdate) {
	s.send(MemberListMsg{Update: update})
}

func (s *Sink) Status(text string) {
	s.send(StatusMsg{Text: text})
}
