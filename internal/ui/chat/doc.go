// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the Bubble Tea chat view of weecord.

The view is a mirror of the dispatcher's output. The dispatcher prints
through a Sink, which turns each call into a tea.Msg; the Model keeps one
pane per conversation and shows the focused one in a viewport.

# Key Components

## Model (model.go, update.go, view.go)

  - Tab bar with one tab per open conversation, colored by unread activity
  - Viewport of rendered message lines, following new output at the bottom
  - Typing bar and status bar with guild member counts
  - Input line; Enter sends to the focused conversation

## Commands (commands.go)

Slash commands are looked up in a handler registry:
  - /open <guild>/<channel> - open a conversation
  - /pins, /close, /redraw - act on the focused conversation or the one named
  - /help - glamour-rendered help overlay
  - /quit

# Usage

	p := tea.NewProgram(chat.New(chat.Options{Post: d.Post}), tea.WithAltScreen())
	sink := chat.NewSink(p.Send)
	// pass sink to dispatch.New, then:
	_, err := p.Run()
*/
package chat
