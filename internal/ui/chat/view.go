// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/ktemkin/weechat-discord/internal/render"
	"github.com/ktemkin/weechat-discord/internal/typing"
)

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "starting..."
	}
	if m.showHelp {
		text := m.helpText
		if text == "" {
			text = helpMarkdown(m.keys)
		}
		return m.theme.Help.Render(text)
	}
	rows := []string{
		m.tabBar(),
		m.viewport.View(),
		m.typingBar(),
		m.statusBar(),
		m.input.View(),
	}
	return strings.Join(rows, "\n")
}

// renderLines renders message lines into viewport content.
func (m Model) renderLines(lines []render.Line) string {
	var rows []string
	for _, l := range lines {
		rows = append(rows, m.theme.Line(l, m.layout, m.loc)...)
	}
	return strings.Join(rows, "\n")
}

// tabBar shows one tab per conversation, styled by activity.
func (m Model) tabBar() string {
	if len(m.order) == 0 {
		return m.theme.Tab.Render("no conversations")
	}
	var tabs []string
	for i, id := range m.order {
		label := fmt.Sprintf("%d:%s", i+1, m.name(id))
		if id.Pins {
			label += " (pins)"
		}
		style := m.theme.Tab
		switch {
		case i == m.active:
			style = m.theme.TabActive
		case m.panes[id].activity == ActivityHighlight:
			style = m.theme.TabHighlight
		case m.panes[id].activity == ActivityPrivate:
			style = m.theme.TabPrivate
		case m.panes[id].activity == ActivityMessage:
			style = m.theme.TabMessage
		}
		tabs = append(tabs, style.Render(label))
	}
	return truncate(strings.Join(tabs, " "), m.width)
}

// typingBar shows who is typing in the active conversation.
func (m Model) typingBar() string {
	id, ok := m.Active()
	if !ok {
		return ""
	}
	text := typing.Format(m.panes[id].typing, m.typingMax)
	if text == "" {
		return ""
	}
	return m.theme.TypingBar.Render(runewidth.Truncate(text, m.width, "…"))
}

// statusBar shows the connection status, the member counts of the active
// guild and the short key help.
func (m Model) statusBar() string {
	var parts []string
	if m.status != "" {
		style := m.theme.StatusConnected
		if m.statusErr {
			style = m.theme.StatusError
		}
		parts = append(parts, style.Render(m.status))
	}
	if id, ok := m.Active(); ok && !id.IsPrivate() {
		if c, ok := m.members[id.Guild]; ok {
			parts = append(parts, fmt.Sprintf("%s members, %s online",
				humanize.Comma(int64(c.total)), humanize.Comma(int64(c.online))))
		}
	}
	parts = append(parts, m.help.ShortHelpView(m.keys.ShortHelp()))
	return m.theme.StatusBar.Render(truncate(strings.Join(parts, " · "), m.width))
}

// truncate cuts styled text to width cells, keeping escape sequences whole.
func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	return ansi.Truncate(s, width, "")
}
