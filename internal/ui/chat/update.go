// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ktemkin/weechat-discord/internal/dispatch"
)

// chromeRows is the number of rows around the viewport: tab bar, typing bar,
// status bar and input line.
const chromeRows = 4

// =============================================================================
// UPDATE LOOP
// =============================================================================

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.resize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case PrintMsg:
		p := m.paneFor(msg.Conversation)
		p.lines = append(p.lines, msg.Line)
		if over := len(p.lines) - m.capacity; over > 0 {
			p.lines = append(p.lines[:0:0], p.lines[over:]...)
		}
		if m.isActive(msg.Conversation) {
			m.refresh(false)
		}
		return m, nil

	case RedrawMsg:
		p := m.paneFor(msg.Conversation)
		p.lines = msg.Lines
		if m.isActive(msg.Conversation) {
			m.refresh(false)
		}
		return m, nil

	case TypingMsg:
		m.paneFor(msg.Conversation).typing = msg.Names
		return m, nil

	case NotifyMsg:
		if m.isActive(msg.Conversation) {
			return m, nil
		}
		p := m.paneFor(msg.Conversation)
		if a := activityFor(msg.Tags); a > p.activity {
			p.activity = a
		}
		return m, nil

	case MemberListMsg:
		if msg.Update != nil {
			m.members[msg.Update.GuildID] = memberCount{
				total:  msg.Update.MemberCount,
				online: msg.Update.OnlineCount,
			}
		}
		return m, nil

	case StatusMsg:
		m.setStatus(msg.Text, false)
		return m, nil

	case postFailedMsg:
		m.setStatus(fmt.Sprintf("command failed: %v", msg.err), true)
		return m, nil

	case helpRenderedMsg:
		m.helpText = msg.text
		m.helpWidth = msg.width
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) resize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width, m.height = msg.Width, msg.Height
	h := msg.Height - chromeRows
	if h < 1 {
		h = 1
	}
	m.viewport.Width = msg.Width
	m.viewport.Height = h
	m.input.Width = msg.Width - len(m.input.Prompt) - 1
	m.help.Width = msg.Width
	m.ready = true
	m.refresh(true)

	var cmd tea.Cmd
	if m.showHelp && m.helpWidth != msg.Width {
		cmd = renderHelp(m.keys, msg.Width, m.theme.IsDark)
	}
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		return m.toggleHelp()

	case key.Matches(msg, m.keys.Submit):
		line := strings.TrimSpace(m.input.Value())
		m.input.Reset()
		if line == "" {
			return m, nil
		}
		if strings.HasPrefix(line, "/") && !strings.HasPrefix(line, "//") {
			return m.handleCommand(line)
		}
		// "//" escapes a leading slash.
		line = strings.TrimPrefix(line, "/")
		id, ok := m.Active()
		if !ok {
			m.setStatus("no conversation open; use /open <guild>/<channel>", true)
			return m, nil
		}
		return m, m.postCmd(dispatch.Send{Conversation: id, Content: line})

	case key.Matches(msg, m.keys.Next):
		m.focus(m.active + 1)
		return m, nil
	case key.Matches(msg, m.keys.Prev):
		m.focus(m.active - 1)
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.viewport.LineUp(1)
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.viewport.LineDown(1)
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		return m, nil
	case key.Matches(msg, m.keys.Home):
		m.viewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.End):
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// postCmd hands cmd to the dispatcher off the Update goroutine. The
// dispatcher may itself be waiting on this program to accept a Sink message.
func (m Model) postCmd(cmd dispatch.Command) tea.Cmd {
	post := m.post
	return func() tea.Msg {
		if post == nil {
			return postFailedMsg{err: dispatch.ErrClosed}
		}
		if err := post(cmd); err != nil {
			return postFailedMsg{err: err}
		}
		return nil
	}
}

func (m Model) toggleHelp() (tea.Model, tea.Cmd) {
	m.showHelp = !m.showHelp
	if m.showHelp && m.helpWidth != m.width {
		return m, renderHelp(m.keys, m.width, m.theme.IsDark)
	}
	return m, nil
}
