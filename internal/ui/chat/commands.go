// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ktemkin/weechat-discord/internal/dispatch"
	"github.com/ktemkin/weechat-discord/internal/model"
)

// =============================================================================
// COMMAND HANDLER REGISTRY
// =============================================================================

// CommandHandler handles one slash command.
type CommandHandler func(m *Model, args []string) (tea.Model, tea.Cmd)

type commandSpec struct {
	usage   string
	summary string
	handler CommandHandler
}

// commandHandlers maps command names to their handlers. Aliases share an entry.
var commandHandlers = map[string]commandSpec{}

func init() {
	register(commandSpec{"/open <guild>/<channel>", "open a conversation and load its history", handleOpenCommand}, "open", "o", "join", "j")
	register(commandSpec{"/pins [<guild>/<channel>]", "open the pinned messages of a conversation", handlePinsCommand}, "pins")
	register(commandSpec{"/close [<guild>/<channel>]", "close a conversation", handleCloseCommand}, "close", "part")
	register(commandSpec{"/redraw [all]", "re-render the current conversation, or all of them", handleRedrawCommand}, "redraw")
	register(commandSpec{"/help", "toggle this help", handleHelpCommand}, "help", "h", "?")
	register(commandSpec{"/quit", "leave", handleQuitCommand}, "quit", "q", "exit")
}

func register(entry commandSpec, names ...string) {
	for _, n := range names {
		commandHandlers[n] = entry
	}
}

// handleCommand runs a slash command line.
func (m Model) handleCommand(content string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(content)
	if len(parts) == 0 {
		return m, nil
	}
	name := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	entry, ok := commandHandlers[name]
	if !ok {
		m.setStatus(fmt.Sprintf("unknown command /%s (try /help)", name), true)
		return m, nil
	}
	return entry.handler(&m, parts[1:])
}

// commandUsages lists each command once, sorted by usage.
func commandUsages() []commandSpec {
	seen := make(map[string]bool)
	var out []commandSpec
	for _, entry := range commandHandlers {
		if seen[entry.usage] {
			continue
		}
		seen[entry.usage] = true
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].usage < out[j].usage })
	return out
}

// =============================================================================
// HANDLERS
// =============================================================================

func handleOpenCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	if len(args) != 1 {
		m.setStatus("usage: /open <guild>/<channel>", true)
		return *m, nil
	}
	id, err := model.ParseConversationID(args[0])
	if err != nil {
		m.setStatus(err.Error(), true)
		return *m, nil
	}
	var cmd dispatch.Command = dispatch.Open{Conversation: id}
	if id.Pins {
		cmd = dispatch.OpenPins{Conversation: id}
	}
	m.focusOrCreate(id)
	return *m, m.postCmd(cmd)
}

func handlePinsCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	id, ok := m.target(args)
	if !ok {
		return *m, nil
	}
	id.Pins = true
	m.focusOrCreate(id)
	return *m, m.postCmd(dispatch.OpenPins{Conversation: id})
}

func handleCloseCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	id, ok := m.target(args)
	if !ok {
		return *m, nil
	}
	m.removePane(id)
	return *m, m.postCmd(dispatch.Close{Conversation: id})
}

func handleRedrawCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	if len(args) == 1 && args[0] == "all" {
		return *m, m.postCmd(dispatch.RedrawAll{})
	}
	id, ok := m.target(args)
	if !ok {
		return *m, nil
	}
	return *m, m.postCmd(dispatch.Redraw{Conversation: id})
}

func handleHelpCommand(m *Model, _ []string) (tea.Model, tea.Cmd) {
	return m.toggleHelp()
}

func handleQuitCommand(m *Model, _ []string) (tea.Model, tea.Cmd) {
	return *m, tea.Quit
}

// target resolves the optional conversation argument of a command, falling
// back to the active conversation.
func (m *Model) target(args []string) (model.ConversationID, bool) {
	if len(args) > 0 {
		id, err := model.ParseConversationID(args[0])
		if err != nil {
			m.setStatus(err.Error(), true)
			return model.ConversationID{}, false
		}
		return id, true
	}
	id, ok := m.Active()
	if !ok {
		m.setStatus("no conversation open", true)
	}
	return id, ok
}

func (m *Model) focusOrCreate(id model.ConversationID) {
	m.paneFor(id)
	for i, o := range m.order {
		if o == id {
			m.focus(i)
			return
		}
	}
}
