// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	tea "github.com/charmbracelet/bubbletea"
)

// helpMarkdown builds the help overlay source.
func helpMarkdown(keys KeyMap) string {
	var b strings.Builder
	b.WriteString("# weecord\n\n")
	b.WriteString("Type a message and press **Enter** to send it to the current conversation. ")
	b.WriteString("Start a line with `//` to send a leading slash.\n\n")
	b.WriteString("## Commands\n\n")
	b.WriteString("| Command | Description |\n|---|---|\n")
	for _, spec := range commandUsages() {
		fmt.Fprintf(&b, "| `%s` | %s |\n", spec.usage, spec.summary)
	}
	b.WriteString("\n## Keys\n\n")
	b.WriteString("| Key | Action |\n|---|---|\n")
	for _, group := range keys.FullHelp() {
		for _, k := range group {
			h := k.Help()
			fmt.Fprintf(&b, "| `%s` | %s |\n", h.Key, h.Desc)
		}
	}
	b.WriteString("\nConversation ids are `guild/channel`, or a bare channel id for direct messages. ")
	b.WriteString("Append `/pins` for the pinned messages view.\n")
	return b.String()
}

// renderHelp renders the help overlay with glamour off the Update goroutine.
func renderHelp(keys KeyMap, width int, dark bool) tea.Cmd {
	return func() tea.Msg {
		return helpRenderedMsg{width: width, text: renderMarkdown(helpMarkdown(keys), width, dark)}
	}
}

// renderMarkdown falls back to the source when glamour fails.
func renderMarkdown(md string, width int, dark bool) string {
	style := "light"
	if dark {
		style = "dark"
	}
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
