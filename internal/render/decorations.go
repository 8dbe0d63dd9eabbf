// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/ktemkin/weechat-discord/internal/discord"
	"github.com/ktemkin/weechat-discord/internal/text"
)

// decorate appends the edit marker, attachments, embeds and reactions.
func (r *Renderer) decorate(body *text.Styled, msg *discord.Message) {
	if msg.Edited() {
		body.Append(text.Wrapped(text.Color("8"), " (edited)"))
	}

	for _, a := range msg.Attachments {
		if !body.IsEmpty() {
			body.WriteString("\n")
		}
		body.WriteString(a.ProxyURL)
		if a.Size > 0 {
			body.WriteString(" (" + humanize.Bytes(uint64(a.Size)) + ")")
		}
	}

	for _, e := range msg.Embeds {
		lines := embedLines(e)
		if len(lines) == 0 {
			continue
		}
		if !body.IsEmpty() {
			body.WriteString("\n")
		}
		body.Append(text.FoldLines(lines, "▎"))
	}

	if len(msg.Reactions) > 0 {
		body.WriteString(" ")
		body.Append(text.Wrapped(text.Color("8"), reactionList(msg.Reactions)))
	}
}

func embedLines(e discord.Embed) []text.Styled {
	var lines []text.Styled
	plain := func(s string) {
		for _, l := range strings.Split(s, "\n") {
			lines = append(lines, text.Plain(l))
		}
	}
	withURL := func(s text.Styled, url string) text.Styled {
		if url != "" {
			s.WriteString(" (" + url + ")")
		}
		return s
	}

	if p := e.Provider; p != nil && p.Name != "" {
		lines = append(lines, withURL(text.Plain(p.Name), p.URL))
	}
	if a := e.Author; a != nil {
		lines = append(lines, withURL(text.Wrapped(text.Bold, a.Name), a.URL))
	}
	if e.Title != "" {
		plain(e.Title)
	}
	if e.Description != "" {
		plain(e.Description)
	}
	for _, f := range e.Fields {
		value := strings.Join(strings.Split(f.Value, "\n"), ":")
		lines = append(lines, text.Plain(f.Name+": "+value))
	}
	if f := e.Footer; f != nil && f.Text != "" {
		plain(f.Text)
	}
	return lines
}

func reactionList(reactions []discord.Reaction) string {
	parts := make([]string, 0, len(reactions))
	for _, re := range reactions {
		name := re.Emoji.Name
		if re.Emoji.Custom() {
			if name == "" {
				continue
			}
			name = ":" + name + ":"
		}
		parts = append(parts, fmt.Sprintf("[%s %d]", name, re.Count))
	}
	return strings.Join(parts, " ")
}
