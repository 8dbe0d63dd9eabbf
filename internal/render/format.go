// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"github.com/ktemkin/weechat-discord/internal/discord"
	"github.com/ktemkin/weechat-discord/internal/markup"
	"github.com/ktemkin/weechat-discord/internal/text"
)

// Content renders message markup. guild scopes member and role lookups and
// is zero in direct messages.
func (r *Renderer) Content(content string, guild discord.ID, unknown *IDSet) text.Styled {
	var out text.Styled
	r.writeNodes(&out, markup.Parse(content), guild, unknown)
	return out
}

func (r *Renderer) writeNodes(w *text.Styled, nodes []markup.Node, guild discord.ID, unknown *IDSet) {
	for _, n := range nodes {
		r.writeNode(w, n, guild, unknown)
	}
}

func (r *Renderer) writeNode(w *text.Styled, n markup.Node, guild discord.ID, unknown *IDSet) {
	children := func(nodes []markup.Node) func(*text.Styled) {
		return func(w *text.Styled) { r.writeNodes(w, nodes, guild, unknown) }
	}

	switch n := n.(type) {
	case markup.Text:
		w.WriteString(n.Value)
	case markup.Bold:
		r.delimited(w, text.Bold, "**", children(n.Children))
	case markup.Italic:
		r.delimited(w, text.Italic, "_", children(n.Children))
	case markup.Underline:
		r.delimited(w, text.Underline, "__", children(n.Children))
	case markup.Strikethrough:
		r.delimited(w, text.Color("red"), "~~", children(n.Children))
	case markup.Spoiler:
		w.Wrap(text.Italic, func(w *text.Styled) {
			w.WriteString("||")
			r.writeNodes(w, n.Children, guild, unknown)
			w.WriteString("||")
		})
	case markup.InlineCode:
		w.Wrap(text.Color("8"), func(w *text.Styled) {
			r.delimited(w, text.Bold, "`", func(w *text.Styled) { w.WriteString(n.Value) })
		})
	case markup.CodeBlock:
		r.codeBlock(w, n)
	case markup.BlockQuote:
		r.quote(w, n.Children, guild, unknown)
	case markup.Quote:
		r.quote(w, n.Children, guild, unknown)
	case markup.UserMention:
		r.userMention(w, n.ID, guild, unknown)
	case markup.ChannelMention:
		r.channelMention(w, n.ID)
	case markup.RoleMention:
		r.roleMention(w, n.ID)
	case markup.Emoji:
		r.emoji(w, n.ID)
	case markup.Timestamp:
		s, ok := r.timestamp(n.Unix, n.Style)
		switch {
		case !ok:
			w.WriteString("<invalid timestamp>")
		case r.opts.ShowFormatting:
			w.WriteString("<" + s + ">")
		default:
			w.WriteString(s)
		}
	}
}

// delimited wraps fn in style, showing the markdown delimiter on both sides
// when formatting characters are enabled.
func (r *Renderer) delimited(w *text.Styled, style text.Style, delim string, fn func(*text.Styled)) {
	w.Wrap(style, func(w *text.Styled) {
		if r.opts.ShowFormatting {
			w.WriteString(delim)
		}
		fn(w)
		if r.opts.ShowFormatting {
			w.WriteString(delim)
		}
	})
}

func (r *Renderer) codeBlock(w *text.Styled, n markup.CodeBlock) {
	w.Wrap(text.Reset, func(w *text.Styled) {
		if r.opts.ShowFormatting {
			w.WriteString("```" + n.Language)
		}
		w.WriteString("\n")
		w.Wrap(text.Color("8"), func(w *text.Styled) {
			w.Wrap(text.Bold, func(w *text.Styled) {
				r.hl.write(w, n.Language, n.Value)
			})
		})
		if r.opts.ShowFormatting {
			w.WriteString("\n```")
		}
	})
}

func (r *Renderer) quote(w *text.Styled, nodes []markup.Node, guild discord.ID, unknown *IDSet) {
	var inner text.Styled
	r.writeNodes(&inner, nodes, guild, unknown)
	lines := inner.Lines()
	if len(lines) == 0 {
		w.WriteString("▎")
		return
	}
	w.Append(text.FoldLines(lines, "▎"))
}
