// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"fmt"
	"hash/fnv"

	"github.com/ktemkin/weechat-discord/internal/discord"
	"github.com/ktemkin/weechat-discord/internal/text"
)

// nickPalette is the set of terminal colors nicks are hashed onto. Dark
// and near-white entries are left out so names stay readable.
var nickPalette = []string{
	"1", "2", "3", "4", "5", "6",
	"9", "10", "11", "12", "13", "14",
	"166", "172", "37", "135",
}

// NickColor returns a stable color for a name.
func NickColor(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return nickPalette[h.Sum32()%uint32(len(nickPalette))]
}

// HexColor formats a 24-bit RGB value as "#rrggbb".
func HexColor(rgb int) string {
	return fmt.Sprintf("#%06x", rgb&0xffffff)
}

// memberColor is the color of the member's highest positioned role that has
// one, or "" if none does.
func (r *Renderer) memberColor(m discord.Member) string {
	var (
		best  discord.Role
		found bool
	)
	for _, id := range m.Roles {
		role, ok := r.cache.Role(id)
		if !ok || role.Color == 0 {
			continue
		}
		if !found || role.Position > best.Position {
			best, found = role, true
		}
	}
	if !found {
		return ""
	}
	return HexColor(best.Color)
}

// coloredName renders at+name in the member's role color, falling back to
// the nick color of name.
func (r *Renderer) coloredName(at, name string, member *discord.Member) text.Styled {
	color := ""
	if member != nil {
		color = r.memberColor(*member)
	}
	if color == "" {
		color = NickColor(name)
	}
	return text.Wrapped(text.Color(color), at+name)
}

// author renders a message author. A member attached to the message wins
// over the cached one.
func (r *Renderer) author(u discord.User, member *discord.Member, guild discord.ID, includeAt bool) text.Styled {
	at := ""
	if includeAt {
		at = "@"
	}
	if !guild.IsZero() {
		if member == nil {
			if m, ok := r.cache.Member(guild, u.ID); ok {
				member = &m
			}
		}
		if member != nil {
			name := member.Nick
			if name == "" {
				name = u.Username
			}
			return r.coloredName(at, name, member)
		}
	}
	return r.coloredName(at, u.Username, nil)
}

func (r *Renderer) authorPrefix(msg *discord.Message, includeAt bool) text.Styled {
	var prefix text.Styled
	prefix.Append(colorize(r.opts.NickPrefix, r.opts.NickPrefixColor))
	prefix.Append(r.author(msg.Author, msg.Member, msg.GuildID, includeAt))
	prefix.Append(colorize(r.opts.NickSuffix, r.opts.NickSuffixColor))
	return prefix
}

func colorize(s, color string) text.Styled {
	if s == "" {
		return text.Styled{}
	}
	if color == "" {
		return text.Plain(s)
	}
	return text.Wrapped(text.Color(color), s)
}

// =============================================================================
// MENTIONS
// =============================================================================

func (r *Renderer) userMention(w *text.Styled, id, guild discord.ID, unknown *IDSet) {
	if !guild.IsZero() {
		if m, ok := r.cache.Member(guild, id); ok {
			name := m.Nick
			if name == "" {
				if m.User != nil {
					name = m.User.Username
				} else if u, ok := r.cache.User(id); ok {
					name = u.Username
				}
			}
			if name != "" {
				w.Append(r.coloredName("@", name, &m))
				return
			}
		}
	}
	if u, ok := r.cache.User(id); ok {
		w.Append(r.coloredName("@", u.Username, nil))
		return
	}

	unknown.Add(id)
	if r.opts.ShowUnknownIDs {
		w.WriteString("@" + id.String())
		return
	}
	w.WriteString("@unknown-user")
}

func (r *Renderer) channelMention(w *text.Styled, id discord.ID) {
	if ch, ok := r.cache.Channel(id); ok {
		w.WriteString("#" + ch.DisplayName())
		return
	}
	w.WriteString("#unknown-channel")
}

func (r *Renderer) roleMention(w *text.Styled, id discord.ID) {
	role, ok := r.cache.Role(id)
	if !ok {
		w.WriteString("@unknown-role")
		return
	}
	if role.Color == 0 {
		w.WriteString("@" + role.Name)
		return
	}
	w.Wrap(text.Color(HexColor(role.Color)), func(w *text.Styled) {
		w.WriteString("@" + role.Name)
	})
}

func (r *Renderer) emoji(w *text.Styled, id discord.ID) {
	if e, ok := r.cache.Emoji(id); ok {
		w.WriteString(":" + e.Name + ":")
		return
	}
	w.WriteString(":unknown-emoji:")
}
