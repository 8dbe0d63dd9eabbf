// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dispatch

import (
	"regexp"
	"strings"

	"github.com/ktemkin/weechat-discord/internal/cache"
	"github.com/ktemkin/weechat-discord/internal/discord"
)

// =============================================================================
// OUTBOUND MENTION CREATION
// =============================================================================

var (
	channelMention = regexp.MustCompile(`#([a-z0-9_\-]+)`)
	taggedMention  = regexp.MustCompile(`@([^\s@#<>]{1,32})#(\d{2,4})`)
	nameMention    = regexp.MustCompile(`@([^\s@#<>]{1,32})`)
	emojiMention   = regexp.MustCompile(`(\\?):(\w+):`)
)

// CreateMentions rewrites typed #channel, @user, @user#1234, @role and
// :emoji: references into wire mentions using the guild's cached entities.
// Names that do not resolve are left as typed. Private conversations have
// no guild and are returned unchanged.
func CreateMentions(dir cache.Directory, guild discord.ID, content string) string {
	if guild.IsZero() || dir == nil {
		return content
	}
	out := createChannels(dir, guild, content)
	out = createUsers(dir, guild, out)
	out = createEmojis(dir, guild, out)
	return out
}

func createChannels(dir cache.Directory, guild discord.ID, s string) string {
	channels := dir.GuildChannels(guild)
	return replaceMatches(channelMention, s, func(m []string) (string, bool) {
		for _, ch := range channels {
			if ch.Name == m[1] {
				return "<#" + ch.ID.String() + ">", true
			}
		}
		return "", false
	})
}

// createUsers resolves @name#1234 first, then bare @name against member
// nicknames, usernames and finally role names.
func createUsers(dir cache.Directory, guild discord.ID, s string) string {
	members := dir.GuildMembers(guild)
	s = replaceMatches(taggedMention, s, func(m []string) (string, bool) {
		for _, mem := range members {
			if mem.User != nil && mem.User.Username == m[1] && mem.User.Discriminator == m[2] {
				return "<@" + mem.User.ID.String() + ">", true
			}
		}
		return "", false
	})

	roles := dir.GuildRoles(guild)
	return replaceMatches(nameMention, s, func(m []string) (string, bool) {
		name := m[1]
		for _, mem := range members {
			if mem.User == nil {
				continue
			}
			if mem.Nick == name || mem.User.Username == name || mem.User.GlobalName == name {
				return "<@" + mem.User.ID.String() + ">", true
			}
		}
		for _, r := range roles {
			if r.Name == name {
				return "<@&" + r.ID.String() + ">", true
			}
		}
		return "", false
	})
}

func createEmojis(dir cache.Directory, guild discord.ID, s string) string {
	emojis := dir.GuildEmojis(guild)
	return replaceMatches(emojiMention, s, func(m []string) (string, bool) {
		if m[1] == `\` {
			return "", false
		}
		for _, e := range emojis {
			if e.Name != m[2] {
				continue
			}
			prefix := "<:"
			if e.Animated {
				prefix = "<a:"
			}
			return prefix + e.Name + ":" + e.ID.String() + ">", true
		}
		return "", false
	})
}

// replaceMatches substitutes every match of re that resolve accepts. Matches
// that sit inside an existing <...> token are skipped.
func replaceMatches(re *regexp.Regexp, s string, resolve func(groups []string) (string, bool)) string {
	idx := re.FindAllStringSubmatchIndex(s, -1)
	if idx == nil {
		return s
	}
	var b strings.Builder
	last := 0
	for _, loc := range idx {
		start, end := loc[0], loc[1]
		if insideToken(s, start) {
			continue
		}
		groups := make([]string, len(loc)/2)
		for g := range groups {
			if loc[2*g] >= 0 {
				groups[g] = s[loc[2*g]:loc[2*g+1]]
			}
		}
		repl, ok := resolve(groups)
		if !ok {
			continue
		}
		b.WriteString(s[last:start])
		b.WriteString(repl)
		last = end
	}
	b.WriteString(s[last:])
	return b.String()
}

// insideToken reports whether position i continues a '<' token that has
// not been closed and holds no whitespace.
func insideToken(s string, i int) bool {
	open := strings.LastIndexByte(s[:i], '<')
	return open >= 0 && !strings.ContainsAny(s[open:i], "> \t\n")
}
