// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"fmt"
	"strings"

	"github.com/ktemkin/weechat-discord/internal/discord"
	"github.com/ktemkin/weechat-discord/internal/text"
)

// joinTemplates are the welcome lines for members joining. {a} is the
// author, {content} the message content; both are shown bold.
var joinTemplates = [...]string{
	"{a} joined the party.",
	"{a} is here.",
	"Welcome, {a}. We hope you brought pizza.",
	"A wild {a} appeared.",
	"{a} just landed.",
	"{a} just slid into the server.",
	"{a} just showed up!",
	"Welcome {a}. Say hi!",
	"{a} hopped into the server.",
	"Everyone welcome {a}!",
	"Glad you're here, {a}.",
	"Good to see you, {a}.",
	"Yay you made it, {a}!",
}

type eventTemplate struct {
	prefix   string
	template string
}

var eventTemplates = map[discord.MessageKind]eventTemplate{
	discord.KindRecipientRemove:                {PrefixQuit, "{a} left the group."},
	discord.KindChannelNameChange:              {PrefixNetwork, "{a} changed the channel name to {content}."},
	discord.KindCall:                           {PrefixNetwork, "{a} started a call."},
	discord.KindChannelIconChange:              {PrefixNetwork, "{a} changed the channel icon."},
	discord.KindChannelMessagePinned:           {PrefixNetwork, "{a} pinned a message to this channel"},
	discord.KindUserPremiumGuildSubscription:   {PrefixNetwork, "{a} boosted this channel with nitro"},
	discord.KindUserPremiumGuildTier1:          {PrefixNetwork, "This channel has achieved nitro level 1"},
	discord.KindUserPremiumGuildTier2:          {PrefixNetwork, "This channel has achieved nitro level 2"},
	discord.KindUserPremiumGuildTier3:          {PrefixNetwork, "This channel has achieved nitro level 3"},
	discord.KindGuildDiscoveryDisqualified:     {PrefixNetwork, "This server has been disqualified from Discovery"},
	discord.KindGuildDiscoveryRequalified:      {PrefixNetwork, "This server has been requalified for Discovery"},
	discord.KindChannelFollowAdd:               {PrefixNetwork, "This channel is now following {content}"},
	discord.KindGuildDiscoveryGraceInitialWarn: {PrefixNetwork, "This is the server discovery initial grace period warning"},
	discord.KindGuildDiscoveryGraceFinalWarn:   {PrefixNetwork, "This is the server discovery final grace period warning"},
	discord.KindGuildInviteReminder:            {PrefixNetwork, "Invite reminder"},
	discord.KindThreadCreated:                  {PrefixNetwork, "{a} started a thread: {content}"},
	discord.KindThreadStarterMessage:           {PrefixNetwork, "[Thread starter - Threads are not implemented]"},
	discord.KindContextMenuCommand:             {PrefixNetwork, "[Context Menu Command - not yet implemented]"},
}

// eventLine renders a system message such as a join or a pin notice.
func (r *Renderer) eventLine(msg *discord.Message, author text.Styled) (string, text.Styled) {
	switch msg.Kind {
	case discord.KindRecipientAdd, discord.KindGuildMemberJoin:
		ms := uint64(msg.Timestamp.Unix()) * 1000
		tmpl := joinTemplates[ms%uint64(len(joinTemplates))]
		return PrefixJoin, expand(tmpl, author, msg.Content)
	}
	if t, ok := eventTemplates[msg.Kind]; ok {
		return t.prefix, expand(t.template, author, msg.Content)
	}
	return PrefixNetwork, text.Plain(fmt.Sprintf("[unsupported message type %d]", int(msg.Kind)))
}

// expand substitutes {a} and {content} in tmpl.
func expand(tmpl string, author text.Styled, content string) text.Styled {
	var out text.Styled
	for tmpl != "" {
		i := strings.IndexByte(tmpl, '{')
		if i < 0 {
			out.WriteString(tmpl)
			break
		}
		out.WriteString(tmpl[:i])
		rest := tmpl[i:]
		switch {
		case strings.HasPrefix(rest, "{a}"):
			out.Wrap(text.Bold, func(w *text.Styled) { w.Append(author) })
			tmpl = rest[len("{a}"):]
		case strings.HasPrefix(rest, "{content}"):
			out.Wrap(text.Bold, func(w *text.Styled) { w.WriteString(content) })
			tmpl = rest[len("{content}"):]
		default:
			out.WriteString("{")
			tmpl = rest[1:]
		}
	}
	return out
}
