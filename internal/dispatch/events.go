// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dispatch

import (
	"fmt"
	"runtime/debug"

	"github.com/ktemkin/weechat-discord/internal/discord"
	"github.com/ktemkin/weechat-discord/internal/metrics"
	"github.com/ktemkin/weechat-discord/internal/model"
	"github.com/ktemkin/weechat-discord/internal/typing"
)

// =============================================================================
// EVENT HANDLING
// =============================================================================

// Handle applies one inbound event. A panic in a handler is recovered and
// logged so one bad event cannot stop the loop.
func (d *Dispatcher) Handle(ev discord.Event) {
	if ev == nil {
		d.log.Warn("dropping nil event")
		d.metrics.Dropped("nil", metrics.ReasonMalformed)
		return
	}
	kind := ev.EventName()
	defer func() {
		if p := recover(); p != nil {
			d.log.Error("event handler panicked", "event", kind, "panic", p, "stack", string(debug.Stack()))
			d.metrics.Dropped(kind, metrics.ReasonPanic)
		}
	}()
	d.metrics.Event(kind)

	switch e := ev.(type) {
	case *discord.Ready:
		d.onReady(e)
	case *discord.MessageCreate:
		d.onMessageCreate(e)
	case *discord.MessageUpdate:
		d.onMessageUpdate(e)
	case *discord.MessageDelete:
		d.onMessageDelete(e)
	case *discord.MessageDeleteBulk:
		d.onMessageDeleteBulk(e)
	case *discord.ReactionAdd:
		d.onReaction(kind, e.GuildID, e.ChannelID, e.MessageID, e.UserID, func(m *discord.Message, me bool) {
			m.AddReaction(e.Emoji, me)
		})
	case *discord.ReactionRemove:
		d.onReaction(kind, e.GuildID, e.ChannelID, e.MessageID, e.UserID, func(m *discord.Message, me bool) {
			m.RemoveReaction(e.Emoji, me)
		})
	case *discord.TypingStart:
		d.onTypingStart(e)
	case *discord.MemberChunk:
		d.onMemberChunk(e)
	case *discord.ChannelUpdate:
		d.onChannelUpdate(e)
	case *discord.MemberListUpdate:
		d.sink.MemberList(e)
	default:
		d.log.Debug("ignoring event", "event", kind)
		d.metrics.Dropped(kind, metrics.ReasonUnhandled)
	}
}

func (d *Dispatcher) dropMalformed(kind, why string) {
	d.log.Warn("dropping malformed event", "event", kind, "reason", why)
	d.metrics.Dropped(kind, metrics.ReasonMalformed)
}

func (d *Dispatcher) dropUnknown(kind string, guild, channel discord.ID) {
	d.log.Debug("dropping event for unknown conversation", "event", kind,
		"conversation", model.ConversationID{Guild: guild, Channel: channel})
	d.metrics.Dropped(kind, metrics.ReasonUnknownConversation)
}

// =============================================================================
// SESSION
// =============================================================================

func (d *Dispatcher) onReady(e *discord.Ready) {
	d.log.Info("session ready", "user", e.User.Tag(), "guilds", len(e.Guilds), "session", e.SessionID)
	d.sink.Status(fmt.Sprintf("Connected as %s", e.User.Tag()))
	for _, id := range d.cfg.Autojoin {
		d.open(id)
	}
}

// =============================================================================
// MESSAGES
// =============================================================================

func (d *Dispatcher) onMessageCreate(e *discord.MessageCreate) {
	const kind = "MESSAGE_CREATE"
	msg := e.Message
	if msg.ID.IsZero() || msg.ChannelID.IsZero() {
		d.dropMalformed(kind, "missing message or channel id")
		return
	}
	id := model.ConversationID{Guild: msg.GuildID, Channel: msg.ChannelID}
	conv, ok := d.registry.Get(id)
	if !ok {
		d.dropUnknown(kind, msg.GuildID, msg.ChannelID)
		return
	}

	if d.typing.Remove(id, msg.Author.ID) {
		d.pushTyping(id)
	}

	reconciled := false
	if nonce, ok := msg.Nonce.Uint64(); ok {
		reconciled = conv.ReconcileEcho(nonce)
	}
	item := &model.Remote{Message: msg}
	cleared := d.append(conv, item)

	var tags []string
	if reconciled || cleared {
		d.redraw(conv, true)
		tags = d.renderer.Render(item, nil).Tags
	} else {
		tags = d.print(conv, item).Tags
	}
	d.sink.Notify(id, tags)
}

func (d *Dispatcher) onMessageUpdate(e *discord.MessageUpdate) {
	const kind = "MESSAGE_UPDATE"
	if e.ID.IsZero() || e.ChannelID.IsZero() {
		d.dropMalformed(kind, "missing message or channel id")
		return
	}
	convs := d.targets(e.GuildID, e.ChannelID)
	if len(convs) == 0 {
		d.dropUnknown(kind, e.GuildID, e.ChannelID)
		return
	}
	for _, conv := range convs {
		hit := conv.Patch(model.RemoteID(e.ID), func(it model.Item) {
			if r, ok := it.(*model.Remote); ok {
				e.Apply(&r.Message)
			}
		})
		if !hit {
			d.log.Debug("update for message not in store", "conversation", conv.ID(), "id", e.ID)
			continue
		}
		d.redraw(conv, true)
	}
}

func (d *Dispatcher) onMessageDelete(e *discord.MessageDelete) {
	const kind = "MESSAGE_DELETE"
	if e.ID.IsZero() || e.ChannelID.IsZero() {
		d.dropMalformed(kind, "missing message or channel id")
		return
	}
	d.removeMessages(kind, e.GuildID, e.ChannelID, []discord.ID{e.ID})
}

func (d *Dispatcher) onMessageDeleteBulk(e *discord.MessageDeleteBulk) {
	const kind = "MESSAGE_DELETE_BULK"
	if e.ChannelID.IsZero() {
		d.dropMalformed(kind, "missing channel id")
		return
	}
	d.removeMessages(kind, e.GuildID, e.ChannelID, e.IDs)
}

// removeMessages removes each id one at a time and redraws every
// conversation that changed.
func (d *Dispatcher) removeMessages(kind string, guild, channel discord.ID, ids []discord.ID) {
	convs := d.targets(guild, channel)
	if len(convs) == 0 {
		d.dropUnknown(kind, guild, channel)
		return
	}
	for _, conv := range convs {
		removed := 0
		for _, mid := range ids {
			if conv.Remove(model.RemoteID(mid)) {
				removed++
			} else {
				d.log.Debug("delete for message not in store", "conversation", conv.ID(), "id", mid)
			}
		}
		if removed > 0 {
			d.redraw(conv, false)
		}
	}
}

func (d *Dispatcher) onReaction(kind string, guild, channel, message, user discord.ID, apply func(*discord.Message, bool)) {
	if message.IsZero() || channel.IsZero() {
		d.dropMalformed(kind, "missing message or channel id")
		return
	}
	convs := d.targets(guild, channel)
	if len(convs) == 0 {
		d.dropUnknown(kind, guild, channel)
		return
	}
	me := false
	if cur, ok := d.cache.CurrentUser(); ok {
		me = cur.ID == user
	}
	for _, conv := range convs {
		hit := conv.Patch(model.RemoteID(message), func(it model.Item) {
			if r, ok := it.(*model.Remote); ok {
				apply(&r.Message, me)
			}
		})
		if !hit {
			d.log.Debug("reaction for message not in store", "conversation", conv.ID(), "id", message)
			continue
		}
		d.redraw(conv, false)
	}
}

// =============================================================================
// TYPING, MEMBERS, CHANNELS
// =============================================================================

func (d *Dispatcher) onTypingStart(e *discord.TypingStart) {
	const kind = "TYPING_START"
	if e.ChannelID.IsZero() || e.UserID.IsZero() {
		d.dropMalformed(kind, "missing channel or user id")
		return
	}
	if cur, ok := d.cache.CurrentUser(); ok && cur.ID == e.UserID {
		return
	}
	id := model.ConversationID{Guild: e.GuildID, Channel: e.ChannelID}
	if _, ok := d.registry.Get(id); !ok {
		d.dropUnknown(kind, e.GuildID, e.ChannelID)
		return
	}
	name, ok := d.typingName(e)
	if !ok {
		d.log.Debug("typing user not resolvable", "conversation", id, "user", e.UserID)
		return
	}
	d.typing.Add(typing.Entry{Conversation: id, UserID: e.UserID, Name: name, At: d.now()})
	d.pushTyping(id)
}

// typingName prefers the member sent with the event, then the cached
// member, then the cached user.
func (d *Dispatcher) typingName(e *discord.TypingStart) (string, bool) {
	if e.Member != nil {
		if name := e.Member.DisplayName(); name != "" {
			return name, true
		}
	}
	if !e.GuildID.IsZero() {
		if m, ok := d.cache.Member(e.GuildID, e.UserID); ok {
			if name := m.DisplayName(); name != "" {
				return name, true
			}
		}
	}
	if u, ok := d.cache.User(e.UserID); ok {
		return u.Username, true
	}
	return "", false
}

func (d *Dispatcher) onMemberChunk(e *discord.MemberChunk) {
	const kind = "GUILD_MEMBERS_CHUNK"
	channel, err := discord.ParseID(e.Nonce)
	if err != nil || channel.IsZero() {
		d.dropMalformed(kind, "nonce is not a channel id")
		return
	}
	answered := make([]discord.ID, 0, len(e.Members)+len(e.NotFound))
	for _, m := range e.Members {
		answered = append(answered, m.UserID())
	}
	answered = append(answered, e.NotFound...)
	d.releaseMembers(e.GuildID, answered)
	if len(e.NotFound) > 0 {
		d.log.Debug("members not found", "guild", e.GuildID, "count", len(e.NotFound))
		missing := d.notFound[e.GuildID]
		if missing == nil {
			missing = make(map[discord.ID]struct{})
			d.notFound[e.GuildID] = missing
		}
		for _, uid := range e.NotFound {
			missing[uid] = struct{}{}
		}
	}
	convs := d.targets(e.GuildID, channel)
	if len(convs) == 0 {
		d.dropUnknown(kind, e.GuildID, channel)
		return
	}
	for _, conv := range convs {
		d.redraw(conv, false)
	}
}

// onChannelUpdate announces the change and redraws the guild's open
// conversations, whose channel mentions may now read differently.
func (d *Dispatcher) onChannelUpdate(e *discord.ChannelUpdate) {
	const kind = "CHANNEL_UPDATE"
	if e.ID.IsZero() {
		d.dropMalformed(kind, "missing channel id")
		return
	}
	d.sink.Status(fmt.Sprintf("Channel %s updated", e.Channel.DisplayName()))
	for _, conv := range d.registry.All() {
		id := conv.ID()
		if id.Channel == e.ID || (!e.GuildID.IsZero() && id.Guild == e.GuildID) {
			d.redraw(conv, false)
		}
	}
}
