// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package discord

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrUnknownEvent is returned by DecodeEvent for dispatch names this client
// does not consume.
var ErrUnknownEvent = errors.New("unknown event")

// Event is an inbound protocol event. EventName returns the gateway dispatch
// name, e.g. "MESSAGE_CREATE".
type Event interface {
	EventName() string
}

// =============================================================================
// EVENT TYPES
// =============================================================================

// Ready is the first dispatch after identify.
type Ready struct {
	User            User      `json:"user"`
	SessionID       string    `json:"session_id"`
	Guilds          []Guild   `json:"guilds"`
	PrivateChannels []Channel `json:"private_channels"`
}

// MessageCreate carries a new message.
type MessageCreate struct {
	Message
}

// MessageUpdate is a partial message. Nil fields were not sent and leave the
// buffered copy untouched.
type MessageUpdate struct {
	ID              ID            `json:"id"`
	ChannelID       ID            `json:"channel_id"`
	GuildID         ID            `json:"guild_id,omitempty"`
	Content         *string       `json:"content,omitempty"`
	EditedTimestamp *time.Time    `json:"edited_timestamp,omitempty"`
	Mentions        *[]User       `json:"mentions,omitempty"`
	Attachments     *[]Attachment `json:"attachments,omitempty"`
	Embeds          *[]Embed      `json:"embeds,omitempty"`
	Pinned          *bool         `json:"pinned,omitempty"`
}

// Apply copies the fields present in the update onto m.
func (u *MessageUpdate) Apply(m *Message) {
	if u.Content != nil {
		m.Content = *u.Content
	}
	if u.EditedTimestamp != nil {
		ts := *u.EditedTimestamp
		m.EditedTimestamp = &ts
	}
	if u.Mentions != nil {
		m.Mentions = append([]User(nil), (*u.Mentions)...)
	}
	if u.Attachments != nil {
		m.Attachments = append([]Attachment(nil), (*u.Attachments)...)
	}
	if u.Embeds != nil {
		m.Embeds = append([]Embed(nil), (*u.Embeds)...)
	}
	if u.Pinned != nil {
		m.Pinned = *u.Pinned
	}
}

// MessageDelete removes one message.
type MessageDelete struct {
	ID        ID `json:"id"`
	ChannelID ID `json:"channel_id"`
	GuildID   ID `json:"guild_id,omitempty"`
}

// MessageDeleteBulk removes several messages of one channel.
type MessageDeleteBulk struct {
	IDs       []ID `json:"ids"`
	ChannelID ID   `json:"channel_id"`
	GuildID   ID   `json:"guild_id,omitempty"`
}

// ReactionAdd is one user adding one emoji.
type ReactionAdd struct {
	UserID    ID            `json:"user_id"`
	ChannelID ID            `json:"channel_id"`
	MessageID ID            `json:"message_id"`
	GuildID   ID            `json:"guild_id,omitempty"`
	Emoji     ReactionEmoji `json:"emoji"`
}

// ReactionRemove is one user removing one emoji.
type ReactionRemove struct {
	UserID    ID            `json:"user_id"`
	ChannelID ID            `json:"channel_id"`
	MessageID ID            `json:"message_id"`
	GuildID   ID            `json:"guild_id,omitempty"`
	Emoji     ReactionEmoji `json:"emoji"`
}

// TypingStart is sent when a user starts typing. Timestamp is in unix seconds.
type TypingStart struct {
	ChannelID ID      `json:"channel_id"`
	GuildID   ID      `json:"guild_id,omitempty"`
	UserID    ID      `json:"user_id"`
	Timestamp int64   `json:"timestamp"`
	Member    *Member `json:"member,omitempty"`
}

// MemberChunk answers a request-guild-members command. The nonce echoes the
// one given in the request.
type MemberChunk struct {
	GuildID  ID       `json:"guild_id"`
	Members  []Member `json:"members"`
	NotFound []ID     `json:"not_found,omitempty"`
	Nonce    string   `json:"nonce,omitempty"`
}

// ChannelUpdate carries the new state of a channel.
type ChannelUpdate struct {
	Channel
}

// MemberListOp is one operation of a lazy member list update.
type MemberListOp struct {
	Op    string `json:"op"`
	Index int    `json:"index,omitempty"`
	Range []int  `json:"range,omitempty"`
}

// MemberListUpdate is a lazy guild member list delta.
type MemberListUpdate struct {
	GuildID     ID             `json:"guild_id"`
	ID          string         `json:"id"`
	MemberCount int            `json:"member_count"`
	OnlineCount int            `json:"online_count"`
	Ops         []MemberListOp `json:"ops"`
}

func (Ready) EventName() string             { return "READY" }
func (MessageCreate) EventName() string     { return "MESSAGE_CREATE" }
func (MessageUpdate) EventName() string     { return "MESSAGE_UPDATE" }
func (MessageDelete) EventName() string     { return "MESSAGE_DELETE" }
func (MessageDeleteBulk) EventName() string { return "MESSAGE_DELETE_BULK" }
func (ReactionAdd) EventName() string       { return "MESSAGE_REACTION_ADD" }
func (ReactionRemove) EventName() string    { return "MESSAGE_REACTION_REMOVE" }
func (TypingStart) EventName() string       { return "TYPING_START" }
func (MemberChunk) EventName() string       { return "GUILD_MEMBERS_CHUNK" }
func (ChannelUpdate) EventName() string     { return "CHANNEL_UPDATE" }
func (MemberListUpdate) EventName() string  { return "GUILD_MEMBER_LIST_UPDATE" }

// =============================================================================
// DECODING
// =============================================================================

var decoders = map[string]func() Event{
	"READY":                    func() Event { return &Ready{} },
	"MESSAGE_CREATE":           func() Event { return &MessageCreate{} },
	"MESSAGE_UPDATE":           func() Event { return &MessageUpdate{} },
	"MESSAGE_DELETE":           func() Event { return &MessageDelete{} },
	"MESSAGE_DELETE_BULK":      func() Event { return &MessageDeleteBulk{} },
	"MESSAGE_REACTION_ADD":     func() Event { return &ReactionAdd{} },
	"MESSAGE_REACTION_REMOVE":  func() Event { return &ReactionRemove{} },
	"TYPING_START":             func() Event { return &TypingStart{} },
	"GUILD_MEMBERS_CHUNK":      func() Event { return &MemberChunk{} },
	"CHANNEL_UPDATE":           func() Event { return &ChannelUpdate{} },
	"GUILD_MEMBER_LIST_UPDATE": func() Event { return &MemberListUpdate{} },
}

// DecodeEvent decodes the payload of a dispatch frame. The returned event is
// always a pointer to one of the event types above.
func DecodeEvent(name string, data json.RawMessage) (Event, error) {
	mk, ok := decoders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, name)
	}
	ev := mk()
	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return ev, nil
}
