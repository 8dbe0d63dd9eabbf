// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ktemkin/weechat-discord/internal/discord"
)

// =============================================================================
// CONVERSATION IDENTITY
// =============================================================================

// ConversationID names one buffer. Guild is zero for direct messages. Pins
// selects the pinned-messages view of the channel, which is stored apart from
// the channel itself.
type ConversationID struct {
	Guild   discord.ID
	Channel discord.ID
	Pins    bool
}

// IsPrivate reports whether the conversation is a direct message.
func (c ConversationID) IsPrivate() bool {
	return c.Guild.IsZero()
}

// String returns "guild/channel", with a "/pins" suffix for pin views.
func (c ConversationID) String() string {
	s := c.Guild.String() + "/" + c.Channel.String()
	if c.Pins {
		s += "/pins"
	}
	return s
}

// ParseConversationID parses the String form. A bare channel id, or one
// with an "@me/" prefix, names a direct message conversation.
func ParseConversationID(s string) (ConversationID, error) {
	var id ConversationID
	parts := strings.Split(strings.TrimSpace(s), "/")
	if n := len(parts); n > 1 && parts[n-1] == "pins" {
		id.Pins = true
		parts = parts[:n-1]
	}
	switch len(parts) {
	case 1:
	case 2:
		if parts[0] != "@me" {
			g, err := discord.ParseID(parts[0])
			if err != nil {
				return ConversationID{}, fmt.Errorf("conversation %q: guild: %w", s, err)
			}
			id.Guild = g
		}
		parts = parts[1:]
	default:
		return ConversationID{}, fmt.Errorf("conversation %q: want guild/channel", s)
	}
	ch, err := discord.ParseID(parts[0])
	if err != nil {
		return ConversationID{}, fmt.Errorf("conversation %q: channel: %w", s, err)
	}
	if ch.IsZero() {
		return ConversationID{}, fmt.Errorf("conversation %q: zero channel id", s)
	}
	id.Channel = ch
	return id, nil
}

// =============================================================================
// ITEM IDS
// =============================================================================

// IDKind tags which id space an ItemID value belongs to.
type IDKind uint8

const (
	IDRemote IDKind = iota + 1
	IDNonce
	IDEphemeral
)

// ItemID identifies an item within a conversation. Remote ids, send nonces
// and notification ids never collide because the kind is part of the key.
type ItemID struct {
	Kind  IDKind
	Value uint64
}

// RemoteID is the id of a message the server has confirmed.
func RemoteID(id discord.ID) ItemID { return ItemID{Kind: IDRemote, Value: uint64(id)} }

// NonceID is the id of a pending local echo.
func NonceID(nonce uint64) ItemID { return ItemID{Kind: IDNonce, Value: nonce} }

// EphemeralID is the id of a local notification.
func EphemeralID(n uint64) ItemID { return ItemID{Kind: IDEphemeral, Value: n} }

func (id ItemID) String() string {
	switch id.Kind {
	case IDRemote:
		return fmt.Sprintf("remote:%d", id.Value)
	case IDNonce:
		return fmt.Sprintf("nonce:%d", id.Value)
	case IDEphemeral:
		return fmt.Sprintf("ephemeral:%d", id.Value)
	}
	return fmt.Sprintf("invalid:%d", id.Value)
}

// =============================================================================
// ITEMS
// =============================================================================

// Item is one entry of a conversation: *Remote, *LocalEcho or *Notification.
// The set is closed; switch on the concrete type.
type Item interface {
	ItemID() ItemID
	item()
}

// Remote is a message received from the server.
type Remote struct {
	Message discord.Message
}

// LocalEcho is an outgoing message shown before the server confirms it.
type LocalEcho struct {
	Nonce     uint64
	Content   string
	Guild     discord.ID
	Channel   discord.ID
	CreatedAt time.Time
}

// NotificationKind selects how a notification is announced.
type NotificationKind uint8

const (
	NoticeMessage NotificationKind = iota
	NoticePrivate
	NoticeHighlight
	// NoticeError reports a failed outbound operation.
	NoticeError
)

// Notification is a local-only line. Notifications are cleared before the
// next message is added and on every full redraw.
type Notification struct {
	ID   uint64
	Kind NotificationKind
	Text string
}

// NewNotification returns a notification with a fresh ephemeral id.
func NewNotification(kind NotificationKind, text string) *Notification {
	return &Notification{ID: nextEphemeral.Add(1), Kind: kind, Text: text}
}

func (r *Remote) ItemID() ItemID       { return RemoteID(r.Message.ID) }
func (e *LocalEcho) ItemID() ItemID    { return NonceID(e.Nonce) }
func (n *Notification) ItemID() ItemID { return EphemeralID(n.ID) }

func (*Remote) item()       {}
func (*LocalEcho) item()    {}
func (*Notification) item() {}

// =============================================================================
// NONCES
// =============================================================================

var (
	nextEphemeral atomic.Uint64
	nonceSeq      atomic.Uint64
)

// NewNonce returns a send nonce shaped like a snowflake for the current time.
// The low 22 bits hold a process-wide sequence, so nonces are unique within
// a millisecond for up to 4M sends.
func NewNonce() uint64 {
	return NonceAt(time.Now())
}

// NonceAt is NewNonce for a given time.
func NonceAt(t time.Time) uint64 {
	ms := uint64(t.UnixMilli() - discord.Epoch)
	return ms<<22 | (nonceSeq.Add(1) & (1<<22 - 1))
}
