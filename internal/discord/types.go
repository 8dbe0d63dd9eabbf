// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package discord

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// USERS AND MEMBERS
// =============================================================================

// User is a global account.
type User struct {
	ID            ID     `json:"id"`
	Username      string `json:"username"`
	GlobalName    string `json:"global_name,omitempty"`
	Discriminator string `json:"discriminator,omitempty"`
	Bot           bool   `json:"bot,omitempty"`
}

// Tag returns "name#1234", or just the name for accounts without a
// discriminator.
func (u User) Tag() string {
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}
	return u.Username + "#" + u.Discriminator
}

// Member is a user's membership of one guild.
type Member struct {
	GuildID ID     `json:"guild_id,omitempty"`
	User    *User  `json:"user,omitempty"`
	Nick    string `json:"nick,omitempty"`
	Roles   []ID   `json:"roles,omitempty"`
}

// UserID returns the id of the member's user, or zero if it was not sent.
func (m Member) UserID() ID {
	if m.User == nil {
		return 0
	}
	return m.User.ID
}

// DisplayName is the guild nickname, falling back to the username.
func (m Member) DisplayName() string {
	if m.Nick != "" {
		return m.Nick
	}
	if m.User != nil {
		return m.User.Username
	}
	return ""
}

// Role is a guild role. Color is a 24-bit RGB value where zero means
// "no color".
type Role struct {
	ID       ID     `json:"id"`
	GuildID  ID     `json:"guild_id,omitempty"`
	Name     string `json:"name"`
	Color    int    `json:"color"`
	Position int    `json:"position"`
}

// Emoji is a custom guild emoji.
type Emoji struct {
	ID       ID     `json:"id"`
	GuildID  ID     `json:"guild_id,omitempty"`
	Name     string `json:"name"`
	Animated bool   `json:"animated,omitempty"`
}

// =============================================================================
// CHANNELS AND GUILDS
// =============================================================================

// ChannelType mirrors the numeric channel kinds of the API.
type ChannelType int

const (
	ChannelGuildText ChannelType = 0
	ChannelDM        ChannelType = 1
	ChannelGroupDM   ChannelType = 3
)

// Channel is a guild text channel or a private channel.
type Channel struct {
	ID         ID          `json:"id"`
	GuildID    ID          `json:"guild_id,omitempty"`
	Kind       ChannelType `json:"type"`
	Name       string      `json:"name,omitempty"`
	Topic      string      `json:"topic,omitempty"`
	Recipients []User      `json:"recipients,omitempty"`
}

// DisplayName returns the channel name, or the recipients for private
// channels without one.
func (c Channel) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	names := make([]string, 0, len(c.Recipients))
	for _, r := range c.Recipients {
		names = append(names, r.Username)
	}
	return strings.Join(names, ", ")
}

// Guild is the payload delivered in READY and GUILD_CREATE.
type Guild struct {
	ID       ID        `json:"id"`
	Name     string    `json:"name"`
	Channels []Channel `json:"channels,omitempty"`
	Roles    []Role    `json:"roles,omitempty"`
	Emojis   []Emoji   `json:"emojis,omitempty"`
	Members  []Member  `json:"members,omitempty"`
}

// =============================================================================
// MESSAGES
// =============================================================================

// MessageKind is the numeric message type of the API.
type MessageKind int

const (
	KindDefault                        MessageKind = 0
	KindRecipientAdd                   MessageKind = 1
	KindRecipientRemove                MessageKind = 2
	KindCall                           MessageKind = 3
	KindChannelNameChange              MessageKind = 4
	KindChannelIconChange              MessageKind = 5
	KindChannelMessagePinned           MessageKind = 6
	KindGuildMemberJoin                MessageKind = 7
	KindUserPremiumGuildSubscription   MessageKind = 8
	KindUserPremiumGuildTier1          MessageKind = 9
	KindUserPremiumGuildTier2          MessageKind = 10
	KindUserPremiumGuildTier3          MessageKind = 11
	KindChannelFollowAdd               MessageKind = 12
	KindGuildDiscoveryDisqualified     MessageKind = 14
	KindGuildDiscoveryRequalified      MessageKind = 15
	KindGuildDiscoveryGraceInitialWarn MessageKind = 16
	KindGuildDiscoveryGraceFinalWarn   MessageKind = 17
	KindThreadCreated                  MessageKind = 18
	KindReply                          MessageKind = 19
	KindChatInputCommand               MessageKind = 20
	KindThreadStarterMessage           MessageKind = 21
	KindGuildInviteReminder            MessageKind = 22
	KindContextMenuCommand             MessageKind = 23
)

// Conversational reports whether messages of this kind carry user content
// rather than a system event.
func (k MessageKind) Conversational() bool {
	switch k {
	case KindDefault, KindReply, KindChatInputCommand:
		return true
	}
	return false
}

// String returns a short name for logs.
func (k MessageKind) String() string {
	return fmt.Sprintf("type(%d)", int(k))
}

// Attachment is an uploaded file.
type Attachment struct {
	ID       ID     `json:"id"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
	ProxyURL string `json:"proxy_url"`
}

// EmbedProvider names the site an embed came from.
type EmbedProvider struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
}

// EmbedAuthor is the author block of an embed.
type EmbedAuthor struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// EmbedField is one name/value row.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// EmbedFooter is the footer block of an embed.
type EmbedFooter struct {
	Text string `json:"text"`
}

// Embed is rich content attached to a message.
type Embed struct {
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	URL         string         `json:"url,omitempty"`
	Provider    *EmbedProvider `json:"provider,omitempty"`
	Author      *EmbedAuthor   `json:"author,omitempty"`
	Fields      []EmbedField   `json:"fields,omitempty"`
	Footer      *EmbedFooter   `json:"footer,omitempty"`
}

// ReactionEmoji identifies the emoji of a reaction. Custom emoji carry an id,
// unicode emoji only a name.
type ReactionEmoji struct {
	ID   ID     `json:"id,omitempty"`
	Name string `json:"name"`
}

// Custom reports whether the emoji is a guild emoji.
func (e ReactionEmoji) Custom() bool {
	return !e.ID.IsZero()
}

// Same reports whether two reaction emoji are the same emoji.
func (e ReactionEmoji) Same(o ReactionEmoji) bool {
	if e.Custom() || o.Custom() {
		return e.ID == o.ID
	}
	return e.Name == o.Name
}

// Reaction is the aggregated count of one emoji on a message.
type Reaction struct {
	Emoji ReactionEmoji `json:"emoji"`
	Count int           `json:"count"`
	Me    bool          `json:"me,omitempty"`
}

// MessageReference points at the message a reply answers.
type MessageReference struct {
	MessageID ID `json:"message_id,omitempty"`
	ChannelID ID `json:"channel_id,omitempty"`
	GuildID   ID `json:"guild_id,omitempty"`
}

// Message is a message as delivered by MESSAGE_CREATE or the REST API.
type Message struct {
	ID                ID                `json:"id"`
	ChannelID         ID                `json:"channel_id"`
	GuildID           ID                `json:"guild_id,omitempty"`
	Author            User              `json:"author"`
	Member            *Member           `json:"member,omitempty"`
	Kind              MessageKind       `json:"type"`
	Content           string            `json:"content"`
	Timestamp         time.Time         `json:"timestamp"`
	EditedTimestamp   *time.Time        `json:"edited_timestamp,omitempty"`
	Mentions          []User            `json:"mentions,omitempty"`
	Attachments       []Attachment      `json:"attachments,omitempty"`
	Embeds            []Embed           `json:"embeds,omitempty"`
	Reactions         []Reaction        `json:"reactions,omitempty"`
	Pinned            bool              `json:"pinned,omitempty"`
	Nonce             Nonce             `json:"nonce,omitempty"`
	Reference         *MessageReference `json:"message_reference,omitempty"`
	ReferencedMessage *Message          `json:"referenced_message,omitempty"`
}

// Edited reports whether the message carries an edit marker.
func (m *Message) Edited() bool {
	return m.EditedTimestamp != nil
}

// MentionsUser reports whether the user id is among the message's mentions.
func (m *Message) MentionsUser(id ID) bool {
	for _, u := range m.Mentions {
		if u.ID == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the slices a patch may mutate.
func (m *Message) Clone() *Message {
	c := *m
	c.Mentions = append([]User(nil), m.Mentions...)
	c.Attachments = append([]Attachment(nil), m.Attachments...)
	c.Embeds = append([]Embed(nil), m.Embeds...)
	c.Reactions = append([]Reaction(nil), m.Reactions...)
	if m.ReferencedMessage != nil {
		c.ReferencedMessage = m.ReferencedMessage.Clone()
	}
	return &c
}

// AddReaction records one more use of the emoji. me marks the local user's
// own reaction.
func (m *Message) AddReaction(emoji ReactionEmoji, me bool) {
	for i := range m.Reactions {
		if m.Reactions[i].Emoji.Same(emoji) {
			m.Reactions[i].Count++
			if me {
				m.Reactions[i].Me = true
			}
			return
		}
	}
	m.Reactions = append(m.Reactions, Reaction{Emoji: emoji, Count: 1, Me: me})
}

// RemoveReaction undoes one use of the emoji, dropping it at zero.
func (m *Message) RemoveReaction(emoji ReactionEmoji, me bool) {
	for i := range m.Reactions {
		if !m.Reactions[i].Emoji.Same(emoji) {
			continue
		}
		m.Reactions[i].Count--
		if me {
			m.Reactions[i].Me = false
		}
		if m.Reactions[i].Count <= 0 {
			m.Reactions = append(m.Reactions[:i], m.Reactions[i+1:]...)
		}
		return
	}
}
