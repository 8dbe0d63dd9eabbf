// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package markup turns chat markdown into a tree of typed nodes.
//
// The dialect is the service's own: `__` is underline, `||` marks spoilers,
// `> ` quotes one line, `>>> ` quotes the rest of the message, and angle
// bracket tokens carry mentions, custom emoji and timestamps. Parse is a pure
// function and never fails; anything it does not recognise stays text.
package markup

import "github.com/ktemkin/weechat-discord/internal/discord"

// Node is one element of the tree. The set of node types is closed.
type Node interface {
	node()
}

// Text is literal text.
type Text struct{ Value string }

// Bold is **children**.
type Bold struct{ Children []Node }

// Italic is *children* or _children_.
type Italic struct{ Children []Node }

// Underline is __children__.
type Underline struct{ Children []Node }

// Strikethrough is ~~children~~.
type Strikethrough struct{ Children []Node }

// Spoiler is ||children||.
type Spoiler struct{ Children []Node }

// InlineCode is `value`.
type InlineCode struct{ Value string }

// CodeBlock is a fenced block with an optional language.
type CodeBlock struct {
	Language string
	Value    string
}

// BlockQuote is ">>> " followed by the rest of the message.
type BlockQuote struct{ Children []Node }

// Quote is a single "> " line.
type Quote struct{ Children []Node }

// UserMention is <@id> or <@!id>.
type UserMention struct{ ID discord.ID }

// ChannelMention is <#id>.
type ChannelMention struct{ ID discord.ID }

// RoleMention is <@&id>.
type RoleMention struct{ ID discord.ID }

// Emoji is <:name:id> or <a:name:id>.
type Emoji struct {
	Name     string
	ID       discord.ID
	Animated bool
}

// Timestamp is <t:unix> or <t:unix:style>. Style is zero when absent.
type Timestamp struct {
	Unix  int64
	Style rune
}

func (Text) node()           {}
func (Bold) node()           {}
func (Italic) node()         {}
func (Underline) node()      {}
func (Strikethrough) node()  {}
func (Spoiler) node()        {}
func (InlineCode) node()     {}
func (CodeBlock) node()      {}
func (BlockQuote) node()     {}
func (Quote) node()          {}
func (UserMention) node()    {}
func (ChannelMention) node() {}
func (RoleMention) node()    {}
func (Emoji) node()          {}
func (Timestamp) node()      {}
