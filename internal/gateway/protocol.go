// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"encoding/json"

	"github.com/ktemkin/weechat-discord/internal/discord"
)

// Gateway opcodes.
const (
	OpDispatch            = 0
	OpHeartbeat           = 1
	OpIdentify            = 2
	OpReconnect           = 7
	OpRequestGuildMembers = 8
	OpInvalidSession      = 9
	OpHello               = 10
	OpHeartbeatAck        = 11
	OpGuildSubscriptions  = 14
)

// payload is one gateway frame.
type payload struct {
	Op int             `json:"op"`
	D  json.RawMessage `json:"d,omitempty"`
	S  *int64          `json:"s,omitempty"`
	T  string          `json:"t,omitempty"`
}

// outbound is a frame the client writes.
type outbound struct {
	Op int `json:"op"`
	D  any `json:"d"`
}

type hello struct {
	HeartbeatInterval int64 `json:"heartbeat_interval"`
}

type identifyProperties struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Device  string `json:"device"`
}

type identify struct {
	Token      string             `json:"token"`
	Properties identifyProperties `json:"properties"`
	Intents    int                `json:"intents,omitempty"`
	Compress   bool               `json:"compress"`
}

type requestGuildMembers struct {
	GuildID   discord.ID   `json:"guild_id"`
	UserIDs   []discord.ID `json:"user_ids"`
	Nonce     string       `json:"nonce,omitempty"`
	Presences bool         `json:"presences"`
}

// channelRanges maps subscribed channels to the member list ranges wanted.
type channelRanges map[discord.ID][][2]int

// guildSubscription is the op 14 payload. The first subscription of a guild
// also asks for typing, activity and thread events.
type guildSubscription struct {
	GuildID    discord.ID    `json:"guild_id"`
	Typing     bool          `json:"typing,omitempty"`
	Activities bool          `json:"activities,omitempty"`
	Threads    bool          `json:"threads,omitempty"`
	Channels   channelRanges `json:"channels"`
}
