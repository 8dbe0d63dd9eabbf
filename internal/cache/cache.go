// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cache holds the snapshot of remote entities the renderer resolves
// mentions against.
package cache

import (
	"sort"
	"sync"

	"github.com/ktemkin/weechat-discord/internal/discord"
)

// =============================================================================
// INTERFACES
// =============================================================================

// Reader is the lookup surface the message pipeline consumes. Lookups never
// block on the network; a miss returns ok == false.
type Reader interface {
	CurrentUser() (discord.User, bool)
	User(id discord.ID) (discord.User, bool)
	Member(guild, user discord.ID) (discord.Member, bool)
	Role(id discord.ID) (discord.Role, bool)
	Channel(id discord.ID) (discord.Channel, bool)
	Emoji(id discord.ID) (discord.Emoji, bool)
}

// Directory lists guild-scoped entities. It is used to turn typed names back
// into wire mentions when sending.
type Directory interface {
	GuildChannels(guild discord.ID) []discord.Channel
	GuildMembers(guild discord.ID) []discord.Member
	GuildRoles(guild discord.ID) []discord.Role
	GuildEmojis(guild discord.ID) []discord.Emoji
}

// =============================================================================
// IN-MEMORY CACHE
// =============================================================================

type memberKey struct {
	guild, user discord.ID
}

// Memory is a thread-safe in-memory entity cache. The gateway writes it from
// the network goroutine; the dispatcher reads it from the display goroutine.
type Memory struct {
	mu       sync.RWMutex
	current  *discord.User
	users    map[discord.ID]discord.User
	members  map[memberKey]discord.Member
	roles    map[discord.ID]discord.Role
	channels map[discord.ID]discord.Channel
	emojis   map[discord.ID]discord.Emoji
}

// NewMemory returns an empty cache.
func NewMemory() *Memory {
	return &Memory{
		users:    make(map[discord.ID]discord.User),
		members:  make(map[memberKey]discord.Member),
		roles:    make(map[discord.ID]discord.Role),
		channels: make(map[discord.ID]discord.Channel),
		emojis:   make(map[discord.ID]discord.Emoji),
	}
}

// CurrentUser returns the logged-in user once READY was seen.
func (c *Memory) CurrentUser() (discord.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return discord.User{}, false
	}
	return *c.current, true
}

func (c *Memory) User(id discord.ID) (discord.User, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	u, ok := c.users[id]
	return u, ok
}

func (c *Memory) Member(guild, user discord.ID) (discord.Member, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.members[memberKey{guild, user}]
	return m, ok
}

func (c *Memory) Role(id discord.ID) (discord.Role, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.roles[id]
	return r, ok
}

func (c *Memory) Channel(id discord.ID) (discord.Channel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ch, ok := c.channels[id]
	return ch, ok
}

func (c *Memory) Emoji(id discord.ID) (discord.Emoji, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.emojis[id]
	return e, ok
}

// =============================================================================
// DIRECTORY
// =============================================================================

// GuildChannels returns the guild's channels ordered by id.
func (c *Memory) GuildChannels(guild discord.ID) []discord.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []discord.Channel
	for _, ch := range c.channels {
		if ch.GuildID == guild {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GuildMembers returns the cached members of the guild ordered by user id.
func (c *Memory) GuildMembers(guild discord.ID) []discord.Member {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []discord.Member
	for k, m := range c.members {
		if k.guild == guild {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID() < out[j].UserID() })
	return out
}

// GuildRoles returns the guild's roles ordered by position.
func (c *Memory) GuildRoles(guild discord.ID) []discord.Role {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []discord.Role
	for _, r := range c.roles {
		if r.GuildID == guild {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// GuildEmojis returns the guild's custom emoji ordered by id.
func (c *Memory) GuildEmojis(guild discord.ID) []discord.Emoji {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []discord.Emoji
	for _, e := range c.emojis {
		if e.GuildID == guild {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// =============================================================================
// WRITES
// =============================================================================

// SetCurrentUser records the logged-in user.
func (c *Memory) SetCurrentUser(u discord.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = &u
	c.users[u.ID] = u
}

// PutUser stores or replaces a user.
func (c *Memory) PutUser(u discord.User) {
	if u.ID.IsZero() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[u.ID] = u
}

// PutMember stores a member of guild. Members without a user are ignored.
func (c *Memory) PutMember(guild discord.ID, m discord.Member) {
	if m.User == nil || m.User.ID.IsZero() {
		return
	}
	m.GuildID = guild
	c.mu.Lock()
	defer c.mu.Unlock()
	c.members[memberKey{guild, m.User.ID}] = m
	c.users[m.User.ID] = *m.User
}

// PutRole stores a role of guild.
func (c *Memory) PutRole(guild discord.ID, r discord.Role) {
	r.GuildID = guild
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roles[r.ID] = r
}

// PutChannel stores or replaces a channel.
func (c *Memory) PutChannel(ch discord.Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels[ch.ID] = ch
	for _, r := range ch.Recipients {
		c.users[r.ID] = r
	}
}

// PutEmoji stores a custom emoji of guild.
func (c *Memory) PutEmoji(guild discord.ID, e discord.Emoji) {
	e.GuildID = guild
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emojis[e.ID] = e
}

// PutGuild stores a guild and everything it carries.
func (c *Memory) PutGuild(g discord.Guild) {
	for _, ch := range g.Channels {
		ch.GuildID = g.ID
		c.PutChannel(ch)
	}
	for _, r := range g.Roles {
		c.PutRole(g.ID, r)
	}
	for _, e := range g.Emojis {
		c.PutEmoji(g.ID, e)
	}
	for _, m := range g.Members {
		c.PutMember(g.ID, m)
	}
}

// Apply folds the cache-relevant parts of an inbound event into the cache.
// The gateway calls it before the event is queued for the dispatcher, so the
// dispatcher always sees a cache at least as new as the event.
func (c *Memory) Apply(ev discord.Event) {
	switch e := ev.(type) {
	case *discord.Ready:
		c.SetCurrentUser(e.User)
		for _, g := range e.Guilds {
			c.PutGuild(g)
		}
		for _, ch := range e.PrivateChannels {
			c.PutChannel(ch)
		}
	case *discord.MessageCreate:
		c.PutUser(e.Author)
		if e.Member != nil && !e.GuildID.IsZero() {
			m := *e.Member
			author := e.Author
			m.User = &author
			c.PutMember(e.GuildID, m)
		}
		for _, u := range e.Mentions {
			c.PutUser(u)
		}
	case *discord.MemberChunk:
		for _, m := range e.Members {
			c.PutMember(e.GuildID, m)
		}
	case *discord.ChannelUpdate:
		c.PutChannel(e.Channel)
	case *discord.TypingStart:
		if e.Member != nil && !e.GuildID.IsZero() {
			c.PutMember(e.GuildID, *e.Member)
		}
	}
}
