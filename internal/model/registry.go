// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "sort"

// Registry maps conversation ids to their stores. Asynchronous completions
// carry a ConversationID, never a *Conversation, and look it up again here;
// a closed conversation is simply absent.
//
// Like Conversation, a Registry belongs to the display goroutine.
type Registry struct {
	capacity int
	convs    map[ConversationID]*Conversation
}

// NewRegistry creates a registry whose conversations hold capacity items.
func NewRegistry(capacity int) *Registry {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Registry{
		capacity: capacity,
		convs:    make(map[ConversationID]*Conversation),
	}
}

// Open returns the conversation for id, creating it when needed. The bool
// reports whether it was created.
func (r *Registry) Open(id ConversationID) (*Conversation, bool) {
	if c, ok := r.convs[id]; ok {
		return c, false
	}
	c := NewConversation(id, r.capacity)
	r.convs[id] = c
	return c, true
}

// Get returns the live conversation for id.
func (r *Registry) Get(id ConversationID) (*Conversation, bool) {
	c, ok := r.convs[id]
	return c, ok
}

// Close drops the conversation. It reports whether it was open.
func (r *Registry) Close(id ConversationID) bool {
	if _, ok := r.convs[id]; !ok {
		return false
	}
	delete(r.convs, id)
	return true
}

// Len returns the number of open conversations.
func (r *Registry) Len() int { return len(r.convs) }

// All returns the open conversations ordered by guild, channel, then pins.
func (r *Registry) All() []*Conversation {
	out := make([]*Conversation, 0, len(r.convs))
	for _, c := range r.convs {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].id, out[j].id
		if a.Guild != b.Guild {
			return a.Guild < b.Guild
		}
		if a.Channel != b.Channel {
			return a.Channel < b.Channel
		}
		return !a.Pins && b.Pins
	})
	return out
}

// SetCapacity applies a new capacity to every conversation, current and
// future, and returns the number of items evicted.
func (r *Registry) SetCapacity(n int) int {
	if n < 1 {
		n = DefaultCapacity
	}
	r.capacity = n
	evicted := 0
	for _, c := range r.convs {
		evicted += len(c.SetCapacity(n))
	}
	return evicted
}
