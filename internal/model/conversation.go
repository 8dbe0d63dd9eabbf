// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// DefaultCapacity is the number of items a conversation keeps when no
// capacity is configured. Older items are evicted first.
const DefaultCapacity = 4096

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is the bounded, insertion-ordered item history of one buffer.
//
// A Conversation is owned by the display goroutine and is not safe for
// concurrent use.
type Conversation struct {
	id       ConversationID
	capacity int
	items    []Item
}

// NewConversation creates an empty conversation. A capacity below one means
// DefaultCapacity.
func NewConversation(id ConversationID, capacity int) *Conversation {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Conversation{
		id:       id,
		capacity: capacity,
		items:    make([]Item, 0),
	}
}

// ID returns the conversation's identity.
func (c *Conversation) ID() ConversationID { return c.id }

// Capacity returns the maximum number of items kept.
func (c *Conversation) Capacity() int { return c.capacity }

// Len returns the number of items.
func (c *Conversation) Len() int { return len(c.items) }

// Items returns a copy of the items, oldest first. The items themselves are
// shared; mutate them only through Patch.
func (c *Conversation) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// =============================================================================
// MUTATION
// =============================================================================

// Append adds item at the end and returns whatever was evicted from the
// front to stay within capacity.
func (c *Conversation) Append(item Item) []Item {
	c.items = append(c.items, item)
	return c.pruneOldMessages()
}

// SetCapacity changes the capacity and returns the items evicted by a
// shrink. Values below one mean DefaultCapacity.
func (c *Conversation) SetCapacity(n int) []Item {
	if n < 1 {
		n = DefaultCapacity
	}
	c.capacity = n
	return c.pruneOldMessages()
}

// ReconcileEcho removes the pending local echo carrying nonce. It reports
// false when no such echo exists, for instance because it was already
// evicted.
func (c *Conversation) ReconcileEcho(nonce uint64) bool {
	return c.Remove(NonceID(nonce))
}

// Patch applies fn to the item with the given id in place. A missing id is a
// no-op and reports false.
func (c *Conversation) Patch(id ItemID, fn func(Item)) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	fn(c.items[i])
	return true
}

// Remove deletes the item with the given id. A missing id is a no-op and
// reports false.
func (c *Conversation) Remove(id ItemID) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	return true
}

// Get returns the item with the given id. It is a read accessor for
// inspecting a store; mutations go through Patch so the store stays the
// owner of its items.
func (c *Conversation) Get(id ItemID) (Item, bool) {
	i := c.index(id)
	if i < 0 {
		return nil, false
	}
	return c.items[i], true
}

// ClearNotifications removes every notification and returns how many were
// removed.
func (c *Conversation) ClearNotifications() int {
	kept := c.items[:0]
	removed := 0
	for _, it := range c.items {
		if _, ok := it.(*Notification); ok {
			removed++
			continue
		}
		kept = append(kept, it)
	}
	for i := len(kept); i < len(c.items); i++ {
		c.items[i] = nil
	}
	c.items = kept
	return removed
}

// index scans from the back, where patches and confirmations usually land.
func (c *Conversation) index(id ItemID) int {
	for i := len(c.items) - 1; i >= 0; i-- {
		if c.items[i].ItemID() == id {
			return i
		}
	}
	return -1
}

// pruneOldMessages evicts from the front until the capacity holds.
func (c *Conversation) pruneOldMessages() []Item {
	excess := len(c.items) - c.capacity
	if excess <= 0 {
		return nil
	}
	evicted := make([]Item, excess)
	copy(evicted, c.items[:excess])
	remaining := make([]Item, len(c.items)-excess, c.capacity)
	copy(remaining, c.items[excess:])
	c.items = remaining
	return evicted
}
