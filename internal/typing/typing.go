// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package typing tracks who is typing in which conversation.
package typing

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ktemkin/weechat-discord/internal/discord"
	"github.com/ktemkin/weechat-discord/internal/model"
)

// Window is how long a typing notice stays valid.
const Window = 10 * time.Second

// Entry is one user typing in one conversation. At is the local time the
// notice was received.
type Entry struct {
	Conversation model.ConversationID
	UserID       discord.ID
	Name         string
	At           time.Time
}

// Tracker holds the live entries. It belongs to the display goroutine.
type Tracker struct {
	window  time.Duration
	entries map[model.ConversationID][]Entry
}

// NewTracker creates a tracker. A window of zero means Window.
func NewTracker(window time.Duration) *Tracker {
	if window <= 0 {
		window = Window
	}
	return &Tracker{
		window:  window,
		entries: make(map[model.ConversationID][]Entry),
	}
}

// Add inserts e, replacing any older entry for the same user in the same
// conversation.
func (t *Tracker) Add(e Entry) {
	list := t.without(e.Conversation, e.UserID)
	// Keep the list ordered by At so Names stays oldest first.
	i := sort.Search(len(list), func(i int) bool { return list[i].At.After(e.At) })
	list = append(list, Entry{})
	copy(list[i+1:], list[i:])
	list[i] = e
	t.entries[e.Conversation] = list
}

// Remove drops the user's entry, as when their message arrives. It reports
// whether an entry was removed.
func (t *Tracker) Remove(conv model.ConversationID, user discord.ID) bool {
	before := len(t.entries[conv])
	list := t.without(conv, user)
	t.store(conv, list)
	return len(list) != before
}

// Clear forgets every entry of conv.
func (t *Tracker) Clear(conv model.ConversationID) {
	delete(t.entries, conv)
}

// Sweep removes the entries that expired at now and returns the
// conversations whose set changed, ordered by id.
func (t *Tracker) Sweep(now time.Time) []model.ConversationID {
	var changed []model.ConversationID
	for conv, list := range t.entries {
		kept := list[:0]
		for _, e := range list {
			if now.Before(e.At.Add(t.window)) {
				kept = append(kept, e)
			}
		}
		if len(kept) != len(list) {
			changed = append(changed, conv)
			t.store(conv, kept)
		}
	}
	sort.Slice(changed, func(i, j int) bool {
		a, b := changed[i], changed[j]
		if a.Guild != b.Guild {
			return a.Guild < b.Guild
		}
		return a.Channel < b.Channel
	})
	return changed
}

// Names returns the names typing in conv, oldest first.
func (t *Tracker) Names(conv model.ConversationID) []string {
	list := t.entries[conv]
	if len(list) == 0 {
		return nil
	}
	names := make([]string, len(list))
	for i, e := range list {
		names[i] = e.Name
	}
	return names
}

func (t *Tracker) without(conv model.ConversationID, user discord.ID) []Entry {
	list := t.entries[conv]
	out := make([]Entry, 0, len(list)+1)
	for _, e := range list {
		if e.UserID != user {
			out = append(out, e)
		}
	}
	return out
}

func (t *Tracker) store(conv model.ConversationID, list []Entry) {
	if len(list) == 0 {
		delete(t.entries, conv)
		return
	}
	t.entries[conv] = list
}

// Format renders the typing bar: "Typing: a, b (+3)". At most max names are
// listed; max below one lists all of them. No names gives "".
func Format(names []string, max int) string {
	if len(names) == 0 {
		return ""
	}
	shown := names
	if max > 0 && len(names) > max {
		shown = names[:max]
	}
	out := "Typing: " + strings.Join(shown, ", ")
	if extra := len(names) - len(shown); extra > 0 {
		out += fmt.Sprintf(" (+%d)", extra)
	}
	return out
}
