// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dispatch

import (
	"context"
	"sort"
	"strings"

	"github.com/ktemkin/weechat-discord/internal/discord"
	"github.com/ktemkin/weechat-discord/internal/model"
)

// =============================================================================
// COMMANDS
// =============================================================================

// Command is a unit of work applied on the dispatcher goroutine. Front ends
// post the exported commands; task completions post internal ones.
type Command interface {
	apply(d *Dispatcher)
}

// Open materializes a conversation, subscribes to its guild and loads its
// recent history. Opening an open conversation redraws it.
type Open struct{ Conversation model.ConversationID }

// OpenPins creates the pinned-messages view of a channel.
type OpenPins struct{ Conversation model.ConversationID }

// Close drops a conversation. Outstanding work for it is canceled and
// later completions are ignored.
type Close struct{ Conversation model.ConversationID }

// Send posts content to a conversation, echoing it locally until the
// service confirms it.
type Send struct {
	Conversation model.ConversationID
	Content      string
}

// Redraw re-renders one conversation.
type Redraw struct{ Conversation model.ConversationID }

// RedrawAll re-renders every open conversation.
type RedrawAll struct{}

// ApplyOptions replaces the dispatcher configuration, typically after the
// config file changed, and redraws everything.
type ApplyOptions struct{ Config Config }

// messagesLoaded carries a history or pins fetch back to the display
// goroutine.
type messagesLoaded struct {
	conv model.ConversationID
	msgs []discord.Message
}

// outboundFailed reports a failed task. members lists the user ids of a
// failed member request.
type outboundFailed struct {
	conv    model.ConversationID
	op      string
	err     error
	members []discord.ID
}

func (c Open) apply(d *Dispatcher)         { d.open(c.Conversation) }
func (c OpenPins) apply(d *Dispatcher)     { d.openPins(c.Conversation) }
func (c Close) apply(d *Dispatcher)        { d.close(c.Conversation) }
func (c Send) apply(d *Dispatcher)         { d.send(c.Conversation, c.Content) }
func (c Redraw) apply(d *Dispatcher)       { d.explicitRedraw(c.Conversation) }
func (RedrawAll) apply(d *Dispatcher)      { d.redrawAll() }
func (c ApplyOptions) apply(d *Dispatcher) { d.applyConfig(c.Config) }

func (c messagesLoaded) apply(d *Dispatcher) { d.bulkLoad(c.conv, c.msgs) }
func (c outboundFailed) apply(d *Dispatcher) { d.fail(c) }

// Execute applies cmd on the calling goroutine, which must own the
// dispatcher. Run calls it for every posted command.
func (d *Dispatcher) Execute(cmd Command) {
	if cmd == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			d.log.Error("command panicked", "command", commandName(cmd), "panic", p)
		}
	}()
	cmd.apply(d)
}

func commandName(cmd Command) string {
	switch cmd.(type) {
	case Open:
		return "open"
	case OpenPins:
		return "open_pins"
	case Close:
		return "close"
	case Send:
		return "send"
	case Redraw:
		return "redraw"
	case RedrawAll:
		return "redraw_all"
	case ApplyOptions:
		return "apply_options"
	case messagesLoaded:
		return "messages_loaded"
	case outboundFailed:
		return "outbound_failed"
	}
	return "unknown"
}

// =============================================================================
// CONVERSATION LIFECYCLE
// =============================================================================

func (d *Dispatcher) open(id model.ConversationID) {
	if id.Channel.IsZero() {
		d.log.Warn("open without channel id", "conversation", id)
		return
	}
	id.Pins = false
	conv, created := d.registry.Open(id)
	if !created {
		d.redraw(conv, true)
		return
	}
	d.log.Info("conversation opened", "conversation", id)
	d.sink.Redraw(id, nil)

	if !id.Guild.IsZero() {
		guild, channel := id.Guild, id.Channel
		d.submit("subscribe", id, func(ctx context.Context) error {
			return d.outbox.Subscribe(ctx, guild, channel)
		})
	}
	limit := d.cfg.FetchCount
	d.submit("fetch_history", id, func(ctx context.Context) error {
		msgs, err := d.outbox.FetchHistory(ctx, id.Channel, limit)
		if err != nil {
			return err
		}
		return d.Post(messagesLoaded{conv: id, msgs: msgs})
	})
}

func (d *Dispatcher) openPins(id model.ConversationID) {
	if id.Channel.IsZero() {
		d.log.Warn("open pins without channel id", "conversation", id)
		return
	}
	id.Pins = true
	conv, created := d.registry.Open(id)
	if !created {
		d.redraw(conv, true)
		return
	}
	d.log.Info("pins opened", "conversation", id)
	d.sink.Redraw(id, nil)
	d.submit("fetch_pins", id, func(ctx context.Context) error {
		msgs, err := d.outbox.FetchPins(ctx, id.Channel)
		if err != nil {
			return err
		}
		return d.Post(messagesLoaded{conv: id, msgs: msgs})
	})
}

func (d *Dispatcher) close(id model.ConversationID) {
	if !d.registry.Close(id) {
		d.log.Debug("close of unknown conversation", "conversation", id)
		return
	}
	d.typing.Clear(id)
	canceled := 0
	if d.runner != nil {
		canceled = d.runner.Queue().CancelConversation(id)
	}
	d.log.Info("conversation closed", "conversation", id, "canceled_tasks", canceled)
}

// bulkLoad merges fetched messages into a conversation. Fetched messages
// are older than anything that arrived live while the fetch ran, so they go
// in front; duplicates keep the live copy.
func (d *Dispatcher) bulkLoad(id model.ConversationID, msgs []discord.Message) {
	conv, ok := d.registry.Get(id)
	if !ok {
		d.log.Debug("load for closed conversation", "conversation", id, "messages", len(msgs))
		return
	}
	conv.ClearNotifications()

	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })

	live := conv.Items()
	present := make(map[model.ItemID]struct{}, len(live))
	for _, it := range live {
		present[it.ItemID()] = struct{}{}
		conv.Remove(it.ItemID())
	}

	evicted := 0
	for i := range msgs {
		if msgs[i].ID.IsZero() {
			continue
		}
		if _, dup := present[model.RemoteID(msgs[i].ID)]; dup {
			continue
		}
		evicted += len(conv.Append(&model.Remote{Message: msgs[i]}))
	}
	for _, it := range live {
		evicted += len(conv.Append(it))
	}
	d.metrics.Evicted(evicted)
	d.log.Debug("messages loaded", "conversation", id, "messages", len(msgs))
	d.redraw(conv, true)
}

// =============================================================================
// SENDING
// =============================================================================

func (d *Dispatcher) send(id model.ConversationID, content string) {
	if strings.TrimSpace(content) == "" {
		return
	}
	if id.Pins {
		d.sink.Status("Cannot send to a pins view")
		return
	}
	conv, ok := d.registry.Get(id)
	if !ok {
		d.log.Warn("send to unknown conversation", "conversation", id)
		return
	}

	content = CreateMentions(d.cache, id.Guild, content)
	echo := &model.LocalEcho{
		Nonce:     model.NonceAt(d.now()),
		Content:   content,
		Guild:     id.Guild,
		Channel:   id.Channel,
		CreatedAt: d.now(),
	}
	if d.append(conv, echo) {
		d.redraw(conv, true)
	} else {
		d.print(conv, echo)
	}

	req := SendRequest{ChannelID: id.Channel, Content: content, Nonce: echo.Nonce}
	d.submit("send", id, func(ctx context.Context) error {
		_, err := d.outbox.SendMessage(ctx, req)
		return err
	})
}

// =============================================================================
// REDRAWS AND OPTIONS
// =============================================================================

func (d *Dispatcher) explicitRedraw(id model.ConversationID) {
	conv, ok := d.registry.Get(id)
	if !ok {
		d.log.Debug("redraw of unknown conversation", "conversation", id)
		return
	}
	conv.ClearNotifications()
	delete(d.requested, id.Guild)
	d.redraw(conv, true)
}

// redrawAll re-renders every conversation and asks again for any member
// still unresolved.
func (d *Dispatcher) redrawAll() {
	clear(d.requested)
	for _, conv := range d.registry.All() {
		conv.ClearNotifications()
		d.redraw(conv, true)
	}
}

func (d *Dispatcher) applyConfig(cfg Config) {
	if cfg.Capacity <= 0 {
		cfg.Capacity = model.DefaultCapacity
	}
	if cfg.FetchCount <= 0 {
		cfg.FetchCount = DefaultFetchCount
	}
	d.renderer.SetOptions(cfg.Render)
	d.metrics.Evicted(d.registry.SetCapacity(cfg.Capacity))
	d.cfg = cfg
	d.log.Info("configuration applied", "capacity", cfg.Capacity, "show_formatting", cfg.Render.ShowFormatting)
	d.redrawAll()
}
