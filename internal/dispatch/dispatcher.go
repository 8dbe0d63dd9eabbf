// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ktemkin/weechat-discord/internal/discord"
	"github.com/ktemkin/weechat-discord/internal/logging"
	"github.com/ktemkin/weechat-discord/internal/metrics"
	"github.com/ktemkin/weechat-discord/internal/model"
	"github.com/ktemkin/weechat-discord/internal/render"
	"github.com/ktemkin/weechat-discord/internal/tasks"
	"github.com/ktemkin/weechat-discord/internal/typing"
)

const (
	// SweepInterval is how often expired typing entries are dropped.
	SweepInterval = time.Second

	// DefaultFetchCount is the history size loaded when a conversation opens.
	DefaultFetchCount = 50

	commandBuffer = 256
)

// ErrClosed is returned by Post once Run has returned.
var ErrClosed = errors.New("dispatcher closed")

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds the settings the dispatcher applies. It is replaced as a whole
// by the ApplyOptions command.
type Config struct {
	// Capacity bounds every conversation store.
	Capacity int
	// FetchCount is the number of history messages loaded on Open.
	FetchCount int
	// Autojoin conversations are opened when the session becomes ready.
	Autojoin []model.ConversationID
	Render   render.Options
}

// DefaultConfig returns the stock settings.
func DefaultConfig() Config {
	return Config{
		Capacity:   model.DefaultCapacity,
		FetchCount: DefaultFetchCount,
		Render:     render.DefaultOptions(),
	}
}

// Deps are the collaborators of a Dispatcher. Logger, Metrics and Clock are
// optional.
type Deps struct {
	Cache   Cache
	Outbox  Outbox
	Sink    Sink
	Runner  *tasks.Runner
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Clock   func() time.Time
	Config  Config
}

// =============================================================================
// DISPATCHER
// =============================================================================

// Dispatcher is the display context. It owns every conversation store, the
// renderer and the typing tracker; all of them are touched only by the
// goroutine running Run. Network results come back through Post.
type Dispatcher struct {
	cache    Cache
	outbox   Outbox
	sink     Sink
	runner   *tasks.Runner
	log      *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	cfg      Config
	registry *model.Registry
	renderer *render.Renderer
	typing   *typing.Tracker

	// requested holds user ids with a member request in flight, per guild.
	// notFound holds ids the service reported as not members.
	requested map[discord.ID]map[discord.ID]struct{}
	notFound  map[discord.ID]map[discord.ID]struct{}

	cmds chan Command
	done chan struct{}
}

// New creates a dispatcher. It does nothing until Run is called.
func New(deps Deps) *Dispatcher {
	cfg := deps.Config
	if cfg.Capacity <= 0 {
		cfg.Capacity = model.DefaultCapacity
	}
	if cfg.FetchCount <= 0 {
		cfg.FetchCount = DefaultFetchCount
	}
	now := deps.Clock
	if now == nil {
		now = time.Now
	}
	r := render.New(deps.Cache, cfg.Render)
	r.SetClock(now, time.Local)
	return &Dispatcher{
		cache:     deps.Cache,
		outbox:    deps.Outbox,
		sink:      deps.Sink,
		runner:    deps.Runner,
		log:       logging.OrDiscard(deps.Logger),
		metrics:   deps.Metrics,
		now:       now,
		cfg:       cfg,
		registry:  model.NewRegistry(cfg.Capacity),
		renderer:  r,
		typing:    typing.NewTracker(typing.Window),
		requested: make(map[discord.ID]map[discord.ID]struct{}),
		notFound:  make(map[discord.ID]map[discord.ID]struct{}),
		cmds:      make(chan Command, commandBuffer),
		done:      make(chan struct{}),
	}
}

// Run is the dispatcher loop. It handles events in arrival order, applies
// posted commands and sweeps typing entries, and returns when events is
// closed or ctx is canceled.
func (d *Dispatcher) Run(ctx context.Context, events <-chan discord.Event) error {
	defer close(d.done)

	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()

	d.log.Info("dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.log.Info("dispatcher stopped", "reason", ctx.Err())
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				d.log.Info("dispatcher stopped", "reason", "event stream closed")
				return nil
			}
			d.Handle(ev)
		case cmd := <-d.cmds:
			d.Execute(cmd)
		case <-ticker.C:
			d.sweepTyping()
		}
	}
}

// Post queues cmd for the dispatcher goroutine. It is safe to call from any
// goroutine and fails only once Run has returned.
func (d *Dispatcher) Post(cmd Command) error {
	select {
	case <-d.done:
		return ErrClosed
	default:
	}
	select {
	case d.cmds <- cmd:
		return nil
	case <-d.done:
		return ErrClosed
	}
}

// Flush applies every queued command without blocking and returns how many
// ran. Like Handle and Execute it must be called from the goroutine that
// owns the dispatcher, and never while Run is active.
func (d *Dispatcher) Flush() int {
	n := 0
	for {
		select {
		case cmd := <-d.cmds:
			d.Execute(cmd)
			n++
		default:
			return n
		}
	}
}

// Sweep expires typing entries. Synchronous owners call it in place of the
// ticker in Run.
func (d *Dispatcher) Sweep() { d.sweepTyping() }

// Renderer returns the dispatcher's renderer.
func (d *Dispatcher) Renderer() *render.Renderer { return d.renderer }

// Conversations lists the open conversations in a stable order.
func (d *Dispatcher) Conversations() []*model.Conversation { return d.registry.All() }

// =============================================================================
// SHARED HELPERS
// =============================================================================

// append clears stale notifications, stores item and counts evictions. It
// reports whether notifications were cleared, in which case the printed view
// is stale.
func (d *Dispatcher) append(conv *model.Conversation, item model.Item) bool {
	cleared := false
	if _, ok := item.(*model.Notification); !ok {
		cleared = conv.ClearNotifications() > 0
	}
	d.metrics.Evicted(len(conv.Append(item)))
	return cleared
}

// print renders one item, prints it and asks for the members it could not
// resolve.
func (d *Dispatcher) print(conv *model.Conversation, item model.Item) render.Line {
	unknown := render.NewIDSet()
	line := d.renderer.Render(item, unknown)
	d.sink.Print(conv.ID(), line)
	d.requestMembers(conv.ID(), unknown)
	return line
}

// redraw re-renders the whole conversation. Unresolved users are requested
// unless fetchUnknown is false, which is the case for redraws caused by a
// member chunk: asking again would loop on ids the service cannot resolve.
func (d *Dispatcher) redraw(conv *model.Conversation, fetchUnknown bool) {
	var unknown *render.IDSet
	if fetchUnknown {
		unknown = render.NewIDSet()
	}
	d.sink.Redraw(conv.ID(), d.renderer.RenderAll(conv.Items(), unknown))
	if fetchUnknown {
		d.requestMembers(conv.ID(), unknown)
	}
}

// requestMembers asks for unresolved guild members. The nonce is the channel
// id so the chunk can be routed back to the conversation. Ids stay marked
// as requested until their chunk arrives or the request fails.
func (d *Dispatcher) requestMembers(id model.ConversationID, unknown *render.IDSet) {
	if id.Guild.IsZero() || unknown.Len() == 0 {
		return
	}
	seen := d.requested[id.Guild]
	if seen == nil {
		seen = make(map[discord.ID]struct{})
		d.requested[id.Guild] = seen
	}
	missing := d.notFound[id.Guild]

	var ids []discord.ID
	for _, uid := range unknown.IDs() {
		if _, ok := seen[uid]; ok {
			continue
		}
		if _, ok := missing[uid]; ok {
			continue
		}
		if len(ids) == MaxMemberRequest {
			d.log.Debug("member request truncated", "conversation", id, "unknown", unknown.Len())
			break
		}
		seen[uid] = struct{}{}
		ids = append(ids, uid)
	}
	if len(ids) == 0 {
		return
	}

	d.metrics.MemberRequest()
	guild, nonce := id.Guild, id.Channel.String()
	d.submitTask(outboundFailed{conv: id, op: "request_members", members: ids}, func(ctx context.Context) error {
		return d.outbox.RequestMembers(ctx, guild, ids, nonce)
	})
}

// releaseMembers forgets that ids were requested in guild so a later render
// asks for them again.
func (d *Dispatcher) releaseMembers(guild discord.ID, ids []discord.ID) {
	seen := d.requested[guild]
	for _, uid := range ids {
		delete(seen, uid)
	}
	if len(seen) == 0 {
		delete(d.requested, guild)
	}
}

// submit runs fn as a background task. A failure is posted back as an error
// notification in conv.
func (d *Dispatcher) submit(op string, conv model.ConversationID, fn tasks.Func) {
	d.submitTask(outboundFailed{conv: conv, op: op}, fn)
}

// submitTask runs fn as a background task and posts failure, filled in with
// the error, once the task ends as failed. That includes tasks that timed
// out waiting for the runner before fn ran. Canceled tasks are not reported.
func (d *Dispatcher) submitTask(failure outboundFailed, fn tasks.Func) {
	if d.runner == nil || d.outbox == nil {
		d.log.Warn("no network for outbound operation", "op", failure.op, "conversation", failure.conv)
		d.releaseMembers(failure.conv.Guild, failure.members)
		return
	}
	task := tasks.NewTask(failure.op, failure.conv, fn)
	task.Then(func(t *tasks.Task, err error) {
		if t.GetStatus() != tasks.TaskStatusFailed {
			return
		}
		failure.err = err
		_ = d.Post(failure)
	})
	if err := d.runner.Submit(task); err != nil {
		d.log.Warn("submit failed", "op", failure.op, "conversation", failure.conv, "error", err)
		failure.err = err
		d.fail(failure)
	}
}

// fail records an outbound failure in the conversation, if it is still open.
// Member ids of a failed request become eligible for another request.
func (d *Dispatcher) fail(f outboundFailed) {
	id, op, err := f.conv, f.op, f.err
	d.metrics.OutboundFailure(op)
	d.log.Warn("outbound operation failed", "op", op, "conversation", id, "error", err)
	d.releaseMembers(id.Guild, f.members)
	conv, ok := d.registry.Get(id)
	if !ok {
		return
	}
	n := model.NewNotification(model.NoticeError, fmt.Sprintf("%s failed: %v", failureLabel(op), err))
	d.append(conv, n)
	line := d.print(conv, n)
	d.sink.Notify(id, line.Tags)
}

func failureLabel(op string) string {
	switch op {
	case "send":
		return "Sending message"
	case "fetch_history":
		return "Fetching history"
	case "fetch_pins":
		return "Fetching pins"
	case "request_members":
		return "Requesting members"
	case "subscribe":
		return "Subscribing"
	}
	return op
}

// targets returns the live conversations showing messages of channel: the
// channel itself and its pins view.
func (d *Dispatcher) targets(guild, channel discord.ID) []*model.Conversation {
	var out []*model.Conversation
	id := model.ConversationID{Guild: guild, Channel: channel}
	if conv, ok := d.registry.Get(id); ok {
		out = append(out, conv)
	}
	id.Pins = true
	if conv, ok := d.registry.Get(id); ok {
		out = append(out, conv)
	}
	return out
}

func (d *Dispatcher) sweepTyping() {
	for _, id := range d.typing.Sweep(d.now()) {
		d.pushTyping(id)
	}
}

func (d *Dispatcher) pushTyping(id model.ConversationID) {
	d.sink.Typing(id, d.typing.Names(id))
}
