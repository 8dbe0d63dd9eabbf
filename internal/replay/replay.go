// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ktemkin/weechat-discord/internal/cache"
	"github.com/ktemkin/weechat-discord/internal/discord"
	"github.com/ktemkin/weechat-discord/internal/dispatch"
	"github.com/ktemkin/weechat-discord/internal/metrics"
	"github.com/ktemkin/weechat-discord/internal/model"
	"github.com/ktemkin/weechat-discord/internal/render"
	"github.com/ktemkin/weechat-discord/internal/tasks"
)

// ErrSendFailed is what sends return when the script sets fail_sends.
var ErrSendFailed = errors.New("send rejected by replay script")

// DefaultStart is the replay clock when the script sets no time.
var DefaultStart = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

const settleTimeout = 10 * time.Second

// =============================================================================
// RESULT
// =============================================================================

// Conversation is the final view of one open conversation as the sink saw it.
type Conversation struct {
	ID     model.ConversationID
	Lines  []render.Line
	Typing []string
	// Activity counts Notify calls by highest tag.
	Activity map[string]int
}

// MemberRequest is one recorded request for guild members.
type MemberRequest struct {
	Guild discord.ID
	IDs   []discord.ID
	Nonce string
}

// Result is everything observable after a replay.
type Result struct {
	Conversations  []Conversation
	Statuses       []string
	MemberRequests []MemberRequest
	Sent           []dispatch.SendRequest
	Subscriptions  []model.ConversationID
}

// Conversation returns the view of id.
func (r *Result) Conversation(id model.ConversationID) (Conversation, bool) {
	for _, c := range r.Conversations {
		if c.ID == id {
			return c, true
		}
	}
	return Conversation{}, false
}

// =============================================================================
// RUN
// =============================================================================

// Options tune a replay.
type Options struct {
	Config  dispatch.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Run plays the script against a fresh dispatcher, driving it synchronously
// and letting every outbound task finish after each step.
func Run(ctx context.Context, s *Script, opts Options) (*Result, error) {
	ready, err := s.readyEvent()
	if err != nil {
		return nil, err
	}
	history, err := decodeMessages(s.History)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	pins, err := decodeMessages(s.Pins)
	if err != nil {
		return nil, fmt.Errorf("pins: %w", err)
	}

	start := s.Now
	if start.IsZero() {
		start = DefaultStart
	}
	clk := &clock{now: start}

	c := cache.NewMemory()
	sink := newRecorder()
	out := &outbox{history: history, pins: pins, echo: s.EchoSends, fail: s.FailSends, clock: clk, cache: c}
	runner := tasks.NewRunner(tasks.NewQueue(256), tasks.Options{MaxConcurrent: 4})
	defer runner.Stop()

	d := dispatch.New(dispatch.Deps{
		Cache:   c,
		Outbox:  out,
		Sink:    sink,
		Runner:  runner,
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
		Clock:   clk.Now,
		Config:  opts.Config,
	})
	p := &player{ctx: ctx, d: d, cache: c, out: out, runner: runner}

	if ready != nil {
		if err := p.event(ready); err != nil {
			return nil, err
		}
	}
	for i, st := range s.Steps {
		if err := p.step(st, clk); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}

	res := &Result{
		Statuses:       sink.statuses,
		MemberRequests: out.requests,
		Sent:           out.sent,
		Subscriptions:  out.subscribed,
	}
	for _, conv := range d.Conversations() {
		id := conv.ID()
		res.Conversations = append(res.Conversations, Conversation{
			ID:       id,
			Lines:    sink.lines[id],
			Typing:   sink.typing[id],
			Activity: sink.activity[id],
		})
	}
	return res, nil
}

type player struct {
	ctx    context.Context
	d      *dispatch.Dispatcher
	cache  *cache.Memory
	out    *outbox
	runner *tasks.Runner
}

func (p *player) step(st Step, clk *clock) error {
	switch {
	case st.Event != "":
		raw, err := reencode(st.Data)
		if err != nil {
			return err
		}
		ev, err := discord.DecodeEvent(st.Event, raw)
		if err != nil {
			return err
		}
		return p.event(ev)
	case st.Open != "":
		id, _ := model.ParseConversationID(st.Open)
		if id.Pins {
			return p.command(dispatch.OpenPins{Conversation: id})
		}
		return p.command(dispatch.Open{Conversation: id})
	case st.Pins != "":
		id, _ := model.ParseConversationID(st.Pins)
		return p.command(dispatch.OpenPins{Conversation: id})
	case st.Close != "":
		id, _ := model.ParseConversationID(st.Close)
		return p.command(dispatch.Close{Conversation: id})
	case st.Send != nil:
		id, _ := model.ParseConversationID(st.Send.Conversation)
		return p.command(dispatch.Send{Conversation: id, Content: st.Send.Content})
	case st.Advance > 0:
		clk.Advance(st.Advance)
		p.d.Sweep()
		return p.settle()
	}
	return nil
}

// event mirrors the gateway: the cache sees the event before the dispatcher.
func (p *player) event(ev discord.Event) error {
	p.cache.Apply(ev)
	p.d.Handle(ev)
	return p.settle()
}

func (p *player) command(cmd dispatch.Command) error {
	p.d.Execute(cmd)
	return p.settle()
}

// settle waits for outstanding tasks, applies what they posted back and
// feeds echoed sends, until nothing is left.
func (p *player) settle() error {
	deadline := time.Now().Add(settleTimeout)
	for {
		for p.runner.Queue().Pending() > 0 {
			if time.Now().After(deadline) {
				return errors.New("outbound tasks did not finish")
			}
			select {
			case <-p.ctx.Done():
				return p.ctx.Err()
			case <-time.After(time.Millisecond):
			}
		}
		n := p.d.Flush()
		echoes := p.out.takeEchoes()
		for _, ev := range echoes {
			p.cache.Apply(ev)
			p.d.Handle(ev)
		}
		if n == 0 && len(echoes) == 0 && p.runner.Queue().Pending() == 0 {
			return nil
		}
	}
}

// =============================================================================
// CLOCK
// =============================================================================

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// =============================================================================
// SCRIPTED OUTBOX
// =============================================================================

type outbox struct {
	history map[discord.ID][]discord.Message
	pins    map[discord.ID][]discord.Message
	echo    bool
	fail    bool
	clock   *clock
	cache   *cache.Memory

	mu         sync.Mutex
	nextID     discord.ID
	sent       []dispatch.SendRequest
	requests   []MemberRequest
	subscribed []model.ConversationID
	echoes     []discord.Event
}

func (o *outbox) SendMessage(_ context.Context, req dispatch.SendRequest) (discord.Message, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, req)
	if o.fail {
		return discord.Message{}, ErrSendFailed
	}
	if o.nextID == 0 {
		o.nextID = discord.ID(req.Nonce)
	}
	o.nextID++
	msg := discord.Message{
		ID:        o.nextID,
		ChannelID: req.ChannelID,
		GuildID:   o.guildOf(req.ChannelID),
		Content:   req.Content,
		Timestamp: o.clock.Now(),
		Nonce:     discord.Nonce(strconv.FormatUint(req.Nonce, 10)),
	}
	if me, ok := o.cache.CurrentUser(); ok {
		msg.Author = me
	}
	if o.echo {
		o.echoes = append(o.echoes, &discord.MessageCreate{Message: msg})
	}
	return msg, nil
}

func (o *outbox) guildOf(channel discord.ID) discord.ID {
	if ch, ok := o.cache.Channel(channel); ok {
		return ch.GuildID
	}
	return 0
}

func (o *outbox) RequestMembers(_ context.Context, guild discord.ID, ids []discord.ID, nonce string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requests = append(o.requests, MemberRequest{Guild: guild, IDs: append([]discord.ID(nil), ids...), Nonce: nonce})
	return nil
}

func (o *outbox) FetchPins(_ context.Context, channel discord.ID) ([]discord.Message, error) {
	return o.pins[channel], nil
}

func (o *outbox) FetchHistory(_ context.Context, channel discord.ID, limit int) ([]discord.Message, error) {
	msgs := o.history[channel]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func (o *outbox) Subscribe(_ context.Context, guild, channel discord.ID) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.subscribed = append(o.subscribed, model.ConversationID{Guild: guild, Channel: channel})
	return nil
}

func (o *outbox) takeEchoes() []discord.Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.echoes
	o.echoes = nil
	return out
}

// =============================================================================
// RECORDING SINK
// =============================================================================

// recorder is only called from the goroutine running the replay.
type recorder struct {
	lines    map[model.ConversationID][]render.Line
	typing   map[model.ConversationID][]string
	activity map[model.ConversationID]map[string]int
	statuses []string
}

func newRecorder() *recorder {
	return &recorder{
		lines:    make(map[model.ConversationID][]render.Line),
		typing:   make(map[model.ConversationID][]string),
		activity: make(map[model.ConversationID]map[string]int),
	}
}

func (r *recorder) Print(conv model.ConversationID, line render.Line) {
	r.lines[conv] = append(r.lines[conv], line)
}

func (r *recorder) Redraw(conv model.ConversationID, lines []render.Line) {
	r.lines[conv] = append([]render.Line(nil), lines...)
}

func (r *recorder) Typing(conv model.ConversationID, names []string) {
	r.typing[conv] = append([]string(nil), names...)
}

func (r *recorder) Notify(conv model.ConversationID, tags []string) {
	level := "none"
	for _, tag := range []string{render.TagNotifyHighlight, render.TagNotifyPrivate, render.TagNotifyMessage} {
		if contains(tags, tag) {
			level = tag
			break
		}
	}
	if r.activity[conv] == nil {
		r.activity[conv] = make(map[string]int)
	}
	r.activity[conv][level]++
}

func (r *recorder) MemberList(u *discord.MemberListUpdate) {
	r.statuses = append(r.statuses, fmt.Sprintf("member list %s: %d members, %d online", u.GuildID, u.MemberCount, u.OnlineCount))
}

func (r *recorder) Status(text string) { r.statuses = append(r.statuses, text) }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// =============================================================================
// OUTPUT
// =============================================================================

// Write prints the result as plain text: each conversation with its lines,
// then the status messages.
func Write(w io.Writer, res *Result, timeLayout string) error {
	if timeLayout == "" {
		timeLayout = "15:04"
	}
	var b strings.Builder
	for _, c := range res.Conversations {
		fmt.Fprintf(&b, "== %s ==\n", c.ID)
		for _, l := range c.Lines {
			ts := strings.Repeat(" ", len(timeLayout))
			if !l.Timestamp.IsZero() {
				ts = l.Timestamp.UTC().Format(timeLayout)
			}
			fmt.Fprintf(&b, "%s %s | %s\n", ts, l.Prefix.String(), l.Body.String())
		}
		if len(c.Typing) > 0 {
			fmt.Fprintf(&b, "typing: %s\n", strings.Join(c.Typing, ", "))
		}
	}
	for _, s := range res.Statuses {
		fmt.Fprintf(&b, "-- %s\n", s)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
