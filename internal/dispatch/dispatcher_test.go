// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dispatch

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/ktemkin/weechat-discord/internal/cache"
	"github.com/ktemkin/weechat-discord/internal/discord"
	"github.com/ktemkin/weechat-discord/internal/model"
	"github.com/ktemkin/weechat-discord/internal/render"
	"github.com/ktemkin/weechat-discord/internal/tasks"
)

const (
	testGuild   discord.ID = 10
	testChannel discord.ID = 20
	selfID      discord.ID = 1
	ferrisID    discord.ID = 5
)

var testConv = model.ConversationID{Guild: testGuild, Channel: testChannel}

// =============================================================================
// FAKES
// =============================================================================

type notice struct {
	conv model.ConversationID
	tags []string
}

type fakeSink struct {
	mu          sync.Mutex
	printed     map[model.ConversationID][]render.Line
	redraws     map[model.ConversationID][][]render.Line
	typing      map[model.ConversationID][]string
	notices     []notice
	memberLists []*discord.MemberListUpdate
	status      []string
	panicPrint  bool
}

func newFakeSink() *fakeSink {
	return &fakeSink{
		printed: make(map[model.ConversationID][]render.Line),
		redraws: make(map[model.ConversationID][][]render.Line),
		typing:  make(map[model.ConversationID][]string),
	}
}

func (s *fakeSink) Print(conv model.ConversationID, line render.Line) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panicPrint {
		panic("sink exploded")
	}
	s.printed[conv] = append(s.printed[conv], line)
}

func (s *fakeSink) Redraw(conv model.ConversationID, lines []render.Line) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redraws[conv] = append(s.redraws[conv], lines)
}

func (s *fakeSink) Typing(conv model.ConversationID, names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.typing[conv] = names
}

func (s *fakeSink) Notify(conv model.ConversationID, tags []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, notice{conv, tags})
}

func (s *fakeSink) MemberList(update *discord.MemberListUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memberLists = append(s.memberLists, update)
}

func (s *fakeSink) Status(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = append(s.status, text)
}

func (s *fakeSink) lastRedraw(conv model.ConversationID) []render.Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.redraws[conv]
	if len(r) == 0 {
		return nil
	}
	return r[len(r)-1]
}

type memberRequest struct {
	guild discord.ID
	ids   []discord.ID
	nonce string
}

type fakeOutbox struct {
	mu         sync.Mutex
	sendErr    error
	sent       []SendRequest
	history    []discord.Message
	pins       []discord.Message
	subscribed []discord.ID
	members    chan memberRequest
	membersErr error
	block      chan struct{}
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{members: make(chan memberRequest, 16)}
}

func (o *fakeOutbox) SendMessage(ctx context.Context, req SendRequest) (discord.Message, error) {
	o.mu.Lock()
	o.sent = append(o.sent, req)
	err := o.sendErr
	o.mu.Unlock()
	return discord.Message{}, err
}

func (o *fakeOutbox) RequestMembers(ctx context.Context, guild discord.ID, ids []discord.ID, nonce string) error {
	o.members <- memberRequest{guild, ids, nonce}
	return o.membersErr
}

func (o *fakeOutbox) FetchPins(ctx context.Context, channel discord.ID) ([]discord.Message, error) {
	return o.pins, nil
}

func (o *fakeOutbox) FetchHistory(ctx context.Context, channel discord.ID, limit int) ([]discord.Message, error) {
	if o.block != nil {
		select {
		case <-o.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return o.history, nil
}

func (o *fakeOutbox) Subscribe(ctx context.Context, guild, channel discord.ID) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.subscribed = append(o.subscribed, channel)
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

type harness struct {
	d      *Dispatcher
	sink   *fakeSink
	outbox *fakeOutbox
	cache  *cache.Memory
	now    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		sink:   newFakeSink(),
		outbox: newFakeOutbox(),
		cache:  cache.NewMemory(),
		now:    time.Unix(1_700_000_000, 0),
	}
	h.cache.SetCurrentUser(discord.User{ID: selfID, Username: "me"})
	h.cache.PutMember(testGuild, discord.Member{User: &discord.User{ID: ferrisID, Username: "ferris"}, Nick: "crab"})
	h.cache.PutChannel(discord.Channel{ID: testChannel, GuildID: testGuild, Name: "general"})

	runner := tasks.NewRunner(tasks.NewQueue(100), tasks.Options{MaxConcurrent: 4})
	t.Cleanup(runner.Stop)

	h.d = New(Deps{
		Cache:  h.cache,
		Outbox: h.outbox,
		Sink:   h.sink,
		Runner: runner,
		Clock:  func() time.Time { return h.now },
		Config: DefaultConfig(),
	})
	return h
}

// openEmpty opens a conversation and applies its (empty) history load.
func (h *harness) openEmpty(t *testing.T, id model.ConversationID) *model.Conversation {
	t.Helper()
	h.d.Execute(Open{Conversation: id})
	h.await(t)
	conv, ok := h.d.registry.Get(id)
	require.True(t, ok)
	return conv
}

// await applies the next command posted by a task.
func (h *harness) await(t *testing.T) Command {
	t.Helper()
	select {
	case cmd := <-h.d.cmds:
		h.d.Execute(cmd)
		return cmd
	case <-time.After(2 * time.Second):
		t.Fatal("no command posted")
		return nil
	}
}

func message(id discord.ID, author discord.User, content string) *discord.MessageCreate {
	return &discord.MessageCreate{Message: discord.Message{
		ID:        id,
		ChannelID: testChannel,
		GuildID:   testGuild,
		Author:    author,
		Content:   content,
		Timestamp: time.Unix(1_700_000_000, 0),
	}}
}

var ferris = discord.User{ID: ferrisID, Username: "ferris"}

func itemIDs(conv *model.Conversation) []model.ItemID {
	var ids []model.ItemID
	for _, it := range conv.Items() {
		ids = append(ids, it.ItemID())
	}
	return ids
}

// =============================================================================
// MESSAGES
// =============================================================================

func TestMessageCreate_UnknownConversationDropped(t *testing.T) {
	h := newHarness(t)
	h.d.Handle(message(1, ferris, "hi"))
	assert.Empty(t, h.sink.printed)
	assert.Empty(t, h.sink.notices)
}

func TestMessageCreate_Malformed(t *testing.T) {
	h := newHarness(t)
	h.openEmpty(t, testConv)
	h.d.Handle(message(0, ferris, "no id"))
	h.d.Handle(nil)
	assert.Empty(t, h.sink.printed[testConv])
}

func TestMessageCreate_PrintsAndNotifies(t *testing.T) {
	h := newHarness(t)
	conv := h.openEmpty(t, testConv)

	h.d.Handle(message(100, ferris, "hello"))

	require.Len(t, h.sink.printed[testConv], 1)
	line := h.sink.printed[testConv][0]
	assert.Equal(t, model.RemoteID(100), line.ID)
	assert.Equal(t, "hello", line.Body.String())
	assert.Equal(t, 1, conv.Len())
	require.Len(t, h.sink.notices, 1)
	assert.Equal(t, []string{render.TagNotifyMessage}, h.sink.notices[0].tags)
}

func TestSend_EchoReconciledByNonce(t *testing.T) {
	h := newHarness(t)
	conv := h.openEmpty(t, testConv)

	h.d.Execute(Send{Conversation: testConv, Content: "hi @crab"})

	require.Len(t, h.sink.printed[testConv], 1)
	assert.True(t, h.sink.printed[testConv][0].HasTag(render.TagLocalEcho))

	items := conv.Items()
	require.Len(t, items, 1)
	echo, ok := items[0].(*model.LocalEcho)
	require.True(t, ok)
	assert.Equal(t, "hi <@5>", echo.Content)

	require.Eventually(t, func() bool {
		h.outbox.mu.Lock()
		defer h.outbox.mu.Unlock()
		return len(h.outbox.sent) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, echo.Nonce, h.outbox.sent[0].Nonce)

	confirmed := message(42, discord.User{ID: selfID, Username: "me"}, "hi <@5>")
	confirmed.Nonce = discord.Nonce(strconv.FormatUint(echo.Nonce, 10))
	h.d.Handle(confirmed)

	assert.Equal(t, []model.ItemID{model.RemoteID(42)}, itemIDs(conv))
	lines := h.sink.lastRedraw(testConv)
	require.Len(t, lines, 1)
	assert.True(t, lines[0].HasTag(render.TagSelfMsg))
}

func TestSend_FailureLeavesEchoAndAddsNotification(t *testing.T) {
	h := newHarness(t)
	h.outbox.sendErr = errors.New("403 forbidden")
	conv := h.openEmpty(t, testConv)

	h.d.Execute(Send{Conversation: testConv, Content: "nope"})
	cmd := h.await(t)
	require.IsType(t, outboundFailed{}, cmd)

	items := conv.Items()
	require.Len(t, items, 2)
	assert.IsType(t, &model.LocalEcho{}, items[0])
	n, ok := items[1].(*model.Notification)
	require.True(t, ok)
	assert.Equal(t, model.NoticeError, n.Kind)
	assert.Contains(t, n.Text, "403 forbidden")

	printed := h.sink.printed[testConv]
	assert.Equal(t, render.PrefixError, printed[len(printed)-1].Prefix.String())

	// The next message clears the notification and redraws.
	h.d.Handle(message(101, ferris, "later"))
	assert.Len(t, conv.Items(), 2)
	assert.Len(t, h.sink.lastRedraw(testConv), 2)
}

func TestSend_PinsViewRejected(t *testing.T) {
	h := newHarness(t)
	h.d.Execute(Send{Conversation: model.ConversationID{Guild: testGuild, Channel: testChannel, Pins: true}, Content: "x"})
	assert.Equal(t, []string{"Cannot send to a pins view"}, h.sink.status)
}

func TestMessageUpdate(t *testing.T) {
	h := newHarness(t)
	conv := h.openEmpty(t, testConv)
	h.d.Handle(message(100, ferris, "befor"))

	content := "before"
	edited := time.Unix(1_700_000_100, 0)
	h.d.Handle(&discord.MessageUpdate{ID: 100, ChannelID: testChannel, GuildID: testGuild, Content: &content, EditedTimestamp: &edited})

	item, ok := conv.Get(model.RemoteID(100))
	require.True(t, ok)
	assert.Equal(t, "before", item.(*model.Remote).Message.Content)
	lines := h.sink.lastRedraw(testConv)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0].Body.String(), "before (edited)")

	redraws := len(h.sink.redraws[testConv])
	h.d.Handle(&discord.MessageUpdate{ID: 999, ChannelID: testChannel, GuildID: testGuild, Content: &content})
	assert.Len(t, h.sink.redraws[testConv], redraws)
}

func TestMessageDeleteBulk(t *testing.T) {
	h := newHarness(t)
	conv := h.openEmpty(t, testConv)
	for _, id := range []discord.ID{100, 101, 102} {
		h.d.Handle(message(id, ferris, "m"))
	}

	h.d.Handle(&discord.MessageDelete{ID: 101, ChannelID: testChannel, GuildID: testGuild})
	assert.Equal(t, []model.ItemID{model.RemoteID(100), model.RemoteID(102)}, itemIDs(conv))

	h.d.Handle(&discord.MessageDeleteBulk{IDs: []discord.ID{100, 102, 555}, ChannelID: testChannel, GuildID: testGuild})
	assert.Equal(t, 0, conv.Len())
	assert.Empty(t, h.sink.lastRedraw(testConv))
}

func TestReactions(t *testing.T) {
	h := newHarness(t)
	conv := h.openEmpty(t, testConv)
	h.d.Handle(message(100, ferris, "react to me"))

	crab := discord.ReactionEmoji{Name: "🦀"}
	h.d.Handle(&discord.ReactionAdd{UserID: selfID, ChannelID: testChannel, MessageID: 100, GuildID: testGuild, Emoji: crab})
	h.d.Handle(&discord.ReactionAdd{UserID: ferrisID, ChannelID: testChannel, MessageID: 100, GuildID: testGuild, Emoji: crab})

	item, _ := conv.Get(model.RemoteID(100))
	reactions := item.(*model.Remote).Message.Reactions
	require.Len(t, reactions, 1)
	assert.Equal(t, 2, reactions[0].Count)
	assert.True(t, reactions[0].Me)

	h.d.Handle(&discord.ReactionRemove{UserID: selfID, ChannelID: testChannel, MessageID: 100, GuildID: testGuild, Emoji: crab})
	h.d.Handle(&discord.ReactionRemove{UserID: ferrisID, ChannelID: testChannel, MessageID: 100, GuildID: testGuild, Emoji: crab})
	item, _ = conv.Get(model.RemoteID(100))
	assert.Empty(t, item.(*model.Remote).Message.Reactions)
}

func TestHandle_RecoversFromPanics(t *testing.T) {
	h := newHarness(t)
	h.openEmpty(t, testConv)
	h.sink.panicPrint = true

	assert.NotPanics(t, func() { h.d.Handle(message(100, ferris, "boom")) })

	h.sink.panicPrint = false
	h.d.Handle(message(101, ferris, "still alive"))
	require.Len(t, h.sink.printed[testConv], 1)
	assert.Equal(t, "still alive", h.sink.printed[testConv][0].Body.String())
}

// =============================================================================
// UNKNOWN MEMBERS
// =============================================================================

func TestUnknownMentionRequestsMembersOnce(t *testing.T) {
	h := newHarness(t)
	h.openEmpty(t, testConv)

	h.d.Handle(message(100, ferris, "hey <@77>"))
	assert.Equal(t, "hey @unknown-user", h.sink.printed[testConv][0].Body.String())

	select {
	case req := <-h.outbox.members:
		assert.Equal(t, testGuild, req.guild)
		assert.Equal(t, []discord.ID{77}, req.ids)
		assert.Equal(t, testChannel.String(), req.nonce)
	case <-time.After(2 * time.Second):
		t.Fatal("no member request")
	}

	h.d.Handle(message(101, ferris, "again <@77>"))
	select {
	case req := <-h.outbox.members:
		t.Fatalf("unexpected second request %v", req)
	case <-time.After(50 * time.Millisecond):
	}

	h.cache.PutMember(testGuild, discord.Member{User: &discord.User{ID: 77, Username: "corro"}})
	h.d.Handle(&discord.MemberChunk{GuildID: testGuild, Nonce: testChannel.String()})

	lines := h.sink.lastRedraw(testConv)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0].Body.String(), "@corro")
}

// nextMemberRequest returns the next member request, or fails the test.
func (h *harness) nextMemberRequest(t *testing.T) memberRequest {
	t.Helper()
	select {
	case req := <-h.outbox.members:
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("no member request")
		return memberRequest{}
	}
}

func (h *harness) noMemberRequest(t *testing.T) {
	t.Helper()
	select {
	case req := <-h.outbox.members:
		t.Fatalf("unexpected member request %v", req)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRequestMembers_RetriedAfterFailure(t *testing.T) {
	h := newHarness(t)
	h.outbox.membersErr = errors.New("gateway closed")
	h.openEmpty(t, testConv)

	h.d.Handle(message(100, ferris, "hey <@77>"))
	assert.Equal(t, []discord.ID{77}, h.nextMemberRequest(t).ids)
	require.IsType(t, outboundFailed{}, h.await(t))

	h.d.Execute(Redraw{Conversation: testConv})
	assert.Equal(t, []discord.ID{77}, h.nextMemberRequest(t).ids)
	require.IsType(t, outboundFailed{}, h.await(t))

	h.d.Handle(message(101, ferris, "again <@77>"))
	assert.Equal(t, []discord.ID{77}, h.nextMemberRequest(t).ids)
}

func TestRequestMembers_ChunkEndsRequest(t *testing.T) {
	h := newHarness(t)
	h.openEmpty(t, testConv)

	h.d.Handle(message(100, ferris, "<@77> <@78>"))
	assert.Equal(t, []discord.ID{77, 78}, h.nextMemberRequest(t).ids)

	// 77 answered without being cached, 78 is not a member at all.
	h.d.Handle(&discord.MemberChunk{
		GuildID:  testGuild,
		Nonce:    testChannel.String(),
		Members:  []discord.Member{{User: &discord.User{ID: 77}}},
		NotFound: []discord.ID{78},
	})
	assert.Empty(t, h.d.requested[testGuild])

	h.d.Handle(message(101, ferris, "<@77> <@78>"))
	assert.Equal(t, []discord.ID{77}, h.nextMemberRequest(t).ids)
	h.noMemberRequest(t)
}

func TestSubmit_QueueFullAddsNotification(t *testing.T) {
	h := newHarness(t)
	h.d.runner = tasks.NewRunner(tasks.NewQueueWithOptions(10, 1), tasks.Options{})
	t.Cleanup(h.d.runner.Stop)
	h.outbox.block = make(chan struct{})
	t.Cleanup(func() { close(h.outbox.block) })

	// The DM opens without a subscription, so its history fetch is the
	// only outstanding task.
	dm := model.ConversationID{Channel: 30}
	h.d.Execute(Open{Conversation: dm})
	h.d.Execute(Send{Conversation: dm, Content: "hi"})

	conv, ok := h.d.registry.Get(dm)
	require.True(t, ok)
	items := conv.Items()
	require.Len(t, items, 2)
	n, ok := items[1].(*model.Notification)
	require.True(t, ok)
	assert.Contains(t, n.Text, tasks.ErrQueueFull.Error())
}

func TestSubmit_WaitTimeoutAddsNotification(t *testing.T) {
	h := newHarness(t)
	// One start token that is never refilled within the timeout.
	h.d.runner = tasks.NewRunner(tasks.NewQueue(10), tasks.Options{
		MaxConcurrent: 4,
		Timeout:       50 * time.Millisecond,
		Rate:          rate.Limit(0.001),
		Burst:         1,
	})
	t.Cleanup(h.d.runner.Stop)
	h.outbox.block = make(chan struct{})
	defer close(h.outbox.block)

	dm := model.ConversationID{Channel: 30}
	h.d.Execute(Open{Conversation: dm})
	h.d.Execute(Send{Conversation: dm, Content: "hi"})

	// Both the blocked history fetch and the send, which never got past
	// the rate limiter, are reported.
	ops := map[string]bool{}
	for i := 0; i < 2; i++ {
		cmd := h.await(t)
		failed, ok := cmd.(outboundFailed)
		require.True(t, ok, "got %T", cmd)
		ops[failed.op] = true
	}
	assert.True(t, ops["send"])
	assert.True(t, ops["fetch_history"])

	h.outbox.mu.Lock()
	assert.Empty(t, h.outbox.sent, "send ran without a start token")
	h.outbox.mu.Unlock()
}

func TestMemberChunk_BadNonce(t *testing.T) {
	h := newHarness(t)
	h.openEmpty(t, testConv)
	before := len(h.sink.redraws[testConv])
	h.d.Handle(&discord.MemberChunk{GuildID: testGuild, Nonce: "not-a-channel"})
	assert.Len(t, h.sink.redraws[testConv], before)
}

func TestRequestMembers_TruncatesBatch(t *testing.T) {
	h := newHarness(t)
	unknown := render.NewIDSet()
	for i := 0; i < 150; i++ {
		unknown.Add(discord.ID(1000 + i))
	}
	h.d.requestMembers(testConv, unknown)

	select {
	case req := <-h.outbox.members:
		assert.Len(t, req.ids, MaxMemberRequest)
	case <-time.After(2 * time.Second):
		t.Fatal("no member request")
	}
}

// =============================================================================
// TYPING
// =============================================================================

func TestTyping(t *testing.T) {
	h := newHarness(t)
	h.openEmpty(t, testConv)

	h.d.Handle(&discord.TypingStart{ChannelID: testChannel, GuildID: testGuild, UserID: selfID})
	assert.Empty(t, h.sink.typing[testConv])

	h.d.Handle(&discord.TypingStart{ChannelID: testChannel, GuildID: testGuild, UserID: ferrisID})
	assert.Equal(t, []string{"crab"}, h.sink.typing[testConv])

	h.now = h.now.Add(9900 * time.Millisecond)
	h.d.sweepTyping()
	assert.Equal(t, []string{"crab"}, h.sink.typing[testConv])

	h.now = h.now.Add(200 * time.Millisecond)
	h.d.sweepTyping()
	assert.Empty(t, h.sink.typing[testConv])
}

func TestTyping_ClearedByMessage(t *testing.T) {
	h := newHarness(t)
	h.openEmpty(t, testConv)

	h.d.Handle(&discord.TypingStart{ChannelID: testChannel, GuildID: testGuild, UserID: ferrisID,
		Member: &discord.Member{Nick: "crabby"}})
	assert.Equal(t, []string{"crabby"}, h.sink.typing[testConv])

	h.d.Handle(message(100, ferris, "done typing"))
	assert.Empty(t, h.sink.typing[testConv])
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestOpen_LoadsHistoryBeforeLiveMessages(t *testing.T) {
	h := newHarness(t)
	h.outbox.block = make(chan struct{})
	h.outbox.history = []discord.Message{
		{ID: 12, ChannelID: testChannel, GuildID: testGuild, Author: ferris, Content: "newer"},
		{ID: 11, ChannelID: testChannel, GuildID: testGuild, Author: ferris, Content: "older"},
		{ID: 13, ChannelID: testChannel, GuildID: testGuild, Author: ferris, Content: "dup"},
	}

	h.d.Execute(Open{Conversation: testConv})
	conv, ok := h.d.registry.Get(testConv)
	require.True(t, ok)

	// A live message arrives while the fetch is outstanding.
	h.d.Handle(message(13, ferris, "live"))
	close(h.outbox.block)
	h.await(t)

	assert.Equal(t, []model.ItemID{model.RemoteID(11), model.RemoteID(12), model.RemoteID(13)}, itemIDs(conv))
	item, _ := conv.Get(model.RemoteID(13))
	assert.Equal(t, "live", item.(*model.Remote).Message.Content)
	assert.Len(t, h.sink.lastRedraw(testConv), 3)

	require.Eventually(t, func() bool {
		h.outbox.mu.Lock()
		defer h.outbox.mu.Unlock()
		return len(h.outbox.subscribed) == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestOpenPins(t *testing.T) {
	h := newHarness(t)
	h.outbox.pins = []discord.Message{{ID: 7, ChannelID: testChannel, GuildID: testGuild, Author: ferris, Content: "pinned", Pinned: true}}

	h.d.Execute(OpenPins{Conversation: testConv})
	h.await(t)

	pins := model.ConversationID{Guild: testGuild, Channel: testChannel, Pins: true}
	conv, ok := h.d.registry.Get(pins)
	require.True(t, ok)
	assert.Equal(t, []model.ItemID{model.RemoteID(7)}, itemIDs(conv))
	_, ok = h.d.registry.Get(testConv)
	assert.False(t, ok)
}

func TestClose_LateCompletionIsNoop(t *testing.T) {
	h := newHarness(t)
	h.d.Execute(Open{Conversation: testConv})
	h.d.Execute(Close{Conversation: testConv})

	h.d.bulkLoad(testConv, []discord.Message{{ID: 1, ChannelID: testChannel}})
	_, ok := h.d.registry.Get(testConv)
	assert.False(t, ok)

	h.d.Handle(message(100, ferris, "after close"))
	assert.Empty(t, h.sink.printed[testConv])
}

func TestApplyOptions(t *testing.T) {
	h := newHarness(t)
	conv := h.openEmpty(t, testConv)
	for _, id := range []discord.ID{100, 101, 102} {
		h.d.Handle(message(id, ferris, "**bold**"))
	}

	cfg := DefaultConfig()
	cfg.Capacity = 2
	cfg.Render.ShowFormatting = false
	h.d.Execute(ApplyOptions{Config: cfg})

	assert.Equal(t, []model.ItemID{model.RemoteID(101), model.RemoteID(102)}, itemIDs(conv))
	lines := h.sink.lastRedraw(testConv)
	require.Len(t, lines, 2)
	assert.Equal(t, "bold", lines[0].Body.String())
}

func TestReady_AutojoinAndStatus(t *testing.T) {
	h := newHarness(t)
	h.d.cfg.Autojoin = []model.ConversationID{testConv}

	h.d.Handle(&discord.Ready{User: discord.User{ID: selfID, Username: "me"}})

	assert.Equal(t, []string{"Connected as me"}, h.sink.status)
	_, ok := h.d.registry.Get(testConv)
	assert.True(t, ok)
}

func TestForwardedEvents(t *testing.T) {
	h := newHarness(t)
	h.openEmpty(t, testConv)

	update := &discord.MemberListUpdate{GuildID: testGuild, MemberCount: 3}
	h.d.Handle(update)
	assert.Equal(t, []*discord.MemberListUpdate{update}, h.sink.memberLists)

	before := len(h.sink.redraws[testConv])
	h.d.Handle(&discord.ChannelUpdate{Channel: discord.Channel{ID: testChannel, GuildID: testGuild, Name: "lobby"}})
	assert.Equal(t, []string{"Channel lobby updated"}, h.sink.status)
	assert.Len(t, h.sink.redraws[testConv], before+1)
}

// =============================================================================
// LOOP
// =============================================================================

func TestRun_EndsWhenEventsClose(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.d.Post(Open{Conversation: model.ConversationID{Channel: 99}}))

	events := make(chan discord.Event, 1)
	events <- &discord.MessageCreate{Message: discord.Message{ID: 1, ChannelID: 98}}
	close(events)

	require.NoError(t, h.d.Run(context.Background(), events))
	assert.ErrorIs(t, h.d.Post(RedrawAll{}), ErrClosed)
}

func TestRun_ContextCanceled(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := h.d.Run(ctx, make(chan discord.Event))
	assert.ErrorIs(t, err, context.Canceled)
}
