// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package replay

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ktemkin/weechat-discord/internal/discord"
	"github.com/ktemkin/weechat-discord/internal/dispatch"
	"github.com/ktemkin/weechat-discord/internal/model"
)

const baseScript = `
now: 2024-05-01T12:00:00Z
echo_sends: true
ready:
  user: {id: "1", username: me}
  session_id: s
  guilds:
    - id: "10"
      name: rustaceans
      channels:
        - {id: "20", name: general, type: 0}
      members:
        - user: {id: "1", username: me}
        - user: {id: "5", username: ferris}
          nick: crab
history:
  "20":
    - {id: "101", guild_id: "10", author: {id: "5", username: ferris}, content: second, timestamp: "2024-05-01T11:59:00Z"}
    - {id: "100", guild_id: "10", author: {id: "5", username: ferris}, content: first, timestamp: "2024-05-01T11:58:00Z"}
pins:
  "20":
    - {id: "100", guild_id: "10", author: {id: "5", username: ferris}, content: first, pinned: true}
steps:
  - open: 10/20
  - event: MESSAGE_CREATE
    data: {id: "102", channel_id: "20", guild_id: "10", author: {id: "7", username: ghost}, content: "hi <@8>"}
  - event: GUILD_MEMBERS_CHUNK
    data: {guild_id: "10", nonce: "20", members: [{user: {id: "8", username: wanderer}}]}
  - event: TYPING_START
    data: {channel_id: "20", guild_id: "10", user_id: "5"}
  - send: {conversation: 10/20, content: hello}
`

var general = model.ConversationID{Guild: 10, Channel: 20}

func run(t *testing.T, script string) *Result {
	t.Helper()
	s, err := Decode(strings.NewReader(script))
	require.NoError(t, err)
	res, err := Run(context.Background(), s, Options{Config: dispatch.DefaultConfig()})
	require.NoError(t, err)
	return res
}

func bodies(c Conversation) []string {
	var out []string
	for _, l := range c.Lines {
		out = append(out, l.Prefix.String()+": "+l.Body.String())
	}
	return out
}

func TestRun_FullSession(t *testing.T) {
	res := run(t, baseScript)

	require.NotEmpty(t, res.Statuses)
	assert.True(t, strings.HasPrefix(res.Statuses[0], "Connected as me"), res.Statuses[0])

	conv, ok := res.Conversation(general)
	require.True(t, ok)
	assert.Equal(t, []string{
		"crab: first",
		"crab: second",
		"ghost: hi @wanderer",
		"me: hello",
	}, bodies(conv))
	assert.Equal(t, []string{"crab"}, conv.Typing)

	// The echo was replaced by the confirmed message.
	last := conv.Lines[len(conv.Lines)-1]
	assert.Equal(t, model.IDRemote, last.ID.Kind)

	require.Len(t, res.MemberRequests, 1)
	assert.Equal(t, MemberRequest{Guild: 10, IDs: []discord.ID{8}, Nonce: "20"}, res.MemberRequests[0])
	assert.Equal(t, []model.ConversationID{general}, res.Subscriptions)
	require.Len(t, res.Sent, 1)
	assert.Equal(t, "hello", res.Sent[0].Content)
}

func TestRun_AdvanceExpiresTyping(t *testing.T) {
	res := run(t, baseScript+"  - advance: 11s\n")
	conv, ok := res.Conversation(general)
	require.True(t, ok)
	assert.Empty(t, conv.Typing)
}

func TestRun_FailedSendKeepsEcho(t *testing.T) {
	res := run(t, strings.Replace(baseScript, "echo_sends: true", "fail_sends: true", 1))
	conv, ok := res.Conversation(general)
	require.True(t, ok)

	lines := bodies(conv)
	require.Len(t, lines, 5)
	assert.Equal(t, "me: hello", lines[3])
	assert.Equal(t, "=!=: Sending message failed: "+ErrSendFailed.Error(), lines[4])
	assert.Equal(t, model.IDNonce, conv.Lines[3].ID.Kind)
}

func TestRun_PinsAndClose(t *testing.T) {
	res := run(t, baseScript+"  - pins: 10/20\n  - close: 10/20\n")

	_, ok := res.Conversation(general)
	assert.False(t, ok, "closed conversation is still reported")
	pins, ok := res.Conversation(model.ConversationID{Guild: 10, Channel: 20, Pins: true})
	require.True(t, ok)
	assert.Equal(t, []string{"crab: first"}, bodies(pins))
}

func TestDecode_RejectsBadSteps(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   string
	}{
		{"empty step", "steps:\n  - {}\n", "empty step"},
		{"two actions", "steps:\n  - {open: 10/20, close: 10/20}\n", "more than one action"},
		{"bad conversation", "steps:\n  - open: general\n", "conversation"},
		{"data without event", "steps:\n  - {data: {}, advance: 1s}\n", "data without event"},
		{"unknown field", "stepz: []\n", "stepz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.script))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestWrite(t *testing.T) {
	res := run(t, baseScript)
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, res, "15:04"))
	out := buf.String()
	assert.Contains(t, out, "== 10/20 ==\n")
	assert.Contains(t, out, "11:58 crab | first\n")
	assert.Contains(t, out, "typing: crab\n")
	assert.Contains(t, out, "-- Connected as me")
}
