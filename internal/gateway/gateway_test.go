// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ktemkin/weechat-discord/internal/cache"
	"github.com/ktemkin/weechat-discord/internal/discord"
	"github.com/ktemkin/weechat-discord/internal/dispatch"
)

// fakeGateway accepts one websocket, sends hello, records identify and then
// runs script against the connection.
func fakeGateway(t *testing.T, script func(conn *websocket.Conn)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if err := conn.WriteJSON(map[string]any{"op": OpHello, "d": map[string]any{"heartbeat_interval": 60000}}); err != nil {
			return
		}
		var ident payload
		if err := conn.ReadJSON(&ident); err != nil || ident.Op != OpIdentify {
			return
		}
		script(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dispatchFrame(seq int64, name string, d any) map[string]any {
	return map[string]any{"op": OpDispatch, "s": seq, "t": name, "d": d}
}

func collect(t *testing.T, events <-chan discord.Event) []discord.Event {
	t.Helper()
	var out []discord.Event
	timeout := time.After(3 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("events channel was not closed")
			return out
		}
	}
}

func TestClient_DecodesAppliesAndCloses(t *testing.T) {
	url := fakeGateway(t, func(conn *websocket.Conn) {
		conn.WriteJSON(dispatchFrame(1, "READY", map[string]any{
			"user":       map[string]any{"id": "1", "username": "me"},
			"session_id": "abc",
			"guilds": []any{map[string]any{
				"id":       "10",
				"channels": []any{map[string]any{"id": "20", "name": "general", "type": 0}},
			}},
		}))
		conn.WriteJSON(dispatchFrame(2, "PRESENCE_UPDATE", map[string]any{}))
		conn.WriteJSON(dispatchFrame(3, "MESSAGE_CREATE", map[string]any{
			"id": "100", "channel_id": "20", "guild_id": "10", "content": "hi",
			"author": map[string]any{"id": "5", "username": "ferris"},
			"nonce":  42,
		}))
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	})

	c := cache.NewMemory()
	cl, err := Dial(context.Background(), Config{URL: url, Token: "t"}, c, nil)
	require.NoError(t, err)

	events := collect(t, cl.Events())
	require.Len(t, events, 2)
	assert.IsType(t, &discord.Ready{}, events[0])
	mc, ok := events[1].(*discord.MessageCreate)
	require.True(t, ok)
	assert.Equal(t, "hi", mc.Content)
	nonce, ok := mc.Nonce.Uint64()
	assert.True(t, ok)
	assert.Equal(t, uint64(42), nonce)

	me, ok := c.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "me", me.Username)
	_, ok = c.Channel(20)
	assert.True(t, ok)
	_, ok = c.User(5)
	assert.True(t, ok)

	assert.ErrorIs(t, cl.RequestMembers(context.Background(), 10, []discord.ID{5}, "20"), ErrClosed)
}

func TestClient_OutboundCommands(t *testing.T) {
	frames := make(chan payload, 8)
	url := fakeGateway(t, func(conn *websocket.Conn) {
		for {
			var p payload
			if err := conn.ReadJSON(&p); err != nil {
				return
			}
			frames <- p
		}
	})

	cl, err := Dial(context.Background(), Config{URL: url, Token: "t"}, cache.NewMemory(), nil)
	require.NoError(t, err)
	defer cl.Close()

	ctx := context.Background()
	require.NoError(t, cl.RequestMembers(ctx, 10, []discord.ID{5, 6}, "20"))
	require.NoError(t, cl.Subscribe(ctx, 10, 20))
	require.NoError(t, cl.Subscribe(ctx, 10, 21))
	require.NoError(t, cl.Subscribe(ctx, 10, 20)) // already subscribed: no frame

	next := func() payload {
		select {
		case p := <-frames:
			return p
		case <-time.After(2 * time.Second):
			t.Fatal("no frame")
			return payload{}
		}
	}

	p := next()
	require.Equal(t, OpRequestGuildMembers, p.Op)
	var rgm requestGuildMembers
	require.NoError(t, json.Unmarshal(p.D, &rgm))
	assert.Equal(t, discord.ID(10), rgm.GuildID)
	assert.Equal(t, []discord.ID{5, 6}, rgm.UserIDs)
	assert.Equal(t, "20", rgm.Nonce)

	p = next()
	require.Equal(t, OpGuildSubscriptions, p.Op)
	var first map[string]any
	require.NoError(t, json.Unmarshal(p.D, &first))
	assert.Equal(t, true, first["typing"])
	assert.Contains(t, first["channels"], "20")

	p = next()
	require.Equal(t, OpGuildSubscriptions, p.Op)
	var second map[string]any
	require.NoError(t, json.Unmarshal(p.D, &second))
	assert.NotContains(t, second, "typing")
	assert.Len(t, second["channels"], 2)

	select {
	case p := <-frames:
		t.Fatalf("unexpected frame op %d", p.Op)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestClient_RejectsMissingHello(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteJSON(map[string]any{"op": OpHeartbeatAck})
	}))
	defer srv.Close()

	_, err := Dial(context.Background(), Config{URL: "ws" + strings.TrimPrefix(srv.URL, "http")}, nil, nil)
	assert.ErrorContains(t, err, "expected hello")
}

func TestTouchRecent(t *testing.T) {
	tests := []struct {
		name      string
		list      []discord.ID
		id        discord.ID
		want      []discord.ID
		wantFresh bool
	}{
		{"empty", nil, 1, []discord.ID{1}, true},
		{"new goes first", []discord.ID{1, 2}, 3, []discord.ID{3, 1, 2}, true},
		{"existing moves first", []discord.ID{1, 2, 3}, 3, []discord.ID{3, 1, 2}, false},
		{"trimmed to max", []discord.ID{1, 2, 3, 4, 5}, 6, []discord.ID{6, 1, 2, 3, 4}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fresh := touchRecent(tt.list, tt.id, maxSubscribedChannels)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantFresh, fresh)
		})
	}
}

// =============================================================================
// REST
// =============================================================================

func TestREST(t *testing.T) {
	var gotAuth, gotBody, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/channels/20/messages":
			b, _ := io.ReadAll(r.Body)
			gotBody = string(b)
			io.WriteString(w, `{"id":"100","channel_id":"20","content":"hi","nonce":"7"}`)
		case r.Method == http.MethodGet && r.URL.Path == "/api/channels/20/messages":
			gotQuery = r.URL.RawQuery
			io.WriteString(w, `[{"id":"2","channel_id":"20"},{"id":"1","channel_id":"20"}]`)
		case r.Method == http.MethodGet && r.URL.Path == "/api/channels/20/pins":
			io.WriteString(w, `[{"id":"1","channel_id":"20","pinned":true}]`)
		default:
			w.WriteHeader(http.StatusForbidden)
			io.WriteString(w, `{"message":"Missing Access"}`)
		}
	}))
	defer srv.Close()

	r := NewREST(srv.URL+"/api/", "token-123")
	ctx := context.Background()

	msg, err := r.SendMessage(ctx, dispatch.SendRequest{ChannelID: 20, Content: "hi", Nonce: 7})
	require.NoError(t, err)
	assert.Equal(t, discord.ID(100), msg.ID)
	assert.Equal(t, "token-123", gotAuth)
	assert.JSONEq(t, `{"content":"hi","nonce":"7"}`, gotBody)

	history, err := r.FetchHistory(ctx, 20, 500)
	require.NoError(t, err)
	assert.Len(t, history, 2)
	assert.Equal(t, "limit=100", gotQuery)

	pins, err := r.FetchPins(ctx, 20)
	require.NoError(t, err)
	require.Len(t, pins, 1)
	assert.True(t, pins[0].Pinned)

	_, err = r.FetchPins(ctx, 21)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusForbidden, httpErr.Status)
}
