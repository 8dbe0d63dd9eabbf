// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/ktemkin/weechat-discord/internal/cache"
	"github.com/ktemkin/weechat-discord/internal/discord"
	"github.com/ktemkin/weechat-discord/internal/logging"
)

// ErrClosed is returned by writes after the connection ended.
var ErrClosed = errors.New("gateway connection closed")

const (
	// DefaultURL is the production gateway endpoint.
	DefaultURL = "wss://gateway.discord.gg/?v=9&encoding=json"

	handshakeTimeout = 15 * time.Second
	writeTimeout     = 10 * time.Second
	eventBuffer      = 256

	// maxSubscribedChannels is how many recent channels per guild keep an
	// op 14 subscription.
	maxSubscribedChannels = 5
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config describes one gateway session.
type Config struct {
	URL     string
	Token   string
	Intents int

	// WriteRate paces outbound commands; the service allows 120 per minute.
	WriteRate rate.Limit
	Burst     int
}

// DefaultConfig returns a config for token with the production endpoint.
func DefaultConfig(token string) Config {
	return Config{
		URL:       DefaultURL,
		Token:     token,
		WriteRate: rate.Every(time.Minute / 110),
		Burst:     5,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is a gateway websocket session. Inbound dispatches are decoded,
// folded into the cache and delivered on Events in arrival order. The
// channel is closed when the connection ends; there is no reconnection.
type Client struct {
	cfg     Config
	cache   *cache.Memory
	log     *slog.Logger
	conn    *websocket.Conn
	limiter *rate.Limiter

	writeMu sync.Mutex

	// seq is the last dispatch sequence number, or -1.
	seq      atomic.Int64
	acked    atomic.Bool
	interval time.Duration

	events    chan discord.Event
	closed    chan struct{}
	closeOnce sync.Once

	subsMu sync.Mutex
	subs   map[discord.ID][]discord.ID
}

// Dial connects, waits for hello, identifies and starts the read and
// heartbeat goroutines.
func Dial(ctx context.Context, cfg Config, c *cache.Memory, log *slog.Logger) (*Client, error) {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	limit := cfg.WriteRate
	if limit == 0 {
		limit = rate.Inf
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, cfg.URL, http.Header{})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial gateway: status=%d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial gateway: %w", err)
	}

	cl := &Client{
		cfg:     cfg,
		cache:   c,
		log:     logging.OrDiscard(log),
		conn:    conn,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		events:  make(chan discord.Event, eventBuffer),
		closed:  make(chan struct{}),
		subs:    make(map[discord.ID][]discord.ID),
	}
	cl.seq.Store(-1)
	cl.acked.Store(true)

	if err := cl.handshake(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	go cl.readLoop()
	go cl.heartbeatLoop()
	return cl, nil
}

// Events returns the inbound event stream.
func (c *Client) Events() <-chan discord.Event { return c.events }

// Done is closed once the connection has ended.
func (c *Client) Done() <-chan struct{} { return c.closed }

// Close ends the session. The events channel is closed by the read loop
// shortly after.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// handshake reads hello and sends identify.
func (c *Client) handshake(ctx context.Context) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetReadDeadline(deadline)
		defer c.conn.SetReadDeadline(time.Time{})
	}
	var p payload
	if err := c.conn.ReadJSON(&p); err != nil {
		return fmt.Errorf("read hello: %w", err)
	}
	if p.Op != OpHello {
		return fmt.Errorf("expected hello, got op %d", p.Op)
	}
	var h hello
	if err := json.Unmarshal(p.D, &h); err != nil {
		return fmt.Errorf("decode hello: %w", err)
	}
	if h.HeartbeatInterval <= 0 {
		return fmt.Errorf("invalid heartbeat interval %d", h.HeartbeatInterval)
	}
	c.interval = time.Duration(h.HeartbeatInterval) * time.Millisecond

	return c.write(outbound{Op: OpIdentify, D: identify{
		Token:   c.cfg.Token,
		Intents: c.cfg.Intents,
		Properties: identifyProperties{
			OS:      "linux",
			Browser: "weecord",
			Device:  "weecord",
		},
	}})
}

// =============================================================================
// READ LOOP
// =============================================================================

func (c *Client) readLoop() {
	defer close(c.events)
	defer c.Close()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
			default:
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.log.Warn("gateway read failed", "error", err)
				} else {
					c.log.Info("gateway closed by peer")
				}
			}
			return
		}

		var p payload
		if err := json.Unmarshal(data, &p); err != nil {
			c.log.Warn("undecodable gateway frame", "error", err)
			continue
		}
		if !c.handleFrame(&p) {
			return
		}
	}
}

// handleFrame processes one frame and reports whether reading continues.
func (c *Client) handleFrame(p *payload) bool {
	switch p.Op {
	case OpDispatch:
		if p.S != nil {
			c.seq.Store(*p.S)
		}
		ev, err := discord.DecodeEvent(p.T, p.D)
		if errors.Is(err, discord.ErrUnknownEvent) {
			c.log.Debug("skipping dispatch", "event", p.T)
			return true
		}
		if err != nil {
			c.log.Warn("dropping undecodable dispatch", "event", p.T, "error", err)
			return true
		}
		if c.cache != nil {
			c.cache.Apply(ev)
		}
		select {
		case c.events <- ev:
			return true
		case <-c.closed:
			return false
		}
	case OpHeartbeat:
		if err := c.heartbeat(); err != nil {
			c.log.Warn("heartbeat failed", "error", err)
		}
	case OpHeartbeatAck:
		c.acked.Store(true)
	case OpReconnect, OpInvalidSession:
		c.log.Warn("gateway asked to reconnect; closing", "op", p.Op)
		return false
	default:
		c.log.Debug("ignoring gateway op", "op", p.Op)
	}
	return true
}

// =============================================================================
// HEARTBEAT
// =============================================================================

func (c *Client) heartbeatLoop() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.closed:
			return
		case <-ticker.C:
			if !c.acked.Swap(false) {
				c.log.Warn("heartbeat not acknowledged; closing")
				c.Close()
				return
			}
			if err := c.heartbeat(); err != nil {
				c.log.Warn("heartbeat failed", "error", err)
				c.Close()
				return
			}
		}
	}
}

func (c *Client) heartbeat() error {
	var seq any
	if s := c.seq.Load(); s >= 0 {
		seq = s
	}
	return c.write(outbound{Op: OpHeartbeat, D: seq})
}

// =============================================================================
// WRITES
// =============================================================================

func (c *Client) write(frame outbound) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("write op %d: %w", frame.Op, err)
	}
	return nil
}

// command writes a paced outbound command.
func (c *Client) command(ctx context.Context, frame outbound) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return c.write(frame)
}

// RequestMembers sends op 8 for the given users. The nonce comes back in
// the member chunk.
func (c *Client) RequestMembers(ctx context.Context, guild discord.ID, ids []discord.ID, nonce string) error {
	if len(ids) == 0 {
		return nil
	}
	return c.command(ctx, outbound{Op: OpRequestGuildMembers, D: requestGuildMembers{
		GuildID: guild,
		UserIDs: ids,
		Nonce:   nonce,
	}})
}

// Subscribe moves channel to the front of the guild's recent channels,
// keeping at most five, and sends op 14 when the channel was not already
// subscribed.
func (c *Client) Subscribe(ctx context.Context, guild, channel discord.ID) error {
	c.subsMu.Lock()
	recent, fresh := touchRecent(c.subs[guild], channel, maxSubscribedChannels)
	c.subs[guild] = recent
	c.subsMu.Unlock()

	if !fresh {
		return nil
	}
	sub := guildSubscription{GuildID: guild, Channels: make(channelRanges, len(recent))}
	for _, ch := range recent {
		sub.Channels[ch] = [][2]int{{0, 99}}
	}
	if len(recent) == 1 {
		sub.Typing, sub.Activities, sub.Threads = true, true, true
	}
	return c.command(ctx, outbound{Op: OpGuildSubscriptions, D: sub})
}

// touchRecent moves id to the front of list, trimming it to max. fresh
// reports whether id was not in the list before.
func touchRecent(list []discord.ID, id discord.ID, max int) (out []discord.ID, fresh bool) {
	out = make([]discord.ID, 0, max)
	out = append(out, id)
	fresh = true
	for _, v := range list {
		if v == id {
			fresh = false
			continue
		}
		if len(out) < max {
			out = append(out, v)
		}
	}
	return out, fresh
}
