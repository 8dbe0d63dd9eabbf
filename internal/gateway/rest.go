// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"golang.org/x/time/rate"

	"github.com/ktemkin/weechat-discord/internal/discord"
	"github.com/ktemkin/weechat-discord/internal/dispatch"
)

// DefaultAPIURL is the production REST base.
const DefaultAPIURL = "https://discord.com/api/v9"

const (
	defaultRESTTimeout = 15 * time.Second
	maxHistoryLimit    = 100
)

// HTTPError is a non-2xx REST response.
type HTTPError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// =============================================================================
// REST CLIENT
// =============================================================================

// REST performs the HTTP side of the protocol: sends and fetches.
type REST struct {
	base    string
	token   string
	client  *fasthttp.Client
	limiter *rate.Limiter
	timeout time.Duration
}

// NewREST creates a REST client for base, authenticating with token.
func NewREST(base, token string) *REST {
	if base == "" {
		base = DefaultAPIURL
	}
	return &REST{
		base:    strings.TrimRight(base, "/"),
		token:   token,
		client:  &fasthttp.Client{Name: "weecord", MaxConnsPerHost: 8},
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		timeout: defaultRESTTimeout,
	}
}

type createMessage struct {
	Content string `json:"content"`
	Nonce   string `json:"nonce,omitempty"`
}

// SendMessage posts a message. The nonce is echoed in the resulting
// message-create event.
func (r *REST) SendMessage(ctx context.Context, req dispatch.SendRequest) (discord.Message, error) {
	body, err := json.Marshal(createMessage{
		Content: req.Content,
		Nonce:   strconv.FormatUint(req.Nonce, 10),
	})
	if err != nil {
		return discord.Message{}, fmt.Errorf("encode message: %w", err)
	}
	var msg discord.Message
	path := "/channels/" + req.ChannelID.String() + "/messages"
	if err := r.do(ctx, fasthttp.MethodPost, path, body, &msg); err != nil {
		return discord.Message{}, err
	}
	return msg, nil
}

// FetchPins returns the channel's pinned messages.
func (r *REST) FetchPins(ctx context.Context, channel discord.ID) ([]discord.Message, error) {
	var msgs []discord.Message
	if err := r.do(ctx, fasthttp.MethodGet, "/channels/"+channel.String()+"/pins", nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// FetchHistory returns up to limit of the channel's most recent messages,
// newest first as the API sends them.
func (r *REST) FetchHistory(ctx context.Context, channel discord.ID, limit int) ([]discord.Message, error) {
	if limit <= 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	path := "/channels/" + channel.String() + "/messages?limit=" + strconv.Itoa(limit)
	var msgs []discord.Message
	if err := r.do(ctx, fasthttp.MethodGet, path, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// do runs one request. fasthttp has no context support, so the context
// deadline (or the client timeout) becomes the request deadline.
func (r *REST) do(ctx context.Context, method, path string, body []byte, out any) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(r.base + path)
	req.Header.SetMethod(method)
	req.Header.Set("Authorization", r.token)
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	deadline := time.Now().Add(r.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := r.client.DoDeadline(req, resp, deadline); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	status := resp.StatusCode()
	if status < 200 || status > 299 {
		return &HTTPError{Method: method, Path: path, Status: status, Body: string(resp.Body())}
	}
	if out == nil || status == fasthttp.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// =============================================================================
// OUTBOX
// =============================================================================

// Outbox joins the websocket and REST halves into a dispatch.Outbox.
type Outbox struct {
	*Client
	*REST
}

var _ dispatch.Outbox = Outbox{}
