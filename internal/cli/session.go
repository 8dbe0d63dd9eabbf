// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/ktemkin/weechat-discord/internal/cache"
	"github.com/ktemkin/weechat-discord/internal/config"
	"github.com/ktemkin/weechat-discord/internal/dispatch"
	"github.com/ktemkin/weechat-discord/internal/gateway"
	"github.com/ktemkin/weechat-discord/internal/logging"
	"github.com/ktemkin/weechat-discord/internal/metrics"
	"github.com/ktemkin/weechat-discord/internal/model"
	"github.com/ktemkin/weechat-discord/internal/tasks"
)

// errNotConnected is returned by post before the dispatcher exists.
var errNotConnected = errors.New("not connected yet")

const (
	// taskHistory is how many finished tasks the queue remembers.
	taskHistory = 100
	// maxOutstanding bounds unfinished outbound tasks; beyond it new
	// operations fail with a notice in their conversation.
	maxOutstanding = 64
)

// =============================================================================
// SESSION
// =============================================================================

// session wires one live connection: logger, metrics, cache, gateway,
// task runner and dispatcher.
type session struct {
	cfg        *config.Config
	configPath string
	log        *slog.Logger
	logCloser  io.Closer
	metrics    *metrics.Metrics
	cache      *cache.Memory

	disp atomic.Pointer[dispatch.Dispatcher]
}

func newSession(cfg *config.Config, configPath string, tui bool) (*session, error) {
	log, closer, err := logging.New(cfg.Logging.Level, cfg.LogSink(tui))
	if err != nil {
		return nil, err
	}
	s := &session{
		cfg:        cfg,
		configPath: configPath,
		log:        log,
		logCloser:  closer,
		cache:      cache.NewMemory(),
	}
	if cfg.Metrics.Listen != "" {
		s.metrics = metrics.New()
	}
	return s, nil
}

func (s *session) close() {
	s.logCloser.Close()
}

// post hands cmd to the dispatcher once it is running.
func (s *session) post(cmd dispatch.Command) error {
	d := s.disp.Load()
	if d == nil {
		return errNotConnected
	}
	return d.Post(cmd)
}

// conversationName labels a conversation with its cached channel name.
func (s *session) conversationName(id model.ConversationID) string {
	ch, ok := s.cache.Channel(id.Channel)
	if !ok {
		return id.String()
	}
	if id.IsPrivate() {
		return ch.DisplayName()
	}
	return "#" + ch.DisplayName()
}

// run connects and runs the dispatcher until ctx ends or the connection
// closes. Status updates go to sink.
func (s *session) run(ctx context.Context, sink dispatch.Sink) error {
	dcfg, err := s.cfg.Dispatch()
	if err != nil {
		return err
	}

	gcfg := gateway.DefaultConfig(s.cfg.Connection.Token)
	gcfg.URL = s.cfg.Connection.GatewayURL
	sink.Status("connecting")
	client, err := gateway.Dial(ctx, gcfg, s.cache, s.log)
	if err != nil {
		sink.Status("connection failed: " + err.Error())
		return &NetworkError{Err: err}
	}
	defer client.Close()

	opts := tasks.DefaultOptions()
	opts.OnDone = func(t *tasks.Task, err error) {
		s.log.Debug("task finished", "op", t.Op, "conversation", t.Conversation,
			"took", t.Duration(), "error", err)
	}
	runner := tasks.NewRunner(tasks.NewQueueWithOptions(taskHistory, maxOutstanding), opts)
	defer runner.Stop()

	d := dispatch.New(dispatch.Deps{
		Cache:   s.cache,
		Outbox:  gateway.Outbox{Client: client, REST: gateway.NewREST(s.cfg.Connection.APIURL, s.cfg.Connection.Token)},
		Sink:    sink,
		Runner:  runner,
		Logger:  s.log,
		Metrics: s.metrics,
		Config:  dcfg,
	})
	s.disp.Store(d)
	sink.Status("connected")

	if s.metrics != nil {
		go func() {
			if err := s.metrics.Serve(ctx, s.cfg.Metrics.Listen); err != nil {
				s.log.Warn("metrics server stopped", "error", err)
			}
		}()
	}
	s.watchConfig(ctx)

	err = d.Run(ctx, client.Events())
	if err == nil {
		sink.Status("disconnected")
	}
	return err
}

// watchConfig reapplies display and buffer settings when the config file
// changes. Connection settings need a restart.
func (s *session) watchConfig(ctx context.Context) {
	if s.configPath == "" {
		return
	}
	if _, err := os.Stat(s.configPath); err != nil {
		return
	}
	w, err := config.NewWatcher(s.configPath, config.DefaultDebounce, s.log, func(cfg *config.Config) {
		dcfg, err := cfg.Dispatch()
		if err != nil {
			s.log.Warn("ignoring reloaded config", "error", err)
			return
		}
		if err := s.post(dispatch.ApplyOptions{Config: dcfg}); err != nil {
			s.log.Warn("could not apply reloaded config", "error", err)
		}
	})
	if err != nil {
		s.log.Warn("config watcher disabled", "error", err)
		return
	}
	go w.Run(ctx)
}
