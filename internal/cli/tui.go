// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ktemkin/weechat-discord/internal/ui/chat"
	"github.com/ktemkin/weechat-discord/internal/ui/styles"
)

// HandleTUI runs the full-screen client.
func HandleTUI(ctx context.Context, args Args) error {
	if err := RequiresTTY("tui"); err != nil {
		return err
	}
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	if err := cfg.RequireToken(); err != nil {
		return err
	}
	path, err := configFile(args)
	if err != nil {
		return err
	}

	s, err := newSession(cfg, path, true)
	if err != nil {
		return err
	}
	defer s.close()

	m := chat.New(chat.Options{
		Theme:      styles.NewTheme(),
		Post:       s.post,
		Name:       s.conversationName,
		TimeLayout: cfg.Look.TimestampFormat,
		Location:   time.Local,
		TypingMax:  cfg.Look.TypingListMax,
		Capacity:   cfg.Buffer.MaxMessages,
	})
	p := tea.NewProgram(m, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		err := s.run(ctx, chat.NewSink(p.Send))
		if err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error("session ended", "error", err)
		}
		done <- err
	}()

	_, err = p.Run()
	cancel()
	runErr := <-done
	if err != nil {
		return &CommandError{Command: "tui", Action: "run", Err: err}
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
