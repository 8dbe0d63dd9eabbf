// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/peterh/liner"

	"github.com/ktemkin/weechat-discord/internal/config"
	"github.com/ktemkin/weechat-discord/internal/discord"
	"github.com/ktemkin/weechat-discord/internal/dispatch"
	"github.com/ktemkin/weechat-discord/internal/model"
	"github.com/ktemkin/weechat-discord/internal/render"
	"github.com/ktemkin/weechat-discord/internal/typing"
	"github.com/ktemkin/weechat-discord/internal/ui/styles"
)

// errQuit ends the line-mode loop.
var errQuit = errors.New("quit")

// =============================================================================
// LINE SINK
// =============================================================================

// lineSink prints dispatcher output as plain scrolling lines, each tagged
// with its conversation.
type lineSink struct {
	mu        sync.Mutex
	w         io.Writer
	theme     *styles.Theme
	layout    styles.LineLayout
	loc       *time.Location
	name      func(model.ConversationID) string
	typingMax int
	active    model.ConversationID
}

func (s *lineSink) setActive(id model.ConversationID) {
	s.mu.Lock()
	s.active = id
	s.mu.Unlock()
}

func (s *lineSink) Print(conv model.ConversationID, line render.Line) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.printLocked(conv, line)
}

func (s *lineSink) printLocked(conv model.ConversationID, line render.Line) {
	label := s.name(conv)
	for _, row := range s.theme.Line(line, s.layout, s.loc) {
		fmt.Fprintf(s.w, "%s %s\n", label, row)
	}
}

func (s *lineSink) Redraw(conv model.ConversationID, lines []render.Line) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "== %s ==\n", s.name(conv))
	for _, l := range lines {
		s.printLocked(conv, l)
	}
}

// Typing is shown for the active conversation only.
func (s *lineSink) Typing(conv model.ConversationID, names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv != s.active || len(names) == 0 {
		return
	}
	fmt.Fprintf(s.w, "%s %s\n", s.name(conv), s.theme.TypingBar.Render(typing.Format(names, s.typingMax)))
}

// Notify rings the bell for highlights outside the active conversation.
func (s *lineSink) Notify(conv model.ConversationID, tags []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conv == s.active {
		return
	}
	for _, t := range tags {
		if t == render.TagNotifyHighlight || t == render.TagNotifyPrivate {
			fmt.Fprintf(s.w, "\a-- activity in %s\n", s.name(conv))
			return
		}
	}
}

func (s *lineSink) MemberList(*discord.MemberListUpdate) {}

func (s *lineSink) Status(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "-- %s\n", text)
}

// =============================================================================
// INPUT
// =============================================================================

// lineInput turns one input line into a dispatcher command. It returns the
// conversation that is active afterwards, and errQuit for /quit.
func lineInput(input string, active model.ConversationID) (dispatch.Command, model.ConversationID, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, active, nil
	}
	if !strings.HasPrefix(input, "/") || strings.HasPrefix(input, "//") {
		if active.Channel.IsZero() {
			return nil, active, errors.New("no conversation open; use /open <guild>/<channel>")
		}
		return dispatch.Send{Conversation: active, Content: strings.TrimPrefix(input, "/")}, active, nil
	}

	fields := strings.Fields(input)
	name, rest := strings.ToLower(strings.TrimPrefix(fields[0], "/")), fields[1:]
	target := func() (model.ConversationID, error) {
		if len(rest) > 0 {
			return model.ParseConversationID(rest[0])
		}
		if active.Channel.IsZero() {
			return active, errors.New("no conversation open")
		}
		return active, nil
	}

	switch name {
	case "open", "o", "join", "j", "switch", "s":
		if len(rest) != 1 {
			return nil, active, fmt.Errorf("usage: /%s <guild>/<channel>", name)
		}
		id, err := model.ParseConversationID(rest[0])
		if err != nil {
			return nil, active, err
		}
		if name == "switch" || name == "s" {
			return nil, id, nil
		}
		if id.Pins {
			return dispatch.OpenPins{Conversation: id}, id, nil
		}
		return dispatch.Open{Conversation: id}, id, nil
	case "pins":
		id, err := target()
		if err != nil {
			return nil, active, err
		}
		id.Pins = true
		return dispatch.OpenPins{Conversation: id}, id, nil
	case "close", "part":
		id, err := target()
		if err != nil {
			return nil, active, err
		}
		next := active
		if id == active {
			next = model.ConversationID{}
		}
		return dispatch.Close{Conversation: id}, next, nil
	case "redraw":
		if len(rest) == 1 && rest[0] == "all" {
			return dispatch.RedrawAll{}, active, nil
		}
		id, err := target()
		if err != nil {
			return nil, active, err
		}
		return dispatch.Redraw{Conversation: id}, active, nil
	case "quit", "q", "exit":
		return nil, active, errQuit
	}
	return nil, active, fmt.Errorf("unknown command /%s", name)
}

// =============================================================================
// LINE MODE
// =============================================================================

// HandleLine runs the line-mode client: liner reads input with history while
// dispatcher output scrolls past on out.
func HandleLine(ctx context.Context, args Args, out io.Writer) error {
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
	s, err := newSession(cfg, path, false)
	if err != nil {
		return err
	}
	defer s.close()

	sink := &lineSink{
		w:         out,
		theme:     styles.NewThemeFor(out, ColorProfile(), true),
		layout:    styles.LineLayout{TimeLayout: cfg.Look.TimestampFormat, PrefixWidth: 12},
		loc:       time.Local,
		name:      s.conversationName,
		typingMax: cfg.Look.TypingListMax,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- s.run(ctx, sink)
		cancel()
	}()

	prompt := newPrompt()
	defer prompt.close()

	var active model.ConversationID
	for ctx.Err() == nil {
		input, err := prompt.read("> ")
		if err != nil {
			break
		}
		cmd, next, err := lineInput(input, active)
		if errors.Is(err, errQuit) {
			break
		}
		if err != nil {
			sink.Status(err.Error())
			continue
		}
		active = next
		sink.setActive(active)
		if cmd == nil {
			continue
		}
		if err := s.post(cmd); err != nil {
			sink.Status(err.Error())
		}
	}

	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// prompt wraps liner with a history file in the config directory.
type prompt struct {
	state       *liner.State
	historyFile string
}

func newPrompt() *prompt {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	p := &prompt{state: state, historyFile: filepath.Join(dir, "line_history")}
	if f, err := os.Open(p.historyFile); err == nil {
		p.state.ReadHistory(f)
		f.Close()
	}
	return p
}

func (p *prompt) read(text string) (string, error) {
	input, err := p.state.Prompt(text)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		p.state.AppendHistory(input)
	}
	return input, nil
}

// close saves history with owner-only permissions and restores the terminal.
func (p *prompt) close() {
	if err := os.MkdirAll(filepath.Dir(p.historyFile), 0o700); err == nil {
		if f, err := os.OpenFile(p.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
			p.state.WriteHistory(f)
			f.Close()
		}
	}
	p.state.Close()
}
