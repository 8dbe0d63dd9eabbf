// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ktemkin/weechat-discord/internal/dispatch"
	"github.com/ktemkin/weechat-discord/internal/model"
)

func TestSlashCommands(t *testing.T) {
	pins := model.ConversationID{Guild: 10, Channel: 20, Pins: true}
	dm := model.ConversationID{Channel: 30}

	tests := []struct {
		name       string
		input      string
		wantPosted []dispatch.Command
		wantActive model.ConversationID
		wantStatus string
	}{
		{
			name:       "open",
			input:      "/open 10/21",
			wantPosted: []dispatch.Command{dispatch.Open{Conversation: random}},
			wantActive: random,
		},
		{
			name:       "open alias direct message",
			input:      "/j @me/30",
			wantPosted: []dispatch.Command{dispatch.Open{Conversation: dm}},
			wantActive: dm,
		},
		{
			name:       "open pins id",
			input:      "/open 10/20/pins",
			wantPosted: []dispatch.Command{dispatch.OpenPins{Conversation: pins}},
			wantActive: pins,
		},
		{
			name:       "pins of active",
			input:      "/pins",
			wantPosted: []dispatch.Command{dispatch.OpenPins{Conversation: pins}},
			wantActive: pins,
		},
		{
			name:       "redraw active",
			input:      "/redraw",
			wantPosted: []dispatch.Command{dispatch.Redraw{Conversation: general}},
			wantActive: general,
		},
		{
			name:       "redraw all",
			input:      "/REDRAW all",
			wantPosted: []dispatch.Command{dispatch.RedrawAll{}},
			wantActive: general,
		},
		{
			name:       "open without argument",
			input:      "/open",
			wantActive: general,
			wantStatus: "usage: /open <guild>/<channel>",
		},
		{
			name:       "unknown",
			input:      "/frobnicate",
			wantActive: general,
			wantStatus: "unknown command /frobnicate (try /help)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			m := newTestModel(t, rec)
			m = step(t, m, PrintMsg{Conversation: general, Line: line("crab", "x")})

			m = typeLine(t, m, tt.input)

			assert.Equal(t, tt.wantPosted, rec.posted)
			id, ok := m.Active()
			require.True(t, ok)
			assert.Equal(t, tt.wantActive, id)
			if tt.wantStatus != "" {
				assert.Equal(t, tt.wantStatus, m.Status())
			}
		})
	}
}

func TestOpenBadIDReportsError(t *testing.T) {
	rec := &recorder{}
	m := newTestModel(t, rec)

	m = typeLine(t, m, "/open 1/2/3")

	assert.Empty(t, rec.posted)
	assert.NotEmpty(t, m.Status())
	assert.Empty(t, m.Conversations())
}

func TestCloseRemovesPane(t *testing.T) {
	rec := &recorder{}
	m := newTestModel(t, rec)
	m = step(t, m, PrintMsg{Conversation: general, Line: line("crab", "x")})
	m = step(t, m, PrintMsg{Conversation: random, Line: line("crab", "y")})

	m = typeLine(t, m, "/close")

	assert.Equal(t, []dispatch.Command{dispatch.Close{Conversation: general}}, rec.posted)
	assert.Equal(t, []model.ConversationID{random}, m.Conversations())
	id, ok := m.Active()
	require.True(t, ok)
	assert.Equal(t, random, id)

	m = typeLine(t, m, "/close 10/21")
	assert.Empty(t, m.Conversations())
	_, ok = m.Active()
	assert.False(t, ok)
}

func TestHelpToggle(t *testing.T) {
	m := newTestModel(t, &recorder{})

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyF1})
	m = next.(Model)
	require.NotNil(t, cmd, "help is rendered asynchronously")
	m = step(t, m, cmd())

	assert.NotEmpty(t, m.helpText)
	assert.Contains(t, plain(m.View()), "weecord")

	m = typeLine(t, m, "/help")
	assert.NotContains(t, plain(m.View()), "weecord")
}

func TestQuitCommand(t *testing.T) {
	m := newTestModel(t, &recorder{})
	m.input.SetValue("/quit")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestCommandUsagesUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, entry := range commandUsages() {
		assert.False(t, seen[entry.usage], entry.usage)
		seen[entry.usage] = true
	}
	assert.Len(t, seen, 6)
}
