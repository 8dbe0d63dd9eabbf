// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ktemkin/weechat-discord/internal/discord"
	"github.com/ktemkin/weechat-discord/internal/dispatch"
	"github.com/ktemkin/weechat-discord/internal/model"
	"github.com/ktemkin/weechat-discord/internal/render"
	"github.com/ktemkin/weechat-discord/internal/ui/styles"
)

// DefaultPrefixWidth is the prefix column width when none is configured.
const DefaultPrefixWidth = 16

// =============================================================================
// ACTIVITY
// =============================================================================

// Activity is the unread level of a background conversation. Higher values
// win; switching to a conversation clears it.
type Activity int

const (
	ActivityNone Activity = iota
	ActivityMessage
	ActivityPrivate
	ActivityHighlight
)

// activityFor maps notification tags to an activity level.
func activityFor(tags []string) Activity {
	level := ActivityNone
	for _, t := range tags {
		var a Activity
		switch t {
		case render.TagNotifyHighlight:
			a = ActivityHighlight
		case render.TagNotifyPrivate:
			a = ActivityPrivate
		case render.TagNotifyMessage:
			a = ActivityMessage
		}
		if a > level {
			level = a
		}
	}
	return level
}

// =============================================================================
// MODEL
// =============================================================================

// pane is the UI copy of one open conversation.
type pane struct {
	id       model.ConversationID
	lines    []render.Line
	typing   []string
	activity Activity
}

type memberCount struct {
	total, online int
}

// Options configure a Model. Post is required.
type Options struct {
	Theme *styles.Theme
	// Post hands a command to the dispatcher. It is called from a tea.Cmd,
	// never from Update.
	Post func(dispatch.Command) error
	// Name labels a conversation tab. Defaults to the conversation id.
	Name func(model.ConversationID) string

	TimeLayout  string
	PrefixWidth int
	Location    *time.Location
	// TypingMax caps the names shown in the typing bar.
	TypingMax int
	// Capacity bounds the lines kept per conversation.
	Capacity int
}

// Model is the chat view. It mirrors what the dispatcher prints, one pane
// per open conversation, and turns input into dispatcher commands.
type Model struct {
	theme    *styles.Theme
	keys     KeyMap
	help     help.Model
	viewport viewport.Model
	input    textinput.Model

	post      func(dispatch.Command) error
	name      func(model.ConversationID) string
	layout    styles.LineLayout
	loc       *time.Location
	typingMax int
	capacity  int

	panes   map[model.ConversationID]*pane
	order   []model.ConversationID
	active  int
	members map[discord.ID]memberCount

	status    string
	statusErr bool

	showHelp  bool
	helpText  string
	helpWidth int

	width, height int
	ready         bool
}

// New creates a chat model.
func New(opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}
	name := opts.Name
	if name == nil {
		name = func(id model.ConversationID) string { return id.String() }
	}
	width := opts.PrefixWidth
	if width <= 0 {
		width = DefaultPrefixWidth
	}
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = model.DefaultCapacity
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.PromptStyle = theme.InputPrompt
	ti.Placeholder = "message or /command"
	ti.Focus()

	return Model{
		theme:     theme,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		viewport:  viewport.New(0, 0),
		input:     ti,
		post:      opts.Post,
		name:      name,
		layout:    styles.LineLayout{TimeLayout: opts.TimeLayout, PrefixWidth: width},
		loc:       opts.Location,
		typingMax: opts.TypingMax,
		capacity:  capacity,
		panes:     make(map[model.ConversationID]*pane),
		active:    -1,
		members:   make(map[discord.ID]memberCount),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// =============================================================================
// PANE MANAGEMENT
// =============================================================================

// Active returns the focused conversation.
func (m Model) Active() (model.ConversationID, bool) {
	if m.active < 0 || m.active >= len(m.order) {
		return model.ConversationID{}, false
	}
	return m.order[m.active], true
}

// Conversations lists open conversations in tab order.
func (m Model) Conversations() []model.ConversationID {
	return append([]model.ConversationID(nil), m.order...)
}

// Lines returns the lines held for a conversation.
func (m Model) Lines(id model.ConversationID) []render.Line {
	if p, ok := m.panes[id]; ok {
		return p.lines
	}
	return nil
}

// ActivityOf returns the unread level of a conversation.
func (m Model) ActivityOf(id model.ConversationID) Activity {
	if p, ok := m.panes[id]; ok {
		return p.activity
	}
	return ActivityNone
}

// Status returns the current status line text.
func (m Model) Status() string { return m.status }

// paneFor returns the pane for id, creating it on first sight. The first
// pane becomes active.
func (m *Model) paneFor(id model.ConversationID) *pane {
	if p, ok := m.panes[id]; ok {
		return p
	}
	p := &pane{id: id}
	m.panes[id] = p
	m.order = append(m.order, id)
	if m.active < 0 {
		m.active = 0
	}
	return p
}

func (m *Model) removePane(id model.ConversationID) {
	if _, ok := m.panes[id]; !ok {
		return
	}
	delete(m.panes, id)
	for i, o := range m.order {
		if o != id {
			continue
		}
		m.order = append(m.order[:i], m.order[i+1:]...)
		switch {
		case len(m.order) == 0:
			m.active = -1
		case m.active > i || m.active >= len(m.order):
			m.active--
		}
		break
	}
	m.refresh(true)
}

// focus switches to the pane at index i, wrapping around.
func (m *Model) focus(i int) {
	if len(m.order) == 0 {
		return
	}
	i %= len(m.order)
	if i < 0 {
		i += len(m.order)
	}
	m.active = i
	m.panes[m.order[i]].activity = ActivityNone
	m.refresh(true)
}

func (m *Model) isActive(id model.ConversationID) bool {
	cur, ok := m.Active()
	return ok && cur == id
}

// refresh rebuilds the viewport from the active pane. Unless jump is set the
// scroll position is kept, except that a viewport already at the bottom
// follows new output.
func (m *Model) refresh(jump bool) {
	if !m.ready {
		return
	}
	follow := jump || m.viewport.AtBottom()
	id, ok := m.Active()
	if !ok {
		m.viewport.SetContent("")
		return
	}
	m.viewport.SetContent(m.renderLines(m.panes[id].lines))
	if follow {
		m.viewport.GotoBottom()
	}
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}
