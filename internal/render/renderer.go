// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"time"

	"github.com/ktemkin/weechat-discord/internal/cache"
	"github.com/ktemkin/weechat-discord/internal/discord"
	"github.com/ktemkin/weechat-discord/internal/model"
	"github.com/ktemkin/weechat-discord/internal/text"
)

// Line prefixes for non-message lines.
const (
	PrefixJoin    = "-->"
	PrefixQuit    = "<--"
	PrefixNetwork = "--"
	PrefixError   = "=!="
)

// Display tags attached to rendered lines.
const (
	TagSelfMsg         = "self_msg"
	TagNotifyNone      = "notify_none"
	TagNotifyMessage   = "notify_message"
	TagNotifyPrivate   = "notify_private"
	TagNotifyHighlight = "notify_highlight"
	TagNoLog           = "no_log"
	TagLocalEcho       = "local_echo"
)

// echoColor dims messages that the server has not confirmed yet.
const echoColor = "244"

// =============================================================================
// OPTIONS
// =============================================================================

// Options are the display settings the renderer reads on every pass.
type Options struct {
	// ShowFormatting keeps markdown delimiters such as ** in the output.
	ShowFormatting bool
	// ShowUnknownIDs renders unresolved user mentions as @<id>.
	ShowUnknownIDs bool

	NickPrefix      string
	NickSuffix      string
	NickPrefixColor string
	NickSuffixColor string

	// CodeTheme names the chroma style for code blocks. Empty disables
	// highlighting.
	CodeTheme string
}

// DefaultOptions returns the stock display settings.
func DefaultOptions() Options {
	return Options{
		ShowFormatting: true,
		CodeTheme:      "monokai",
	}
}

// =============================================================================
// LINES
// =============================================================================

// Line is one rendered item.
type Line struct {
	ID     model.ItemID
	Prefix text.Styled
	Body   text.Styled
	Tags   []string
	// Timestamp is zero for notifications.
	Timestamp time.Time
}

// HasTag reports whether the line carries tag.
func (l Line) HasTag(tag string) bool {
	for _, t := range l.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// =============================================================================
// RENDERER
// =============================================================================

// Renderer turns store items into styled lines, resolving mentions against
// the entity cache. It is used from the display goroutine only.
type Renderer struct {
	cache cache.Reader
	opts  Options
	hl    *highlighter
	now   func() time.Time
	loc   *time.Location
}

// New creates a renderer.
func New(c cache.Reader, opts Options) *Renderer {
	return &Renderer{
		cache: c,
		opts:  opts,
		hl:    newHighlighter(opts.CodeTheme),
		now:   time.Now,
		loc:   time.Local,
	}
}

// Options returns the current settings.
func (r *Renderer) Options() Options { return r.opts }

// SetOptions replaces the settings. Lines already printed are not touched;
// callers redraw to apply them.
func (r *Renderer) SetOptions(opts Options) {
	if opts.CodeTheme != r.opts.CodeTheme {
		r.hl = newHighlighter(opts.CodeTheme)
	}
	r.opts = opts
}

// SetClock sets the clock used for relative timestamps and the location
// used for absolute ones.
func (r *Renderer) SetClock(now func() time.Time, loc *time.Location) {
	r.now = now
	r.loc = loc
}

// Render renders one item. User ids that could not be resolved are added to
// unknown, which may be nil to discard them.
func (r *Renderer) Render(item model.Item, unknown *IDSet) Line {
	switch v := item.(type) {
	case *model.Remote:
		return r.renderRemote(v, unknown)
	case *model.LocalEcho:
		return r.renderEcho(v)
	case *model.Notification:
		return r.renderNotification(v)
	}
	return Line{}
}

// RenderAll renders items in order.
func (r *Renderer) RenderAll(items []model.Item, unknown *IDSet) []Line {
	lines := make([]Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, r.Render(it, unknown))
	}
	return lines
}

func (r *Renderer) renderRemote(v *model.Remote, unknown *IDSet) Line {
	msg := &v.Message
	line := Line{
		ID:        v.ItemID(),
		Tags:      r.messageTags(msg),
		Timestamp: msg.Timestamp,
	}

	if !msg.Kind.Conversational() {
		prefix, body := r.eventLine(msg, r.author(msg.Author, msg.Member, msg.GuildID, false))
		line.Prefix = text.Plain(prefix)
		line.Body = body
		return line
	}

	line.Prefix, line.Body = r.message(msg, false, 0, unknown)
	return line
}

// message renders a conversational message. depth is the reply nesting
// level; only the top level quotes the message it answers, and a reply
// inside that quote collapses to a placeholder.
func (r *Renderer) message(msg *discord.Message, includeAt bool, depth int, unknown *IDSet) (prefix, body text.Styled) {
	prefix = r.authorPrefix(msg, includeAt)

	content := r.Content(msg.Content, msg.GuildID, unknown)
	r.decorate(&content, msg)

	if msg.Kind != discord.KindReply && msg.ReferencedMessage == nil {
		return prefix, content
	}

	ref := msg.ReferencedMessage
	if ref == nil || depth > 0 {
		body.WriteString("<nested reply>\n")
		body.Append(content)
		return prefix, body
	}

	quoted := ref.Clone()
	// Referenced messages arrive without a guild id.
	if msg.Reference != nil {
		quoted.GuildID = msg.Reference.GuildID
	}
	refPrefix, refBody := r.message(quoted, msg.MentionsUser(ref.Author.ID), depth+1, nil)

	body.Append(refPrefix)
	body.WriteString(":\n")
	body.Append(text.FoldLines(refBody.Lines(), "▎"))
	body.WriteString("\n")
	body.Append(content)
	return prefix, body
}

func (r *Renderer) renderEcho(v *model.LocalEcho) Line {
	var prefix text.Styled
	if me, ok := r.cache.CurrentUser(); ok {
		prefix = r.author(me, nil, v.Guild, false)
	}

	var body text.Styled
	body.Wrap(text.Color(echoColor), func(w *text.Styled) {
		w.Append(r.Content(v.Content, v.Guild, nil))
	})

	return Line{
		ID:        v.ItemID(),
		Prefix:    prefix,
		Body:      body,
		Tags:      []string{TagNoLog, TagLocalEcho, TagNotifyNone},
		Timestamp: v.CreatedAt,
	}
}

func (r *Renderer) renderNotification(v *model.Notification) Line {
	prefix := PrefixNetwork
	tag := TagNotifyMessage
	switch v.Kind {
	case model.NoticePrivate:
		tag = TagNotifyPrivate
	case model.NoticeHighlight:
		tag = TagNotifyHighlight
	case model.NoticeError:
		prefix = PrefixError
	}
	return Line{
		ID:     v.ItemID(),
		Prefix: text.Plain(prefix),
		Body:   text.Plain(v.Text),
		Tags:   []string{tag, TagNoLog},
	}
}

func (r *Renderer) messageTags(msg *discord.Message) []string {
	me, known := r.cache.CurrentUser()
	if known && msg.Author.ID == me.ID {
		return []string{TagSelfMsg, TagNotifyNone}
	}

	var tags []string
	if known && msg.MentionsUser(me.ID) {
		tags = append(tags, TagNotifyHighlight)
	}
	if msg.GuildID.IsZero() {
		tags = append(tags, TagNotifyPrivate)
	}
	if len(tags) == 0 {
		tags = append(tags, TagNotifyMessage)
	}
	return tags
}

// =============================================================================
// UNKNOWN IDS
// =============================================================================

// IDSet collects ids in first-seen order without duplicates. A nil *IDSet
// accepts and discards everything.
type IDSet struct {
	seen  map[discord.ID]struct{}
	order []discord.ID
}

// NewIDSet returns an empty set.
func NewIDSet() *IDSet {
	return &IDSet{seen: make(map[discord.ID]struct{})}
}

// Add inserts id.
func (s *IDSet) Add(id discord.ID) {
	if s == nil {
		return
	}
	if s.seen == nil {
		s.seen = make(map[discord.ID]struct{})
	}
	if _, ok := s.seen[id]; ok {
		return
	}
	s.seen[id] = struct{}{}
	s.order = append(s.order, id)
}

// Has reports whether id is in the set.
func (s *IDSet) Has(id discord.ID) bool {
	if s == nil {
		return false
	}
	_, ok := s.seen[id]
	return ok
}

// Len returns the number of ids.
func (s *IDSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// IDs returns the ids in insertion order.
func (s *IDSet) IDs() []discord.ID {
	if s == nil {
		return nil
	}
	return append([]discord.ID(nil), s.order...)
}
