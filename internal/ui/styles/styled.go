// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/ktemkin/weechat-discord/internal/render"
	"github.com/ktemkin/weechat-discord/internal/text"
)

// =============================================================================
// STYLED TEXT
// =============================================================================

// Styled converts renderer output to terminal escapes. A reset token drops
// every style opened outside of it; unknown colors are ignored.
func (t *Theme) Styled(s text.Styled) string {
	var b strings.Builder
	s.Walk(func(run string, active []text.Style) {
		if run == "" {
			return
		}
		if len(active) == 0 {
			b.WriteString(run)
			return
		}
		st := t.styleFor(active)
		// Render pads multi-line input to a block; style each line alone.
		for i, part := range strings.Split(run, "\n") {
			if i > 0 {
				b.WriteByte('\n')
			}
			if part != "" {
				b.WriteString(st.Render(part))
			}
		}
	})
	return b.String()
}

func (t *Theme) styleFor(active []text.Style) lipgloss.Style {
	st := t.renderer.NewStyle()
	for _, a := range active {
		switch a.Attr {
		case text.AttrReset:
			st = t.renderer.NewStyle()
		case text.AttrBold:
			st = st.Bold(true)
		case text.AttrItalic:
			st = st.Italic(true)
		case text.AttrUnderline:
			st = st.Underline(true)
		case text.AttrColor:
			if c, ok := ResolveColor(a.Color); ok {
				st = st.Foreground(c)
			}
		}
	}
	return st
}

// =============================================================================
// MESSAGE LINES
// =============================================================================

// LineLayout controls how Line lays out the prefix column.
type LineLayout struct {
	// TimeLayout formats the timestamp column; empty hides it.
	TimeLayout string
	// PrefixWidth right-aligns prefixes to this many cells. Longer prefixes
	// are truncated with an ellipsis.
	PrefixWidth int
}

// Line renders one message line as one or more terminal rows. Continuation
// rows of a multi-line body are indented to the body column.
func (t *Theme) Line(l render.Line, layout LineLayout, loc *time.Location) []string {
	var lead strings.Builder
	if layout.TimeLayout != "" {
		ts := strings.Repeat(" ", runewidth.StringWidth(layout.TimeLayout))
		if !l.Timestamp.IsZero() {
			at := l.Timestamp
			if loc != nil {
				at = at.In(loc)
			}
			ts = at.Format(layout.TimeLayout)
		}
		lead.WriteString(t.Timestamp.Render(ts))
		lead.WriteByte(' ')
	}
	lead.WriteString(t.prefix(l, layout.PrefixWidth))
	lead.WriteString(t.Separator.Render(" │ "))

	indent := strings.Repeat(" ", runewidth.StringWidth(stripForWidth(l, layout)))
	bodies := l.Body.Lines()
	if len(bodies) == 0 {
		return []string{lead.String()}
	}
	rows := make([]string, 0, len(bodies))
	for i, body := range bodies {
		if i == 0 {
			rows = append(rows, lead.String()+t.Styled(body))
			continue
		}
		rows = append(rows, indent+t.Styled(body))
	}
	return rows
}

func (t *Theme) prefix(l render.Line, width int) string {
	plain := l.Prefix.String()
	var styled string
	switch plain {
	case render.PrefixError:
		styled = t.Error.Render(plain)
	case render.PrefixNetwork, render.PrefixJoin, render.PrefixQuit:
		styled = t.Network.Render(plain)
	default:
		styled = t.Styled(l.Prefix)
	}
	if width <= 0 {
		return styled
	}
	w := runewidth.StringWidth(plain)
	if w > width {
		return t.Styled(text.Plain(runewidth.Truncate(plain, width, "…")))
	}
	return strings.Repeat(" ", width-w) + styled
}

// stripForWidth returns the unstyled lead of a line, used to measure the
// indent of continuation rows.
func stripForWidth(l render.Line, layout LineLayout) string {
	var b strings.Builder
	if layout.TimeLayout != "" {
		b.WriteString(strings.Repeat(" ", runewidth.StringWidth(layout.TimeLayout)))
		b.WriteByte(' ')
	}
	plain := l.Prefix.String()
	w := runewidth.StringWidth(plain)
	switch {
	case layout.PrefixWidth <= 0:
		b.WriteString(plain)
	case w > layout.PrefixWidth:
		b.WriteString(runewidth.Truncate(plain, layout.PrefixWidth, "…"))
	default:
		b.WriteString(strings.Repeat(" ", layout.PrefixWidth))
	}
	b.WriteString(" │ ")
	return b.String()
}
