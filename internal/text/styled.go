// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package text provides Styled, a string with a nested style overlay.
package text

import (
	"strings"
)

// =============================================================================
// STYLES
// =============================================================================

// Attr is the kind of a style token.
type Attr uint8

const (
	AttrBold Attr = iota + 1
	AttrItalic
	AttrUnderline
	AttrColor
	// AttrReset clears every style opened outside of it until it is closed.
	AttrReset
)

// Style is one formatting attribute. Color is only meaningful for AttrColor
// and holds a terminal color: an ANSI index ("8", "244"), a name ("red") or
// a hex triplet ("#ff8800").
type Style struct {
	Attr  Attr
	Color string
}

var (
	Bold      = Style{Attr: AttrBold}
	Italic    = Style{Attr: AttrItalic}
	Underline = Style{Attr: AttrUnderline}
	Reset     = Style{Attr: AttrReset}
)

// Color returns a foreground color style.
func Color(c string) Style {
	return Style{Attr: AttrColor, Color: c}
}

// String names the style; used by Format in tests and debug output.
func (s Style) String() string {
	switch s.Attr {
	case AttrBold:
		return "bold"
	case AttrItalic:
		return "italic"
	case AttrUnderline:
		return "underline"
	case AttrReset:
		return "reset"
	case AttrColor:
		return s.Color
	}
	return "?"
}

// =============================================================================
// STYLED TEXT
// =============================================================================

type opKind uint8

const (
	opText opKind = iota
	opPush
	opPop
)

type op struct {
	kind  opKind
	text  string
	style Style
}

// Styled is text plus a stack-disciplined style overlay. Styles are only
// opened through Wrap, which closes them again before returning, so every
// Styled value is balanced. The zero value is an empty string.
type Styled struct {
	ops []op
}

// Plain returns unstyled text.
func Plain(s string) Styled {
	var out Styled
	out.WriteString(s)
	return out
}

// Wrapped returns s inside a single style.
func Wrapped(style Style, s string) Styled {
	var out Styled
	out.Wrap(style, func(w *Styled) { w.WriteString(s) })
	return out
}

// WriteString appends unstyled text at the current nesting level.
func (s *Styled) WriteString(str string) {
	if str == "" {
		return
	}
	if n := len(s.ops); n > 0 && s.ops[n-1].kind == opText {
		s.ops[n-1].text += str
		return
	}
	s.ops = append(s.ops, op{kind: opText, text: str})
}

// Wrap opens style, runs fn to write the content and closes style.
func (s *Styled) Wrap(style Style, fn func(*Styled)) {
	s.ops = append(s.ops, op{kind: opPush, style: style})
	fn(s)
	s.ops = append(s.ops, op{kind: opPop, style: style})
}

// Append copies o onto the end of s.
func (s *Styled) Append(o Styled) {
	for _, x := range o.ops {
		if x.kind == opText {
			s.WriteString(x.text)
			continue
		}
		s.ops = append(s.ops, x)
	}
}

// String returns the text without styles.
func (s Styled) String() string {
	var b strings.Builder
	for _, x := range s.ops {
		if x.kind == opText {
			b.WriteString(x.text)
		}
	}
	return b.String()
}

// IsEmpty reports whether s contains no text.
func (s Styled) IsEmpty() bool {
	for _, x := range s.ops {
		if x.kind == opText && x.text != "" {
			return false
		}
	}
	return true
}

// Counts returns the number of opened and closed styles.
func (s Styled) Counts() (pushes, pops int) {
	for _, x := range s.ops {
		switch x.kind {
		case opPush:
			pushes++
		case opPop:
			pops++
		}
	}
	return pushes, pops
}

// Format renders s with open and close markers for every style.
func (s Styled) Format(open, close func(Style) string) string {
	var b strings.Builder
	for _, x := range s.ops {
		switch x.kind {
		case opText:
			b.WriteString(x.text)
		case opPush:
			b.WriteString(open(x.style))
		case opPop:
			b.WriteString(close(x.style))
		}
	}
	return b.String()
}

// Walk calls fn for every run of text with the styles active on it,
// outermost first. The slice is only valid during the call.
func (s Styled) Walk(fn func(text string, active []Style)) {
	var stack []Style
	for _, x := range s.ops {
		switch x.kind {
		case opText:
			fn(x.text, stack)
		case opPush:
			stack = append(stack, x.style)
		case opPop:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
}

// Lines splits s at newlines. Styles that span a line break are closed at
// the end of the line and reopened at the start of the next one, so every
// line is balanced on its own. A trailing newline does not produce an extra
// empty line, and an empty s has no lines.
func (s Styled) Lines() []Styled {
	if s.IsEmpty() {
		return nil
	}
	var (
		lines []Styled
		cur   Styled
		stack []Style
	)
	breakLine := func() {
		for i := len(stack) - 1; i >= 0; i-- {
			cur.ops = append(cur.ops, op{kind: opPop, style: stack[i]})
		}
		lines = append(lines, cur)
		cur = Styled{}
		for _, st := range stack {
			cur.ops = append(cur.ops, op{kind: opPush, style: st})
		}
	}
	for _, x := range s.ops {
		switch x.kind {
		case opPush:
			stack = append(stack, x.style)
			cur.ops = append(cur.ops, x)
		case opPop:
			stack = stack[:len(stack)-1]
			cur.ops = append(cur.ops, x)
		case opText:
			parts := strings.Split(x.text, "\n")
			for i, part := range parts {
				if i > 0 {
					breakLine()
				}
				cur.WriteString(part)
			}
		}
	}
	if !cur.IsEmpty() || len(lines) == 0 {
		lines = append(lines, cur)
	}
	return lines
}

// FoldLines prefixes every line with prefix and joins them with newlines.
func FoldLines(lines []Styled, prefix string) Styled {
	var out Styled
	for i, line := range lines {
		if i > 0 {
			out.WriteString("\n")
		}
		out.WriteString(prefix)
		out.Append(line)
	}
	return out
}

// Join concatenates parts with sep between them.
func Join(parts []Styled, sep string) Styled {
	var out Styled
	for i, p := range parts {
		if i > 0 {
			out.WriteString(sep)
		}
		out.Append(p)
	}
	return out
}
