// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markup

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ktemkin/weechat-discord/internal/discord"
)

// maxAngleToken bounds how far a '<' looks for its closing '>'.
const maxAngleToken = 80

// Parse parses message content into a node tree.
func Parse(s string) []Node {
	var out []Node
	for {
		start := strings.Index(s, "```")
		if start < 0 {
			break
		}
		end := strings.Index(s[start+3:], "```")
		if end < 0 {
			break
		}
		out = append(out, parseBlocks(s[:start])...)
		out = append(out, codeBlock(s[start+3:start+3+end]))
		s = s[start+3+end+3:]
	}
	return append(out, parseBlocks(s)...)
}

func codeBlock(inner string) CodeBlock {
	lang := ""
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 {
		first := inner[:nl]
		if !strings.ContainsAny(first, " \t`") {
			lang = first
			inner = inner[nl+1:]
		}
	}
	return CodeBlock{Language: lang, Value: strings.TrimSuffix(inner, "\n")}
}

// parseBlocks handles the line-oriented constructs, then hands the rest of
// each line to parseInline.
func parseBlocks(s string) []Node {
	var (
		out   []Node
		plain strings.Builder
	)
	flush := func() {
		if plain.Len() > 0 {
			out = append(out, parseInline(plain.String())...)
			plain.Reset()
		}
	}

	lines := strings.SplitAfter(s, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, ">>> "):
			flush()
			rest := strings.Join(lines[i:], "")[4:]
			return append(out, BlockQuote{Children: parseInline(rest)})
		case strings.HasPrefix(line, "> "):
			flush()
			body := strings.TrimSuffix(line[2:], "\n")
			out = append(out, Quote{Children: parseInline(body)})
			if strings.HasSuffix(line, "\n") {
				out = append(out, Text{Value: "\n"})
			}
		default:
			plain.WriteString(line)
		}
	}
	flush()
	return out
}

type delimiter struct {
	mark string
	make func([]Node) Node
}

// Longer marks first so "**" is not read as two italics.
var delimiters = []delimiter{
	{"**", func(c []Node) Node { return Bold{Children: c} }},
	{"__", func(c []Node) Node { return Underline{Children: c} }},
	{"~~", func(c []Node) Node { return Strikethrough{Children: c} }},
	{"||", func(c []Node) Node { return Spoiler{Children: c} }},
	{"*", func(c []Node) Node { return Italic{Children: c} }},
	{"_", func(c []Node) Node { return Italic{Children: c} }},
}

func parseInline(s string) []Node {
	var (
		out []Node
		buf strings.Builder
	)
	flush := func() {
		if buf.Len() > 0 {
			out = append(out, Text{Value: buf.String()})
			buf.Reset()
		}
	}
	emit := func(n Node) {
		flush()
		out = append(out, n)
	}

	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s) && isMarkupChar(s[i+1]):
			buf.WriteByte(s[i+1])
			i += 2
			continue
		case c == '`':
			if n, size, ok := inlineCode(s[i:]); ok {
				emit(n)
				i += size
				continue
			}
		case c == '<':
			if n, size, ok := angleToken(s[i:]); ok {
				emit(n)
				i += size
				continue
			}
		default:
			if n, size, ok := delimited(s, i); ok {
				emit(n)
				i += size
				continue
			}
		}
		_, w := utf8.DecodeRuneInString(s[i:])
		buf.WriteString(s[i : i+w])
		i += w
	}
	flush()
	return out
}

func delimited(s string, i int) (Node, int, bool) {
	for _, d := range delimiters {
		if !strings.HasPrefix(s[i:], d.mark) {
			continue
		}
		if d.mark == "_" && i > 0 && isWordByte(s[i-1]) {
			return nil, 0, false
		}
		from := i + len(d.mark)
		end := findClose(s, from, d.mark)
		if end < 0 {
			continue
		}
		return d.make(parseInline(s[from:end])), end + len(d.mark) - i, true
	}
	return nil, 0, false
}

// findClose returns the index of the mark closing a span opened just before
// from, or -1. Single-character marks skip over doubled spans so that
// "*a **b** c*" closes at the last star.
func findClose(s string, from int, mark string) int {
	for j := from; j < len(s); {
		if s[j] == '\\' && j+1 < len(s) {
			j += 2
			continue
		}
		if len(mark) == 1 {
			double := mark + mark
			if strings.HasPrefix(s[j:], double) {
				if k := strings.Index(s[j+2:], double); k >= 0 {
					j += 2 + k + 2
					continue
				}
			}
		}
		if strings.HasPrefix(s[j:], mark) && j > from {
			if mark == "_" && j+1 < len(s) && isWordByte(s[j+1]) {
				j++
				continue
			}
			return j
		}
		j++
	}
	return -1
}

func inlineCode(s string) (Node, int, bool) {
	fence := "`"
	if strings.HasPrefix(s, "``") {
		fence = "``"
	}
	end := strings.Index(s[len(fence):], fence)
	if end <= 0 {
		return nil, 0, false
	}
	value := s[len(fence) : len(fence)+end]
	return InlineCode{Value: value}, len(fence)*2 + end, true
}

func angleToken(s string) (Node, int, bool) {
	limit := len(s)
	if limit > maxAngleToken {
		limit = maxAngleToken
	}
	end := strings.IndexByte(s[:limit], '>')
	if end < 0 {
		return nil, 0, false
	}
	inner := s[1:end]
	size := end + 1

	switch {
	case strings.HasPrefix(inner, "@&"):
		if id, ok := parseSnowflake(inner[2:]); ok {
			return RoleMention{ID: id}, size, true
		}
	case strings.HasPrefix(inner, "@!"):
		if id, ok := parseSnowflake(inner[2:]); ok {
			return UserMention{ID: id}, size, true
		}
	case strings.HasPrefix(inner, "@"):
		if id, ok := parseSnowflake(inner[1:]); ok {
			return UserMention{ID: id}, size, true
		}
	case strings.HasPrefix(inner, "#"):
		if id, ok := parseSnowflake(inner[1:]); ok {
			return ChannelMention{ID: id}, size, true
		}
	case strings.HasPrefix(inner, "t:"):
		if ts, ok := parseTimestamp(inner[2:]); ok {
			return ts, size, true
		}
	case strings.HasPrefix(inner, ":"), strings.HasPrefix(inner, "a:"):
		if e, ok := parseEmoji(inner); ok {
			return e, size, true
		}
	}
	return nil, 0, false
}

func parseSnowflake(s string) (discord.ID, bool) {
	if s == "" || strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return discord.ID(v), true
}

func parseTimestamp(s string) (Timestamp, bool) {
	unix, style, _ := strings.Cut(s, ":")
	v, err := strconv.ParseInt(unix, 10, 64)
	if err != nil {
		return Timestamp{}, false
	}
	ts := Timestamp{Unix: v}
	if style != "" {
		r, w := utf8.DecodeRuneInString(style)
		if w != len(style) {
			return Timestamp{}, false
		}
		ts.Style = r
	}
	return ts, true
}

func parseEmoji(s string) (Emoji, bool) {
	animated := strings.HasPrefix(s, "a:")
	if animated {
		s = s[1:]
	}
	// s is now ":name:id"
	parts := strings.Split(s[1:], ":")
	if len(parts) != 2 || parts[0] == "" {
		return Emoji{}, false
	}
	for _, r := range parts[0] {
		if !(r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return Emoji{}, false
		}
	}
	id, ok := parseSnowflake(parts[1])
	if !ok {
		return Emoji{}, false
	}
	return Emoji{Name: parts[0], ID: id, Animated: animated}, true
}

func isMarkupChar(c byte) bool {
	return strings.IndexByte("*_~|`\\<>:#@", c) >= 0
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
