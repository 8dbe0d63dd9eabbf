// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"

	"github.com/ktemkin/weechat-discord/internal/text"
)

// =============================================================================
// SYNTAX HIGHLIGHTING (Chroma-based)
// =============================================================================

// highlighter colors code block tokens. A nil highlighter writes code
// unstyled.
type highlighter struct {
	style *chroma.Style
}

func newHighlighter(theme string) *highlighter {
	if theme == "" {
		return nil
	}
	style := chromaStyles.Get(theme)
	if style == nil {
		style = chromaStyles.Fallback
	}
	return &highlighter{style: style}
}

// write appends code to w, pushing one color per token. The text written is
// exactly code; only the style overlay differs.
func (h *highlighter) write(w *text.Styled, language, code string) {
	if h == nil || code == "" {
		w.WriteString(code)
		return
	}

	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		w.WriteString(code)
		return
	}

	// Lexers may append a newline the source did not have.
	remaining := code
	for _, tok := range iterator.Tokens() {
		value := tok.Value
		if len(value) > len(remaining) {
			value = remaining
		}
		if !strings.HasPrefix(remaining, value) {
			w.WriteString(remaining)
			return
		}
		remaining = remaining[len(value):]
		if value == "" {
			continue
		}

		entry := h.style.Get(tok.Type)
		if !entry.Colour.IsSet() {
			w.WriteString(value)
			continue
		}
		w.Wrap(text.Color(entry.Colour.String()), func(w *text.Styled) {
			w.WriteString(value)
		})
	}
	w.WriteString(remaining)
}
