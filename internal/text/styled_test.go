// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func markers(s Styled) string {
	return s.Format(
		func(st Style) string { return "{" + st.String() + "}" },
		func(st Style) string { return "{/" + st.String() + "}" },
	)
}

func TestStyled_WrapNests(t *testing.T) {
	var s Styled
	s.WriteString("a ")
	s.Wrap(Bold, func(w *Styled) {
		w.WriteString("b ")
		w.Wrap(Color("8"), func(w *Styled) { w.WriteString("c") })
	})
	s.WriteString(" d")

	assert.Equal(t, "a {bold}b {8}c{/8}{/bold} d", markers(s))
	assert.Equal(t, "a b c d", s.String())

	pushes, pops := s.Counts()
	assert.Equal(t, 2, pushes)
	assert.Equal(t, pushes, pops)
}

func TestStyled_Append(t *testing.T) {
	s := Plain("x")
	s.Append(Wrapped(Italic, "y"))
	s.Append(Plain("z"))
	assert.Equal(t, "x{italic}y{/italic}z", markers(s))
}

func TestStyled_LinesReopenStyles(t *testing.T) {
	var s Styled
	s.Wrap(Bold, func(w *Styled) { w.WriteString("foo\n bar") })

	lines := s.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "{bold}foo{/bold}", markers(lines[0]))
	assert.Equal(t, "{bold} bar{/bold}", markers(lines[1]))

	for _, l := range lines {
		pushes, pops := l.Counts()
		assert.Equal(t, pushes, pops)
	}
}

func TestStyled_LinesEdges(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"single", "one", []string{"one"}},
		{"trailing newline", "one\n", []string{"one"}},
		{"blank middle", "a\n\nb", []string{"a", "", "b"}},
		{"only newline", "\n", []string{""}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got []string
			for _, l := range Plain(tc.in).Lines() {
				got = append(got, l.String())
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFoldLines(t *testing.T) {
	var s Styled
	s.Wrap(Bold, func(w *Styled) { w.WriteString("foo\n bar") })

	folded := FoldLines(s.Lines(), "▎")
	assert.Equal(t, "▎{bold}foo{/bold}\n▎{bold} bar{/bold}", markers(folded))
}

func TestStyled_Walk(t *testing.T) {
	var s Styled
	s.Wrap(Bold, func(w *Styled) {
		w.WriteString("a")
		w.Wrap(Italic, func(w *Styled) { w.WriteString("b") })
	})

	var runs []string
	var depth []int
	s.Walk(func(text string, active []Style) {
		runs = append(runs, text)
		depth = append(depth, len(active))
	})
	assert.Equal(t, []string{"a", "b"}, runs)
	assert.Equal(t, []int{1, 2}, depth)
}
