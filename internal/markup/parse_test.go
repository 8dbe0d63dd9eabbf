// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse_Inline(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Node
	}{
		{"plain", "hello", []Node{Text{"hello"}}},
		{"empty", "", nil},
		{"bold", "**bold**", []Node{Bold{[]Node{Text{"bold"}}}}},
		{"underline", "__u__", []Node{Underline{[]Node{Text{"u"}}}}},
		{"strike", "~~s~~", []Node{Strikethrough{[]Node{Text{"s"}}}}},
		{"spoiler", "||sp||", []Node{Spoiler{[]Node{Text{"sp"}}}}},
		{"italic star", "*it*", []Node{Italic{[]Node{Text{"it"}}}}},
		{"italic underscore", "_it_", []Node{Italic{[]Node{Text{"it"}}}}},
		{
			"italic around bold",
			"a *b **c** d* e",
			[]Node{
				Text{"a "},
				Italic{[]Node{Text{"b "}, Bold{[]Node{Text{"c"}}}, Text{" d"}}},
				Text{" e"},
			},
		},
		{"snake case stays text", "snake_case_name", []Node{Text{"snake_case_name"}}},
		{"unclosed bold", "**unclosed", []Node{Text{"**unclosed"}}},
		{"escaped stars", `\*not\*`, []Node{Text{"*not*"}}},
		{"inline code hides markup", "`code **x**`", []Node{InlineCode{"code **x**"}}},
		{"bold spans lines", "**a\n b**", []Node{Bold{[]Node{Text{"a\n b"}}}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Parse(tc.in))
		})
	}
}

func TestParse_AngleTokens(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Node
	}{
		{"user", "<@123>", UserMention{ID: 123}},
		{"user nick form", "<@!456>", UserMention{ID: 456}},
		{"channel", "<#7>", ChannelMention{ID: 7}},
		{"role", "<@&8>", RoleMention{ID: 8}},
		{"emoji", "<:blob:9>", Emoji{Name: "blob", ID: 9}},
		{"animated emoji", "<a:dance:10>", Emoji{Name: "dance", ID: 10, Animated: true}},
		{"timestamp", "<t:1618953630>", Timestamp{Unix: 1618953630}},
		{"timestamp style", "<t:1618953630:R>", Timestamp{Unix: 1618953630, Style: 'R'}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, []Node{tc.want}, Parse(tc.in))
		})
	}
}

func TestParse_MalformedAngleTokensStayText(t *testing.T) {
	for _, in := range []string{"<@abc>", "<#>", "<:nameonly>", "<t:soon>", "a < b", "<@123"} {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, []Node{Text{in}}, Parse(in))
		})
	}
}

func TestParse_CodeBlocks(t *testing.T) {
	got := Parse("pre\n```go\nfmt.Println()\n```\npost")
	assert.Equal(t, []Node{
		Text{"pre\n"},
		CodeBlock{Language: "go", Value: "fmt.Println()"},
		Text{"\npost"},
	}, got)

	assert.Equal(t, []Node{CodeBlock{Value: "plain"}}, Parse("```plain```"))
	assert.Equal(t, []Node{Text{"```unterminated"}}, Parse("```unterminated"))
}

func TestParse_Quotes(t *testing.T) {
	assert.Equal(t, []Node{
		Quote{[]Node{Text{"quoted"}}},
		Text{"\n"},
		Text{"not"},
	}, Parse("> quoted\nnot"))

	assert.Equal(t, []Node{
		Text{"intro\n"},
		BlockQuote{[]Node{Bold{[]Node{Text{"foo\n bar"}}}}},
	}, Parse("intro\n>>> **foo\n bar**"))

	assert.Equal(t, []Node{Text{"a > b"}}, Parse("a > b"))
}
