// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the weecord TUI.

It turns renderer output (text.Styled with push/pop style tokens) into
terminal escapes through Lip Gloss, and lays out message lines with a
timestamp column, a right-aligned prefix column and the body.

# Color System (colors.go)

Chrome colors use Lip Gloss AdaptiveColor for automatic light/dark terminal
detection:

  - Cyan - Brand color, the active conversation and the prompt
  - Purple - Conversations with highlights
  - Amber - Conversations with private message activity
  - Rose - Errors
  - Emerald - Connected state

Message colors come from the renderer as ANSI indexes, names or hex
triplets and go through ResolveColor.

# Theme (theme.go)

Theme binds every style to one lipgloss.Renderer so the color profile can be
forced per output:

	theme := styles.NewTheme()
	rows := theme.Line(line, styles.LineLayout{TimeLayout: "15:04", PrefixWidth: 12}, time.Local)

Tests use NewThemeFor with termenv.ANSI or termenv.Ascii.
*/
package styles
