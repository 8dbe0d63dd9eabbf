// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// ACCENT COLORS
// =============================================================================

// Cyan - Brand color, active conversation, prompts
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// Purple - Highlights (messages that mention the user)
var Purple = lipgloss.AdaptiveColor{Light: "#7C3AED", Dark: "#A78BFA"}

// Emerald - Connected state
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// =============================================================================
// SEMANTIC COLORS
// =============================================================================

// Rose - Errors, failed sends
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Amber - Warnings, private message activity
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// =============================================================================
// SURFACE AND TEXT COLORS
// =============================================================================

// SurfaceDim - Status and typing bars
var SurfaceDim = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"}

// Overlay - Borders, separators
var Overlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}

// TextPrimary - Message bodies
var TextPrimary = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}

// TextSecondary - Labels
var TextSecondary = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#A6ADC8"}

// TextMuted - Timestamps, typing bar
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}

// =============================================================================
// TERMINAL COLOR NAMES
// =============================================================================

// namedColors maps the color names accepted in configuration and produced
// by the renderer to ANSI indexes.
var namedColors = map[string]int{
	"black":        0,
	"red":          1,
	"green":        2,
	"yellow":       3,
	"brown":        3,
	"blue":         4,
	"magenta":      5,
	"cyan":         6,
	"white":        7,
	"default":      -1,
	"gray":         8,
	"grey":         8,
	"darkgray":     8,
	"lightred":     9,
	"lightgreen":   10,
	"lightyellow":  11,
	"lightblue":    12,
	"lightmagenta": 13,
	"lightcyan":    14,
	"lightgray":    15,
}

// ResolveColor turns a renderer color (ANSI index, name or #rrggbb) into a
// lipgloss color. ok is false for colors it does not understand and for
// "default", which means no color.
func ResolveColor(c string) (lipgloss.TerminalColor, bool) {
	c = strings.ToLower(strings.TrimSpace(c))
	if c == "" {
		return nil, false
	}
	if strings.HasPrefix(c, "#") {
		if len(c) != 7 && len(c) != 4 {
			return nil, false
		}
		if _, err := strconv.ParseUint(c[1:], 16, 32); err != nil {
			return nil, false
		}
		return lipgloss.Color(c), true
	}
	if n, err := strconv.Atoi(c); err == nil {
		if n < 0 || n > 255 {
			return nil, false
		}
		return lipgloss.Color(c), true
	}
	if n, ok := namedColors[c]; ok && n >= 0 {
		return lipgloss.Color(strconv.Itoa(n)), true
	}
	return nil, false
}
