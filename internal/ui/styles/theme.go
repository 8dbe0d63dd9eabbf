// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	renderer *lipgloss.Renderer

	// ==========================================================================
	// MESSAGE LINE STYLES
	// ==========================================================================

	Timestamp lipgloss.Style
	Separator lipgloss.Style
	Network   lipgloss.Style
	Error     lipgloss.Style

	// ==========================================================================
	// BAR STYLES
	// ==========================================================================

	StatusBar       lipgloss.Style
	StatusConnected lipgloss.Style
	StatusError     lipgloss.Style
	TypingBar       lipgloss.Style

	// ==========================================================================
	// CONVERSATION LIST STYLES
	// ==========================================================================

	Tab          lipgloss.Style
	TabActive    lipgloss.Style
	TabMessage   lipgloss.Style
	TabPrivate   lipgloss.Style
	TabHighlight lipgloss.Style

	// ==========================================================================
	// INPUT STYLES
	// ==========================================================================

	InputPrompt lipgloss.Style
	Help        lipgloss.Style
}

// NewTheme creates a theme for stdout with the detected color profile.
func NewTheme() *Theme {
	return NewThemeFor(os.Stdout, termenv.ColorProfile(), termenv.HasDarkBackground())
}

// NewThemeFor creates a theme writing to w with an explicit profile. Tests
// and the replay printer use it to force or disable colors.
func NewThemeFor(w io.Writer, profile termenv.Profile, isDark bool) *Theme {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(profile)
	r.SetHasDarkBackground(isDark)

	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
		renderer:     r,
	}
	t.initStyles()
	return t
}

// NewStyle returns a blank style bound to the theme's renderer.
func (t *Theme) NewStyle() lipgloss.Style { return t.renderer.NewStyle() }

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	s := t.renderer.NewStyle

	t.Timestamp = s().Foreground(TextMuted)
	t.Separator = s().Foreground(Overlay)
	t.Network = s().Foreground(Cyan)
	t.Error = s().Foreground(Rose).Bold(true)

	t.StatusBar = s().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)
	t.StatusConnected = s().Foreground(Emerald).Background(SurfaceDim)
	t.StatusError = s().Foreground(Rose).Background(SurfaceDim)
	t.TypingBar = s().Foreground(TextMuted).Italic(true)

	t.Tab = s().Foreground(TextSecondary).Padding(0, 1)
	t.TabActive = s().Foreground(Cyan).Bold(true).Padding(0, 1)
	t.TabMessage = s().Foreground(TextPrimary).Bold(true).Padding(0, 1)
	t.TabPrivate = s().Foreground(Amber).Bold(true).Padding(0, 1)
	t.TabHighlight = s().Foreground(Purple).Bold(true).Padding(0, 1)

	t.InputPrompt = s().Foreground(Cyan).Bold(true)
	t.Help = s().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
}
