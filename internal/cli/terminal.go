// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// =============================================================================
// TTY DETECTION
// =============================================================================

// IsTTY returns true if stdin is a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// IsStdoutTTY returns true if stdout is a terminal.
func IsStdoutTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// DefaultTerminalWidth is the fallback width when detection fails.
const DefaultTerminalWidth = 80

// TerminalWidth returns the width of stdout, or DefaultTerminalWidth.
func TerminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return DefaultTerminalWidth
	}
	return w
}

// =============================================================================
// COLOR CONTROL
// =============================================================================

// ColorProfile returns the profile for stdout. NO_COLOR disables colors,
// FORCE_COLOR enables them on a pipe. See https://no-color.org/.
func ColorProfile() termenv.Profile {
	if os.Getenv("NO_COLOR") != "" {
		return termenv.Ascii
	}
	if os.Getenv("FORCE_COLOR") != "" {
		return termenv.ANSI256
	}
	if !IsStdoutTTY() {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}

// ErrorStyle renders error labels on stderr.
var ErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

// RequiresTTY returns an error if stdin is not a terminal.
func RequiresTTY(command string) error {
	if !IsTTY() {
		return NewUsageError(command, "stdin is not a terminal; try 'weecord line' or 'weecord replay'")
	}
	return nil
}
