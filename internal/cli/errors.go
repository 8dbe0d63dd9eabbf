// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/ktemkin/weechat-discord/internal/config"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitAuthError    = 4
	ExitNetworkError = 5
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError reports invalid arguments.
type UsageError struct {
	Command string
	Reason  string
}

func (e *UsageError) Error() string {
	if e.Command == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Command, e.Reason)
}

// NewUsageError returns a UsageError.
func NewUsageError(command, reason string) error {
	return &UsageError{Command: command, Reason: reason}
}

// CommandError wraps a failure of one command step.
type CommandError struct {
	Command string
	Action  string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Command, e.Action, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// NetworkError marks a failure to reach the service.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "connect: " + e.Err.Error() }

func (e *NetworkError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// ExitCode maps an error returned by a command to a process exit code.
func ExitCode(err error) int {
	var (
		usage *UsageError
		valid config.ValidationErrors
		net   *NetworkError
	)
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &usage):
		return ExitUsageError
	case errors.Is(err, config.ErrNoToken):
		return ExitAuthError
	case errors.As(err, &valid):
		return ExitConfigError
	case errors.As(err, &net):
		return ExitNetworkError
	}
	return ExitGeneralError
}

// DisplayError prints err to w, followed by a usage hint for usage errors.
func DisplayError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("error:"), err.Error())
	var usage *UsageError
	if errors.As(err, &usage) {
		fmt.Fprintln(w, "run 'weecord help' for usage")
	}
}
