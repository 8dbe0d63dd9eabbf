// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides command-line parsing and the weecord commands.
//
// # Key Types
//
//   - Command: enumeration of the commands (tui, line, replay, config, version)
//   - Args: global flags plus the arguments after the command word
//   - ArgParser: flag and positional splitting for command arguments
//   - UsageError, CommandError, NetworkError: mapped to exit codes by ExitCode
//
// The tui and line commands share one session: a gateway connection, a
// REST client, a task runner and a dispatcher, with the config file watched
// for display changes. The replay command needs no network or token.
//
// # Usage
//
//	func main() {
//	    os.Exit(cli.Main(os.Args[1:]))
//	}
package cli
