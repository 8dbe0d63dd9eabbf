// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/ktemkin/weechat-discord/internal/config"
)

// Version information (overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdLine
	CmdReplay
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string
	Token      string
	LogLevel   string

	// Raw holds the arguments after the command word.
	Raw []string
}

const usageText = `weecord - a terminal client for Discord

Usage:
  weecord [global flags] [command] [args]

Commands:
  tui                          Full-screen client (default)
  line                         Line-mode client for plain terminals
  replay [flags] <script>      Play a recorded session and print the transcript
  config [show|path|keys]      Show configuration
  config get <key>             Print one setting
  config set <key> <value>     Change one setting in the config file
  version                      Show version information
  help                         Show this help

Global flags:
  --config <path>              Config file (default ~/.weecord/config.toml)
  --token <token>              Override connection.token
  --log-level <level>          Override logging.level (debug, info, warn, error)

Replay flags:
  --layout <layout>            Timestamp layout (default look.timestamp_format)

Environment:
  WEECORD_TOKEN, WEECORD_GATEWAY_URL, WEECORD_API_URL, WEECORD_AUTOJOIN,
  WEECORD_LOG_LEVEL, WEECORD_LOG_FILE, WEECORD_METRICS_LISTEN
  NO_COLOR disables colors; FORCE_COLOR enables them on pipes.

Version: %s
`

// PrintUsage writes the usage text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// PrintVersion writes version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "weecord version %s\n", Version)
	fmt.Fprintf(w, "  commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  built:  %s\n", BuildDate)
	fmt.Fprintf(w, "  go:     %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// =============================================================================
// PARSING
// =============================================================================

// Parse reads global flags, then the command word. No command means the
// TUI.
func Parse(argv []string) (Command, Args, error) {
	var args Args
	i := 0
	for ; i < len(argv); i++ {
		arg := argv[i]
		if !strings.HasPrefix(arg, "-") {
			break
		}
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		switch name {
		case "h", "help":
			return CmdHelp, args, nil
		case "v", "version":
			return CmdVersion, args, nil
		case "config", "token", "log-level":
		default:
			return CmdHelp, args, NewUsageError("", fmt.Sprintf("unknown flag %s", arg))
		}
		if !hasValue {
			if i+1 >= len(argv) {
				return CmdHelp, args, NewUsageError("", fmt.Sprintf("flag %s needs a value", arg))
			}
			i++
			value = argv[i]
		}
		switch name {
		case "config":
			args.ConfigPath = value
		case "token":
			args.Token = value
		case "log-level":
			args.LogLevel = value
		}
	}

	if i >= len(argv) {
		return CmdTUI, args, nil
	}
	word := strings.ToLower(argv[i])
	args.Raw = argv[i+1:]

	switch word {
	case "tui":
		return CmdTUI, args, nil
	case "line":
		return CmdLine, args, nil
	case "replay":
		return CmdReplay, args, nil
	case "config", "cfg":
		return CmdConfig, args, nil
	case "version":
		return CmdVersion, args, nil
	case "help":
		return CmdHelp, args, nil
	}
	return CmdHelp, args, NewUsageError("", fmt.Sprintf("unknown command %q", word))
}

// =============================================================================
// ENTRY POINT
// =============================================================================

// Main runs the command named by argv and returns the process exit code.
func Main(argv []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args, err := Parse(argv)
	if err == nil {
		err = Run(ctx, cmd, args, os.Stdout)
	}
	if err != nil {
		DisplayError(os.Stderr, err)
	}
	return ExitCode(err)
}

// Run executes one parsed command, writing command output to out.
func Run(ctx context.Context, cmd Command, args Args, out io.Writer) error {
	switch cmd {
	case CmdTUI:
		return HandleTUI(ctx, args)
	case CmdLine:
		return HandleLine(ctx, args, out)
	case CmdReplay:
		return HandleReplay(ctx, args, out)
	case CmdConfig:
		return HandleConfig(args, out)
	case CmdVersion:
		PrintVersion(out)
		return nil
	}
	PrintUsage(out)
	return nil
}

// loadConfig loads the config named by --config, or the default file, and
// applies the flag overrides.
func loadConfig(args Args) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if args.Token != "" {
		cfg.Connection.Token = args.Token
	}
	if args.LogLevel != "" {
		cfg.Logging.Level = args.LogLevel
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
	}
	config.SetGlobal(cfg)
	return cfg, nil
}

// configFile returns the path config changes are read from and written to.
func configFile(args Args) (string, error) {
	if args.ConfigPath != "" {
		return args.ConfigPath, nil
	}
	return config.ConfigPath()
}
