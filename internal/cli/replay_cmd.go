// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"io"

	"github.com/ktemkin/weechat-discord/internal/logging"
	"github.com/ktemkin/weechat-discord/internal/replay"
)

// HandleReplay plays a session script offline and writes the transcript.
// No token is needed.
func HandleReplay(ctx context.Context, args Args, out io.Writer) error {
	p := NewArgParser(args.Raw)
	if p.PositionalCount() != 1 {
		return NewUsageError("replay", "expected exactly one script file")
	}
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	dcfg, err := cfg.Dispatch()
	if err != nil {
		return err
	}
	log, closer, err := logging.New(cfg.Logging.Level, cfg.LogSink(false))
	if err != nil {
		return err
	}
	defer closer.Close()

	script, err := replay.Load(p.Positional(0))
	if err != nil {
		return &CommandError{Command: "replay", Action: "load", Err: err}
	}
	res, err := replay.Run(ctx, script, replay.Options{Config: dcfg, Logger: log})
	if err != nil {
		return &CommandError{Command: "replay", Action: "run", Err: err}
	}
	return replay.Write(out, res, p.FlagOrDefault("layout", cfg.Look.TimestampFormat))
}
