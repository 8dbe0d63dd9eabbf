// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/ktemkin/weechat-discord/internal/config"
)

// HandleConfig handles "config [show|path|keys|get|set]".
func HandleConfig(args Args, out io.Writer) error {
	p := NewArgParser(args.Raw)
	switch sub := p.Subcommand(); sub {
	case "", "show":
		cfg, err := loadConfig(args)
		if err != nil {
			return err
		}
		fmt.Fprint(out, cfg.String())
		return nil

	case "path":
		path, err := configFile(args)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, path)
		return nil

	case "keys":
		fmt.Fprintln(out, strings.Join(config.Keys(), "\n"))
		return nil

	case "get":
		if p.PositionalCount() != 2 {
			return NewUsageError("config get", "expected a key")
		}
		cfg, err := loadConfig(args)
		if err != nil {
			return err
		}
		key := p.Positional(1)
		v, err := cfg.Get(key)
		if err != nil {
			return NewUsageError("config get", err.Error())
		}
		if key == "connection.token" && v != "" {
			v = "(set)"
		}
		if list, ok := v.([]string); ok {
			v = strings.Join(list, ",")
		}
		fmt.Fprintln(out, v)
		return nil

	case "set":
		if p.PositionalCount() != 3 {
			return NewUsageError("config set", "expected a key and a value")
		}
		return setConfigValue(args, p.Positional(1), p.Positional(2), out)

	default:
		return NewUsageError("config", fmt.Sprintf("unknown subcommand %q", sub))
	}
}

// setConfigValue edits the file alone, so environment overrides are never
// written back.
func setConfigValue(args Args, key, value string, out io.Writer) error {
	path, err := configFile(args)
	if err != nil {
		return err
	}
	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		if err := config.LoadTOML(cfg, path); err != nil {
			return &CommandError{Command: "config set", Action: "load", Err: err}
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return NewUsageError("config set", err.Error())
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := config.SaveTOML(cfg, path); err != nil {
		return &CommandError{Command: "config set", Action: "save", Err: err}
	}
	fmt.Fprintf(out, "%s updated in %s\n", key, path)
	return nil
}
