// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for weecord.
//
// Configuration is a TOML file with defaults for every key, environment
// overrides and validation. A .env file in the working directory is read
// before overrides are applied, which is the usual place for the token.
//
// # Key Types
//
//   - Config: the connection, buffer, look, color, logging and metrics sections
//   - ValidationErrors: every invalid field found by Validate
//   - Watcher: debounced fsnotify reload of the config file
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (WEECORD_*), including those from .env
//   - ~/.weecord/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	dcfg, err := cfg.Dispatch()
package config
