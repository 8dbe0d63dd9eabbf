// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ktemkin/weechat-discord/internal/model"
)

// isolate points HOME at a temp dir and clears the override variables so
// tests never read the developer's own config.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{"WEECORD_TOKEN", "WEECORD_GATEWAY_URL", "WEECORD_API_URL",
		"WEECORD_AUTOJOIN", "WEECORD_LOG_LEVEL", "WEECORD_LOG_FILE", "WEECORD_METRICS_LISTEN"} {
		t.Setenv(k, "")
	}
	return home
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// =============================================================================
// DEFAULTS AND LOADING
// =============================================================================

func TestConfig_Default(t *testing.T) {
	cfg := Default()
	if cfg.Buffer.MaxMessages != 4096 {
		t.Errorf("max_messages = %d, want 4096", cfg.Buffer.MaxMessages)
	}
	if cfg.Buffer.MessageFetchCount != 50 {
		t.Errorf("message_fetch_count = %d, want 50", cfg.Buffer.MessageFetchCount)
	}
	if !cfg.Look.ShowFormattingChars {
		t.Error("show_formatting_chars should default to true")
	}
	if cfg.Look.ShowUnknownUserIDs {
		t.Error("show_unknown_user_ids should default to false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
}

func TestConfig_LoadFromPath(t *testing.T) {
	isolate(t)
	path := writeConfig(t, t.TempDir(), `
[connection]
token = "abc"
autojoin = ["10/20", "30"]

[buffer]
max_messages = 100

[look]
show_formatting_chars = false
nick_prefix = "<"
`)

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Connection.Token != "abc" {
		t.Errorf("token = %q", cfg.Connection.Token)
	}
	if cfg.Buffer.MaxMessages != 100 {
		t.Errorf("max_messages = %d, want 100", cfg.Buffer.MaxMessages)
	}
	// Keys missing from the file keep their defaults.
	if cfg.Buffer.MessageFetchCount != 50 {
		t.Errorf("message_fetch_count = %d, want default 50", cfg.Buffer.MessageFetchCount)
	}
	if cfg.Look.ShowFormattingChars {
		t.Error("show_formatting_chars should be false")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config permissions = %o, want 600", perm)
	}
}

func TestConfig_LoadFromPathRejectsInvalid(t *testing.T) {
	isolate(t)
	path := writeConfig(t, t.TempDir(), "[buffer]\nmax_messages = 0\n")

	_, err := LoadFromPath(path)
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("error = %v, want ValidationErrors", err)
	}
	if len(verrs) != 1 || verrs[0].Field != "buffer.max_messages" {
		t.Errorf("validation errors = %v", verrs)
	}
}

func TestConfig_LoadWithoutFile(t *testing.T) {
	isolate(t)
	t.Setenv("WEECORD_TOKEN", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Connection.Token != "from-env" {
		t.Errorf("token = %q, want from-env", cfg.Connection.Token)
	}
}

func TestConfig_SaveRoundTrip(t *testing.T) {
	isolate(t)
	cfg := Default()
	cfg.Connection.Token = "secret"
	cfg.Connection.Autojoin = []string{"1/2"}
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML: %v", err)
	}
	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if loaded.Connection.Token != "secret" || len(loaded.Connection.Autojoin) != 1 {
		t.Errorf("loaded = %+v", loaded.Connection)
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"bad gateway scheme", func(c *Config) { c.Connection.GatewayURL = "http://x" }, "connection.gateway_url"},
		{"empty api url", func(c *Config) { c.Connection.APIURL = "" }, "connection.api_url"},
		{"bad autojoin", func(c *Config) { c.Connection.Autojoin = []string{"general"} }, "connection.autojoin"},
		{"zero capacity", func(c *Config) { c.Buffer.MaxMessages = 0 }, "buffer.max_messages"},
		{"fetch too large", func(c *Config) { c.Buffer.MessageFetchCount = 101 }, "buffer.message_fetch_count"},
		{"typing max", func(c *Config) { c.Look.TypingListMax = 0 }, "look.typing_list_max"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("Validate() = %v, want ValidationErrors", err)
			}
			if verrs[0].Field != tt.field {
				t.Errorf("field = %q, want %q", verrs[0].Field, tt.field)
			}
		})
	}
}

func TestConfig_RequireToken(t *testing.T) {
	cfg := Default()
	if err := cfg.RequireToken(); !errors.Is(err, ErrNoToken) {
		t.Errorf("RequireToken() = %v, want ErrNoToken", err)
	}
	cfg.Connection.Token = "t"
	if err := cfg.RequireToken(); err != nil {
		t.Errorf("RequireToken() = %v", err)
	}
}

// =============================================================================
// OVERRIDES AND CONVERSIONS
// =============================================================================

func TestConfig_ApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("WEECORD_TOKEN", "tok")
	t.Setenv("WEECORD_AUTOJOIN", "10/20, 30 ,")
	t.Setenv("WEECORD_LOG_LEVEL", "debug")
	t.Setenv("WEECORD_METRICS_LISTEN", ":9100")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Connection.Token != "tok" {
		t.Errorf("token = %q", cfg.Connection.Token)
	}
	if got := strings.Join(cfg.Connection.Autojoin, "|"); got != "10/20|30" {
		t.Errorf("autojoin = %q", got)
	}
	if cfg.Logging.Level != "debug" || cfg.Metrics.Listen != ":9100" {
		t.Errorf("logging/metrics = %+v %+v", cfg.Logging, cfg.Metrics)
	}
}

func TestConfig_Dispatch(t *testing.T) {
	cfg := Default()
	cfg.Buffer.MaxMessages = 10
	cfg.Look.NickPrefix = "<"
	cfg.Color.NickPrefixColor = "red"
	cfg.Connection.Autojoin = []string{"10/20", "30/pins"}

	d, err := cfg.Dispatch()
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if d.Capacity != 10 || d.FetchCount != 50 {
		t.Errorf("capacity/fetch = %d/%d", d.Capacity, d.FetchCount)
	}
	want := []model.ConversationID{{Guild: 10, Channel: 20}, {Channel: 30, Pins: true}}
	if len(d.Autojoin) != 2 || d.Autojoin[0] != want[0] || d.Autojoin[1] != want[1] {
		t.Errorf("autojoin = %v, want %v", d.Autojoin, want)
	}
	if d.Render.NickPrefix != "<" || d.Render.NickPrefixColor != "red" || !d.Render.ShowFormatting {
		t.Errorf("render = %+v", d.Render)
	}
}

func TestConfig_LogSink(t *testing.T) {
	home := isolate(t)
	cfg := Default()
	if got := cfg.LogSink(false); got != "stderr" {
		t.Errorf("line mode sink = %q", got)
	}
	if got, want := cfg.LogSink(true), "file:"+filepath.Join(home, ".weecord", "weecord.log"); got != want {
		t.Errorf("tui sink = %q, want %q", got, want)
	}
	cfg.Logging.File = "/tmp/x.log"
	if got := cfg.LogSink(true); got != "file:/tmp/x.log" {
		t.Errorf("explicit sink = %q", got)
	}
}

func TestConfig_GetSet(t *testing.T) {
	cfg := Default()

	if err := cfg.Set("buffer.max_messages", "12"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := cfg.Set("look.show_unknown_user_ids", "true"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := cfg.Set("connection.autojoin", "1/2, 3"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	v, err := cfg.Get("buffer.max_messages")
	if err != nil || v != 12 {
		t.Errorf("Get(max_messages) = %v, %v", v, err)
	}
	v, err = cfg.Get("look.show_unknown_user_ids")
	if err != nil || v != true {
		t.Errorf("Get(show_unknown_user_ids) = %v, %v", v, err)
	}
	if len(cfg.Connection.Autojoin) != 2 {
		t.Errorf("autojoin = %v", cfg.Connection.Autojoin)
	}

	if _, err := cfg.Get("buffer.nope"); err == nil {
		t.Error("Get of unknown key should fail")
	}
	if err := cfg.Set("buffer.max_messages", "many"); err == nil {
		t.Error("Set with bad integer should fail")
	}
	if err := cfg.Set("buffer", "1"); err == nil {
		t.Error("Set of a section should fail")
	}
}

func TestKeys(t *testing.T) {
	keys := Keys()
	cfg := Default()
	for _, k := range keys {
		if _, err := cfg.Get(k); err != nil {
			t.Errorf("Get(%q): %v", k, err)
		}
	}
	if len(keys) != 18 {
		t.Errorf("len(Keys()) = %d, want 18", len(keys))
	}
}

func TestConfig_StringRedactsToken(t *testing.T) {
	cfg := Default()
	cfg.Connection.Token = "super-secret"
	s := cfg.String()
	if strings.Contains(s, "super-secret") {
		t.Error("String() leaked the token")
	}
	if cfg.Connection.Token != "super-secret" {
		t.Error("String() modified the original")
	}
}

func TestConfig_Clone(t *testing.T) {
	cfg := Default()
	cfg.Connection.Autojoin = []string{"1/2"}
	clone := cfg.Clone()
	clone.Connection.Autojoin[0] = "3/4"
	if cfg.Connection.Autojoin[0] != "1/2" {
		t.Error("Clone shares the autojoin slice")
	}
}

// =============================================================================
// GLOBAL
// =============================================================================

func TestConfig_ConcurrentAccess(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetGlobal(Default())
		}()
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()
}

func TestConfig_SetGlobalOverwrites(t *testing.T) {
	isolate(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	cfg := Default()
	cfg.Buffer.MaxMessages = 7
	SetGlobal(cfg)
	if got := Global().Buffer.MaxMessages; got != 7 {
		t.Errorf("Global().Buffer.MaxMessages = %d, want 7", got)
	}
}

// =============================================================================
// WATCHER
// =============================================================================

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := writeConfig(t, dir, "[buffer]\nmax_messages = 10\n")

	changes := make(chan *Config, 4)
	w, err := NewWatcher(path, 20*time.Millisecond, nil, func(c *Config) { changes <- c })
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Unrelated files in the same directory are ignored; an invalid write is
	// skipped and the following valid write is delivered.
	if err := os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	writeConfig(t, dir, "[buffer]\nmax_messages = 0\n")
	time.Sleep(100 * time.Millisecond)
	writeConfig(t, dir, "[buffer]\nmax_messages = 20\n")

	select {
	case c := <-changes:
		if c.Buffer.MaxMessages != 20 {
			t.Errorf("reloaded max_messages = %d, want 20", c.Buffer.MaxMessages)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload")
	}
}
