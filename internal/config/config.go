// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/ktemkin/weechat-discord/internal/dispatch"
	"github.com/ktemkin/weechat-discord/internal/model"
	"github.com/ktemkin/weechat-discord/internal/render"
)

// ErrNoToken is returned by RequireToken when no account token is configured.
var ErrNoToken = errors.New("no token configured: set connection.token or WEECORD_TOKEN")

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete weecord configuration.
type Config struct {
	Connection ConnectionConfig `toml:"connection"`
	Buffer     BufferConfig     `toml:"buffer"`
	Look       LookConfig       `toml:"look"`
	Color      ColorConfig      `toml:"color"`
	Logging    LoggingConfig    `toml:"logging"`
	Metrics    MetricsConfig    `toml:"metrics"`
}

// ConnectionConfig holds the account and endpoints.
type ConnectionConfig struct {
	Token      string `toml:"token"`
	GatewayURL string `toml:"gateway_url"`
	APIURL     string `toml:"api_url"`
	// Autojoin lists conversations ("guild/channel", "channel" or
	// "guild/channel/pins") opened once the session is ready.
	Autojoin []string `toml:"autojoin"`
}

// BufferConfig bounds the per-conversation stores.
type BufferConfig struct {
	MaxMessages       int `toml:"max_messages"`
	MessageFetchCount int `toml:"message_fetch_count"`
}

// LookConfig controls how messages are rendered.
type LookConfig struct {
	ShowFormattingChars bool   `toml:"show_formatting_chars"`
	ShowUnknownUserIDs  bool   `toml:"show_unknown_user_ids"`
	NickPrefix          string `toml:"nick_prefix"`
	NickSuffix          string `toml:"nick_suffix"`
	TypingListMax       int    `toml:"typing_list_max"`
	// TimestampFormat is a Go time layout for the line prefix column.
	TimestampFormat string `toml:"timestamp_format"`
}

// ColorConfig holds color names or #rrggbb values.
type ColorConfig struct {
	NickPrefixColor string `toml:"nick_prefix_color"`
	NickSuffixColor string `toml:"nick_suffix_color"`
	// CodeTheme is a chroma style name. Empty disables highlighting.
	CodeTheme string `toml:"code_theme"`
}

// LoggingConfig selects the log level and sink.
type LoggingConfig struct {
	Level string `toml:"level"`
	// File is a log file path. Empty logs to stderr in line mode and to
	// weecord.log in the config directory in TUI mode.
	File string `toml:"file"`
}

// MetricsConfig enables the prometheus endpoint.
type MetricsConfig struct {
	// Listen is a host:port for /metrics. Empty disables the endpoint.
	Listen string `toml:"listen"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with all default values set.
func Default() *Config {
	return &Config{
		Connection: ConnectionConfig{
			GatewayURL: "wss://gateway.discord.gg/?v=9&encoding=json",
			APIURL:     "https://discord.com/api/v9",
		},
		Buffer: BufferConfig{
			MaxMessages:       model.DefaultCapacity,
			MessageFetchCount: dispatch.DefaultFetchCount,
		},
		Look: LookConfig{
			ShowFormattingChars: true,
			ShowUnknownUserIDs:  false,
			TypingListMax:       5,
			TimestampFormat:     "15:04",
		},
		Color: ColorConfig{
			CodeTheme: "monokai",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the weecord configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".weecord"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ensureSecurePermissions tightens the config file to 0600; it holds the
// account token.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the default config file when present, loads a .env file from
// the working directory and then applies environment overrides. A missing
// config file is not an error.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr != nil {
		cfg := Default()
		loadDotEnv()
		cfg.ApplyEnvOverrides()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file with overrides
// and validation applied.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if err := LoadTOML(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	loadDotEnv()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes path over cfg. Keys absent from the file keep the values
// already in cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %s\n", path, strings.Join(keys, ", "))
	}
	return nil
}

// loadDotEnv reads .env without overriding variables already set.
func loadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML writes cfg to path with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()
	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# weecord configuration file")
	fmt.Fprintln(file, "")

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError is one invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every field and returns ValidationErrors listing all
// problems, or nil. The token is not required here; see RequireToken.
func (c *Config) Validate() error {
	var errs ValidationErrors
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg})
	}

	if c.Connection.GatewayURL == "" {
		add("connection.gateway_url", "must not be empty")
	} else if !strings.HasPrefix(c.Connection.GatewayURL, "ws://") && !strings.HasPrefix(c.Connection.GatewayURL, "wss://") {
		add("connection.gateway_url", "must be a ws:// or wss:// URL")
	}
	if c.Connection.APIURL == "" {
		add("connection.api_url", "must not be empty")
	} else if !strings.HasPrefix(c.Connection.APIURL, "http://") && !strings.HasPrefix(c.Connection.APIURL, "https://") {
		add("connection.api_url", "must be an http:// or https:// URL")
	}
	for _, s := range c.Connection.Autojoin {
		if _, err := model.ParseConversationID(s); err != nil {
			add("connection.autojoin", err.Error())
		}
	}

	if c.Buffer.MaxMessages < 1 {
		add("buffer.max_messages", "must be at least 1")
	}
	if c.Buffer.MessageFetchCount < 0 || c.Buffer.MessageFetchCount > 100 {
		add("buffer.message_fetch_count", "must be between 0 and 100")
	}
	if c.Look.TypingListMax < 1 {
		add("look.typing_list_max", "must be at least 1")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		add("logging.level", fmt.Sprintf("unknown level %q", c.Logging.Level))
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// RequireToken returns ErrNoToken when the connection has no token.
func (c *Config) RequireToken() error {
	if strings.TrimSpace(c.Connection.Token) == "" {
		return ErrNoToken
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - WEECORD_TOKEN: overrides connection.token
//   - WEECORD_GATEWAY_URL: overrides connection.gateway_url
//   - WEECORD_API_URL: overrides connection.api_url
//   - WEECORD_AUTOJOIN: comma separated connection.autojoin
//   - WEECORD_LOG_LEVEL: overrides logging.level
//   - WEECORD_LOG_FILE: overrides logging.file
//   - WEECORD_METRICS_LISTEN: overrides metrics.listen
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("WEECORD_TOKEN"); v != "" {
		c.Connection.Token = v
	}
	if v := os.Getenv("WEECORD_GATEWAY_URL"); v != "" {
		c.Connection.GatewayURL = v
	}
	if v := os.Getenv("WEECORD_API_URL"); v != "" {
		c.Connection.APIURL = v
	}
	if v := os.Getenv("WEECORD_AUTOJOIN"); v != "" {
		var list []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				list = append(list, s)
			}
		}
		c.Connection.Autojoin = list
	}
	if v := os.Getenv("WEECORD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("WEECORD_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("WEECORD_METRICS_LISTEN"); v != "" {
		c.Metrics.Listen = v
	}
}

// =============================================================================
// CONVERSIONS
// =============================================================================

// Render returns the renderer options described by the look and color
// sections.
func (c *Config) Render() render.Options {
	return render.Options{
		ShowFormatting:  c.Look.ShowFormattingChars,
		ShowUnknownIDs:  c.Look.ShowUnknownUserIDs,
		NickPrefix:      c.Look.NickPrefix,
		NickSuffix:      c.Look.NickSuffix,
		NickPrefixColor: c.Color.NickPrefixColor,
		NickSuffixColor: c.Color.NickSuffixColor,
		CodeTheme:       c.Color.CodeTheme,
	}
}

// Dispatch returns the dispatcher settings. Autojoin entries are parsed
// here; Validate has already rejected malformed ones.
func (c *Config) Dispatch() (dispatch.Config, error) {
	out := dispatch.Config{
		Capacity:   c.Buffer.MaxMessages,
		FetchCount: c.Buffer.MessageFetchCount,
		Render:     c.Render(),
	}
	for _, s := range c.Connection.Autojoin {
		id, err := model.ParseConversationID(s)
		if err != nil {
			return dispatch.Config{}, fmt.Errorf("connection.autojoin: %w", err)
		}
		out.Autojoin = append(out.Autojoin, id)
	}
	return out, nil
}

// LogSink returns the logging sink string for logging.New. In TUI mode an
// unset file is placed in the config directory so logs stay off the screen.
func (c *Config) LogSink(tui bool) string {
	if c.Logging.File != "" {
		return "file:" + c.Logging.File
	}
	if !tui {
		return "stderr"
	}
	dir, err := ConfigDir()
	if err != nil {
		return "stderr"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "stderr"
	}
	return "file:" + filepath.Join(dir, "weecord.log")
}

// =============================================================================
// GET (DOT NOTATION)
// =============================================================================

// Get retrieves a value by its TOML key, such as "buffer.max_messages".
func (c *Config) Get(key string) (interface{}, error) {
	parts := strings.Split(key, ".")
	if key == "" {
		return nil, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field.Interface(), nil
		}
		if field.Kind() != reflect.Struct {
			return nil, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return nil, fmt.Errorf("invalid key: %s", key)
}

// Set assigns a string value by TOML key, converting it to the field type.
func (c *Config) Set(key, value string) error {
	parts := strings.Split(key, ".")
	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i < len(parts)-1 {
			if field.Kind() != reflect.Struct {
				return fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
			}
			v = field
			continue
		}
		return setFieldValue(field, value)
	}
	return fmt.Errorf("invalid key: %s", key)
}

func fieldByTag(v reflect.Value, tag string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if name, _, _ := strings.Cut(t.Field(i).Tag.Get("toml"), ","); name == tag {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func setFieldValue(field reflect.Value, s string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(s)
	case reflect.Int:
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid integer value: %w", err)
		}
		field.SetInt(int64(n))
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("invalid boolean value: %w", err)
		}
		field.SetBool(b)
	case reflect.Slice:
		var list []string
		for _, item := range strings.Split(s, ",") {
			if item = strings.TrimSpace(item); item != "" {
				list = append(list, item)
			}
		}
		field.Set(reflect.ValueOf(list))
	default:
		return fmt.Errorf("cannot assign to %s", field.Type())
	}
	return nil
}

// Keys returns every leaf key in dot notation.
func Keys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			name, _, _ := strings.Cut(t.Field(i).Tag.Get("toml"), ",")
			if t.Field(i).Type.Kind() == reflect.Struct {
				walk(t.Field(i).Type, prefix+name+".")
				continue
			}
			keys = append(keys, prefix+name)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	return keys
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Connection.Autojoin = append([]string(nil), c.Connection.Autojoin...)
	return &clone
}

// String renders the config as TOML with the token redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Connection.Token != "" {
		safe.Connection.Token = "[REDACTED]"
	}
	var b strings.Builder
	_ = toml.NewEncoder(&b).Encode(safe)
	return b.String()
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the process-wide configuration, loading it on first use.
// A load error falls back to defaults with a warning.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal replaces the process-wide configuration.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
