// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for rigchat.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/jeranaias/rigchat/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete rigchat configuration.
type Config struct {
	Storage    StorageConfig    `toml:"storage"`
	Server     ServerConfig     `toml:"server"`
	Generation GenerationConfig `toml:"generation"`
	Client     ClientConfig     `toml:"client"`
	Log        LogConfig        `toml:"log"`
}

// StorageConfig selects where the conversation blob lives.
type StorageConfig struct {
	// Driver is one of: file, sqlite, pebble, memory
	Driver string `toml:"driver" env:"RIGCHAT_STORAGE_DRIVER"`
	// Path is a directory (file, pebble) or database file (sqlite).
	// Empty means a default under the config directory.
	Path string `toml:"path" env:"RIGCHAT_STORAGE_PATH"`
	// Key names the blob holding all conversations.
	Key string `toml:"key" env:"RIGCHAT_STORAGE_KEY"`
}

// ServerConfig configures `rigchat serve`.
type ServerConfig struct {
	Addr              string   `toml:"addr" env:"RIGCHAT_SERVER_ADDR"`
	StreamTimeoutSecs int      `toml:"stream_timeout_secs" env:"RIGCHAT_SERVER_STREAM_TIMEOUT_SECS"`
	RateLimit         float64  `toml:"rate_limit" env:"RIGCHAT_SERVER_RATE_LIMIT"`
	RateBurst         int      `toml:"rate_burst" env:"RIGCHAT_SERVER_RATE_BURST"`
	CORSOrigins       []string `toml:"cors_origins" env:"RIGCHAT_SERVER_CORS_ORIGINS" envSeparator:","`
	MaxBodyBytes      int64    `toml:"max_body_bytes" env:"RIGCHAT_SERVER_MAX_BODY_BYTES"`
}

// GenerationConfig selects the model used by the server.
type GenerationConfig struct {
	// Provider is one of: openai, ollama
	Provider     string `toml:"provider" env:"RIGCHAT_GENERATION_PROVIDER"`
	Model        string `toml:"model" env:"RIGCHAT_GENERATION_MODEL"`
	BaseURL      string `toml:"base_url" env:"RIGCHAT_GENERATION_BASE_URL"`
	APIKey       string `toml:"api_key" env:"RIGCHAT_GENERATION_API_KEY"`
	SystemPrompt string `toml:"system_prompt" env:"RIGCHAT_GENERATION_SYSTEM_PROMPT"`
}

// ClientConfig configures how the UI reaches the generation endpoint.
type ClientConfig struct {
	Endpoint string `toml:"endpoint" env:"RIGCHAT_CLIENT_ENDPOINT"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of: debug, info, warn, error
	Level string `toml:"level" env:"RIGCHAT_LOG_LEVEL"`
	// Format is one of: console, json
	Format string `toml:"format" env:"RIGCHAT_LOG_FORMAT"`
	// File receives log output instead of stderr when set.
	File string `toml:"file" env:"RIGCHAT_LOG_FILE"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

const (
	DefaultSystemPrompt = "Ты дружелюбный AI-ассистент в мессенджере. Отвечай кратко и по делу, как в обычной переписке."
	DefaultModel        = "gpt-4o-mini"
	DefaultAddr         = "127.0.0.1:8787"
	DefaultEndpoint     = "http://127.0.0.1:8787/api/chat"
	DefaultStorageKey   = "telegram-ai-chats"
)

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Driver: "file",
			Key:    DefaultStorageKey,
		},
		Server: ServerConfig{
			Addr:              DefaultAddr,
			StreamTimeoutSecs: 30,
			RateLimit:         5,
			RateBurst:         10,
			CORSOrigins:       []string{"http://localhost:*", "http://127.0.0.1:*"},
			MaxBodyBytes:      1 << 20,
		},
		Generation: GenerationConfig{
			Provider:     "openai",
			Model:        DefaultModel,
			SystemPrompt: DefaultSystemPrompt,
		},
		Client: ClientConfig{
			Endpoint: DefaultEndpoint,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the rigchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".rigchat"), nil
}

// ConfigPath returns the path to the default config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DefaultStoragePath returns the default location for the given driver.
func DefaultStoragePath(driver string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	switch driver {
	case "sqlite":
		return filepath.Join(dir, "chats.db"), nil
	case "pebble":
		return filepath.Join(dir, "pebble"), nil
	default:
		return filepath.Join(dir, "data"), nil
	}
}

// ensureSecurePermissions tightens config files to 0600; they may hold API keys.
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

// Load reads the TOML file at path (the default location when empty), then
// .env files, then RIGCHAT_* environment overrides. A missing file is not an
// error. The result has defaults filled and is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	loadDotEnv(filepath.Join(filepath.Dir(path), ".env"))
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes path into cfg.
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

// loadDotEnv loads .env in the working directory and then extra. Variables
// already set in the environment win.
func loadDotEnv(extra string) {
	for _, p := range []string{".env", extra} {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not load %s: %v\n", p, err)
		}
	}
}

// ApplyEnvOverrides applies RIGCHAT_* variables on top of the current values.
// OPENAI_API_KEY is honored when no key is configured.
func (c *Config) ApplyEnvOverrides() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	if c.Generation.APIKey == "" {
		c.Generation.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg as TOML to path (the default location when empty).
func Save(cfg *Config, path string) error {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	var buf bytes.Buffer
	buf.WriteString("# rigchat configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return true
		}
	}
	return false
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if !oneOf(c.Storage.Driver, "file", "sqlite", "pebble", "memory") {
		errs = append(errs, ValidationError{
			Field:   "storage.driver",
			Message: fmt.Sprintf("invalid driver '%s', must be one of: file, sqlite, pebble, memory", c.Storage.Driver),
		})
	}
	if strings.TrimSpace(c.Storage.Key) == "" {
		errs = append(errs, ValidationError{Field: "storage.key", Message: "must not be empty"})
	}

	if c.Server.StreamTimeoutSecs < 1 || c.Server.StreamTimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "server.stream_timeout_secs",
			Message: fmt.Sprintf("must be between 1 and 600, got %d", c.Server.StreamTimeoutSecs),
		})
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, ValidationError{Field: "server.rate_limit", Message: "must not be negative"})
	}
	if c.Server.RateBurst < 0 {
		errs = append(errs, ValidationError{Field: "server.rate_burst", Message: "must not be negative"})
	}
	if c.Server.MaxBodyBytes < 0 {
		errs = append(errs, ValidationError{Field: "server.max_body_bytes", Message: "must not be negative"})
	}

	if !oneOf(c.Generation.Provider, "openai", "ollama") {
		errs = append(errs, ValidationError{
			Field:   "generation.provider",
			Message: fmt.Sprintf("invalid provider '%s', must be one of: openai, ollama", c.Generation.Provider),
		})
	}
	if c.Generation.BaseURL != "" {
		if err := validateURL(c.Generation.BaseURL); err != nil {
			errs = append(errs, ValidationError{Field: "generation.base_url", Message: err.Error()})
		}
	}

	if err := validateURL(c.Client.Endpoint); err != nil {
		errs = append(errs, ValidationError{Field: "client.endpoint", Message: err.Error()})
	}

	if !oneOf(c.Log.Level, "debug", "info", "warn", "error") {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}
	if !oneOf(c.Log.Format, "console", "json") {
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Message: fmt.Sprintf("invalid format '%s', must be one of: console, json", c.Log.Format),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL must use http or https scheme, got '%s'", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("URL must include a host")
	}
	return nil
}

// SetDefaults fills empty fields with default values.
func (c *Config) SetDefaults() {
	def := Default()

	if c.Storage.Driver == "" {
		c.Storage.Driver = def.Storage.Driver
	}
	c.Storage.Driver = strings.ToLower(c.Storage.Driver)
	if c.Storage.Key == "" {
		c.Storage.Key = def.Storage.Key
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.Server.StreamTimeoutSecs == 0 {
		c.Server.StreamTimeoutSecs = def.Server.StreamTimeoutSecs
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = def.Server.MaxBodyBytes
	}
	if c.Generation.Provider == "" {
		c.Generation.Provider = def.Generation.Provider
	}
	c.Generation.Provider = strings.ToLower(c.Generation.Provider)
	if c.Generation.Model == "" {
		c.Generation.Model = def.Generation.Model
	}
	if c.Generation.SystemPrompt == "" {
		c.Generation.SystemPrompt = def.Generation.SystemPrompt
	}
	if c.Client.Endpoint == "" {
		c.Client.Endpoint = def.Client.Endpoint
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	c.Log.Format = strings.ToLower(c.Log.Format)
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// field resolves a dotted TOML key such as "server.addr" to a struct field.
func (c *Config) field(key string) (reflect.Value, error) {
	parts := strings.Split(key, ".")
	if key == "" || len(parts) == 0 {
		return reflect.Value{}, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		if v.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i], "."))
		}
		found := false
		for j := 0; j < v.NumField(); j++ {
			if tomlName(v.Type().Field(j)) == part {
				v = v.Field(j)
				found = true
				break
			}
		}
		if !found {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
	}
	return v, nil
}

func tomlName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
	return name
}

// Get retrieves a configuration value using dot notation (e.g., "log.level").
func (c *Config) Get(key string) (any, error) {
	v, err := c.field(key)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

// Set parses value into the field named by key.
func (c *Config) Set(key, value string) error {
	v, err := c.field(key)
	if err != nil {
		return err
	}
	switch v.Kind() {
	case reflect.String:
		v.SetString(value)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: expected an integer: %w", key, err)
		}
		v.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s: expected a number: %w", key, err)
		}
		v.SetFloat(f)
	case reflect.Slice:
		var items []string
		for _, s := range strings.Split(value, ",") {
			if s = strings.TrimSpace(s); s != "" {
				items = append(items, s)
			}
		}
		v.Set(reflect.ValueOf(items))
	case reflect.Struct:
		return fmt.Errorf("%s is a section; set one of its fields", key)
	default:
		return fmt.Errorf("cannot set field: %s", key)
	}
	return nil
}

// Keys returns every settable dotted key.
func Keys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		for j := 0; j < section.Type.NumField(); j++ {
			keys = append(keys, tomlName(section)+"."+tomlName(section.Type.Field(j)))
		}
	}
	return keys
}

// Redacted returns a copy with secrets masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	out.Server.CORSOrigins = append([]string(nil), c.Server.CORSOrigins...)
	if out.Generation.APIKey != "" {
		out.Generation.APIKey = "********"
	}
	return &out
}
