// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultSystemPrompt, cfg.Generation.SystemPrompt)
	assert.Equal(t, "gpt-4o-mini", cfg.Generation.Model)
	assert.Equal(t, "telegram-ai-chats", cfg.Storage.Key)
	assert.Equal(t, 30, cfg.Server.StreamTimeoutSecs)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Server.Addr, cfg.Server.Addr)
}

func TestLoad_TOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
[storage]
driver = "SQLite"
path = "/tmp/chats.db"

[server]
addr = "0.0.0.0:9000"
cors_origins = ["https://chat.example.com"]

[generation]
provider = "ollama"
model = "llama3"

[log]
level = "debug"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "/tmp/chats.db", cfg.Storage.Path)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr)
	assert.Equal(t, []string{"https://chat.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "ollama", cfg.Generation.Provider)
	assert.Equal(t, "llama3", cfg.Generation.Model)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Unset fields keep their defaults.
	assert.Equal(t, 30, cfg.Server.StreamTimeoutSecs)
	assert.Equal(t, DefaultSystemPrompt, cfg.Generation.SystemPrompt)
}

func TestLoad_FixesPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"warn\"\n"), 0644))

	_, err := Load(path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestLoad_BadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[server\naddr=")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[server]\naddr = \"127.0.0.1:1\"\n")

	t.Setenv("RIGCHAT_SERVER_ADDR", "127.0.0.1:2")
	t.Setenv("RIGCHAT_SERVER_CORS_ORIGINS", "http://a,http://b")
	t.Setenv("RIGCHAT_GENERATION_MODEL", "gpt-4o")
	t.Setenv("RIGCHAT_STORAGE_DRIVER", "memory")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:2", cfg.Server.Addr)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "gpt-4o", cfg.Generation.Model)
	assert.Equal(t, "memory", cfg.Storage.Driver)
}

func TestLoad_DotEnvBesideConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "")
	writeFile(t, filepath.Join(dir, ".env"), "RIGCHAT_LOG_FORMAT=json\n")
	t.Cleanup(func() { os.Unsetenv("RIGCHAT_LOG_FORMAT") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_OpenAIKeyFallback(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.Generation.APIKey)
	assert.Equal(t, "********", cfg.Redacted().Generation.APIKey)
	assert.Equal(t, "sk-test", cfg.Generation.APIKey, "Redacted must not modify the original")
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Storage.Driver = "redis"
	cfg.Server.StreamTimeoutSecs = -1
	cfg.Generation.Provider = "bard"
	cfg.Client.Endpoint = "ftp://x"
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))

	fields := make(map[string]bool)
	for _, e := range verrs {
		fields[e.Field] = true
	}
	for _, f := range []string{"storage.driver", "server.stream_timeout_secs", "generation.provider", "client.endpoint", "log.level"} {
		assert.True(t, fields[f], "expected error for %s", f)
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Generation.Model = "llama3"
	cfg.Server.RateBurst = 3
	require.NoError(t, Save(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "llama3", loaded.Generation.Model)
	assert.Equal(t, 3, loaded.Server.RateBurst)
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("server.addr", "0.0.0.0:1"))
	require.NoError(t, cfg.Set("server.rate_limit", "2.5"))
	require.NoError(t, cfg.Set("server.stream_timeout_secs", "45"))
	require.NoError(t, cfg.Set("server.cors_origins", "http://a, http://b"))

	v, err := cfg.Get("server.addr")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:1", v)
	assert.Equal(t, 2.5, cfg.Server.RateLimit)
	assert.Equal(t, 45, cfg.Server.StreamTimeoutSecs)
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.Server.CORSOrigins)

	assert.Error(t, cfg.Set("server.rate_burst", "many"))
	assert.Error(t, cfg.Set("server", "x"))
	_, err = cfg.Get("nope.key")
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	keys := Keys()
	assert.Contains(t, keys, "storage.driver")
	assert.Contains(t, keys, "generation.system_prompt")
	assert.Contains(t, keys, "log.format")

	cfg := Default()
	for _, k := range keys {
		_, err := cfg.Get(k)
		assert.NoError(t, err, k)
	}
}
