package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "dynamic", cfg.Cache.Dir)
	assert.True(t, cfg.Cache.Watch)
	assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
	assert.False(t, cfg.Auth.Enabled)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "irc.config.yaml")
	content := `
server:
  port: 9090
cache:
  dir: build/handlers
  watch: false
gemini:
  model: gemini-2.5-pro
  temperature: 0.2
logging:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "build/handlers", cfg.Cache.Dir)
	assert.False(t, cfg.Cache.Watch)
	assert.Equal(t, "gemini-2.5-pro", cfg.Gemini.Model)
	assert.InDelta(t, 0.2, cfg.Gemini.Temperature, 0.001)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Untouched sections keep their defaults.
	assert.Equal(t, "instructions", cfg.Instructions.Dir)
	assert.Equal(t, "data/generations.db", cfg.History.Path)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("IRC_PORT", "8181")
	t.Setenv("IRC_AUTH_SECRET", "env-secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Gemini.APIKey)
	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, "env-secret", cfg.Auth.Secret)
}

func TestLoad_EnvOverridesBeatFile(t *testing.T) {
	t.Setenv("IRC_PORT", "8282")

	path := filepath.Join(t.TempDir(), "irc.config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8282, cfg.Server.Port)
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "irc.config.yaml")

	cfg := DefaultConfig()
	cfg.Server.Port = 4242
	cfg.Gemini.Model = "gemini-2.5-flash"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4242, loaded.Server.Port)
	assert.Equal(t, "gemini-2.5-flash", loaded.Gemini.Model)
}

func TestDurationAccessors(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout())
	assert.Equal(t, 2*time.Minute, cfg.GeminiTimeout())
	assert.Equal(t, 24*time.Hour, cfg.AuthTTL())

	cfg.Server.ShutdownTimeout = "30s"
	cfg.Gemini.Timeout = "45s"
	cfg.Auth.TTL = "1h"
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout())
	assert.Equal(t, 45*time.Second, cfg.GeminiTimeout())
	assert.Equal(t, time.Hour, cfg.AuthTTL())

	t.Run("unparseable durations fall back", func(t *testing.T) {
		cfg.Server.ShutdownTimeout = "soon"
		assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout())
	})
}
