// Package config loads the server configuration from irc.config.yaml,
// layered as defaults, then file, then environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "irc.config.yaml"

// Config holds all server configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Cache        CacheConfig        `yaml:"cache"`
	Instructions InstructionsConfig `yaml:"instructions"`
	Gemini       GeminiConfig       `yaml:"gemini"`
	Auth         AuthConfig         `yaml:"auth"`
	History      HistoryConfig      `yaml:"history"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port            int    `yaml:"port"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// CacheConfig configures the generated-artifact cache.
type CacheConfig struct {
	Dir string `yaml:"dir"`
	// Watch enables the filesystem watcher and the artifact event
	// stream endpoint.
	Watch bool `yaml:"watch"`
}

// InstructionsConfig configures the instruction fragment store.
type InstructionsConfig struct {
	Dir string `yaml:"dir"`
	// DebugPath, when set, receives the assembled instruction document
	// of the most recent generation.
	DebugPath string `yaml:"debug_path"`
}

// GeminiConfig configures the model gateway.
type GeminiConfig struct {
	APIKey          string  `yaml:"api_key"`
	BaseURL         string  `yaml:"base_url"`
	Model           string  `yaml:"model"`
	Temperature     float64 `yaml:"temperature"`
	TopP            float64 `yaml:"top_p"`
	TopK            int     `yaml:"top_k"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
	Timeout         string  `yaml:"timeout"`
}

// AuthConfig configures optional bearer-token auth on the API.
type AuthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Secret  string `yaml:"secret"`
	Issuer  string `yaml:"issuer"`
	TTL     string `yaml:"ttl"`
}

// HistoryConfig configures the generation history store.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            7070,
			ShutdownTimeout: "10s",
		},
		Cache: CacheConfig{
			Dir:   "dynamic",
			Watch: true,
		},
		Instructions: InstructionsConfig{
			Dir:       "instructions",
			DebugPath: "instructions.md",
		},
		Gemini: GeminiConfig{
			Model:           "gemini-2.0-flash",
			Temperature:     0.7,
			TopP:            0.95,
			TopK:            40,
			MaxOutputTokens: 8192,
			Timeout:         "120s",
		},
		Auth: AuthConfig{
			Enabled: false,
			Issuer:  "irc-server",
			TTL:     "24h",
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    "data/generations.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from a YAML file. A missing file returns
// defaults; environment overrides apply last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv("IRC_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("IRC_AUTH_SECRET"); v != "" {
		c.Auth.Secret = v
	}
}

// ShutdownTimeout parses the configured shutdown grace period.
func (c *Config) ShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 10*time.Second)
}

// GeminiTimeout parses the configured model call timeout.
func (c *Config) GeminiTimeout() time.Duration {
	return parseDuration(c.Gemini.Timeout, 2*time.Minute)
}

// AuthTTL parses the configured token lifetime.
func (c *Config) AuthTTL() time.Duration {
	return parseDuration(c.Auth.TTL, 24*time.Hour)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
