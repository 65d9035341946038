// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for docchat.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.docchat/config.toml
//   - ~/.docchat/config.json
//   - Built-in defaults
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/docchat-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete docchat configuration.
type Config struct {
	Server ServerConfig `toml:"server" json:"server"`
	Chat   ChatConfig   `toml:"chat" json:"chat"`
	UI     UIConfig     `toml:"ui" json:"ui"`
	Cache  CacheConfig  `toml:"cache" json:"cache"`
}

// ServerConfig contains backend connection configuration.
type ServerConfig struct {
	// BaseURL is the URL of the document assistant backend.
	BaseURL string `toml:"base_url" json:"base_url"`
	// TimeoutSecs is the timeout for non-streaming requests in seconds.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// MaxRetries for transient connection failures on reads.
	MaxRetries int `toml:"max_retries" json:"max_retries"`
}

// ChatConfig contains message exchange configuration.
type ChatConfig struct {
	// StreamingEnabled selects the streaming send path. When false every
	// exchange uses the blocking send-and-wait endpoint.
	StreamingEnabled bool `toml:"streaming_enabled" json:"streaming_enabled"`
	// UseDocsDefault is the initial state of the Use Documents toggle for
	// new conversations.
	UseDocsDefault bool `toml:"use_docs_default" json:"use_docs_default"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// CompactMode uses a more compact layout
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
	// ShowEvidence renders the supporting passages under answers
	ShowEvidence bool `toml:"show_evidence" json:"show_evidence"`
}

// CacheConfig contains the attachment preview cache configuration.
type CacheConfig struct {
	// Enabled controls whether previews are cached locally
	Enabled bool `toml:"enabled" json:"enabled"`
	// Path overrides the cache database location (empty = default)
	Path string `toml:"path" json:"path"`
	// MaxEntries is the maximum number of cached previews
	MaxEntries int `toml:"max_entries" json:"max_entries"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:     "http://127.0.0.1:8000",
			TimeoutSecs: 30,
			MaxRetries:  3,
		},
		Chat: ChatConfig{
			StreamingEnabled: true,
			UseDocsDefault:   true,
		},
		UI: UIConfig{
			Theme:        "dark",
			CompactMode:  false,
			ShowEvidence: true,
		},
		Cache: CacheConfig{
			Enabled:    true,
			MaxEntries: 500,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the docchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".docchat"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			return LoadFromPath(tomlPath)
		}
	}

	if jsonPath, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			return LoadFromPath(jsonPath)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation. Fields absent from the file keep their defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if filepath.Ext(path) == ".json" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read JSON config from %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode JSON config from %s: %w", path, err)
		}
	} else {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file atomically.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return util.AtomicWriteFile(path, buf.Bytes(), 0600)
}

// =============================================================================
// DEFAULTS, OVERRIDES, VALIDATION
// =============================================================================

// SetDefaults repairs empty or nonsensical values after loading.
func (c *Config) SetDefaults() {
	defaults := Default()
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = defaults.Server.BaseURL
	}
	if c.Server.TimeoutSecs <= 0 {
		c.Server.TimeoutSecs = defaults.Server.TimeoutSecs
	}
	if c.Server.MaxRetries <= 0 {
		c.Server.MaxRetries = defaults.Server.MaxRetries
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = defaults.Cache.MaxEntries
	}
}

// ApplyEnvOverrides applies DOCCHAT_* environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("DOCCHAT_SERVER_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("DOCCHAT_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("DOCCHAT_STREAMING"); v != "" {
		c.Chat.StreamingEnabled = v == "1" || v == "true"
	}
	if v := os.Getenv("DOCCHAT_USE_DOCS"); v != "" {
		c.Chat.UseDocsDefault = v == "1" || v == "true"
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server.base_url %q is not a valid URL", c.Server.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server.base_url scheme %q must be http or https", u.Scheme)
	}

	switch c.UI.Theme {
	case "dark", "light", "auto":
	default:
		return fmt.Errorf("ui.theme %q must be one of: dark, light, auto", c.UI.Theme)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
