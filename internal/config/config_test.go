// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if !cfg.Chat.StreamingEnabled {
		t.Error("streaming should default on")
	}
	if !cfg.Chat.UseDocsDefault {
		t.Error("use-docs should default on")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Server.BaseURL = "http://example.test:9000"
	cfg.UI.Theme = "light"
	cfg.Chat.StreamingEnabled = false

	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Server.BaseURL != "http://example.test:9000" {
		t.Errorf("base url = %q", loaded.Server.BaseURL)
	}
	if loaded.UI.Theme != "light" {
		t.Errorf("theme = %q", loaded.UI.Theme)
	}
	if loaded.Chat.StreamingEnabled {
		t.Error("streaming toggle lost in round trip")
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[server]\nbase_url = \"http://other.test\"\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.BaseURL != "http://other.test" {
		t.Errorf("base url = %q", cfg.Server.BaseURL)
	}
	if cfg.Server.TimeoutSecs != 30 {
		t.Errorf("timeout default lost, got %d", cfg.Server.TimeoutSecs)
	}
	if !cfg.Chat.StreamingEnabled {
		t.Error("absent chat section must keep the streaming default")
	}
}

func TestLoadJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"ui": {"theme": "auto", "compact_mode": true, "show_evidence": true}}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.UI.Theme != "auto" || !cfg.UI.CompactMode {
		t.Errorf("json fields not applied: %+v", cfg.UI)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DOCCHAT_SERVER_URL", "http://env.test:1234")
	t.Setenv("DOCCHAT_STREAMING", "false")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Server.BaseURL != "http://env.test:1234" {
		t.Errorf("base url = %q", cfg.Server.BaseURL)
	}
	if cfg.Chat.StreamingEnabled {
		t.Error("env override for streaming not applied")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad url", func(c *Config) { c.Server.BaseURL = "not a url" }},
		{"bad scheme", func(c *Config) { c.Server.BaseURL = "ftp://host" }},
		{"bad theme", func(c *Config) { c.UI.Theme = "solarized" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := SaveTOML(Default(), path); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Config, 1)
	w, err := WatchFile(path, 50*time.Millisecond, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	}, nil)
	if err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	defer w.Close()

	updated := Default()
	updated.UI.Theme = "light"
	if err := SaveTOML(updated, path); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.UI.Theme != "light" {
			t.Errorf("reloaded theme = %q", cfg.UI.Theme)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not deliver the reload")
	}
}
