// Copyright (c) 2025-2026 Inkwell Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// =============================================================================
// DEFAULTS AND VALIDATION TESTS
// =============================================================================

func TestDefaultConfigIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default config must validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad rate", func(c *Config) { c.Server.RateLimitRPS = -1 }, "server.rate_limit_rps"},
		{"bad burst", func(c *Config) { c.Server.RateLimitBurst = 0 }, "server.rate_limit_burst"},
		{"bad timeout", func(c *Config) { c.AI.TimeoutSecs = 0 }, "ai.timeout_secs"},
		{"bad base url", func(c *Config) { c.AI.BaseURL = "ftp://x" }, "ai.base_url"},
		{"bad theme", func(c *Config) { c.Export.Theme = "sepia" }, "export.theme"},
		{"bad budget", func(c *Config) { c.AI.TokenBudget = -1 }, "ai.token_budget"},
		{"bad history limit", func(c *Config) { c.Session.HistoryLimit = -1 }, "session.history_limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected a validation error")
			}
			ve, ok := err.(ValidationError)
			if !ok {
				t.Fatalf("Expected ValidationError, got %T", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestServerAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8787}
	if got := s.Addr(); got != "127.0.0.1:8787" {
		t.Errorf("Addr = %q", got)
	}
}

// =============================================================================
// LOAD AND SAVE TESTS
// =============================================================================

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Server.Port = 9999
	cfg.AI.Model = "deepseek-reasoner"
	cfg.Export.Theme = "dark"

	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Config file missing: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("Config file permissions = %o, want 0600", perm)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.Server.Port != 9999 {
		t.Errorf("Port = %d, want 9999", loaded.Server.Port)
	}
	if loaded.AI.Model != "deepseek-reasoner" {
		t.Errorf("Model = %q", loaded.AI.Model)
	}
	if loaded.Export.Theme != "dark" {
		t.Errorf("Theme = %q", loaded.Export.Theme)
	}
}

func TestLoadFillsMissingValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	partial := "[server]\nport = 9001\n"
	if err := os.WriteFile(path, []byte(partial), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("Explicit port lost: %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Host default not filled: %q", cfg.Server.Host)
	}
	if cfg.AI.Model != "deepseek-chat" {
		t.Errorf("Model default not filled: %q", cfg.AI.Model)
	}
	if cfg.AI.TimeoutSecs != 20 {
		t.Errorf("Timeout default not filled: %d", cfg.AI.TimeoutSecs)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	bad := "[export]\ntheme = \"sepia\"\n"
	if err := os.WriteFile(path, []byte(bad), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromPath(path); err == nil {
		t.Error("Invalid config must be rejected")
	}
}

func TestLoadFixesPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(""), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromPath(path); err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("Permissions = %o, want tightened to 0600", perm)
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDE TESTS
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("INKWELL_API_KEY", "sk-from-env")
	t.Setenv("INKWELL_PORT", "9191")
	t.Setenv("INKWELL_MODEL", "deepseek-reasoner")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.AI.APIKey != "sk-from-env" {
		t.Errorf("APIKey = %q", cfg.AI.APIKey)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("Port = %d", cfg.Server.Port)
	}
	if cfg.AI.Model != "deepseek-reasoner" {
		t.Errorf("Model = %q", cfg.AI.Model)
	}
}

func TestEnvKeyPrecedence(t *testing.T) {
	t.Setenv("INKWELL_API_KEY", "sk-primary")
	t.Setenv("DEEPSEEK_API_KEY", "sk-fallback")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if cfg.AI.APIKey != "sk-primary" {
		t.Errorf("INKWELL_API_KEY must win, got %q", cfg.AI.APIKey)
	}
}

func TestDeepSeekKeyFallback(t *testing.T) {
	t.Setenv("INKWELL_API_KEY", "")
	t.Setenv("DEEPSEEK_API_KEY", "sk-fallback")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if cfg.AI.APIKey != "sk-fallback" {
		t.Errorf("DEEPSEEK_API_KEY fallback not applied, got %q", cfg.AI.APIKey)
	}
}

// =============================================================================
// HOT RELOAD TESTS
// =============================================================================

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := SaveTOML(Default(), path); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, func(c *Config) {
		select {
		case reloaded <- c:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()
	if err := w.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	cfg := Default()
	cfg.Server.Port = 9555
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-reloaded:
		if got.Server.Port != 9555 {
			t.Errorf("Reloaded port = %d, want 9555", got.Server.Port)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watcher did not reload within 5s")
	}
}

func TestWatcherKeepsOldConfigOnBrokenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := SaveTOML(Default(), path); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, func(c *Config) { reloaded <- c })
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Watch(); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("not toml {{{"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case <-reloaded:
		t.Error("Broken config must not trigger a reload callback")
	case <-time.After(time.Second):
	}
}
