// Copyright (c) 2025-2026 Inkwell Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/inkwell-notes/inkwell/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete inkwell configuration.
type Config struct {
	Version string `toml:"version"`

	// Server configuration
	Server ServerConfig `toml:"server"`

	// AI (DeepSeek) configuration
	AI AIConfig `toml:"ai"`

	// Storage configuration
	Storage StorageConfig `toml:"storage"`

	// Session (edit pipeline) configuration
	Session SessionConfig `toml:"session"`

	// Export configuration
	Export ExportConfig `toml:"export"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Host is the listen address.
	Host string `toml:"host"`
	// Port is the listen port.
	Port int `toml:"port"`
	// RateLimitRPS is the per-client request rate (requests per second).
	RateLimitRPS float64 `toml:"rate_limit_rps"`
	// RateLimitBurst is the per-client burst allowance.
	RateLimitBurst int `toml:"rate_limit_burst"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// AIConfig contains DeepSeek API configuration.
type AIConfig struct {
	// APIKey is the DeepSeek API key. Usually set via environment instead
	// of the config file.
	APIKey string `toml:"api_key"`
	// Model is the chat model identifier or friendly name.
	Model string `toml:"model"`
	// BaseURL overrides the API endpoint, mainly for testing.
	BaseURL string `toml:"base_url"`
	// TimeoutSecs bounds non-streaming requests.
	TimeoutSecs int `toml:"timeout_secs"`
	// MaxRetries is the retry count for transient errors.
	MaxRetries int `toml:"max_retries"`
	// TokenBudget bounds the assembled prompt (system + history + user).
	TokenBudget int `toml:"token_budget"`
}

// SessionConfig contains edit session configuration.
type SessionConfig struct {
	// HistoryLimit is the edit history ring capacity.
	HistoryLimit int `toml:"history_limit"`
}

// StorageConfig contains document store configuration.
type StorageConfig struct {
	// DatabasePath is the SQLite database file (empty = default under
	// the config directory).
	DatabasePath string `toml:"database_path"`
}

// ExportConfig contains document export configuration.
type ExportConfig struct {
	// OutputDir is where exported files are written.
	OutputDir string `toml:"output_dir"`
	// Theme for HTML export ("light" or "dark").
	Theme string `toml:"theme"`
	// IncludeMetadata includes a metadata header in exports.
	IncludeMetadata bool `toml:"include_metadata"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           8787,
			RateLimitRPS:   5,
			RateLimitBurst: 10,
		},

		AI: AIConfig{
			APIKey:      "",
			Model:       "deepseek-chat",
			BaseURL:     "",
			TimeoutSecs: 20,
			MaxRetries:  3,
			TokenBudget: 8192,
		},

		Storage: StorageConfig{
			DatabasePath: "",
		},

		Session: SessionConfig{
			HistoryLimit: 10,
		},

		Export: ExportConfig{
			OutputDir:       ".",
			Theme:           "light",
			IncludeMetadata: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the inkwell configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".inkwell"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DefaultDatabasePath returns the default SQLite database location.
func DefaultDatabasePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "documents.db"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on the config file.
// SECURITY: Config files should be 0600 to protect the API key.
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

// Load loads configuration from the default config file, falling back to
// defaults when the file does not exist. Environment overrides are applied
// last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		if err := cfg.finalize(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file path with full
// validation.
func LoadFromPath(path string) (*Config, error) {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// finalize fills missing values and validates.
func (c *Config) finalize() error {
	c.fillDefaults()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// fillDefaults fills in any missing values with defaults.
func (c *Config) fillDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Server.Host == "" {
		c.Server.Host = defaults.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaults.Server.Port
	}
	if c.Server.RateLimitRPS == 0 {
		c.Server.RateLimitRPS = defaults.Server.RateLimitRPS
	}
	if c.Server.RateLimitBurst == 0 {
		c.Server.RateLimitBurst = defaults.Server.RateLimitBurst
	}
	if c.AI.Model == "" {
		c.AI.Model = defaults.AI.Model
	}
	if c.AI.TimeoutSecs == 0 {
		c.AI.TimeoutSecs = defaults.AI.TimeoutSecs
	}
	if c.AI.MaxRetries == 0 {
		c.AI.MaxRetries = defaults.AI.MaxRetries
	}
	if c.AI.TokenBudget == 0 {
		c.AI.TokenBudget = defaults.AI.TokenBudget
	}
	if c.Session.HistoryLimit == 0 {
		c.Session.HistoryLimit = defaults.Session.HistoryLimit
	}
	if c.Export.OutputDir == "" {
		c.Export.OutputDir = defaults.Export.OutputDir
	}
	if c.Export.Theme == "" {
		c.Export.Theme = defaults.Export.Theme
	}
}

// ApplyEnvOverrides applies environment variable overrides. INKWELL_API_KEY
// takes precedence over DEEPSEEK_API_KEY.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("INKWELL_API_KEY"); v != "" {
		c.AI.APIKey = v
	} else if v := os.Getenv("DEEPSEEK_API_KEY"); v != "" && c.AI.APIKey == "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("INKWELL_MODEL"); v != "" {
		c.AI.Model = v
	}
	if v := os.Getenv("INKWELL_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("INKWELL_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("INKWELL_DB_PATH"); v != "" {
		c.Storage.DatabasePath = v
	}
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

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return ValidationError{"server.port", fmt.Sprintf("must be 1-65535, got %d", c.Server.Port)}
	}
	if c.Server.RateLimitRPS <= 0 {
		return ValidationError{"server.rate_limit_rps", "must be positive"}
	}
	if c.Server.RateLimitBurst < 1 {
		return ValidationError{"server.rate_limit_burst", "must be at least 1"}
	}
	if c.AI.TimeoutSecs < 1 {
		return ValidationError{"ai.timeout_secs", "must be at least 1"}
	}
	if c.AI.MaxRetries < 1 {
		return ValidationError{"ai.max_retries", "must be at least 1"}
	}
	if c.AI.BaseURL != "" && !strings.HasPrefix(c.AI.BaseURL, "http://") && !strings.HasPrefix(c.AI.BaseURL, "https://") {
		return ValidationError{"ai.base_url", "must be an http(s) URL"}
	}
	if c.AI.TokenBudget < 1 {
		return ValidationError{"ai.token_budget", "must be at least 1"}
	}
	if c.Session.HistoryLimit < 1 {
		return ValidationError{"session.history_limit", "must be at least 1"}
	}
	switch c.Export.Theme {
	case "light", "dark":
	default:
		return ValidationError{"export.theme", fmt.Sprintf("must be light or dark, got %q", c.Export.Theme)}
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Written with 0600 permissions, the file may hold the API key.
// RELIABILITY: Atomic write with fsync prevents data loss on crash.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("# inkwell configuration file\n")
	buf.WriteString("# Generated by inkwell - edit with care\n\n")

	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
