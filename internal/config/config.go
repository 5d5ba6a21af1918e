// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/nexus-chat/nexus-tui/internal/provider"
	"github.com/nexus-chat/nexus-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete nexus configuration.
type Config struct {
	// StateDir is where chats, settings, and the search index live.
	// Empty means ~/.nexus.
	StateDir string `toml:"state_dir" json:"state_dir"`

	Provider ProviderConfig `toml:"provider" json:"provider"`
	UI       UIConfig       `toml:"ui" json:"ui"`
	Server   ServerConfig   `toml:"server" json:"server"`
}

// ProviderConfig contains completion endpoint configuration.
type ProviderConfig struct {
	// Default is the provider used on first run, before the settings store
	// has a persisted choice.
	Default string `toml:"default" json:"default"`

	// LocalURL overrides the local (Ollama) endpoint URL.
	LocalURL string `toml:"local_url" json:"local_url"`

	// BaseURLs overrides the API root per provider ID. Pointing every
	// provider at a nexus proxy goes through here.
	BaseURLs map[string]string `toml:"base_urls" json:"base_urls"`
}

// UIConfig contains TUI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto".
	Theme string `toml:"theme" json:"theme"`

	// Markdown renders assistant messages as markdown when true.
	Markdown bool `toml:"markdown" json:"markdown"`

	// SidebarWidth is the sidebar width in columns.
	SidebarWidth int `toml:"sidebar_width" json:"sidebar_width"`
}

// ServerConfig contains `nexus serve` proxy configuration.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `toml:"addr" json:"addr"`

	// RatePerMinute caps requests per client IP per minute. 0 disables
	// rate limiting.
	RatePerMinute int `toml:"rate_per_minute" json:"rate_per_minute"`

	// MaxBodyBytes caps request body size.
	MaxBodyBytes int64 `toml:"max_body_bytes" json:"max_body_bytes"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Default:  provider.DefaultProviderID,
			LocalURL: "http://localhost:11434/v1",
			BaseURLs: map[string]string{},
		},
		UI: UIConfig{
			Theme:        "dark",
			Markdown:     true,
			SidebarWidth: 32,
		},
		Server: ServerConfig{
			Addr:          "127.0.0.1:8319",
			RatePerMinute: 60,
			MaxBodyBytes:  1 << 20,
		},
	}
}

// =============================================================================
// PATH HELPERS
// =============================================================================

// Dir returns the nexus configuration directory path.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".nexus"), nil
}

// PathTOML returns the path to the TOML config file.
func PathTOML() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// PathJSON returns the path to the JSON config file.
func PathJSON() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureDir ensures the config directory exists.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOADING
// =============================================================================

// Load loads configuration from the config file(s). Tries TOML first, then
// JSON, and falls back to defaults. Environment overrides are applied last.
func Load() (*Config, error) {
	if tomlPath, err := PathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			return LoadFromPath(tomlPath)
		}
	}

	if jsonPath, err := PathJSON(); err == nil {
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

// LoadFromPath loads configuration from a specific file, filling defaults,
// applying environment overrides, and validating. Files ending in .json are
// parsed as JSON, everything else as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := &Config{}

	if strings.HasSuffix(path, ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
	} else {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
		}
	}

	cfg.fillDefaults()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// fillDefaults fills in any missing values with defaults.
func (c *Config) fillDefaults() {
	d := Default()

	if c.Provider.Default == "" {
		c.Provider.Default = d.Provider.Default
	}
	if c.Provider.LocalURL == "" {
		c.Provider.LocalURL = d.Provider.LocalURL
	}
	if c.Provider.BaseURLs == nil {
		c.Provider.BaseURLs = map[string]string{}
	}

	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.UI.SidebarWidth == 0 {
		c.UI.SidebarWidth = d.UI.SidebarWidth
	}

	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = d.Server.MaxBodyBytes
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies NEXUS_* environment variables over the loaded
// values.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("NEXUS_STATE_DIR"); v != "" {
		c.StateDir = v
	}
	if v := os.Getenv("NEXUS_PROVIDER"); v != "" {
		c.Provider.Default = v
	}
	if v := os.Getenv("NEXUS_LOCAL_URL"); v != "" {
		c.Provider.LocalURL = v
	}
	if v := os.Getenv("NEXUS_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("NEXUS_SERVE_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("NEXUS_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Server.RatePerMinute = n
		}
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError is one invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if _, ok := provider.Lookup(c.Provider.Default); !ok {
		return ValidationError{
			Field:   "provider.default",
			Message: fmt.Sprintf("unknown provider %q (known: %s)", c.Provider.Default, strings.Join(provider.IDs(), ", ")),
		}
	}

	switch c.UI.Theme {
	case "dark", "light", "auto":
	default:
		return ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("unknown theme %q (dark, light, auto)", c.UI.Theme),
		}
	}

	if c.UI.SidebarWidth < 20 || c.UI.SidebarWidth > 80 {
		return ValidationError{
			Field:   "ui.sidebar_width",
			Message: fmt.Sprintf("sidebar width %d out of range [20, 80]", c.UI.SidebarWidth),
		}
	}

	if c.Server.RatePerMinute < 0 {
		return ValidationError{
			Field:   "server.rate_per_minute",
			Message: "must be >= 0",
		}
	}
	if c.Server.MaxBodyBytes < 1024 {
		return ValidationError{
			Field:   "server.max_body_bytes",
			Message: "must be >= 1024",
		}
	}

	return nil
}

// ResolveStateDir returns the effective state directory, creating it if
// needed.
func (c *Config) ResolveStateDir() (string, error) {
	dir := c.StateDir
	if dir == "" {
		var err error
		dir, err = Dir()
		if err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create state directory: %w", err)
	}
	return dir, nil
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := PathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration to a TOML file. Config files hold API
// endpoint overrides, so they are written 0600.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("# nexus configuration file\n")
	sb.WriteString("# Edit with care; nexus rewrites this file on settings changes.\n\n")

	enc := toml.NewEncoder(&sb)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes the configuration to a JSON file.
func SaveJSON(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
