// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nexus-chat/nexus-tui/internal/provider"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
	if cfg.Provider.Default != provider.DefaultProviderID {
		t.Errorf("default provider = %q", cfg.Provider.Default)
	}
}

func TestLoadFromPath_TOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
state_dir = "/tmp/nexus-test"

[provider]
default = "groq"

[ui]
theme = "light"
sidebar_width = 40

[server]
addr = "127.0.0.1:9000"
rate_per_minute = 10
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.StateDir != "/tmp/nexus-test" {
		t.Errorf("StateDir = %q", cfg.StateDir)
	}
	if cfg.Provider.Default != "groq" {
		t.Errorf("Provider.Default = %q", cfg.Provider.Default)
	}
	if cfg.UI.Theme != "light" || cfg.UI.SidebarWidth != 40 {
		t.Errorf("UI = %+v", cfg.UI)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" || cfg.Server.RatePerMinute != 10 {
		t.Errorf("Server = %+v", cfg.Server)
	}
	// Unset fields are filled from defaults.
	if cfg.Provider.LocalURL == "" || cfg.Server.MaxBodyBytes == 0 {
		t.Error("defaults were not filled in")
	}
}

func TestLoadFromPath_JSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{"ui": {"theme": "auto", "markdown": true}}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.UI.Theme != "auto" || !cfg.UI.Markdown {
		t.Errorf("UI = %+v", cfg.UI)
	}
}

func TestLoadFromPath_InvalidValuesRejected(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"unknown provider", "[provider]\ndefault = \"mystery\"\n"},
		{"unknown theme", "[ui]\ntheme = \"solarized\"\n"},
		{"sidebar too narrow", "[ui]\nsidebar_width = 5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "bad.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFromPath(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("NEXUS_PROVIDER", "local")
	t.Setenv("NEXUS_THEME", "light")
	t.Setenv("NEXUS_RATE_LIMIT", "5")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Provider.Default != "local" {
		t.Errorf("Provider.Default = %q", cfg.Provider.Default)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("UI.Theme = %q", cfg.UI.Theme)
	}
	if cfg.Server.RatePerMinute != 5 {
		t.Errorf("Server.RatePerMinute = %d", cfg.Server.RatePerMinute)
	}
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.UI.Theme = "light"
	cfg.Provider.Default = "openrouter"
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config file mode = %o, want 0600", perm)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.UI.Theme != "light" || loaded.Provider.Default != "openrouter" {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}

func TestResolveStateDir_Explicit(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.StateDir = filepath.Join(dir, "state")

	got, err := cfg.ResolveStateDir()
	if err != nil {
		t.Fatalf("ResolveStateDir failed: %v", err)
	}
	if got != cfg.StateDir {
		t.Errorf("dir = %q", got)
	}
	if _, err := os.Stat(got); err != nil {
		t.Errorf("state dir was not created: %v", err)
	}
}

func TestWatcher_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := SaveTOML(Default(), path); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var got *Config
	w, err := NewWatcher(path, func(cfg *Config) {
		mu.Lock()
		got = cfg
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()
	if err := w.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	updated := Default()
	updated.UI.Theme = "light"
	if err := SaveTOML(updated, path); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		ok := got != nil && got.UI.Theme == "light"
		mu.Unlock()
		if ok {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("watcher never delivered the reloaded config")
}

func TestWatcher_IgnoresBrokenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := SaveTOML(Default(), path); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	calls := 0
	w, err := NewWatcher(path, func(cfg *Config) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Watch(); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("this is not toml = ["), 0600); err != nil {
		t.Fatal(err)
	}

	time.Sleep(600 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if calls != 0 {
		t.Errorf("broken config was delivered %d times", calls)
	}
}
