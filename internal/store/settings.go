// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"fmt"
	"os"
	"sync"

	"github.com/nexus-chat/nexus-tui/internal/kv"
	"github.com/nexus-chat/nexus-tui/internal/provider"
)

// DefaultTemperature is the generation temperature on first run.
const DefaultTemperature = 0.7

// DefaultSystemPrompt is the system prompt shipped on first run.
const DefaultSystemPrompt = "You are a helpful, friendly, and knowledgeable AI assistant. " +
	"Respond clearly and concisely. Use markdown formatting when it helps readability."

// settingsRecord is the persisted shape of the generation settings.
type settingsRecord struct {
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	Temperature  float64 `json:"temperature"`
	SystemPrompt string  `json:"system_prompt"`
	APIKey       string  `json:"api_key"`
}

// =============================================================================
// SETTINGS STORE
// =============================================================================

// SettingsStore owns the generation settings. Provider and model are linked:
// switching provider resets the model to the provider's default so a model
// from one provider is never sent to another. All methods are safe for
// concurrent use.
type SettingsStore struct {
	mu sync.RWMutex

	backend kv.Store
	rec     settingsRecord

	// envLookup resolves provider credentials from the environment when no
	// key is stored. Swappable for tests.
	envLookup func(string) string
}

// NewSettingsStore creates a settings store backed by the given kv store,
// loading any previously persisted settings. A missing record, or one naming
// a provider that no longer exists, falls back to defaults.
func NewSettingsStore(backend kv.Store) (*SettingsStore, error) {
	s := &SettingsStore{
		backend:   backend,
		rec:       defaultSettings(),
		envLookup: os.Getenv,
	}

	var rec settingsRecord
	err := backend.Load(kv.RecordSettings, &rec)
	switch {
	case err == nil:
		if _, ok := provider.Lookup(rec.Provider); !ok {
			rec.Provider = provider.DefaultProviderID
			rec.Model = provider.DefaultModel(rec.Provider)
		}
		if rec.Model == "" {
			rec.Model = provider.DefaultModel(rec.Provider)
		}
		if rec.Temperature < 0 || rec.Temperature > 2 {
			rec.Temperature = DefaultTemperature
		}
		s.rec = rec
	case err == kv.ErrNotFound:
		// First run, defaults stand.
	default:
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	return s, nil
}

func defaultSettings() settingsRecord {
	return settingsRecord{
		Provider:     provider.DefaultProviderID,
		Model:        provider.DefaultModel(provider.DefaultProviderID),
		Temperature:  DefaultTemperature,
		SystemPrompt: DefaultSystemPrompt,
	}
}

// =============================================================================
// MUTATIONS
// =============================================================================

// SetProvider switches the active provider and resets the model to the new
// provider's default.
func (s *SettingsStore) SetProvider(id string) error {
	info, ok := provider.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %q", provider.ErrUnknownProvider, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rec.Provider = info.ID
	s.rec.Model = info.DefaultModel
	return s.persistLocked()
}

// SetModel sets the model used with the current provider.
func (s *SettingsStore) SetModel(model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rec.Model = model
	return s.persistLocked()
}

// SetTemperature sets the generation temperature. Values outside [0, 2] are
// rejected.
func (s *SettingsStore) SetTemperature(t float64) error {
	if t < 0 || t > 2 {
		return fmt.Errorf("%w: %v", provider.ErrInvalidTemperature, t)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rec.Temperature = t
	return s.persistLocked()
}

// SetSystemPrompt sets the system prompt prepended to every submission.
func (s *SettingsStore) SetSystemPrompt(prompt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rec.SystemPrompt = prompt
	return s.persistLocked()
}

// SetAPIKey sets the credential sent to providers that require one.
func (s *SettingsStore) SetAPIKey(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rec.APIKey = key
	return s.persistLocked()
}

// =============================================================================
// READS
// =============================================================================

// Provider returns the active provider ID.
func (s *SettingsStore) Provider() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.Provider
}

// Model returns the active model.
func (s *SettingsStore) Model() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.Model
}

// Temperature returns the generation temperature.
func (s *SettingsStore) Temperature() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.Temperature
}

// SystemPrompt returns the system prompt.
func (s *SettingsStore) SystemPrompt() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.SystemPrompt
}

// APIKey returns the stored credential.
func (s *SettingsStore) APIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.APIKey
}

// SetEnvLookup replaces the environment lookup used for credential
// fallback. Tests inject a deterministic lookup here.
func (s *SettingsStore) SetEnvLookup(fn func(string) string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.envLookup = fn
}

// HasCredential reports whether the active provider can be used: either it
// needs no key, or a key is stored or present in the environment.
func (s *SettingsStore) HasCredential() bool {
	snap := s.Snapshot()
	info, ok := provider.Lookup(snap.Provider)
	if !ok {
		return false
	}
	return !info.RequiresKey || snap.APIKey != ""
}

// HasCredentialFor reports whether the given provider could be used right
// now, from the stored key or its environment variable. Used by provider
// pickers to mark unconfigured entries.
func (s *SettingsStore) HasCredentialFor(id string) bool {
	info, ok := provider.Lookup(id)
	if !ok {
		return false
	}
	if !info.RequiresKey {
		return true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.rec.APIKey != "" {
		return true
	}
	return info.KeyEnv != "" && s.envLookup(info.KeyEnv) != ""
}

// Snapshot returns the settings as immutable generation parameters. The
// streaming session reads one snapshot per submission; later settings
// changes affect only the next turn. A stored key wins; with none stored,
// the provider's environment variable is consulted.
func (s *SettingsStore) Snapshot() provider.Params {
	s.mu.RLock()
	defer s.mu.RUnlock()

	apiKey := s.rec.APIKey
	if apiKey == "" {
		if info, ok := provider.Lookup(s.rec.Provider); ok && info.KeyEnv != "" {
			apiKey = s.envLookup(info.KeyEnv)
		}
	}

	return provider.Params{
		Provider:     s.rec.Provider,
		Model:        s.rec.Model,
		Temperature:  s.rec.Temperature,
		SystemPrompt: s.rec.SystemPrompt,
		APIKey:       apiKey,
	}
}

// persistLocked writes the settings through to the backend. Caller holds mu.
func (s *SettingsStore) persistLocked() error {
	if err := s.backend.Save(kv.RecordSettings, s.rec); err != nil {
		return fmt.Errorf("failed to persist settings: %w", err)
	}
	return nil
}
