// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import "sort"

// =============================================================================
// PROVIDER REGISTRY
// =============================================================================

// Info describes one completion provider.
type Info struct {
	// ID is the stable identifier stored in settings.
	ID string

	// Name is the human-readable display name.
	Name string

	// BaseURL is the OpenAI-compatible API root, without trailing slash.
	BaseURL string

	// DefaultModel is the model selected when the user switches to this
	// provider. Provider and model are not independent: switching provider
	// resets the model so a stale (model, provider) pair can never be sent.
	DefaultModel string

	// RequiresKey reports whether requests need a credential. Submissions
	// without one are rejected before any network traffic.
	RequiresKey bool

	// KeyEnv is the environment variable the proxy server reads the
	// provider's credential from.
	KeyEnv string
}

// DefaultProviderID is the provider selected on first run.
const DefaultProviderID = "openai"

// registry holds the known providers.
var registry = map[string]Info{
	"openai": {
		ID:           "openai",
		Name:         "OpenAI",
		BaseURL:      "https://api.openai.com/v1",
		DefaultModel: "gpt-4o-mini",
		RequiresKey:  true,
		KeyEnv:       "OPENAI_API_KEY",
	},
	"google": {
		ID:           "google",
		Name:         "Google",
		BaseURL:      "https://generativelanguage.googleapis.com/v1beta/openai",
		DefaultModel: "gemini-2.0-flash",
		RequiresKey:  true,
		KeyEnv:       "GOOGLE_API_KEY",
	},
	"groq": {
		ID:           "groq",
		Name:         "Groq",
		BaseURL:      "https://api.groq.com/openai/v1",
		DefaultModel: "llama-3.3-70b-versatile",
		RequiresKey:  true,
		KeyEnv:       "GROQ_API_KEY",
	},
	"openrouter": {
		ID:           "openrouter",
		Name:         "OpenRouter",
		BaseURL:      "https://openrouter.ai/api/v1",
		DefaultModel: "openrouter/auto",
		RequiresKey:  true,
		KeyEnv:       "OPENROUTER_API_KEY",
	},
	"local": {
		ID:           "local",
		Name:         "Local (Ollama)",
		BaseURL:      "http://localhost:11434/v1",
		DefaultModel: "llama3.1",
		RequiresKey:  false,
	},
}

// Lookup returns the provider with the given ID.
func Lookup(id string) (Info, bool) {
	info, ok := registry[id]
	return info, ok
}

// Default returns the first-run provider.
func Default() Info {
	return registry[DefaultProviderID]
}

// IDs returns all known provider IDs, sorted.
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DefaultModel returns the default model for a provider, or "" for an
// unknown provider.
func DefaultModel(id string) string {
	if info, ok := registry[id]; ok {
		return info.DefaultModel
	}
	return ""
}
