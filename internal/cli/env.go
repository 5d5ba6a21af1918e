// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/nexus-chat/nexus-tui/internal/config"
	"github.com/nexus-chat/nexus-tui/internal/provider"
	"github.com/nexus-chat/nexus-tui/internal/store"
	"github.com/nexus-chat/nexus-tui/internal/ui/styles"
)

// =============================================================================
// COMMAND ENVIRONMENT
// =============================================================================

// Env carries the shared dependencies of the CLI command handlers. main
// builds one Env and dispatches on the parsed command.
type Env struct {
	Cfg      *config.Config
	Chats    *store.ChatStore
	Settings *store.SettingsStore
	Client   *provider.Client
	StateDir string
}

// params builds generation parameters for one invocation: the persisted
// settings, overridden by --provider and --model. A provider override
// re-resolves the credential for the new provider.
func (e *Env) params(args Args) (provider.Params, error) {
	p := e.Settings.Snapshot()

	if args.Provider != "" && args.Provider != p.Provider {
		info, ok := provider.Lookup(args.Provider)
		if !ok {
			return p, fmt.Errorf("%w: %q", provider.ErrUnknownProvider, args.Provider)
		}
		p.Provider = info.ID
		p.Model = info.DefaultModel
		p.APIKey = e.Settings.APIKey()
		if p.APIKey == "" && info.KeyEnv != "" {
			p.APIKey = os.Getenv(info.KeyEnv)
		}
	}

	if args.Model != "" {
		p.Model = args.Model
	}
	return p, nil
}

// =============================================================================
// OUTPUT STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Cyan).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(styles.Indigo).
			Bold(true)
)

// printError writes a styled error line to stderr.
func printError(msg string) {
	fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+msg)
}
