// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui wires the chat view into a running Bubble Tea program.
package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nexus-chat/nexus-tui/internal/config"
	"github.com/nexus-chat/nexus-tui/internal/controller"
	"github.com/nexus-chat/nexus-tui/internal/store"
	"github.com/nexus-chat/nexus-tui/internal/ui/chat"
)

// Run starts the TUI and blocks until the user quits. searcher may be nil,
// which disables the search overlay.
func Run(cfg *config.Config, ctrl *controller.Controller, chats *store.ChatStore, settings *store.SettingsStore, searcher chat.Searcher) error {
	m := chat.New(cfg, ctrl, chats, settings)
	if searcher != nil {
		m.SetSearcher(searcher)
	}
	program := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err := program.Run()
	return err
}
