// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the main chat view of the nexus TUI: message
// history, input, sidebar, and the settings overlay.
package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP
// =============================================================================

// KeyMap defines the keyboard bindings for the chat view.
type KeyMap struct {
	Submit        key.Binding
	Newline       key.Binding
	Cancel        key.Binding
	Quit          key.Binding
	NewChat       key.Binding
	DeleteChat    key.Binding
	ToggleSidebar key.Binding
	NextChat      key.Binding
	PrevChat      key.Binding
	Settings      key.Binding
	Search        key.Binding
	Rename        key.Binding
	PageUp        key.Binding
	PageDown      key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Newline: key.NewBinding(
			key.WithKeys("alt+enter"),
			key.WithHelp("alt+enter", "newline"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "stop"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "quit"),
		),
		NewChat: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "new chat"),
		),
		DeleteChat: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("C-d", "delete chat"),
		),
		ToggleSidebar: key.NewBinding(
			key.WithKeys("ctrl+b"),
			key.WithHelp("C-b", "sidebar"),
		),
		NextChat: key.NewBinding(
			key.WithKeys("alt+down"),
			key.WithHelp("alt+down", "next chat"),
		),
		PrevChat: key.NewBinding(
			key.WithKeys("alt+up"),
			key.WithHelp("alt+up", "prev chat"),
		),
		Settings: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("C-p", "settings"),
		),
		Search: key.NewBinding(
			key.WithKeys("ctrl+f"),
			key.WithHelp("C-f", "search"),
		),
		Rename: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "rename chat"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "scroll down"),
		),
	}
}
