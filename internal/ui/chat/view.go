// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nexus-chat/nexus-tui/internal/controller"
	"github.com/nexus-chat/nexus-tui/internal/provider"
	"github.com/nexus-chat/nexus-tui/internal/ui/components"
)

// View renders one frame.
func (m *Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.entryKind != entryNone {
		return m.viewEntry()
	}
	if m.showSettings {
		return m.viewSettings()
	}

	main := m.viewMain()

	var columns string
	if m.chats.SidebarOpen() {
		side := m.sidebar.Render(m.chats.Chats(), m.chats.ActiveID(), time.Now())
		columns = lipgloss.JoinHorizontal(lipgloss.Top, side, main)
	} else {
		columns = main
	}

	return lipgloss.JoinVertical(lipgloss.Left, columns, m.viewStatusBar())
}

// viewMain renders the conversation pane and the input box.
func (m *Model) viewMain() string {
	var parts []string

	parts = append(parts, m.viewport.View())

	if text := m.ctrl.ErrText(); text != "" {
		parts = append(parts, m.theme.ErrorBanner.Render(text))
	}

	parts = append(parts, m.theme.InputBox.Render(m.input.View()))

	return m.theme.Main.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// viewStatusBar renders the bottom bar.
func (m *Model) viewStatusBar() string {
	shortcuts := []components.Shortcut{
		{Key: "enter", Desc: "send"},
		{Key: "C-n", Desc: "new"},
		{Key: "C-b", Desc: "sidebar"},
		{Key: "C-p", Desc: "settings"},
		{Key: "C-c", Desc: "quit"},
	}
	if m.ctrl.Busy() {
		shortcuts = append([]components.Shortcut{{Key: "esc", Desc: "stop"}}, shortcuts...)
	}

	return m.statBar.Render(components.StatusInfo{
		Provider:    m.settings.Provider(),
		Model:       m.settings.Model(),
		Temperature: m.settings.Temperature(),
		Streaming:   m.ctrl.State() != controller.StateIdle,
		Spinner:     m.spin.View(),
		Configured:  m.settings.HasCredential(),
	}, shortcuts)
}

// =============================================================================
// SETTINGS OVERLAY
// =============================================================================

// viewSettings renders the provider picker centered in the terminal.
func (m *Model) viewSettings() string {
	var b strings.Builder
	b.WriteString(m.theme.SettingsTitle.Render("Settings"))
	b.WriteString("\n\n")

	active := m.settings.Provider()
	for i, id := range provider.IDs() {
		info, _ := provider.Lookup(id)

		marker := "  "
		if id == active {
			marker = "* "
		}

		line := fmt.Sprintf("%s%-12s %s", marker, info.Name, info.DefaultModel)
		if i == m.settingsIdx {
			line = m.theme.SettingsSelected.Render(line)
		} else {
			line = m.theme.SettingsItem.Render(line)
		}
		b.WriteString(line)

		if !m.settings.HasCredentialFor(id) {
			b.WriteString(" " + m.theme.SettingsWarn.Render("no key"))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.theme.SettingsItem.Render(
		fmt.Sprintf("temperature %.1f", m.settings.Temperature())))
	b.WriteString("\n\n")
	b.WriteString(m.theme.ShortcutDesc.Render(
		"enter select · left/right temperature · esc close"))

	box := m.theme.SettingsBox.Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// =============================================================================
// INLINE ENTRY OVERLAY
// =============================================================================

// entryTitle names the entry line for its kind.
func (m *Model) entryTitle() string {
	switch m.entryKind {
	case entrySearch:
		return "Search chats"
	case entryRename:
		return "Rename chat"
	case entryModel:
		return "Model"
	case entrySystem:
		return "System prompt"
	default:
		return ""
	}
}

// viewEntry renders the inline entry overlay, with search results when
// searching.
func (m *Model) viewEntry() string {
	var b strings.Builder
	b.WriteString(m.theme.SettingsTitle.Render(m.entryTitle()))
	b.WriteString("\n\n")
	b.WriteString(m.theme.InputPrompt.Render("> "))
	b.WriteString(m.entry)
	b.WriteString(m.theme.StreamCursor.Render("▌"))
	b.WriteString("\n")

	if m.entryKind == entrySearch {
		b.WriteString("\n")
		switch {
		case m.searchErr != nil:
			b.WriteString(m.theme.ErrorBanner.Render("search failed: " + m.searchErr.Error()))
		case len(m.searchResults) == 0 && strings.TrimSpace(m.entry) != "":
			b.WriteString(m.theme.EmptyHint.Render("No matches"))
		default:
			for i, res := range m.searchResults {
				line := fmt.Sprintf("%s  [%s] %s", res.ChatTitle, res.Role, res.Snippet)
				if i == m.searchIdx {
					b.WriteString(m.theme.SettingsSelected.Render(line))
				} else {
					b.WriteString(m.theme.SettingsItem.Render(line))
				}
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
		b.WriteString(m.theme.ShortcutDesc.Render("up/down select · enter open · esc close"))
	} else {
		b.WriteString("\n")
		b.WriteString(m.theme.ShortcutDesc.Render("enter apply · esc cancel"))
	}

	box := m.theme.SettingsBox.Render(b.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
