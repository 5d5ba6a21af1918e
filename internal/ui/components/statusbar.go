// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nexus-chat/nexus-tui/internal/ui/styles"
	"github.com/nexus-chat/nexus-tui/internal/util"
)

// =============================================================================
// STATUS BAR
// =============================================================================

// StatusInfo is everything the status bar displays for one frame.
type StatusInfo struct {
	Provider    string
	Model       string
	Temperature float64
	Streaming   bool
	Spinner     string
	Configured  bool
}

// Shortcut is one key hint shown on the right side of the bar.
type Shortcut struct {
	Key  string
	Desc string
}

// StatusBar renders the bottom bar: generation settings on the left, key
// hints on the right.
type StatusBar struct {
	theme *styles.Theme
	width int
}

// NewStatusBar creates a status bar renderer.
func NewStatusBar(theme *styles.Theme, width int) *StatusBar {
	return &StatusBar{theme: theme, width: width}
}

// SetWidth updates the bar width.
func (s *StatusBar) SetWidth(width int) {
	s.width = width
}

// Render renders the bar at the configured width.
func (s *StatusBar) Render(info StatusInfo, shortcuts []Shortcut) string {
	left := s.renderLeft(info)
	right := s.renderShortcuts(shortcuts)

	gap := s.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		// Hints give way to the settings when the terminal is narrow.
		right = ""
		gap = s.width - lipgloss.Width(left) - 2
		if gap < 0 {
			gap = 0
		}
	}

	return s.theme.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", gap) + right,
	)
}

func (s *StatusBar) renderLeft(info StatusInfo) string {
	var parts []string

	if info.Streaming {
		parts = append(parts, s.theme.StatusBusy.Render(info.Spinner+" streaming"))
	} else {
		parts = append(parts, s.theme.StatusState.Render("ready"))
	}

	setting := fmt.Sprintf("%s · %s · temp %.1f",
		info.Provider,
		util.TruncateWidth(info.Model, 24),
		info.Temperature,
	)
	parts = append(parts, setting)

	if !info.Configured {
		parts = append(parts, s.theme.SettingsWarn.Render("no API key"))
	}

	return strings.Join(parts, "  ")
}

func (s *StatusBar) renderShortcuts(shortcuts []Shortcut) string {
	parts := make([]string, 0, len(shortcuts))
	for _, sc := range shortcuts {
		parts = append(parts,
			s.theme.ShortcutKey.Render(sc.Key)+" "+s.theme.ShortcutDesc.Render(sc.Desc))
	}
	return strings.Join(parts, "  ")
}
