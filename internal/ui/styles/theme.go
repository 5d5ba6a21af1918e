// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application. It detects the
// terminal's color capability and adjusts accordingly.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	Width  int
	Height int

	// ==========================================================================
	// LAYOUT
	// ==========================================================================

	App     lipgloss.Style
	Main    lipgloss.Style
	Sidebar lipgloss.Style

	// ==========================================================================
	// SIDEBAR
	// ==========================================================================

	SidebarTitle   lipgloss.Style
	GroupHeader    lipgloss.Style
	ChatItem       lipgloss.Style
	ChatItemActive lipgloss.Style
	ChatItemMeta   lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	SystemLabel    lipgloss.Style
	UserMessage    lipgloss.Style
	AssistantMsg   lipgloss.Style
	SystemMessage  lipgloss.Style
	StreamCursor   lipgloss.Style
	Timestamp      lipgloss.Style

	// ==========================================================================
	// INPUT
	// ==========================================================================

	InputBox    lipgloss.Style
	InputPrompt lipgloss.Style

	// ==========================================================================
	// STATUS BAR
	// ==========================================================================

	StatusBar    lipgloss.Style
	StatusState  lipgloss.Style
	StatusBusy   lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	// ==========================================================================
	// OVERLAYS AND BANNERS
	// ==========================================================================

	ErrorBanner      lipgloss.Style
	SettingsBox      lipgloss.Style
	SettingsTitle    lipgloss.Style
	SettingsItem     lipgloss.Style
	SettingsSelected lipgloss.Style
	SettingsWarn     lipgloss.Style
	Spinner          lipgloss.Style
	EmptyHint        lipgloss.Style
}

// NewTheme creates a theme with all styles configured.
func NewTheme() *Theme {
	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		ColorProfile: termenv.ColorProfile(),
	}
	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	t.App = lipgloss.NewStyle()
	t.Main = lipgloss.NewStyle().Padding(0, 1)
	t.Sidebar = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.SidebarTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)
	t.GroupHeader = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextMuted)
	t.ChatItem = lipgloss.NewStyle().
		Foreground(TextSecondary)
	t.ChatItemActive = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextInverse).
		Background(Indigo)
	t.ChatItemMeta = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.UserLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)
	t.AssistantLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Indigo)
	t.SystemLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(Amber)
	t.UserMessage = lipgloss.NewStyle().
		Foreground(UserFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(UserBorder).
		PaddingLeft(1)
	t.AssistantMsg = lipgloss.NewStyle().
		Foreground(TextPrimary).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(AssistantBorder).
		PaddingLeft(1)
	t.SystemMessage = lipgloss.NewStyle().
		Foreground(SystemFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(SystemBorder).
		PaddingLeft(1)
	t.StreamCursor = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)
	t.Timestamp = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.InputBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)
	t.StatusState = lipgloss.NewStyle().
		Bold(true).
		Foreground(Emerald)
	t.StatusBusy = lipgloss.NewStyle().
		Bold(true).
		Foreground(Amber)
	t.ShortcutKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)
	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.ErrorBanner = lipgloss.NewStyle().
		Bold(true).
		Foreground(Rose).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(Rose).
		PaddingLeft(1)
	t.SettingsBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Indigo).
		Padding(1, 2)
	t.SettingsTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Indigo)
	t.SettingsItem = lipgloss.NewStyle().
		Foreground(TextSecondary)
	t.SettingsSelected = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextInverse).
		Background(Indigo)
	t.SettingsWarn = lipgloss.NewStyle().
		Foreground(Amber)
	t.Spinner = lipgloss.NewStyle().
		Foreground(Indigo)
	t.EmptyHint = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)
}

// SetSize records the terminal dimensions for layout decisions.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}
