// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// =============================================================================
// MARKDOWN RENDERER
// =============================================================================

// Markdown renders assistant message bodies as terminal markdown. The
// glamour renderer is rebuilt lazily when the wrap width changes; if glamour
// cannot be initialized the component falls back to highlighting fenced
// code blocks in otherwise plain text.
type Markdown struct {
	Enabled bool

	width    int
	renderer *glamour.TermRenderer
}

// NewMarkdown creates a markdown renderer wrapping at the given width.
func NewMarkdown(width int, enabled bool) *Markdown {
	m := &Markdown{Enabled: enabled}
	m.SetWidth(width)
	return m
}

// SetWidth updates the wrap width, rebuilding the renderer when it changed.
func (m *Markdown) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	if width == m.width && m.renderer != nil {
		return
	}
	m.width = width

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		m.renderer = nil
		return
	}
	m.renderer = renderer
}

// Render renders markdown content for display. Content that fails to render
// falls through to the fenced-block fallback so the user always sees text.
func (m *Markdown) Render(content string) string {
	if !m.Enabled || m.renderer == nil {
		return RenderFencedBlocks(content, m.width)
	}

	rendered, err := m.renderer.Render(content)
	if err != nil {
		return RenderFencedBlocks(content, m.width)
	}

	// Glamour pads with a leading and trailing blank line; the message
	// container adds its own spacing.
	return strings.Trim(rendered, "\n")
}
