// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nexus-chat/nexus-tui/internal/model"
	"github.com/nexus-chat/nexus-tui/internal/ui/styles"
)

// streamCursor marks the tail of an assistant message that is still
// receiving fragments.
const streamCursor = "▌"

// =============================================================================
// MESSAGE RENDERER
// =============================================================================

// MessageView renders chat messages as labeled, bordered blocks. Assistant
// bodies go through the markdown renderer; user and system bodies render
// verbatim so pasted code or prompts are never reflowed.
type MessageView struct {
	theme    *styles.Theme
	markdown *Markdown
	width    int
}

// NewMessageView creates a message renderer.
func NewMessageView(theme *styles.Theme, markdown *Markdown) *MessageView {
	return &MessageView{
		theme:    theme,
		markdown: markdown,
		width:    80,
	}
}

// SetWidth updates the wrap width for message bodies.
func (v *MessageView) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	v.width = width
	v.markdown.SetWidth(width - 2)
}

// Render renders one message.
func (v *MessageView) Render(msg *model.Message) string {
	label, container := v.roleStyles(msg.Role)

	header := label.Render(msg.Role.DisplayName()) + " " +
		v.theme.Timestamp.Render(msg.CreatedAt.Format("15:04"))

	body := msg.DisplayContent()
	switch {
	case msg.IsStreaming && body == "":
		body = v.theme.StreamCursor.Render(streamCursor)
	case msg.IsStreaming:
		// Streaming bodies skip markdown: glamour reflows partial
		// constructs badly, and the frame rate makes it wasteful.
		body = RenderFencedBlocks(body, v.width) +
			v.theme.StreamCursor.Render(streamCursor)
	case msg.Role == model.RoleAssistant:
		body = v.markdown.Render(body)
	default:
		body = lipgloss.NewStyle().Width(v.width - 2).Render(body)
	}

	return container.Width(v.width).Render(header + "\n" + body)
}

// RenderAll renders a message sequence separated by blank lines.
func (v *MessageView) RenderAll(msgs []*model.Message) string {
	if len(msgs) == 0 {
		return v.theme.EmptyHint.Render("Type a message to start the conversation.")
	}

	parts := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		parts = append(parts, v.Render(msg))
	}
	return strings.Join(parts, "\n\n")
}

// roleStyles returns the label and container styles for a role.
func (v *MessageView) roleStyles(role model.Role) (lipgloss.Style, lipgloss.Style) {
	switch role {
	case model.RoleUser:
		return v.theme.UserLabel, v.theme.UserMessage
	case model.RoleSystem:
		return v.theme.SystemLabel, v.theme.SystemMessage
	default:
		return v.theme.AssistantLabel, v.theme.AssistantMsg
	}
}
