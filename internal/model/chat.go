// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/nexus-chat/nexus-tui/internal/util"
)

// DefaultTitle is the placeholder title of a chat that has no content yet.
// Title derivation only runs while the title still equals this value.
const DefaultTitle = "New Chat"

// TitleBudget is the number of runes of the first message used as a derived
// chat title. Content longer than the budget gets TitleMarker appended.
const TitleBudget = 40

// TitleMarker is appended to a derived title when the source content
// exceeded TitleBudget.
const TitleMarker = "..."

// =============================================================================
// CHAT TYPE
// =============================================================================

// Chat is one conversation: an identifier, a display title, and an ordered
// message sequence. Chats are ordered for display by UpdatedAt descending.
type Chat struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Messages  []*Message `json:"messages"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewChat creates an empty chat with a fresh ID and the placeholder title.
func NewChat() *Chat {
	now := time.Now()
	return &Chat{
		ID:        "chat_" + uuid.NewString(),
		Title:     DefaultTitle,
		Messages:  make([]*Message, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasDefaultTitle reports whether the chat still carries the placeholder
// title and is eligible for title derivation.
func (c *Chat) HasDefaultTitle() bool {
	return c.Title == DefaultTitle
}

// MessageCount returns the number of messages.
func (c *Chat) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty reports whether the chat has no messages.
func (c *Chat) IsEmpty() bool {
	return len(c.Messages) == 0
}

// FirstUserMessage returns the first user message, or nil.
func (c *Chat) FirstUserMessage() *Message {
	for _, msg := range c.Messages {
		if msg.Role == RoleUser {
			return msg
		}
	}
	return nil
}

// Preview returns a one-line preview of the chat for list display.
func (c *Chat) Preview(maxRunes int) string {
	first := c.FirstUserMessage()
	if first == nil {
		return "Empty chat"
	}
	return util.TruncateRunes(util.CollapseLines(first.DisplayContent()), maxRunes)
}

// Clone returns a deep copy of the chat. Message streaming state is
// flattened, so the copy is safe to hand to another owner.
func (c *Chat) Clone() *Chat {
	clone := &Chat{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		Messages:  make([]*Message, len(c.Messages)),
	}
	for i, msg := range c.Messages {
		clone.Messages[i] = msg.Clone()
	}
	return clone
}

// =============================================================================
// TITLE DERIVATION
// =============================================================================

// DeriveTitle builds a chat title from message content: newlines collapsed,
// truncated to TitleBudget runes with TitleMarker appended when the content
// exceeds the budget. Content at or under the budget is returned verbatim.
func DeriveTitle(content string) string {
	content = util.CollapseLines(content)
	runes := []rune(content)
	if len(runes) <= TitleBudget {
		return content
	}
	return string(runes[:TitleBudget]) + TitleMarker
}
