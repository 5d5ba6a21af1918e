// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role identifies the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the wire representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single message in a chat.
//
// A streaming assistant message accumulates fragments in a strings.Builder
// (append is amortized O(1), avoiding quadratic allocation during long
// responses) and merges them into Content when the stream finalizes. The
// content of a finalized message is the concatenation, in arrival order, of
// every fragment produced for it.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`

	// Streaming state, not persisted.
	IsStreaming bool            `json:"-"`
	streamBuf   strings.Builder `json:"-"`
}

// NewMessage creates a finalized message with a generated ID.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        "msg_" + uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// NewUserMessage creates a finalized user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewStreamingMessage creates an open assistant message that accepts
// fragments until Finalize is called.
func NewStreamingMessage() *Message {
	return &Message{
		ID:          "msg_" + uuid.NewString(),
		Role:        RoleAssistant,
		CreatedAt:   time.Now(),
		IsStreaming: true,
	}
}

// AppendFragment appends one fragment of streamed text. Fragments applied
// after Finalize are dropped: a finalized message is immutable.
func (m *Message) AppendFragment(fragment string) {
	if m.IsStreaming {
		m.streamBuf.WriteString(fragment)
	}
}

// Finalize closes a streaming message, merging accumulated fragments into
// Content. Calling Finalize on an already-final message is a no-op.
func (m *Message) Finalize() {
	if !m.IsStreaming {
		return
	}
	m.Content = m.streamBuf.String()
	m.streamBuf.Reset()
	m.IsStreaming = false
}

// DisplayContent returns the content to show, whether or not the message is
// still streaming.
func (m *Message) DisplayContent() string {
	if m.IsStreaming {
		return m.streamBuf.String()
	}
	return m.Content
}

// IsEmpty reports whether the message has no content at all.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0 && m.streamBuf.Len() == 0
}

// Clone returns a copy of the message with streaming state flattened into
// Content. Clones are what cross the boundary into the durable store, so the
// store never aliases a message the streaming session may still mutate.
func (m *Message) Clone() *Message {
	return &Message{
		ID:        m.ID,
		Role:      m.Role,
		Content:   m.DisplayContent(),
		CreatedAt: m.CreatedAt,
	}
}
