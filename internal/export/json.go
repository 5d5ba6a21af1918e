// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nexus-chat/nexus-tui/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// jsonDocument is the exported JSON shape. It is a stable wire format,
// decoupled from the internal chat types.
type jsonDocument struct {
	Title      string        `json:"title"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
	ExportedAt time.Time     `json:"exported_at"`
	Generator  string        `json:"generator"`
	Messages   []jsonMessage `json:"messages"`
}

type jsonMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// JSONExporter renders a chat as indented JSON.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// FileExtension returns ".json".
func (e *JSONExporter) FileExtension() string { return ".json" }

// Export renders the chat.
func (e *JSONExporter) Export(chat *model.Chat) ([]byte, error) {
	if chat == nil {
		return nil, fmt.Errorf("chat is nil")
	}
	if chat.IsEmpty() {
		return nil, fmt.Errorf("chat has no messages")
	}

	doc := jsonDocument{
		Title:      chat.Title,
		CreatedAt:  chat.CreatedAt,
		UpdatedAt:  chat.UpdatedAt,
		ExportedAt: time.Now(),
		Generator:  "nexus",
		Messages:   make([]jsonMessage, 0, len(chat.Messages)),
	}
	for _, msg := range chat.Messages {
		doc.Messages = append(doc.Messages, jsonMessage{
			Role:      msg.Role.String(),
			Content:   msg.DisplayContent(),
			CreatedAt: msg.CreatedAt,
		})
	}

	return json.MarshalIndent(doc, "", "  ")
}
