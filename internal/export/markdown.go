// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/nexus-chat/nexus-tui/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter renders a chat as a Markdown document with optional YAML
// frontmatter.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// FileExtension returns ".md".
func (e *MarkdownExporter) FileExtension() string { return ".md" }

// Export renders the chat.
func (e *MarkdownExporter) Export(chat *model.Chat) ([]byte, error) {
	if chat == nil {
		return nil, fmt.Errorf("chat is nil")
	}
	if chat.IsEmpty() {
		return nil, fmt.Errorf("chat has no messages")
	}

	var sb strings.Builder

	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("title: %s\n", escapeYAML(chat.Title)))
		sb.WriteString(fmt.Sprintf("created: %s\n", chat.CreatedAt.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("updated: %s\n", chat.UpdatedAt.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("messages: %d\n", chat.MessageCount()))
		sb.WriteString(fmt.Sprintf("exported: %s\n", time.Now().Format(time.RFC3339)))
		sb.WriteString("generator: nexus\n")
		sb.WriteString("---\n\n")
	}

	sb.WriteString(fmt.Sprintf("# %s\n\n", chat.Title))

	for _, msg := range chat.Messages {
		sb.WriteString(fmt.Sprintf("## %s", msg.Role.DisplayName()))
		if e.options.IncludeTimestamps {
			sb.WriteString(fmt.Sprintf(" (%s)", msg.CreatedAt.Format("2006-01-02 15:04")))
		}
		sb.WriteString("\n\n")
		sb.WriteString(msg.DisplayContent())
		sb.WriteString("\n\n")
	}

	return []byte(sb.String()), nil
}

// escapeYAML makes a string safe for a single-line YAML value. Newlines
// would otherwise let a chat title inject frontmatter keys.
func escapeYAML(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	if strings.ContainsAny(s, ":#\"'{}[]&*?|>%@`!,") {
		s = "\"" + strings.ReplaceAll(s, "\"", "\\\"") + "\""
	}
	return s
}
