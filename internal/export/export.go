// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export converts chats to portable formats. Markdown keeps the
// conversation readable; JSON keeps it machine-consumable.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nexus-chat/nexus-tui/internal/model"
	"github.com/nexus-chat/nexus-tui/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter converts one chat to a target format.
type Exporter interface {
	// Export returns the chat rendered in the target format.
	Export(chat *model.Chat) ([]byte, error)

	// FileExtension returns the extension for exported files, dot included.
	FileExtension() string
}

// Options configures export output.
type Options struct {
	// OutputDir is where exported files land. Default: current directory.
	OutputDir string

	// IncludeMetadata adds a header with timestamps and message counts.
	IncludeMetadata bool

	// IncludeTimestamps adds a per-message timestamp.
	IncludeTimestamps bool
}

// DefaultOptions returns the default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: true,
	}
}

// ForFormat returns the exporter for a format name ("markdown", "md",
// "json").
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(format) {
	case "markdown", "md", "":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// =============================================================================
// FILE OUTPUT
// =============================================================================

// ExportToFile writes a chat through the exporter into the options output
// directory and returns the written path. The write is atomic so a crash
// never leaves a half-written export.
func ExportToFile(chat *model.Chat, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(chat)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(opts.OutputDir, exportFilename(chat)+exporter.FileExtension())
	if err := util.AtomicWriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}

// exportFilename builds a filesystem-safe name from the chat title and a
// short ID suffix to keep exports of same-titled chats distinct.
func exportFilename(chat *model.Chat) string {
	title := strings.ToLower(chat.Title)
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune('-')
		}
	}

	name := strings.Trim(b.String(), "-")
	if name == "" {
		name = "chat"
	}
	if len(name) > 48 {
		name = name[:48]
	}

	id := strings.TrimPrefix(chat.ID, "chat_")
	if len(id) > 8 {
		id = id[:8]
	}
	return name + "-" + id
}
