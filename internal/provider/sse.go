// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"bufio"
	"bytes"
	"io"
)

// doneSentinel terminates an OpenAI-compatible completion stream.
var doneSentinel = []byte("[DONE]")

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a stream. Only data fields
// matter for the chat-completions protocol; event/id/retry fields and
// comments are skipped.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates an SSE reader over r.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{reader: bufio.NewReader(r)}
}

// ReadEvent returns the data of the next SSE event. Multi-line data fields
// are joined with newlines per the SSE spec. Returns io.EOF at end of
// stream.
func (s *SSEReader) ReadEvent() ([]byte, error) {
	var dataLines [][]byte

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF && len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			return nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Blank line terminates an event.
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			continue
		}

		if bytes.HasPrefix(line, []byte("data:")) {
			dataLines = append(dataLines, bytes.TrimSpace(line[5:]))
		}
	}
}

// =============================================================================
// STREAM CHUNK
// =============================================================================

// streamChunk is one parsed chat-completions delta.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// content returns the first choice's delta content.
func (c *streamChunk) content() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Content
	}
	return ""
}

// done reports whether the chunk carries a finish reason.
func (c *streamChunk) done() bool {
	return len(c.Choices) > 0 && c.Choices[0].FinishReason != ""
}
