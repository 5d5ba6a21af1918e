// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/nexus-chat/nexus-tui/internal/ui/styles"
)

// =============================================================================
// CODE BLOCK RENDERER
// =============================================================================

// CodeBlock renders one fenced code block with syntax highlighting. It is
// the fallback path used when the full glamour renderer is unavailable.
type CodeBlock struct {
	Language string
	Code     string
	MaxWidth int
}

// NewCodeBlock creates a code block renderer.
func NewCodeBlock(language, code string) CodeBlock {
	return CodeBlock{
		Language: language,
		Code:     code,
		MaxWidth: 80,
	}
}

// Render returns the highlighted block inside a bordered container.
func (c CodeBlock) Render() string {
	code := strings.TrimRight(c.Code, "\n")

	language := c.Language
	if language == "" {
		language = detectLanguage(code)
	}

	content := Highlight(code, language)

	var header string
	if c.Language != "" {
		badge := lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Background(styles.SurfaceDim).
			Padding(0, 1).
			Bold(true).
			Render(c.Language)
		header = badge + "\n"
	}

	maxWidth := c.MaxWidth - 4
	if maxWidth < 20 {
		maxWidth = 20
	}

	return lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.Overlay).
		Padding(0, 1).
		MaxWidth(maxWidth).
		Render(header + content)
}

// =============================================================================
// SYNTAX HIGHLIGHTING
// =============================================================================

// Highlight applies ANSI syntax highlighting to code. Unknown languages fall
// back to lexer analysis, then to plain text.
func Highlight(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}

// detectLanguage guesses the language of a code fragment from its content.
func detectLanguage(code string) string {
	if lexer := lexers.Analyse(code); lexer != nil {
		return lexer.Config().Name
	}
	return ""
}

// =============================================================================
// FENCED BLOCK PARSER
// =============================================================================

// RenderFencedBlocks replaces ``` fenced blocks in text with highlighted
// renderings, leaving surrounding prose untouched. An unclosed fence at the
// end of the text, common mid-stream, is rendered as-is.
func RenderFencedBlocks(text string, maxWidth int) string {
	lines := strings.Split(text, "\n")
	var out []string
	var code []string
	var language string
	inBlock := false

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "```"):
			if inBlock {
				cb := NewCodeBlock(language, strings.Join(code, "\n"))
				cb.MaxWidth = maxWidth
				out = append(out, cb.Render())
				code = nil
				language = ""
				inBlock = false
			} else {
				language = strings.TrimSpace(strings.TrimPrefix(line, "```"))
				inBlock = true
			}
		case inBlock:
			code = append(code, line)
		default:
			out = append(out, line)
		}
	}

	if inBlock {
		cb := NewCodeBlock(language, strings.Join(code, "\n"))
		cb.MaxWidth = maxWidth
		out = append(out, cb.Render())
	}

	return strings.Join(out, "\n")
}
