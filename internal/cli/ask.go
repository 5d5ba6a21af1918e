// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/nexus-chat/nexus-tui/internal/controller"
	"github.com/nexus-chat/nexus-tui/internal/provider"
)

// =============================================================================
// ASK COMMAND
// =============================================================================

// askResult is the --json output shape.
type askResult struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Response string `json:"response"`
}

// HandleAsk sends a single question and writes the response to stdout.
// On a TTY the full response is rendered as markdown after the stream ends;
// piped output gets the raw text as it streams.
func HandleAsk(env *Env, args Args) int {
	params, err := env.params(args)
	if err != nil {
		printError(controller.Describe(err))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	history := []provider.ChatMessage{
		{Role: "user", Content: args.Query},
	}

	events, err := env.Client.Stream(ctx, params, history)
	if err != nil {
		printError(controller.Describe(err))
		return 1
	}

	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	buffered := args.JSON || (interactive && env.Cfg.UI.Markdown)

	var response strings.Builder
	for ev := range events {
		if ev.Err != nil {
			if ctx.Err() != nil {
				// Interrupted mid-stream; keep what arrived.
				break
			}
			printError(controller.Describe(ev.Err))
			return 1
		}
		response.WriteString(ev.Content)
		if !buffered {
			fmt.Print(ev.Content)
		}
	}

	switch {
	case args.JSON:
		out, err := json.MarshalIndent(askResult{
			Provider: params.Provider,
			Model:    params.Model,
			Response: response.String(),
		}, "", "  ")
		if err != nil {
			printError(err.Error())
			return 1
		}
		fmt.Println(string(out))
	case buffered:
		fmt.Print(renderMarkdown(response.String()))
	default:
		fmt.Println()
	}
	return 0
}

// renderMarkdown renders markdown for terminal display, falling back to the
// raw content when glamour is unavailable.
func renderMarkdown(content string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return content + "\n"
	}
	rendered, err := renderer.Render(content)
	if err != nil {
		return content + "\n"
	}
	return rendered
}
