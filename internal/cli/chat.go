// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	"github.com/nexus-chat/nexus-tui/internal/controller"
	"github.com/nexus-chat/nexus-tui/internal/model"
	"github.com/nexus-chat/nexus-tui/internal/provider"
)

// historyFilename is the REPL input history file inside the state
// directory.
const historyFilename = "chat_history"

// =============================================================================
// INPUT HISTORY
// =============================================================================

// repl wraps liner with persistent input history.
type repl struct {
	line        *liner.State
	historyFile string
}

func newREPL(stateDir string) *repl {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	r := &repl{
		line:        line,
		historyFile: filepath.Join(stateDir, historyFilename),
	}
	if f, err := os.Open(r.historyFile); err == nil {
		_, _ = r.line.ReadHistory(f)
		f.Close()
	}
	return r
}

// read prompts for one line, recording non-blank input in the history.
func (r *repl) read(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// close persists the history and restores the terminal.
func (r *repl) close() {
	if f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
		_, _ = r.line.WriteHistory(f)
		f.Close()
	}
	r.line.Close()
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

// HandleChat runs the line-based interactive chat. Turns are persisted to
// the chat store, so conversations started here show up in the TUI sidebar
// and in `nexus sessions`.
func HandleChat(env *Env, args Args) int {
	r := newREPL(env.StateDir)
	defer r.close()

	if !args.Quiet {
		fmt.Println(headerStyle.Render("nexus chat"))
		fmt.Println(infoStyle.Render("Type /help for commands, /quit to exit."))
		fmt.Println()
	}

	var chat *model.Chat

	for {
		input, err := r.read(promptStyle.Render("> "))
		if err != nil {
			// Ctrl-C at the prompt and EOF both end the session.
			fmt.Println()
			return 0
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			done := handleSlashCommand(env, input, &chat)
			if done {
				return 0
			}
			continue
		}

		params, err := env.params(args)
		if err != nil {
			printError(controller.Describe(err))
			continue
		}

		if chat == nil {
			created, err := env.Chats.CreateChat()
			if err != nil {
				printError(err.Error())
				continue
			}
			chat = created
		}

		userMsg := model.NewUserMessage(input)
		if err := env.Chats.AppendMessage(chat.ID, userMsg); err != nil {
			printError(err.Error())
			continue
		}
		chat = env.Chats.Chat(chat.ID)

		reply, ok := streamTurn(env, params, chat)
		if ok && reply != "" {
			asst := model.NewMessage(model.RoleAssistant, reply)
			if err := env.Chats.AppendMessage(chat.ID, asst); err != nil {
				printError(err.Error())
			}
			chat = env.Chats.Chat(chat.ID)
		}
	}
}

// streamTurn streams one completion to stdout and returns the full reply.
// Ctrl-C cancels the stream but keeps the partial text.
func streamTurn(env *Env, params provider.Params, chat *model.Chat) (string, bool) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	history := make([]provider.ChatMessage, 0, len(chat.Messages))
	for _, msg := range chat.Messages {
		history = append(history, provider.ChatMessage{
			Role:    msg.Role.String(),
			Content: msg.DisplayContent(),
		})
	}

	events, err := env.Client.Stream(ctx, params, history)
	if err != nil {
		printError(controller.Describe(err))
		return "", false
	}

	var reply strings.Builder
	for ev := range events {
		if ev.Err != nil {
			if ctx.Err() != nil {
				fmt.Println()
				fmt.Println(infoStyle.Render("(interrupted)"))
				return reply.String(), true
			}
			fmt.Println()
			printError(controller.Describe(ev.Err))
			return reply.String(), reply.Len() > 0
		}
		reply.WriteString(ev.Content)
		fmt.Print(ev.Content)
	}
	fmt.Println()
	fmt.Println()
	return reply.String(), true
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand executes a /command. It returns true when the REPL
// should exit.
func handleSlashCommand(env *Env, input string, chat **model.Chat) bool {
	fields := strings.Fields(input)
	cmd := fields[0]
	rest := strings.TrimSpace(strings.TrimPrefix(input, cmd))

	switch cmd {
	case "/quit", "/exit", "/q":
		return true

	case "/help", "/?":
		fmt.Println(infoStyle.Render(`Commands:
  /new              start a new chat
  /provider [name]  show or switch provider
  /model [name]     show or set model
  /temp [value]     show or set temperature (0 to 2)
  /system [prompt]  show or set the system prompt
  /quit             exit`))

	case "/new":
		*chat = nil
		fmt.Println(infoStyle.Render("Started a new chat."))

	case "/provider":
		if rest == "" {
			fmt.Println(infoStyle.Render("provider: " + env.Settings.Provider() +
				" (available: " + strings.Join(provider.IDs(), ", ") + ")"))
			break
		}
		if err := env.Settings.SetProvider(rest); err != nil {
			printError(controller.Describe(err))
			break
		}
		fmt.Println(infoStyle.Render("provider: " + env.Settings.Provider() +
			", model: " + env.Settings.Model()))

	case "/model":
		if rest == "" {
			fmt.Println(infoStyle.Render("model: " + env.Settings.Model()))
			break
		}
		if err := env.Settings.SetModel(rest); err != nil {
			printError(err.Error())
		}

	case "/temp":
		if rest == "" {
			fmt.Println(infoStyle.Render(fmt.Sprintf("temperature: %.1f", env.Settings.Temperature())))
			break
		}
		t, err := strconv.ParseFloat(rest, 64)
		if err != nil {
			printError("temperature must be a number")
			break
		}
		if err := env.Settings.SetTemperature(t); err != nil {
			printError(controller.Describe(err))
		}

	case "/system":
		if rest == "" {
			if p := env.Settings.SystemPrompt(); p != "" {
				fmt.Println(infoStyle.Render("system: " + p))
			} else {
				fmt.Println(infoStyle.Render("no system prompt set"))
			}
			break
		}
		if err := env.Settings.SetSystemPrompt(rest); err != nil {
			printError(err.Error())
		}

	default:
		printError("unknown command " + cmd + " (try /help)")
	}
	return false
}
