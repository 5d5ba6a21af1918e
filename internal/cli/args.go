// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strings"
)

// Version is the release version, overridable at build time.
var Version = "1.0.0"

// Command is the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdSessions
	CmdServe
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags.
	Provider string
	Model    string
	JSON     bool
	Quiet    bool

	// Command-specific.
	Query      string
	Subcommand string
	Format     string
	Addr       string

	// Raw holds the remaining positional arguments.
	Raw []string
}

const usageText = `nexus - terminal chat client for LLM providers

Usage:
  nexus                       Start the TUI (default)
  nexus ask "question"        Ask a single question and exit
  nexus chat                  Interactive line-based chat
  nexus sessions [subcommand] Manage saved chats
  nexus serve                 Run the OpenAI-compatible proxy server
  nexus version               Print version
  nexus help                  Show this help

Sessions subcommands:
  list                        List saved chats (default)
  search <query>              Full-text search across chats
  export <id> [--format f]    Export a chat (markdown or json)
  delete <id>                 Delete a chat

Flags:
  -p, --provider NAME         Override the provider for this invocation
  -m, --model NAME            Override the model for this invocation
  --format FORMAT             Export format: markdown (default) or json
  --addr HOST:PORT            Listen address for serve
  --json                      Machine-readable output
  -q, --quiet                 Suppress non-essential output

Providers are configured in ~/.nexus/config.toml. API keys come from the
environment (OPENAI_API_KEY, GEMINI_API_KEY, GROQ_API_KEY,
OPENROUTER_API_KEY) or from settings.
`

// Usage returns the help text.
func Usage() string {
	return usageText
}

// Parse turns os.Args[1:] into a command and its arguments.
func Parse(argv []string) (Command, Args, error) {
	args := Args{}

	var positional []string
	for i := 0; i < len(argv); i++ {
		arg := argv[i]

		next := func() (string, error) {
			if i+1 >= len(argv) {
				return "", fmt.Errorf("flag %s needs a value", arg)
			}
			i++
			return argv[i], nil
		}

		switch arg {
		case "-p", "--provider":
			v, err := next()
			if err != nil {
				return CmdHelp, args, err
			}
			args.Provider = v
		case "-m", "--model":
			v, err := next()
			if err != nil {
				return CmdHelp, args, err
			}
			args.Model = v
		case "--format":
			v, err := next()
			if err != nil {
				return CmdHelp, args, err
			}
			args.Format = v
		case "--addr":
			v, err := next()
			if err != nil {
				return CmdHelp, args, err
			}
			args.Addr = v
		case "--json":
			args.JSON = true
		case "-q", "--quiet":
			args.Quiet = true
		case "-h", "--help":
			return CmdHelp, args, nil
		default:
			if strings.HasPrefix(arg, "-") {
				return CmdHelp, args, fmt.Errorf("unknown flag %s", arg)
			}
			positional = append(positional, arg)
		}
	}

	if len(positional) == 0 {
		return CmdTUI, args, nil
	}

	cmd := positional[0]
	rest := positional[1:]
	args.Raw = rest

	switch cmd {
	case "ask":
		if len(rest) == 0 {
			return CmdHelp, args, fmt.Errorf("ask needs a question")
		}
		args.Query = strings.Join(rest, " ")
		return CmdAsk, args, nil
	case "chat":
		return CmdChat, args, nil
	case "sessions", "session":
		if len(rest) > 0 {
			args.Subcommand = rest[0]
			args.Raw = rest[1:]
		} else {
			args.Subcommand = "list"
		}
		return CmdSessions, args, nil
	case "serve":
		return CmdServe, args, nil
	case "version", "-v", "--version":
		return CmdVersion, args, nil
	case "help":
		return CmdHelp, args, nil
	default:
		return CmdHelp, args, fmt.Errorf("unknown command %q", cmd)
	}
}
