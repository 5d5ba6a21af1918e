// nexus - a terminal chat client for LLM providers.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/nexus-chat/nexus-tui/internal/cli"
	"github.com/nexus-chat/nexus-tui/internal/config"
	"github.com/nexus-chat/nexus-tui/internal/controller"
	"github.com/nexus-chat/nexus-tui/internal/kv"
	"github.com/nexus-chat/nexus-tui/internal/provider"
	"github.com/nexus-chat/nexus-tui/internal/search"
	"github.com/nexus-chat/nexus-tui/internal/store"
	"github.com/nexus-chat/nexus-tui/internal/ui"
	"github.com/nexus-chat/nexus-tui/internal/ui/chat"
)

// Version is set at build time.
var Version = "1.0.0"

func main() {
	cli.Version = Version
	os.Exit(run())
}

func run() int {
	cmd, args, err := cli.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		fmt.Fprint(os.Stderr, cli.Usage())
		return 2
	}

	switch cmd {
	case cli.CmdHelp:
		fmt.Print(cli.Usage())
		return 0
	case cli.CmdVersion:
		return cli.HandleVersion()
	}

	env, err := buildEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}

	switch cmd {
	case cli.CmdAsk:
		return cli.HandleAsk(env, args)
	case cli.CmdChat:
		return cli.HandleChat(env, args)
	case cli.CmdSessions:
		return cli.HandleSessions(env, args)
	case cli.CmdServe:
		return cli.HandleServe(env, args)
	default:
		return runTUI(env)
	}
}

// buildEnv loads configuration and opens the persistent stores shared by
// every command.
func buildEnv() (*cli.Env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	stateDir, err := cfg.ResolveStateDir()
	if err != nil {
		return nil, err
	}
	setupLogging(stateDir)

	backend, err := kv.NewFileStore(stateDir)
	if err != nil {
		return nil, err
	}

	chats, err := store.NewChatStore(backend)
	if err != nil {
		return nil, err
	}
	settings, err := store.NewSettingsStore(backend)
	if err != nil {
		return nil, err
	}

	return &cli.Env{
		Cfg:      cfg,
		Chats:    chats,
		Settings: settings,
		Client:   newClient(cfg),
		StateDir: stateDir,
	}, nil
}

// newClient builds the streaming client with base URL overrides from the
// configuration.
func newClient(cfg *config.Config) *provider.Client {
	client := provider.NewClient()
	if cfg.Provider.LocalURL != "" {
		client.SetBaseURL("local", cfg.Provider.LocalURL)
	}
	for id, url := range cfg.Provider.BaseURLs {
		client.SetBaseURL(id, url)
	}
	return client
}

// setupLogging sends the standard logger to a file in the state directory.
// A TUI cannot share stderr with the renderer, and the server middleware
// logs through the same logger.
func setupLogging(stateDir string) {
	f, err := os.OpenFile(filepath.Join(stateDir, "nexus.log"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return
	}
	log.SetOutput(f)
	log.SetFlags(log.LstdFlags | log.Lmsgprefix)
}

// runTUI starts the full-screen interface. Config file edits are picked up
// live: base URL changes apply to the next submission.
func runTUI(env *cli.Env) int {
	ctrl := controller.New(env.Chats, env.Settings, env.Client)

	var searcher chat.Searcher
	if ix, err := search.Open(filepath.Join(env.StateDir, "search.db")); err == nil {
		searcher = ix
		defer ix.Close()
	}

	if path, err := config.PathTOML(); err == nil {
		watcher, err := config.NewWatcher(path, func(cfg *config.Config) {
			if cfg.Provider.LocalURL != "" {
				env.Client.SetBaseURL("local", cfg.Provider.LocalURL)
			}
			for id, url := range cfg.Provider.BaseURLs {
				env.Client.SetBaseURL(id, url)
			}
		})
		if err == nil {
			if err := watcher.Watch(); err == nil {
				defer watcher.Close()
			}
		}
	}

	if err := ui.Run(env.Cfg, ctrl, env.Chats, env.Settings, searcher); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
