// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/nexus-chat/nexus-tui/internal/server"
)

// =============================================================================
// SERVE COMMAND
// =============================================================================

// HandleServe runs the OpenAI-compatible proxy server until interrupted.
// Provider credentials are read from the server's environment; a .env file
// in the working directory is loaded first so deployments can keep keys out
// of the shell profile.
func HandleServe(env *Env, args Args) int {
	// Missing .env is the normal case, not an error.
	_ = godotenv.Load()

	if args.Addr != "" {
		env.Cfg.Server.Addr = args.Addr
	}

	srv := server.New(env.Cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !args.Quiet {
		fmt.Println(headerStyle.Render("nexus serve"))
		fmt.Println(infoStyle.Render("Listening on " + env.Cfg.Server.Addr))
		fmt.Println(infoStyle.Render("POST /v1/chat/completions · GET /v1/models · GET /health"))
	}

	if err := srv.ListenAndServe(ctx); err != nil {
		printError(err.Error())
		return 1
	}
	return 0
}

// HandleVersion prints the version line.
func HandleVersion() int {
	fmt.Printf("nexus %s\n", Version)
	return 0
}
