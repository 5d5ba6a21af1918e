// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the reusable rendering pieces of the nexus
// TUI: markdown and code block rendering, the chat sidebar, message
// bubbles, and the status bar. Components are pure renderers; they hold no
// application state beyond what the caller hands them.
package components
