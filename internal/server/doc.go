// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the nexus proxy: an HTTP server exposing an
// OpenAI-compatible completion endpoint backed by any registered provider.
//
// Endpoints:
//   - POST /v1/chat/completions - OpenAI-compatible streaming completions
//   - POST /api/chat            - Same handler under the legacy path
//   - GET  /v1/models           - List known providers and default models
//   - GET  /health              - Health check
//
// Provider credentials come from the environment (one variable per
// provider), never from the incoming request. Clients therefore need no key
// of their own; a request for a provider whose credential is absent fails
// with a configuration error before any upstream traffic.
package server
