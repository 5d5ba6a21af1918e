// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package provider implements the completion-endpoint client.
//
// All supported providers speak the OpenAI-compatible chat-completions
// protocol, so one client covers them: a POST with the message history and
// generation parameters, answered by a Server-Sent Events stream of content
// deltas terminated by a [DONE] sentinel. The nexus proxy server exposes the
// same protocol, so pointing a provider's base URL at a proxy needs no
// client changes.
//
// The client never retries: a failed turn is surfaced to the caller and must
// be resubmitted explicitly.
package provider
