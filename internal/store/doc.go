// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the durable application state: the chat collection
// and the generation settings.
//
// Both stores are write-through: every mutation persists the full record to
// the kv backend before returning, so a crash at any point loses at most the
// mutation in flight. Reads return deep copies; callers never alias store
// internals.
package store
