// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chats and messages.
//
// A Chat is an ordered sequence of Messages plus display metadata. Messages
// may be built incrementally while a response streams in; they become
// immutable once the stream for their turn ends. The package also provides
// the pure date-bucketing function used by the sidebar.
package model
