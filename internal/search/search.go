// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package search provides a SQLite-backed full-text index over chat
// history.
//
// The index is derived data: the chat store remains the source of truth and
// the index is rebuilt from it at any time. Losing or deleting the index
// database loses nothing.
package search

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/nexus-chat/nexus-tui/internal/model"
)

// ErrClosed is returned when the index is used after Close.
var ErrClosed = errors.New("search index is closed")

// snippetRadius is the number of runes of context kept on each side of a
// match in a result snippet.
const snippetRadius = 40

// schema holds chats and their messages, denormalized enough that a search
// result renders without touching the chat store.
const schema = `
CREATE TABLE IF NOT EXISTS chats (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id         TEXT PRIMARY KEY,
	chat_id    TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id);
`

// Result is one search hit.
type Result struct {
	ChatID    string
	ChatTitle string
	MessageID string
	Role      model.Role
	Snippet   string
	CreatedAt time.Time
}

// =============================================================================
// INDEX
// =============================================================================

// Index is a searchable mirror of the chat collection. All methods are safe
// for concurrent use.
type Index struct {
	mu sync.RWMutex
	db *sql.DB
}

// Open opens (or creates) the index database at path. Use ":memory:" for an
// ephemeral index.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open search index: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize search schema: %w", err)
	}

	return &Index{db: db}, nil
}

// Close releases the database.
func (ix *Index) Close() error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.db == nil {
		return nil
	}
	err := ix.db.Close()
	ix.db = nil
	return err
}

// =============================================================================
// INDEXING
// =============================================================================

// Sync replaces the whole index with the given chat collection in one
// transaction.
func (ix *Index) Sync(chats []*model.Chat) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.db == nil {
		return ErrClosed
	}

	tx, err := ix.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin sync: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM chats"); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}

	for _, chat := range chats {
		if err := indexChatTx(tx, chat); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// IndexChat upserts one chat and its messages.
func (ix *Index) IndexChat(chat *model.Chat) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.db == nil {
		return ErrClosed
	}

	tx, err := ix.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin index update: %w", err)
	}
	defer tx.Rollback()

	// Delete-then-insert; cascade clears the old messages.
	if _, err := tx.Exec("DELETE FROM chats WHERE id = ?", chat.ID); err != nil {
		return fmt.Errorf("failed to replace chat %s: %w", chat.ID, err)
	}
	if err := indexChatTx(tx, chat); err != nil {
		return err
	}

	return tx.Commit()
}

// RemoveChat drops a chat and its messages from the index.
func (ix *Index) RemoveChat(id string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.db == nil {
		return ErrClosed
	}

	_, err := ix.db.Exec("DELETE FROM chats WHERE id = ?", id)
	return err
}

// indexChatTx writes one chat inside an open transaction.
func indexChatTx(tx *sql.Tx, chat *model.Chat) error {
	if _, err := tx.Exec(
		"INSERT INTO chats (id, title, updated_at) VALUES (?, ?, ?)",
		chat.ID, chat.Title, chat.UpdatedAt.Unix(),
	); err != nil {
		return fmt.Errorf("failed to index chat %s: %w", chat.ID, err)
	}

	for _, msg := range chat.Messages {
		if _, err := tx.Exec(
			"INSERT INTO messages (id, chat_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)",
			msg.ID, chat.ID, msg.Role.String(), msg.DisplayContent(), msg.CreatedAt.Unix(),
		); err != nil {
			return fmt.Errorf("failed to index message %s: %w", msg.ID, err)
		}
	}
	return nil
}

// =============================================================================
// SEARCH
// =============================================================================

// Search returns messages whose content contains the query,
// case-insensitively, most recent chats first. A blank query returns no
// results.
func (ix *Index) Search(query string, limit int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.db == nil {
		return nil, ErrClosed
	}

	rows, err := ix.db.Query(`
		SELECT m.id, m.role, m.content, m.created_at, c.id, c.title
		FROM messages m
		JOIN chats c ON c.id = m.chat_id
		WHERE m.content LIKE ? ESCAPE '\'
		ORDER BY c.updated_at DESC, m.created_at ASC
		LIMIT ?
	`, "%"+escapeLike(query)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var role, content string
		var createdAt int64
		if err := rows.Scan(&r.MessageID, &role, &content, &createdAt, &r.ChatID, &r.ChatTitle); err != nil {
			continue
		}
		r.Role = model.Role(role)
		r.CreatedAt = time.Unix(createdAt, 0)
		r.Snippet = makeSnippet(content, query)
		results = append(results, r)
	}

	return results, rows.Err()
}

// Stats returns the number of indexed chats and messages.
func (ix *Index) Stats() (chats, messages int, err error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.db == nil {
		return 0, 0, ErrClosed
	}

	if err := ix.db.QueryRow("SELECT COUNT(*) FROM chats").Scan(&chats); err != nil {
		return 0, 0, err
	}
	if err := ix.db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&messages); err != nil {
		return 0, 0, err
	}
	return chats, messages, nil
}

// escapeLike escapes LIKE wildcards in a user query.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// makeSnippet extracts a window of content around the first match,
// collapsing newlines so the snippet renders on one line.
func makeSnippet(content, query string) string {
	flat := strings.Join(strings.Fields(content), " ")
	runes := []rune(flat)

	pos := strings.Index(strings.ToLower(flat), strings.ToLower(query))
	if pos < 0 {
		if len(runes) <= 2*snippetRadius {
			return flat
		}
		return string(runes[:2*snippetRadius]) + "..."
	}

	// Byte offset to rune offset.
	start := len([]rune(flat[:pos]))
	lo := start - snippetRadius
	hi := start + len([]rune(query)) + snippetRadius

	var prefix, suffix string
	if lo < 0 {
		lo = 0
	} else if lo > 0 {
		prefix = "..."
	}
	if hi > len(runes) {
		hi = len(runes)
	} else if hi < len(runes) {
		suffix = "..."
	}

	return prefix + string(runes[lo:hi]) + suffix
}
