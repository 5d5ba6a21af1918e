// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package kv provides the named-record persistence backend for nexus.
//
// State is persisted as named JSON blobs ("records") under a base directory,
// one file per record. Records are wrapped in a versioned envelope so a
// future layout change can be detected instead of silently misparsed. Writes
// are atomic (temp file + fsync + rename) because the stores write through
// on every mutation and must tolerate being killed mid-save.
package kv

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nexus-chat/nexus-tui/internal/util"
)

// RecordVersion is the current envelope version. Bump it when a persisted
// payload changes shape incompatibly.
const RecordVersion = 1

// Well-known record names.
const (
	// RecordChats holds the chat collection, active-chat pointer, and
	// sidebar flag.
	RecordChats = "nexus-chats"

	// RecordSettings holds the generation settings.
	RecordSettings = "nexus-settings"
)

// Errors returned by the store.
var (
	// ErrNotFound is returned when a named record has never been saved.
	ErrNotFound = errors.New("record not found")

	// ErrVersionMismatch is returned when a record's envelope version is
	// newer than this build understands.
	ErrVersionMismatch = errors.New("record version mismatch")
)

// envelope wraps every persisted record with a version tag.
type envelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Store persists named records. Implementations must make Save atomic with
// respect to crashes.
type Store interface {
	// Save serializes v as the record's payload and persists it.
	Save(name string, v any) error

	// Load deserializes the record's payload into v. Returns ErrNotFound
	// when the record does not exist.
	Load(name string, v any) error
}

// =============================================================================
// FILE STORE
// =============================================================================

// FileStore persists records as JSON files under a base directory.
type FileStore struct {
	baseDir string
}

// NewFileStore creates a store rooted at baseDir, creating it if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// DefaultDir returns the default state directory, ~/.nexus.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".nexus"), nil
}

// BaseDir returns the directory records are stored under.
func (s *FileStore) BaseDir() string {
	return s.baseDir
}

// Save implements Store.
func (s *FileStore) Save(name string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record %q: %w", name, err)
	}

	data, err := json.MarshalIndent(envelope{Version: RecordVersion, Data: payload}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal envelope for %q: %w", name, err)
	}

	if err := util.AtomicWriteFile(s.recordPath(name), data, 0600); err != nil {
		return fmt.Errorf("failed to persist record %q: %w", name, err)
	}
	return nil
}

// Load implements Store.
func (s *FileStore) Load(name string, v any) error {
	data, err := os.ReadFile(s.recordPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read record %q: %w", name, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("failed to parse record %q: %w", name, err)
	}
	if env.Version > RecordVersion {
		return fmt.Errorf("record %q has version %d, this build understands %d: %w",
			name, env.Version, RecordVersion, ErrVersionMismatch)
	}

	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("failed to decode record %q: %w", name, err)
	}
	return nil
}

// recordPath returns the file path for a record name.
func (s *FileStore) recordPath(name string) string {
	return filepath.Join(s.baseDir, name+".json")
}

// =============================================================================
// MEMORY STORE
// =============================================================================

// MemStore is an in-memory Store for tests and ephemeral sessions.
type MemStore struct {
	records map[string][]byte
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{records: make(map[string][]byte)}
}

// Save implements Store.
func (s *MemStore) Save(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.records[name] = data
	return nil
}

// Load implements Store.
func (s *MemStore) Load(name string, v any) error {
	data, ok := s.records[name]
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(data, v)
}
