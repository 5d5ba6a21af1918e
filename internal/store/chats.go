// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nexus-chat/nexus-tui/internal/kv"
	"github.com/nexus-chat/nexus-tui/internal/model"
)

// ErrChatNotFound is returned when an operation names a chat ID that is not
// in the collection.
var ErrChatNotFound = errors.New("chat not found")

// chatsRecord is the persisted shape of the chat collection.
type chatsRecord struct {
	Chats       []*model.Chat `json:"chats"`
	ActiveID    string        `json:"active_id"`
	SidebarOpen bool          `json:"sidebar_open"`
}

// =============================================================================
// CHAT STORE
// =============================================================================

// ChatStore owns the chat collection, the active-chat pointer, and the
// sidebar visibility flag. All methods are safe for concurrent use.
//
// The active pointer is always valid: it names a chat in the collection or
// is empty when the collection is empty. Deleting the active chat promotes
// the most recently updated remaining chat.
type ChatStore struct {
	mu sync.RWMutex

	backend kv.Store

	chats       []*model.Chat
	activeID    string
	sidebarOpen bool
}

// NewChatStore creates a chat store backed by the given kv store, loading
// any previously persisted collection. A missing record starts empty with
// the sidebar open.
func NewChatStore(backend kv.Store) (*ChatStore, error) {
	s := &ChatStore{
		backend:     backend,
		chats:       make([]*model.Chat, 0),
		sidebarOpen: true,
	}

	var rec chatsRecord
	err := backend.Load(kv.RecordChats, &rec)
	switch {
	case err == nil:
		s.chats = rec.Chats
		if s.chats == nil {
			s.chats = make([]*model.Chat, 0)
		}
		s.activeID = rec.ActiveID
		s.sidebarOpen = rec.SidebarOpen
		// A stale active pointer is repaired, not fatal.
		if s.activeID != "" && s.findLocked(s.activeID) == nil {
			s.activeID = s.mostRecentIDLocked()
		}
	case errors.Is(err, kv.ErrNotFound):
		// First run.
	default:
		return nil, fmt.Errorf("failed to load chats: %w", err)
	}

	return s, nil
}

// =============================================================================
// MUTATIONS
// =============================================================================

// CreateChat prepends a new empty chat, makes it active, and returns a copy.
func (s *ChatStore) CreateChat() (*model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat := model.NewChat()
	s.chats = append([]*model.Chat{chat}, s.chats...)
	s.activeID = chat.ID

	if err := s.persistLocked(); err != nil {
		return nil, err
	}
	return chat.Clone(), nil
}

// DeleteChat removes a chat. When the active chat is deleted, the most
// recently updated remaining chat becomes active; deleting the last chat
// clears the active pointer.
func (s *ChatStore) DeleteChat(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, c := range s.chats {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrChatNotFound, id)
	}

	s.chats = append(s.chats[:idx], s.chats[idx+1:]...)
	if s.activeID == id {
		s.activeID = s.mostRecentIDLocked()
	}

	return s.persistLocked()
}

// RenameChat sets a chat's title and bumps UpdatedAt. An explicit title
// sticks: automatic title derivation only ever replaces the placeholder.
func (s *ChatStore) RenameChat(id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat := s.findLocked(id)
	if chat == nil {
		return fmt.Errorf("%w: %s", ErrChatNotFound, id)
	}
	chat.Title = title
	chat.UpdatedAt = time.Now()

	return s.persistLocked()
}

// SetActive makes the chat with the given ID active. An empty ID clears the
// selection.
func (s *ChatStore) SetActive(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" && s.findLocked(id) == nil {
		return fmt.Errorf("%w: %s", ErrChatNotFound, id)
	}
	s.activeID = id

	return s.persistLocked()
}

// ReplaceMessages swaps a chat's message sequence for a copy of msgs, bumps
// UpdatedAt, and derives the title from the first user message while the
// placeholder title is still in place. This is the write path the streaming
// session drives on every turn.
func (s *ChatStore) ReplaceMessages(id string, msgs []*model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat := s.findLocked(id)
	if chat == nil {
		return fmt.Errorf("%w: %s", ErrChatNotFound, id)
	}

	copied := make([]*model.Message, len(msgs))
	for i, m := range msgs {
		copied[i] = m.Clone()
	}
	chat.Messages = copied
	chat.UpdatedAt = time.Now()

	if chat.HasDefaultTitle() {
		if first := chat.FirstUserMessage(); first != nil {
			chat.Title = model.DeriveTitle(first.Content)
		}
	}

	return s.persistLocked()
}

// AppendMessage appends one message to a chat, with the same UpdatedAt and
// title semantics as ReplaceMessages.
func (s *ChatStore) AppendMessage(id string, msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat := s.findLocked(id)
	if chat == nil {
		return fmt.Errorf("%w: %s", ErrChatNotFound, id)
	}

	chat.Messages = append(chat.Messages, msg.Clone())
	chat.UpdatedAt = time.Now()

	if chat.HasDefaultTitle() {
		if first := chat.FirstUserMessage(); first != nil {
			chat.Title = model.DeriveTitle(first.Content)
		}
	}

	return s.persistLocked()
}

// SetSidebarOpen sets the sidebar visibility flag.
func (s *ChatStore) SetSidebarOpen(open bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sidebarOpen = open
	return s.persistLocked()
}

// ToggleSidebar flips the sidebar flag and returns the new value.
func (s *ChatStore) ToggleSidebar() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sidebarOpen = !s.sidebarOpen
	return s.sidebarOpen, s.persistLocked()
}

// =============================================================================
// READS
// =============================================================================

// ActiveID returns the ID of the active chat, or "" when none is selected.
func (s *ChatStore) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// ActiveChat returns a copy of the active chat, or nil when none is
// selected.
func (s *ChatStore) ActiveChat() *model.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chat := s.findLocked(s.activeID)
	if chat == nil {
		return nil
	}
	return chat.Clone()
}

// Chat returns a copy of the chat with the given ID, or nil.
func (s *ChatStore) Chat(id string) *model.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chat := s.findLocked(id)
	if chat == nil {
		return nil
	}
	return chat.Clone()
}

// Chats returns copies of all chats, in no particular order. Display
// ordering is a rendering concern; see model.GroupByDate.
func (s *ChatStore) Chats() []*model.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Chat, len(s.chats))
	for i, c := range s.chats {
		out[i] = c.Clone()
	}
	return out
}

// Count returns the number of chats.
func (s *ChatStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chats)
}

// SidebarOpen reports whether the sidebar is visible.
func (s *ChatStore) SidebarOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sidebarOpen
}

// =============================================================================
// INTERNAL
// =============================================================================

// findLocked returns the chat with the given ID, or nil. Caller holds mu.
func (s *ChatStore) findLocked(id string) *model.Chat {
	for _, c := range s.chats {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// mostRecentIDLocked returns the ID of the most recently updated chat, or
// "" when the collection is empty. Caller holds mu.
func (s *ChatStore) mostRecentIDLocked() string {
	var best *model.Chat
	for _, c := range s.chats {
		if best == nil || c.UpdatedAt.After(best.UpdatedAt) {
			best = c
		}
	}
	if best == nil {
		return ""
	}
	return best.ID
}

// persistLocked writes the full collection through to the backend. Caller
// holds mu.
func (s *ChatStore) persistLocked() error {
	rec := chatsRecord{
		Chats:       s.chats,
		ActiveID:    s.activeID,
		SidebarOpen: s.sidebarOpen,
	}
	if err := s.backend.Save(kv.RecordChats, rec); err != nil {
		return fmt.Errorf("failed to persist chats: %w", err)
	}
	return nil
}
