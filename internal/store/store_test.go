// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-chat/nexus-tui/internal/kv"
	"github.com/nexus-chat/nexus-tui/internal/model"
	"github.com/nexus-chat/nexus-tui/internal/provider"
)

func newChatStore(t *testing.T, backend kv.Store) *ChatStore {
	t.Helper()
	s, err := NewChatStore(backend)
	require.NoError(t, err)
	return s
}

// =============================================================================
// CHAT STORE
// =============================================================================

func TestChatStore_CreateMakesActive(t *testing.T) {
	s := newChatStore(t, kv.NewMemStore())

	chat, err := s.CreateChat()
	require.NoError(t, err)

	assert.Equal(t, chat.ID, s.ActiveID())
	assert.Equal(t, model.DefaultTitle, chat.Title)
	assert.Equal(t, 1, s.Count())
}

func TestChatStore_DeleteActivePromotesMostRecent(t *testing.T) {
	s := newChatStore(t, kv.NewMemStore())

	older, err := s.CreateChat()
	require.NoError(t, err)
	newer, err := s.CreateChat()
	require.NoError(t, err)

	// Make "older" the most recently updated one.
	require.NoError(t, s.AppendMessage(older.ID, model.NewUserMessage("bump")))

	// newer became active on creation; deleting it must promote older.
	require.NoError(t, s.SetActive(newer.ID))
	require.NoError(t, s.DeleteChat(newer.ID))

	assert.Equal(t, older.ID, s.ActiveID())
}

func TestChatStore_DeleteLastClearsActive(t *testing.T) {
	s := newChatStore(t, kv.NewMemStore())

	chat, err := s.CreateChat()
	require.NoError(t, err)
	require.NoError(t, s.DeleteChat(chat.ID))

	assert.Equal(t, "", s.ActiveID())
	assert.Nil(t, s.ActiveChat())
	assert.Equal(t, 0, s.Count())
}

func TestChatStore_DeleteInactiveKeepsActive(t *testing.T) {
	s := newChatStore(t, kv.NewMemStore())

	first, err := s.CreateChat()
	require.NoError(t, err)
	second, err := s.CreateChat()
	require.NoError(t, err)

	require.NoError(t, s.DeleteChat(first.ID))
	assert.Equal(t, second.ID, s.ActiveID())
}

func TestChatStore_DeleteUnknown(t *testing.T) {
	s := newChatStore(t, kv.NewMemStore())
	err := s.DeleteChat("chat_missing")
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestChatStore_TitleDerivedOnce(t *testing.T) {
	s := newChatStore(t, kv.NewMemStore())

	chat, err := s.CreateChat()
	require.NoError(t, err)

	require.NoError(t, s.AppendMessage(chat.ID, model.NewUserMessage("What is a monad?")))
	got := s.Chat(chat.ID)
	assert.Equal(t, "What is a monad?", got.Title)

	// Later messages never re-derive the title.
	require.NoError(t, s.AppendMessage(chat.ID, model.NewUserMessage("Different question entirely")))
	got = s.Chat(chat.ID)
	assert.Equal(t, "What is a monad?", got.Title)
}

func TestChatStore_TitleTruncation(t *testing.T) {
	s := newChatStore(t, kv.NewMemStore())

	chat, err := s.CreateChat()
	require.NoError(t, err)

	long := strings.Repeat("a", 50)
	require.NoError(t, s.AppendMessage(chat.ID, model.NewUserMessage(long)))

	got := s.Chat(chat.ID)
	assert.Equal(t, strings.Repeat("a", 40)+"...", got.Title)
}

func TestChatStore_ExplicitRenameSticks(t *testing.T) {
	s := newChatStore(t, kv.NewMemStore())

	chat, err := s.CreateChat()
	require.NoError(t, err)
	require.NoError(t, s.RenameChat(chat.ID, "Planning"))

	// Rename disables derivation: title is no longer the placeholder.
	require.NoError(t, s.AppendMessage(chat.ID, model.NewUserMessage("hello")))
	assert.Equal(t, "Planning", s.Chat(chat.ID).Title)
}

func TestChatStore_CreatePrepends(t *testing.T) {
	s := newChatStore(t, kv.NewMemStore())

	first, err := s.CreateChat()
	require.NoError(t, err)
	second, err := s.CreateChat()
	require.NoError(t, err)

	chats := s.Chats()
	require.Len(t, chats, 2)
	assert.Equal(t, second.ID, chats[0].ID)
	assert.Equal(t, first.ID, chats[1].ID)
}

func TestChatStore_RenameBumpsUpdatedAt(t *testing.T) {
	s := newChatStore(t, kv.NewMemStore())

	chat, err := s.CreateChat()
	require.NoError(t, err)
	before := s.Chat(chat.ID).UpdatedAt

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.RenameChat(chat.ID, "Planning"))

	assert.True(t, s.Chat(chat.ID).UpdatedAt.After(before))
}

func TestChatStore_ReplaceMessagesBumpsUpdatedAt(t *testing.T) {
	s := newChatStore(t, kv.NewMemStore())

	chat, err := s.CreateChat()
	require.NoError(t, err)
	before := s.Chat(chat.ID).UpdatedAt

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.ReplaceMessages(chat.ID, []*model.Message{
		model.NewUserMessage("hi"),
	}))

	assert.True(t, s.Chat(chat.ID).UpdatedAt.After(before))
}

func TestChatStore_ReplaceMessagesCopies(t *testing.T) {
	s := newChatStore(t, kv.NewMemStore())

	chat, err := s.CreateChat()
	require.NoError(t, err)

	streaming := model.NewStreamingMessage()
	streaming.AppendFragment("partial")
	require.NoError(t, s.ReplaceMessages(chat.ID, []*model.Message{streaming}))

	// Mutating the caller's message must not leak into the store.
	streaming.AppendFragment(" more")

	got := s.Chat(chat.ID)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "partial", got.Messages[0].Content)
	assert.False(t, got.Messages[0].IsStreaming)
}

func TestChatStore_WriteThroughSurvivesReload(t *testing.T) {
	backend := kv.NewMemStore()
	s := newChatStore(t, backend)

	chat, err := s.CreateChat()
	require.NoError(t, err)
	require.NoError(t, s.AppendMessage(chat.ID, model.NewUserMessage("persist me")))
	_, err = s.ToggleSidebar()
	require.NoError(t, err)

	reloaded := newChatStore(t, backend)
	assert.Equal(t, chat.ID, reloaded.ActiveID())
	assert.Equal(t, 1, reloaded.Count())
	assert.False(t, reloaded.SidebarOpen())

	got := reloaded.Chat(chat.ID)
	require.NotNil(t, got)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "persist me", got.Messages[0].Content)
	assert.Equal(t, "persist me", got.Title)
}

func TestChatStore_StaleActivePointerRepaired(t *testing.T) {
	backend := kv.NewMemStore()
	chat := model.NewChat()
	require.NoError(t, backend.Save(kv.RecordChats, chatsRecord{
		Chats:    []*model.Chat{chat},
		ActiveID: "chat_gone",
	}))

	s := newChatStore(t, backend)
	assert.Equal(t, chat.ID, s.ActiveID())
}

func TestChatStore_FirstRunDefaults(t *testing.T) {
	s := newChatStore(t, kv.NewMemStore())
	assert.Equal(t, 0, s.Count())
	assert.Equal(t, "", s.ActiveID())
	assert.True(t, s.SidebarOpen())
}

// =============================================================================
// SETTINGS STORE
// =============================================================================

func newSettingsStore(t *testing.T, backend kv.Store) *SettingsStore {
	t.Helper()
	s, err := NewSettingsStore(backend)
	require.NoError(t, err)
	s.SetEnvLookup(func(string) string { return "" })
	return s
}

func TestSettingsStore_Defaults(t *testing.T) {
	s := newSettingsStore(t, kv.NewMemStore())

	assert.Equal(t, provider.DefaultProviderID, s.Provider())
	assert.Equal(t, provider.DefaultModel(provider.DefaultProviderID), s.Model())
	assert.Equal(t, DefaultTemperature, s.Temperature())
	assert.Equal(t, DefaultSystemPrompt, s.SystemPrompt())
}

func TestSettingsStore_ProviderSwitchResetsModel(t *testing.T) {
	s := newSettingsStore(t, kv.NewMemStore())

	require.NoError(t, s.SetModel("gpt-4o"))
	require.NoError(t, s.SetProvider("groq"))

	assert.Equal(t, "groq", s.Provider())
	assert.Equal(t, provider.DefaultModel("groq"), s.Model())
}

func TestSettingsStore_UnknownProviderRejected(t *testing.T) {
	s := newSettingsStore(t, kv.NewMemStore())
	err := s.SetProvider("mystery")
	assert.ErrorIs(t, err, provider.ErrUnknownProvider)
	assert.Equal(t, provider.DefaultProviderID, s.Provider())
}

func TestSettingsStore_TemperatureValidation(t *testing.T) {
	s := newSettingsStore(t, kv.NewMemStore())

	assert.NoError(t, s.SetTemperature(0))
	assert.NoError(t, s.SetTemperature(2))
	assert.ErrorIs(t, s.SetTemperature(-0.1), provider.ErrInvalidTemperature)
	assert.ErrorIs(t, s.SetTemperature(2.1), provider.ErrInvalidTemperature)
	assert.Equal(t, 2.0, s.Temperature())
}

func TestSettingsStore_PersistedUnknownProviderFallsBack(t *testing.T) {
	backend := kv.NewMemStore()
	require.NoError(t, backend.Save(kv.RecordSettings, settingsRecord{
		Provider:    "defunct",
		Model:       "defunct-model",
		Temperature: 1.0,
	}))

	s := newSettingsStore(t, backend)
	assert.Equal(t, provider.DefaultProviderID, s.Provider())
	assert.Equal(t, provider.DefaultModel(provider.DefaultProviderID), s.Model())
	// Valid fields survive the fallback.
	assert.Equal(t, 1.0, s.Temperature())
}

func TestSettingsStore_WriteThroughSurvivesReload(t *testing.T) {
	backend := kv.NewMemStore()
	s := newSettingsStore(t, backend)

	require.NoError(t, s.SetProvider("openrouter"))
	require.NoError(t, s.SetTemperature(1.3))
	require.NoError(t, s.SetSystemPrompt("be brief"))
	require.NoError(t, s.SetAPIKey("sk-test"))

	reloaded := newSettingsStore(t, backend)
	assert.Equal(t, "openrouter", reloaded.Provider())
	assert.Equal(t, provider.DefaultModel("openrouter"), reloaded.Model())
	assert.Equal(t, 1.3, reloaded.Temperature())
	assert.Equal(t, "be brief", reloaded.SystemPrompt())
	assert.Equal(t, "sk-test", reloaded.APIKey())
}

func TestSettingsStore_SnapshotEnvFallback(t *testing.T) {
	s := newSettingsStore(t, kv.NewMemStore())
	s.SetEnvLookup(func(name string) string {
		if name == "OPENAI_API_KEY" {
			return "sk-from-env"
		}
		return ""
	})

	assert.Equal(t, "sk-from-env", s.Snapshot().APIKey)
	assert.True(t, s.HasCredential())

	// A stored key wins over the environment.
	require.NoError(t, s.SetAPIKey("sk-stored"))
	assert.Equal(t, "sk-stored", s.Snapshot().APIKey)
}

func TestSettingsStore_HasCredential(t *testing.T) {
	s := newSettingsStore(t, kv.NewMemStore())
	assert.False(t, s.HasCredential(), "openai without key")

	require.NoError(t, s.SetProvider("local"))
	assert.True(t, s.HasCredential(), "local needs no key")
}

func TestSettingsStore_HasCredentialFor(t *testing.T) {
	s := newSettingsStore(t, kv.NewMemStore())

	assert.True(t, s.HasCredentialFor("local"), "local needs no key")
	assert.False(t, s.HasCredentialFor("openai"), "no key anywhere")
	assert.False(t, s.HasCredentialFor("mystery"), "unknown provider")

	s.SetEnvLookup(func(name string) string {
		if name == "GROQ_API_KEY" {
			return "gsk-env"
		}
		return ""
	})
	assert.True(t, s.HasCredentialFor("groq"))
	assert.False(t, s.HasCredentialFor("openai"))

	require.NoError(t, s.SetAPIKey("sk-stored"))
	assert.True(t, s.HasCredentialFor("openai"), "stored key counts for any provider")
}

func TestSettingsStore_SnapshotIsDetached(t *testing.T) {
	s := newSettingsStore(t, kv.NewMemStore())

	snap := s.Snapshot()
	require.NoError(t, s.SetProvider("local"))

	// The snapshot taken before the switch keeps the old parameters.
	assert.Equal(t, provider.DefaultProviderID, snap.Provider)
	assert.Equal(t, "local", s.Provider())
}
