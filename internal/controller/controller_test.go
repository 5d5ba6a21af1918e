// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexus-chat/nexus-tui/internal/kv"
	"github.com/nexus-chat/nexus-tui/internal/model"
	"github.com/nexus-chat/nexus-tui/internal/provider"
	"github.com/nexus-chat/nexus-tui/internal/store"
)

const waitFor = 2 * time.Second
const tick = 2 * time.Millisecond

// fakeEndpoint hands out a scripted event channel per Stream call.
type fakeEndpoint struct {
	mu      sync.Mutex
	calls   int
	params  provider.Params
	history []provider.ChatMessage
	events  chan provider.StreamEvent
	openErr error
}

func newFakeEndpoint() *fakeEndpoint {
	return &fakeEndpoint{events: make(chan provider.StreamEvent, 16)}
}

func (f *fakeEndpoint) Stream(ctx context.Context, params provider.Params, history []provider.ChatMessage) (<-chan provider.StreamEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.params = params
	f.history = history
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.events, nil
}

func (f *fakeEndpoint) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeEndpoint) lastHistory() []provider.ChatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history
}

// reset installs a fresh event channel for the next turn.
func (f *fakeEndpoint) reset() chan provider.StreamEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = make(chan provider.StreamEvent, 16)
	return f.events
}

// harness wires a controller over in-memory stores and a fake endpoint.
type harness struct {
	chats    *store.ChatStore
	settings *store.SettingsStore
	endpoint *fakeEndpoint
	ctrl     *Controller
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	backend := kv.NewMemStore()
	chats, err := store.NewChatStore(backend)
	require.NoError(t, err)
	settings, err := store.NewSettingsStore(backend)
	require.NoError(t, err)
	settings.SetEnvLookup(func(string) string { return "" })
	// The local provider needs no credential; most tests want the stream
	// path, not the configuration guard.
	require.NoError(t, settings.SetProvider("local"))

	endpoint := newFakeEndpoint()
	return &harness{
		chats:    chats,
		settings: settings,
		endpoint: endpoint,
		ctrl:     New(chats, settings, endpoint),
	}
}

func (h *harness) waitState(t *testing.T, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return h.ctrl.State() == want },
		waitFor, tick, "waiting for state %v", want)
}

// =============================================================================
// SUBMISSION
// =============================================================================

func TestSubmit_FullTurn(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.ctrl.Submit("What is a goroutine?"))
	h.waitState(t, StateSubmitted)

	h.endpoint.events <- provider.StreamEvent{Content: "A goroutine "}
	h.waitState(t, StateStreaming)
	h.endpoint.events <- provider.StreamEvent{Content: "is a lightweight thread."}
	close(h.endpoint.events)

	h.waitState(t, StateIdle)
	require.NoError(t, h.ctrl.Err())

	chat := h.chats.ActiveChat()
	require.NotNil(t, chat)
	require.Len(t, chat.Messages, 2)
	assert.Equal(t, model.RoleUser, chat.Messages[0].Role)
	assert.Equal(t, "What is a goroutine?", chat.Messages[0].Content)
	assert.Equal(t, model.RoleAssistant, chat.Messages[1].Role)
	assert.Equal(t, "A goroutine is a lightweight thread.", chat.Messages[1].Content)
	assert.Equal(t, "What is a goroutine?", chat.Title)
}

func TestSubmit_AutoCreatesChat(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, 0, h.chats.Count())

	require.NoError(t, h.ctrl.Submit("hello"))
	assert.Equal(t, 1, h.chats.Count())
	assert.NotEmpty(t, h.chats.ActiveID())

	close(h.endpoint.events)
	h.waitState(t, StateIdle)
}

func TestSubmit_BlankIsNoOp(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.ctrl.Submit("   \n\t  "))
	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.Equal(t, 0, h.chats.Count())
	assert.Equal(t, 0, h.endpoint.callCount())
}

func TestSubmit_WhileBusyRejected(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.ctrl.Submit("first"))
	h.waitState(t, StateSubmitted)

	err := h.ctrl.Submit("second")
	assert.ErrorIs(t, err, ErrBusy)

	close(h.endpoint.events)
	h.waitState(t, StateIdle)
	assert.Equal(t, 1, h.endpoint.callCount())

	// The rejected submission left no user message behind.
	chat := h.chats.ActiveChat()
	require.Len(t, chat.Messages, 1)
	assert.Equal(t, "first", chat.Messages[0].Content)
}

func TestSubmit_MissingKeyFailsBeforeNetwork(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.settings.SetProvider("openai"))

	err := h.ctrl.Submit("hello")
	assert.ErrorIs(t, err, provider.ErrNotConfigured)
	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.ErrorIs(t, h.ctrl.Err(), provider.ErrNotConfigured)

	// No endpoint contact and no user message appended.
	assert.Equal(t, 0, h.endpoint.callCount())
	assert.Equal(t, 0, h.chats.Count())
}

func TestSubmit_HistoryCarriesPriorTurns(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.ctrl.Submit("first question"))
	h.endpoint.events <- provider.StreamEvent{Content: "first answer"}
	close(h.endpoint.events)
	h.waitState(t, StateIdle)

	second := h.endpoint.reset()
	require.NoError(t, h.ctrl.Submit("second question"))
	require.Eventually(t, func() bool { return h.endpoint.callCount() == 2 }, waitFor, tick)

	history := h.endpoint.lastHistory()
	require.Len(t, history, 3)
	assert.Equal(t, "first question", history[0].Content)
	assert.Equal(t, "first answer", history[1].Content)
	assert.Equal(t, "second question", history[2].Content)

	close(second)
	h.waitState(t, StateIdle)
}

// =============================================================================
// ERRORS
// =============================================================================

func TestSubmit_OpenErrorRecorded(t *testing.T) {
	h := newHarness(t)
	h.endpoint.openErr = &provider.EndpointError{Status: 500, Message: "boom"}

	require.NoError(t, h.ctrl.Submit("hello"))
	h.waitState(t, StateIdle)

	require.Eventually(t, func() bool { return h.ctrl.Err() != nil }, waitFor, tick)
	assert.True(t, provider.IsEndpointError(h.ctrl.Err()))

	// The user message stays; the turn simply has no reply.
	chat := h.chats.ActiveChat()
	require.Len(t, chat.Messages, 1)
}

func TestStreamError_KeepsPartialContent(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.ctrl.Submit("hello"))
	h.endpoint.events <- provider.StreamEvent{Content: "partial "}
	h.waitState(t, StateStreaming)

	h.endpoint.events <- provider.StreamEvent{Err: errors.New("connection reset")}
	h.waitState(t, StateIdle)

	require.Error(t, h.ctrl.Err())
	chat := h.chats.ActiveChat()
	require.Len(t, chat.Messages, 2)
	assert.Equal(t, "partial ", chat.Messages[1].Content)
	assert.False(t, chat.Messages[1].IsStreaming)
}

func TestClearError(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.settings.SetProvider("openai"))

	_ = h.ctrl.Submit("hello")
	require.Error(t, h.ctrl.Err())

	h.ctrl.ClearError()
	assert.NoError(t, h.ctrl.Err())
}

// =============================================================================
// CANCELLATION
// =============================================================================

func TestCancel_KeepsPartialWithoutError(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.ctrl.Submit("hello"))
	h.endpoint.events <- provider.StreamEvent{Content: "partial answer"}
	h.waitState(t, StateStreaming)

	h.ctrl.Cancel()
	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.NoError(t, h.ctrl.Err())

	chat := h.chats.ActiveChat()
	require.Len(t, chat.Messages, 2)
	assert.Equal(t, "partial answer", chat.Messages[1].Content)

	close(h.endpoint.events)
}

func TestCancel_BeforeFirstFragment(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.ctrl.Submit("hello"))
	h.waitState(t, StateSubmitted)

	h.ctrl.Cancel()
	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.NoError(t, h.ctrl.Err())

	// The user message stays; no assistant message was opened.
	chat := h.chats.ActiveChat()
	require.Len(t, chat.Messages, 1)

	close(h.endpoint.events)
}

func TestCancel_WhileIdleIsNoOp(t *testing.T) {
	h := newHarness(t)
	h.ctrl.Cancel()
	assert.Equal(t, StateIdle, h.ctrl.State())
}

func TestCancel_LateFragmentsDropped(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.ctrl.Submit("hello"))
	h.endpoint.events <- provider.StreamEvent{Content: "before cancel"}
	h.waitState(t, StateStreaming)

	h.ctrl.Cancel()

	// Fragments arriving after cancellation must not mutate anything.
	h.endpoint.events <- provider.StreamEvent{Content: " after cancel"}
	close(h.endpoint.events)

	// Give the stale pump a chance to misbehave.
	time.Sleep(50 * time.Millisecond)

	chat := h.chats.ActiveChat()
	require.Len(t, chat.Messages, 2)
	assert.Equal(t, "before cancel", chat.Messages[1].Content)
	assert.Equal(t, StateIdle, h.ctrl.State())
}

// =============================================================================
// NAVIGATION
// =============================================================================

func TestSetActiveChat_CancelsInFlight(t *testing.T) {
	h := newHarness(t)

	other, err := h.chats.CreateChat()
	require.NoError(t, err)

	require.NoError(t, h.ctrl.Submit("streaming here"))
	streamingID := h.chats.ActiveID()
	h.endpoint.events <- provider.StreamEvent{Content: "partial"}
	h.waitState(t, StateStreaming)

	require.NoError(t, h.ctrl.SetActiveChat(other.ID))
	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.Equal(t, other.ID, h.chats.ActiveID())

	// Late fragments must not leak into the newly active chat.
	h.endpoint.events <- provider.StreamEvent{Content: " leaked"}
	close(h.endpoint.events)
	time.Sleep(50 * time.Millisecond)

	assert.Empty(t, h.chats.Chat(other.ID).Messages)
	streamed := h.chats.Chat(streamingID)
	require.Len(t, streamed.Messages, 2)
	assert.Equal(t, "partial", streamed.Messages[1].Content)
}

func TestNewChat_CancelsAndActivates(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.ctrl.Submit("hello"))
	h.waitState(t, StateSubmitted)

	chat, err := h.ctrl.NewChat()
	require.NoError(t, err)
	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.Equal(t, chat.ID, h.chats.ActiveID())

	close(h.endpoint.events)
}

func TestDeleteChat_ActiveCancelsInFlight(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.ctrl.Submit("hello"))
	h.waitState(t, StateSubmitted)
	id := h.chats.ActiveID()

	require.NoError(t, h.ctrl.DeleteChat(id))
	assert.Equal(t, StateIdle, h.ctrl.State())
	assert.Equal(t, 0, h.chats.Count())

	close(h.endpoint.events)
}

// =============================================================================
// OBSERVER
// =============================================================================

func TestSubscribe_SignalsOnChange(t *testing.T) {
	h := newHarness(t)
	ch := h.ctrl.Subscribe()

	require.NoError(t, h.ctrl.Submit("hello"))

	select {
	case <-ch:
	case <-time.After(waitFor):
		t.Fatal("no notification after submit")
	}

	close(h.endpoint.events)
	h.waitState(t, StateIdle)
}

// =============================================================================
// ERROR DESCRIPTIONS
// =============================================================================

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"not configured", provider.ErrNotConfigured,
			"No API key configured for this provider. Add one in settings."},
		{"unauthorized", &provider.EndpointError{Status: 401, Message: "bad key"},
			"The provider rejected the API key. Check it in settings."},
		{"rate limited", &provider.EndpointError{Status: 429, Message: "slow down"},
			"Rate limited by the provider. Wait a moment and try again."},
		{"server error", &provider.EndpointError{Status: 503, Message: "overloaded"},
			"The provider had an internal error. Try again."},
		{"endpoint other", &provider.EndpointError{Status: 400, Message: "bad request shape"},
			"bad request shape"},
		{"busy", ErrBusy,
			"A response is already in progress. Press esc to stop it."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Describe(tt.err))
		})
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "submitted", StateSubmitted.String())
	assert.Equal(t, "streaming", StateStreaming.String())
}
