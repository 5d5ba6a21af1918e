// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package controller runs the streaming chat session.
//
// The controller is an explicit state machine over one in-flight completion
// at a time. A turn moves idle -> submitted -> streaming -> idle; failures
// land back in idle with a recorded error. Every outcome that changes
// observable state notifies subscribers, and every message mutation writes
// through the chat store, so durable state never trails what a subscriber
// can see by more than the fragment in flight.
package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/nexus-chat/nexus-tui/internal/model"
	"github.com/nexus-chat/nexus-tui/internal/provider"
	"github.com/nexus-chat/nexus-tui/internal/store"
)

// State is the streaming session state.
type State int

const (
	// StateIdle means no completion is in flight.
	StateIdle State = iota

	// StateSubmitted means a request was sent and no fragment has arrived
	// yet.
	StateSubmitted

	// StateStreaming means fragments are arriving.
	StateStreaming
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitted:
		return "submitted"
	case StateStreaming:
		return "streaming"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrBusy is returned when Submit is called while a completion is already in
// flight.
var ErrBusy = errors.New("a response is already in progress")

// Endpoint is the completion boundary the controller drives. provider.Client
// implements it; tests substitute fakes.
type Endpoint interface {
	Stream(ctx context.Context, params provider.Params, history []provider.ChatMessage) (<-chan provider.StreamEvent, error)
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller coordinates submissions between the chat store, the settings
// store, and the completion endpoint. All methods are safe for concurrent
// use.
type Controller struct {
	mu sync.Mutex

	chats    *store.ChatStore
	settings *store.SettingsStore
	endpoint Endpoint

	state   State
	lastErr error

	// seq identifies the current turn. Submit, Cancel, and chat switches
	// bump it; stream callbacks carrying a stale seq are dropped, so a
	// cancelled or superseded stream can never mutate later state.
	seq    uint64
	cancel context.CancelFunc

	subs []chan struct{}
}

// New creates a controller over the given stores and endpoint.
func New(chats *store.ChatStore, settings *store.SettingsStore, endpoint Endpoint) *Controller {
	return &Controller{
		chats:    chats,
		settings: settings,
		endpoint: endpoint,
		state:    StateIdle,
	}
}

// Subscribe returns a channel that receives a signal whenever observable
// state changes. Signals are coalesced; a slow receiver sees at least one
// signal for any burst of changes.
func (c *Controller) Subscribe() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan struct{}, 1)
	c.subs = append(c.subs, ch)
	return ch
}

// notify signals all subscribers without blocking.
func (c *Controller) notify() {
	c.mu.Lock()
	subs := c.subs
	c.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// =============================================================================
// STATE READS
// =============================================================================

// State returns the current session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Busy reports whether a completion is in flight.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state != StateIdle
}

// Err returns the error recorded by the last turn, or nil. It is cleared by
// the next submission or chat switch.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// ErrText returns a human-readable description of the last error, or "".
func (c *Controller) ErrText() string {
	return Describe(c.Err())
}

// =============================================================================
// SUBMISSION
// =============================================================================

// Submit sends the trimmed input as a new user turn on the active chat,
// creating a chat if none is active. Blank input is a no-op. Submissions
// while a turn is in flight return ErrBusy.
//
// A missing credential or unknown provider is detected synchronously: the
// user message is not appended, no network traffic happens, and the failure
// is recorded as the session error.
func (c *Controller) Submit(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrBusy
	}

	params := c.settings.Snapshot()
	if err := checkParams(params); err != nil {
		c.lastErr = err
		c.mu.Unlock()
		c.notify()
		return err
	}

	chat := c.chats.ActiveChat()
	if chat == nil {
		created, err := c.chats.CreateChat()
		if err != nil {
			c.lastErr = err
			c.mu.Unlock()
			c.notify()
			return err
		}
		chat = created
	}

	msgs := append(chat.Messages, model.NewUserMessage(text))
	if err := c.chats.ReplaceMessages(chat.ID, msgs); err != nil {
		c.lastErr = err
		c.mu.Unlock()
		c.notify()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.seq++
	seq := c.seq
	c.cancel = cancel
	c.state = StateSubmitted
	c.lastErr = nil
	c.mu.Unlock()

	c.notify()
	go c.run(ctx, seq, chat.ID, params, msgs)
	return nil
}

// checkParams validates generation parameters before any network traffic.
func checkParams(params provider.Params) error {
	info, ok := provider.Lookup(params.Provider)
	if !ok {
		return fmt.Errorf("%w: %q", provider.ErrUnknownProvider, params.Provider)
	}
	if info.RequiresKey && strings.TrimSpace(params.APIKey) == "" {
		return fmt.Errorf("%w for provider %s", provider.ErrNotConfigured, info.Name)
	}
	return nil
}

// run drives one turn: it opens the stream and applies fragments until the
// stream ends, fails, or this turn is superseded.
func (c *Controller) run(ctx context.Context, seq uint64, chatID string, params provider.Params, msgs []*model.Message) {
	events, err := c.endpoint.Stream(ctx, params, toHistory(msgs))
	if err != nil {
		c.finish(seq, chatID, msgs, nil, err)
		return
	}

	var asst *model.Message
	for ev := range events {
		if ev.Err != nil {
			if errors.Is(ev.Err, context.Canceled) {
				// Cancellation is resolved by Cancel itself.
				return
			}
			c.finish(seq, chatID, msgs, asst, ev.Err)
			return
		}

		next, ok := c.applyFragment(seq, chatID, &msgs, asst, ev.Content)
		if !ok {
			return
		}
		asst = next
	}

	c.finish(seq, chatID, msgs, asst, nil)
}

// applyFragment appends one fragment to the open assistant message, opening
// it on the first fragment, and writes the turn through the store. Returns
// ok=false when this turn has been superseded.
func (c *Controller) applyFragment(seq uint64, chatID string, msgs *[]*model.Message, asst *model.Message, fragment string) (*model.Message, bool) {
	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		return nil, false
	}

	if asst == nil {
		asst = model.NewStreamingMessage()
		*msgs = append(*msgs, asst)
		c.state = StateStreaming
	}
	asst.AppendFragment(fragment)
	c.mu.Unlock()

	// Write-through outside the state lock; the store has its own.
	if err := c.chats.ReplaceMessages(chatID, *msgs); err != nil {
		c.finish(seq, chatID, *msgs, asst, err)
		return nil, false
	}

	c.notify()
	return asst, true
}

// finish resolves a turn: the open assistant message (if any) is finalized
// and persisted, state returns to idle, and err (possibly nil) becomes the
// session error. Stale turns are dropped.
func (c *Controller) finish(seq uint64, chatID string, msgs []*model.Message, asst *model.Message, err error) {
	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		return
	}

	if asst != nil {
		asst.Finalize()
	}
	c.state = StateIdle
	c.lastErr = err
	c.cancel = nil
	c.mu.Unlock()

	if asst != nil {
		// Persist the finalized turn. The last fragment already wrote the
		// full content through, so a failure here loses nothing durable.
		if perr := c.chats.ReplaceMessages(chatID, msgs); perr != nil && err == nil {
			c.mu.Lock()
			c.lastErr = perr
			c.mu.Unlock()
		}
	}

	c.notify()
}

// =============================================================================
// CANCELLATION AND NAVIGATION
// =============================================================================

// Cancel stops the in-flight completion, keeping whatever partial content
// already streamed. Cancelling is not an error; the session returns to idle
// with no error recorded. Cancel while idle is a no-op.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if c.state == StateIdle {
		c.mu.Unlock()
		return
	}
	c.cancelTurnLocked()
	c.mu.Unlock()
	c.notify()
}

// cancelTurnLocked supersedes the current turn and returns the session to
// idle. Caller holds mu.
func (c *Controller) cancelTurnLocked() {
	c.seq++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state = StateIdle
	c.lastErr = nil
}

// SetActiveChat switches the active chat, implicitly cancelling any
// in-flight completion first. Partial content streamed so far stays in the
// chat it belongs to.
func (c *Controller) SetActiveChat(id string) error {
	c.mu.Lock()
	c.cancelTurnLocked()
	c.mu.Unlock()

	err := c.chats.SetActive(id)
	c.notify()
	return err
}

// NewChat cancels any in-flight completion and creates a fresh active chat.
func (c *Controller) NewChat() (*model.Chat, error) {
	c.mu.Lock()
	c.cancelTurnLocked()
	c.mu.Unlock()

	chat, err := c.chats.CreateChat()
	c.notify()
	return chat, err
}

// DeleteChat removes a chat, cancelling the in-flight completion when the
// deleted chat is the active one.
func (c *Controller) DeleteChat(id string) error {
	if c.chats.ActiveID() == id {
		c.mu.Lock()
		c.cancelTurnLocked()
		c.mu.Unlock()
	}

	err := c.chats.DeleteChat(id)
	c.notify()
	return err
}

// ClearError drops the recorded session error.
func (c *Controller) ClearError() {
	c.mu.Lock()
	c.lastErr = nil
	c.mu.Unlock()
	c.notify()
}

// =============================================================================
// HELPERS
// =============================================================================

// toHistory converts the turn's messages to the wire history. The system
// prompt is the endpoint's concern and is not part of the chat.
func toHistory(msgs []*model.Message) []provider.ChatMessage {
	history := make([]provider.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, provider.ChatMessage{
			Role:    m.Role.String(),
			Content: m.DisplayContent(),
		})
	}
	return history
}

// Describe maps an error to a short human-readable line for the UI. A nil
// error describes to "".
func Describe(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, provider.ErrNotConfigured) {
		return "No API key configured for this provider. Add one in settings."
	}
	if errors.Is(err, provider.ErrUnknownProvider) {
		return "The selected provider is not available. Pick another in settings."
	}
	if errors.Is(err, provider.ErrInvalidTemperature) {
		return "Temperature must be between 0 and 2."
	}
	if errors.Is(err, ErrBusy) {
		return "A response is already in progress. Press esc to stop it."
	}

	var ep *provider.EndpointError
	if errors.As(err, &ep) {
		switch {
		case ep.Status == http.StatusUnauthorized || ep.Status == http.StatusForbidden:
			return "The provider rejected the API key. Check it in settings."
		case ep.Status == http.StatusTooManyRequests:
			return "Rate limited by the provider. Wait a moment and try again."
		case ep.Status >= 500:
			return "The provider had an internal error. Try again."
		default:
			return ep.Message
		}
	}

	return "Could not reach the provider: " + err.Error()
}
