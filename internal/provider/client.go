// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ChatMessage is one role/content pair in the request history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Params is an immutable snapshot of generation parameters, read once at
// submission time. Changing settings mid-stream affects only the next turn.
type Params struct {
	Provider     string
	Model        string
	Temperature  float64
	SystemPrompt string
	APIKey       string
}

// chatRequest is the wire format of a streaming completion request.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	Stream      bool          `json:"stream"`
}

// errorPayload covers both error shapes seen in the wild: the OpenAI object
// form {"error":{"message":...,"code":...}} and the flat string form
// {"error":"..."} used by simple proxies.
type errorPayload struct {
	Error json.RawMessage `json:"error"`
}

type errorObject struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// =============================================================================
// CLIENT
// =============================================================================

const (
	// maxResponseBody caps error-response reads.
	maxResponseBody = 1 << 20

	// dialTimeout bounds connection setup. Streaming reads themselves are
	// unbounded and controlled by the caller's context.
	dialTimeout = 10 * time.Second
)

// Client streams completions from any registered provider. The zero-value
// http.Client carries no overall timeout: generation time is the endpoint's
// budget, cancellation is the caller's context. Safe for concurrent use:
// the config watcher rewrites base URLs from its own goroutine while
// submissions stream.
type Client struct {
	httpClient *http.Client

	// mu guards baseURLs.
	mu sync.RWMutex

	// baseURLs overrides the registry's base URL per provider; used to
	// point a provider at the nexus proxy or a test server.
	baseURLs map[string]string
}

// NewClient creates a streaming completion client.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        16,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: dialTimeout,
			},
		},
		baseURLs: make(map[string]string),
	}
}

// SetBaseURL overrides the base URL used for a provider.
func (c *Client) SetBaseURL(providerID, baseURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURLs[providerID] = strings.TrimSuffix(baseURL, "/")
}

// resolveBaseURL returns the effective base URL for a provider.
func (c *Client) resolveBaseURL(info Info) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if url, ok := c.baseURLs[info.ID]; ok && url != "" {
		return url
	}
	return info.BaseURL
}

// =============================================================================
// STREAMING
// =============================================================================

// StreamEvent is one event from an in-flight completion stream. Events with
// a non-nil Err terminate the stream; the channel is closed after
// end-of-stream or an error. Content arrives in strict order and is never
// coalesced beyond plain append.
type StreamEvent struct {
	Content string
	Err     error
}

// Stream submits the history with the given parameters and returns a channel
// of fragments.
//
// Precondition failures (unknown provider, missing required credential,
// temperature out of range) are returned synchronously, before any network
// traffic. A non-2xx response read before the first fragment is returned as
// an *EndpointError; transport failures keep their underlying error type.
func (c *Client) Stream(ctx context.Context, params Params, history []ChatMessage) (<-chan StreamEvent, error) {
	info, ok := Lookup(params.Provider)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, params.Provider)
	}
	if info.RequiresKey && strings.TrimSpace(params.APIKey) == "" {
		return nil, fmt.Errorf("%w for provider %s", ErrNotConfigured, info.Name)
	}
	if params.Temperature < 0 || params.Temperature > 2 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemperature, params.Temperature)
	}

	model := params.Model
	if model == "" {
		model = info.DefaultModel
	}

	messages := make([]ChatMessage, 0, len(history)+1)
	if params.SystemPrompt != "" {
		messages = append(messages, ChatMessage{Role: "system", Content: params.SystemPrompt})
	}
	messages = append(messages, history...)

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: params.Temperature,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.resolveBaseURL(info) + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if params.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+params.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		return nil, parseErrorResponse(resp.StatusCode, data)
	}

	events := make(chan StreamEvent, 64)
	go func() {
		defer close(events)
		defer resp.Body.Close()
		c.pumpStream(ctx, resp.Body, events)
	}()

	return events, nil
}

// pumpStream reads SSE events from body and forwards content deltas until
// end-of-stream, error, or context cancellation.
func (c *Client) pumpStream(ctx context.Context, body io.Reader, events chan<- StreamEvent) {
	reader := NewSSEReader(body)

	for {
		select {
		case <-ctx.Done():
			events <- StreamEvent{Err: ctx.Err()}
			return
		default:
		}

		data, err := reader.ReadEvent()
		if err != nil {
			if err == io.EOF {
				return
			}
			// Cancellation races the read; report it as cancellation.
			if ctx.Err() != nil {
				events <- StreamEvent{Err: ctx.Err()}
				return
			}
			events <- StreamEvent{Err: fmt.Errorf("stream read failed: %w", err)}
			return
		}

		if bytes.Equal(data, doneSentinel) {
			return
		}

		var chunk streamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			// Skip malformed chunks rather than aborting the turn.
			continue
		}

		if content := chunk.content(); content != "" {
			select {
			case events <- StreamEvent{Content: content}:
			case <-ctx.Done():
				events <- StreamEvent{Err: ctx.Err()}
				return
			}
		}

		if chunk.done() {
			return
		}
	}
}

// parseErrorResponse maps a non-2xx body to an *EndpointError.
func parseErrorResponse(status int, data []byte) error {
	ep := &EndpointError{Status: status, Message: http.StatusText(status)}

	var payload errorPayload
	if err := json.Unmarshal(data, &payload); err == nil && len(payload.Error) > 0 {
		var obj errorObject
		if err := json.Unmarshal(payload.Error, &obj); err == nil && obj.Message != "" {
			ep.Code = obj.Code
			ep.Message = obj.Message
			return ep
		}
		var msg string
		if err := json.Unmarshal(payload.Error, &msg); err == nil && msg != "" {
			ep.Message = msg
			return ep
		}
	}

	if trimmed := strings.TrimSpace(string(data)); trimmed != "" && len(trimmed) < 512 {
		ep.Message = trimmed
	}
	return ep
}
