// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/nexus-chat/nexus-tui/internal/config"
	"github.com/nexus-chat/nexus-tui/internal/provider"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// MaxMessageCount caps the number of messages in a request.
	MaxMessageCount = 200

	// MaxContentLength caps the length of a single message.
	MaxContentLength = 100000

	// Version is the server version reported by /health.
	Version = "1.0.0"

	// fallbackSystemPrompt is used when a request carries no system prompt.
	fallbackSystemPrompt = "You are a helpful assistant."
)

// validRoles is the set of acceptable message roles.
var validRoles = map[string]bool{
	"user":      true,
	"assistant": true,
	"system":    true,
}

// ============================================================================
// REQUEST TYPES
// ============================================================================

// ChatRequest is the completion request accepted by both endpoints. The
// provider field selects the upstream; when empty the server default is
// used.
type ChatRequest struct {
	Provider     string                 `json:"provider,omitempty"`
	Model        string                 `json:"model,omitempty"`
	Messages     []provider.ChatMessage `json:"messages"`
	Temperature  float64                `json:"temperature,omitempty"`
	SystemPrompt string                 `json:"system_prompt,omitempty"`
	Stream       bool                   `json:"stream"`
}

// streamChunk is one outgoing SSE chunk in the OpenAI wire shape.
type streamChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []chunkChoice `json:"choices"`
}

type chunkChoice struct {
	Index        int        `json:"index"`
	Delta        chunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

type chunkDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// modelEntry is one row of the /v1/models listing.
type modelEntry struct {
	Provider     string `json:"provider"`
	Name         string `json:"name"`
	DefaultModel string `json:"default_model"`
	Configured   bool   `json:"configured"`
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the nexus proxy.
type Server struct {
	cfg      config.ServerConfig
	fallback string // provider used when the request names none
	client   *provider.Client
	mux      *http.ServeMux
	http     *http.Server
	limiter  *ipLimiter

	// keyFromEnv is swappable for tests.
	keyFromEnv func(string) string
}

// New creates a proxy server from the given configuration.
func New(cfg *config.Config) *Server {
	client := provider.NewClient()
	client.SetBaseURL("local", cfg.Provider.LocalURL)
	for id, url := range cfg.Provider.BaseURLs {
		client.SetBaseURL(id, url)
	}

	s := &Server{
		cfg:        cfg.Server,
		fallback:   cfg.Provider.Default,
		client:     client,
		mux:        http.NewServeMux(),
		limiter:    newIPLimiter(cfg.Server.RatePerMinute),
		keyFromEnv: os.Getenv,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("POST /v1/chat/completions", s.handleChat)
	s.mux.HandleFunc("POST /api/chat", s.handleChat)
	s.mux.HandleFunc("GET /v1/models", s.handleModels)
	s.mux.HandleFunc("GET /health", s.handleHealth)
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	return Chain(
		RecoveryMiddleware(),
		LoggingMiddleware(log.Default()),
		RateLimitMiddleware(s.limiter),
	)(s.mux)
}

// ListenAndServe runs the server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.http = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// ============================================================================
// CHAT HANDLER
// ============================================================================

// handleChat proxies a completion request to the selected upstream,
// re-emitting its stream as OpenAI-compatible SSE chunks.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Request body exceeds maximum size of %d bytes", s.cfg.MaxBodyBytes))
			return
		}
		log.Printf("invalid request body: %v", err)
		s.writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	if code, msg := validateRequest(&req); code != 0 {
		s.writeError(w, code, msg)
		return
	}

	providerID := req.Provider
	if providerID == "" {
		providerID = s.fallback
	}
	info, ok := provider.Lookup(providerID)
	if !ok {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown provider %q", providerID))
		return
	}

	// The credential comes from the server's environment; a request never
	// carries one.
	var apiKey string
	if info.RequiresKey {
		apiKey = s.keyFromEnv(info.KeyEnv)
		if apiKey == "" {
			log.Printf("missing credential: provider=%s env=%s", info.ID, info.KeyEnv)
			s.writeError(w, http.StatusInternalServerError,
				"Server configuration error: API key not configured.")
			return
		}
	}

	// Requests without a system prompt still get one; bare histories
	// otherwise reach the upstream with no system message at all.
	systemPrompt := req.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = fallbackSystemPrompt
	}

	params := provider.Params{
		Provider:     info.ID,
		Model:        req.Model,
		Temperature:  req.Temperature,
		SystemPrompt: systemPrompt,
		APIKey:       apiKey,
	}

	events, err := s.client.Stream(r.Context(), params, req.Messages)
	if err != nil {
		var ep *provider.EndpointError
		if errors.As(err, &ep) {
			s.writeError(w, ep.Status, ep.Message)
			return
		}
		log.Printf("upstream request failed: provider=%s error=%v", info.ID, err)
		s.writeError(w, http.StatusBadGateway, "Upstream provider is unreachable.")
		return
	}

	s.relayStream(w, req, info, events)
}

// relayStream forwards upstream events to the client as SSE chunks.
func (s *Server) relayStream(w http.ResponseWriter, req ChatRequest, info provider.Info, events <-chan provider.StreamEvent) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	responseID := generateResponseID()
	created := time.Now().Unix()
	model := req.Model
	if model == "" {
		model = info.DefaultModel
	}

	// Initial role chunk.
	s.sendChunk(w, flusher, streamChunk{
		ID: responseID, Object: "chat.completion.chunk", Created: created, Model: model,
		Choices: []chunkChoice{{Delta: chunkDelta{Role: "assistant"}}},
	})

	var streamErr error
	for ev := range events {
		if ev.Err != nil {
			log.Printf("stream error: provider=%s error=%v", info.ID, ev.Err)
			streamErr = ev.Err
			break
		}
		if ev.Content == "" {
			continue
		}
		s.sendChunk(w, flusher, streamChunk{
			ID: responseID, Object: "chat.completion.chunk", Created: created, Model: model,
			Choices: []chunkChoice{{Delta: chunkDelta{Content: ev.Content}}},
		})
	}

	// Headers are gone by now, so a mid-stream failure travels in-band: an
	// error event plus finish_reason "error" marks the reply as truncated.
	finish := "stop"
	if streamErr != nil {
		fmt.Fprint(w, `data: {"error":{"message":"Upstream stream failed before completion."}}`+"\n\n")
		finish = "error"
	}
	s.sendChunk(w, flusher, streamChunk{
		ID: responseID, Object: "chat.completion.chunk", Created: created, Model: model,
		Choices: []chunkChoice{{FinishReason: &finish}},
	})
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// validateRequest checks request shape; returns a status code and message
// on failure, or 0 when valid.
func validateRequest(req *ChatRequest) (int, string) {
	if len(req.Messages) == 0 {
		return http.StatusBadRequest, "Request must contain at least one message"
	}
	if len(req.Messages) > MaxMessageCount {
		return http.StatusBadRequest, fmt.Sprintf("Too many messages: maximum is %d", MaxMessageCount)
	}
	for i, msg := range req.Messages {
		if !validRoles[msg.Role] {
			return http.StatusBadRequest,
				fmt.Sprintf("Invalid role %q at message %d: must be user, assistant, or system", msg.Role, i)
		}
		if len(msg.Content) > MaxContentLength {
			return http.StatusBadRequest,
				fmt.Sprintf("Message %d exceeds maximum length of %d", i, MaxContentLength)
		}
	}
	if req.Temperature < 0 || req.Temperature > 2 {
		return http.StatusBadRequest, "temperature must be between 0.0 and 2.0"
	}
	return 0, ""
}

// ============================================================================
// MODELS AND HEALTH
// ============================================================================

// handleModels lists the registered providers and whether each has a
// credential available.
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	entries := make([]modelEntry, 0, len(provider.IDs()))
	for _, id := range provider.IDs() {
		info, _ := provider.Lookup(id)
		entries = append(entries, modelEntry{
			Provider:     info.ID,
			Name:         info.Name,
			DefaultModel: info.DefaultModel,
			Configured:   !info.RequiresKey || s.keyFromEnv(info.KeyEnv) != "",
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"data": entries})
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": Version,
	})
}

// ============================================================================
// RESPONSE HELPERS
// ============================================================================

// writeJSON writes a JSON response with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

// writeError writes the flat {"error": "..."} error shape.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// sendChunk writes one SSE chunk and flushes it.
func (s *Server) sendChunk(w http.ResponseWriter, flusher http.Flusher, chunk streamChunk) {
	data, err := json.Marshal(chunk)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

// generateResponseID returns a unique completion ID.
func generateResponseID() string {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("chatcmpl-%d", time.Now().UnixNano())
	}
	return "chatcmpl-" + hex.EncodeToString(buf)
}
