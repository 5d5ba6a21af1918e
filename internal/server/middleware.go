// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ============================================================================
// RATE LIMITING
// ============================================================================

// ipLimiter is a per-client-IP token bucket. Buckets idle for longer than
// the cleanup window are dropped so the map does not grow without bound.
type ipLimiter struct {
	mu      sync.Mutex
	perMin  int
	buckets map[string]*bucketEntry
}

type bucketEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newIPLimiter creates a limiter allowing perMin requests per minute per
// IP, with bursts of the same size. perMin <= 0 disables limiting.
func newIPLimiter(perMin int) *ipLimiter {
	l := &ipLimiter{
		perMin:  perMin,
		buckets: make(map[string]*bucketEntry),
	}
	if perMin > 0 {
		go l.cleanup()
	}
	return l
}

// Allow reports whether a request from ip may proceed.
func (l *ipLimiter) Allow(ip string) bool {
	if l.perMin <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.buckets[ip]
	if !ok {
		entry = &bucketEntry{
			limiter: rate.NewLimiter(rate.Limit(float64(l.perMin)/60.0), l.perMin),
		}
		l.buckets[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

// cleanup drops buckets idle for more than three minutes.
func (l *ipLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-3 * time.Minute)
		l.mu.Lock()
		for ip, entry := range l.buckets {
			if entry.lastSeen.Before(cutoff) {
				delete(l.buckets, ip)
			}
		}
		l.mu.Unlock()
	}
}

// RateLimitMiddleware rejects requests exceeding the per-IP limit with 429.
func RateLimitMiddleware(limiter *ipLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !limiter.Allow(ip) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "60")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "Rate limit exceeded. Try again shortly.",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the client IP from the connection address. Forwarding
// headers are ignored; the proxy is meant to sit on localhost or behind a
// trusted front.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ============================================================================
// LOGGING
// ============================================================================

// statusWriter captures the response status for logging.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush passes through so SSE streaming keeps working behind the logger.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// LoggingMiddleware logs one line per request.
func LoggingMiddleware(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			logger.Printf("%s %s %d %s", r.Method, r.URL.Path, sw.status, time.Since(start).Round(time.Millisecond))
		})
	}
}

// ============================================================================
// RECOVERY
// ============================================================================

// RecoveryMiddleware converts handler panics into 500 responses.
func RecoveryMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.Printf("panic in handler: %v\n%s", rec, debug.Stack())
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// ============================================================================
// CHAINING
// ============================================================================

// Chain composes middlewares left to right: the first argument is the
// outermost.
func Chain(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		h := final
		for i := len(middlewares) - 1; i >= 0; i-- {
			h = middlewares[i](h)
		}
		return h
	}
}
