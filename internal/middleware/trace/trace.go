// Package trace assigns request IDs and tracks basic request metrics.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync/atomic"
	"time"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"
)

// Metrics tracks request counters.
type Metrics struct {
	TotalRequests int64
	TotalDuration int64 // microseconds
}

// Middleware tags every request with an ID and records timing.
type Middleware struct {
	metrics Metrics
}

func NewMiddleware() *Middleware {
	return &Middleware{}
}

// Handler wraps next with request ID propagation.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))

		atomic.AddInt64(&m.metrics.TotalRequests, 1)
		atomic.AddInt64(&m.metrics.TotalDuration, time.Since(start).Microseconds())
	})
}

// Snapshot returns the current metric counters.
func (m *Middleware) Snapshot() Metrics {
	return Metrics{
		TotalRequests: atomic.LoadInt64(&m.metrics.TotalRequests),
		TotalDuration: atomic.LoadInt64(&m.metrics.TotalDuration),
	}
}

// RequestIDFromContext returns the request ID, or "" when untagged.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b)
}
