// Package trace assigns request ids and logs the start and end of every
// HTTP request.
package trace

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	applog "moneysaver/internal/log"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"

	// HeaderRequestID is echoed on every response and honoured on requests.
	HeaderRequestID = "X-Request-ID"
)

// Middleware handles request tracing and logging
type Middleware struct {
	extractIP func(*http.Request) string
	logger    *applog.Logger
	requests  atomic.Int64
	totalUs   atomic.Int64
}

// Metrics tracks request metrics
type Metrics struct {
	TotalRequests       int64
	AverageResponseTime int64 // in microseconds
}

// NewMiddleware creates a new trace middleware. A nil logger uses the default.
func NewMiddleware(logger *applog.Logger, extractIP func(*http.Request) string) *Middleware {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	return &Middleware{
		extractIP: extractIP,
		logger:    logger,
	}
}

// Middleware returns HTTP middleware for request tracing. Downstream handlers
// find a request-scoped logger, tagged with the request id, via applog.FromContext.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	scoped := applog.Middleware(m.logger)(
		applog.ComponentMiddleware(applog.ComponentHTTP)(
			applog.RequestIDMiddleware(requestIDFrom)(next)))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" || len(requestID) > 64 {
			requestID = GenerateRequestID()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		r = r.WithContext(ctx)

		sl := applog.NewStructuredLogger(m.logger.With(applog.FieldRequestID, requestID))
		sl.LogHTTPStart(ctx, r, clientIP)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		scoped.ServeHTTP(rw, r)

		duration := time.Since(start)
		m.requests.Add(1)
		m.totalUs.Add(duration.Microseconds())

		sl.LogHTTPEnd(ctx, r, rw.statusCode, duration.Milliseconds(), clientIP)
	})
}

func requestIDFrom(r *http.Request) string {
	return GetRequestID(r.Context())
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	return "req_" + uuid.NewString()
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetMetrics returns current metrics
func (m *Middleware) GetMetrics() Metrics {
	total := m.requests.Load()
	var avg int64
	if total > 0 {
		avg = m.totalUs.Load() / total
	}
	return Metrics{
		TotalRequests:       total,
		AverageResponseTime: avg,
	}
}
