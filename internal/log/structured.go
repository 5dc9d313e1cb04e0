package log

import (
	"context"
	"log/slog"
	"net/http"
)

// StructuredLogger emits the fixed-shape records for HTTP traffic, created
// transactions and failures.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
		WithClientIP(clientIP)
	sl.logger.WithComponent(ComponentHTTP).InfoContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// LogHTTPEnd logs at warn for 4xx and error for 5xx.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP)
	sl.logger.WithComponent(ComponentHTTP).Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogTransactionCreated(ctx context.Context, id, typ, category, amount string) {
	fields := NewFields().
		WithTransaction(id, typ, category, amount).
		WithOperation(OpCreate)
	sl.logger.WithComponent(ComponentLedger).InfoContext(ctx, "Transaction created", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component, operation string, fields LogFields) {
	fields = fields.WithError(err).WithOperation(operation)
	sl.logger.WithComponent(component).ErrorContext(ctx, msg, fields.ToSlice()...)
}
