package log

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey struct{}

// NewContext returns ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the request logger, or the process default scoped to
// "unknown" when none was attached.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return logger
	}
	return bind(slog.Default(), "unknown")
}

func scoped(derive func(*http.Request) *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), derive(r))))
		})
	}
}

// Middleware attaches logger to every request context.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return scoped(func(*http.Request) *Logger { return logger })
}

func ComponentMiddleware(component string) func(http.Handler) http.Handler {
	return scoped(func(r *http.Request) *Logger {
		return FromContext(r.Context()).WithComponent(component)
	})
}

// RequestIDMiddleware tags the request logger with the id extracted from r.
func RequestIDMiddleware(extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return scoped(func(r *http.Request) *Logger {
		return FromContext(r.Context()).With(FieldRequestID, extractRequestID(r))
	})
}
