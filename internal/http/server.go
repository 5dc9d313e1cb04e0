// Package http exposes the ledger over a JSON API.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"moneysaver/internal/core"
	applog "moneysaver/internal/log"
	"moneysaver/internal/middleware/ratelimit"
	"moneysaver/internal/middleware/security"
	"moneysaver/internal/middleware/trace"
	"moneysaver/internal/services"
)

// Ledger is the subset of services.LedgerService the handlers call.
type Ledger interface {
	CreateTransaction(ctx context.Context, draft core.TransactionDraft) (core.Transaction, error)
	CreateGoal(ctx context.Context, name string, target string) (core.Goal, error)
	ApplyGoalTransaction(ctx context.Context, goalID string, action core.GoalAction, amount string) (core.Goal, error)
	Transactions(ctx context.Context) ([]core.Transaction, error)
	Goals(ctx context.Context) ([]core.Goal, error)
	RecurringRules(ctx context.Context) ([]core.RecurringRule, error)
	MonthOverview(ctx context.Context, year, month int, loc *time.Location) (core.MonthOverview, error)
}

// Refresher runs a refresh cycle.
type Refresher interface {
	Refresh(ctx context.Context, now time.Time) (*services.RefreshResult, error)
}

var _ Refresher = (*services.RefreshOrchestrator)(nil)

// Options configures optional server behaviour.
type Options struct {
	// RateLimitPerMinute bounds mutating requests per client IP. Zero uses the limiter default.
	RateLimitPerMinute int
	// Location is used for month boundaries in statistics. Nil means UTC.
	Location *time.Location
	// Ready reports backend readiness for /readyz. Nil means always ready.
	Ready func(ctx context.Context) error
	// Clock stamps refreshes that carry no explicit time. Nil means time.Now.
	Clock  func() time.Time
	Logger *applog.Logger
}

type Server struct {
	http.Server
	ledger    Ledger
	refresher Refresher
	opts      Options

	detector    *security.Detector
	rateLimiter *ratelimit.Limiter
	tracer      *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(addr string, ledger Ledger, refresher Refresher, opts Options) *Server {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Ready == nil {
		opts.Ready = func(context.Context) error { return nil }
	}

	s := &Server{
		ledger:      ledger,
		refresher:   refresher,
		opts:        opts,
		detector:    security.NewDetector(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
	}
	s.tracer = trace.NewMiddleware(opts.Logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/refresh", s.limited(s.handleRefresh))
	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.limited(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/recurring", s.handleListRecurring)
	mux.HandleFunc("GET /api/goals", s.handleListGoals)
	mux.HandleFunc("POST /api/goals", s.limited(s.handleCreateGoal))
	mux.HandleFunc("POST /api/goals/{id}/{action}", s.limited(s.handleGoalTransaction))
	mux.HandleFunc("GET /api/statistics", s.handleStatistics)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(s.detector.Middleware(headers.Middleware(mux))),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// limited applies per-IP rate limiting. Only mutating routes are limited.
func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	mw := s.rateLimiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		slog.WarnContext(r.Context(), "Rate limit exceeded",
			"client_ip", s.detector.ExtractClientIP(r), "method", r.Method, "path", r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
	})
	return mw(next).ServeHTTP
}

// Shutdown gracefully shuts down the server and the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics returns request counters for diagnostics.
func (s *Server) Metrics() map[string]int64 {
	t := s.tracer.GetMetrics()
	rl := s.rateLimiter.GetMetrics()
	return map[string]int64{
		"requests_total":       t.TotalRequests,
		"avg_response_time_us": t.AverageResponseTime,
		"rate_limited_total":   rl.Rejected,
		"rate_limit_clients":   rl.ClientCount,
		"suspicious_requests":  s.detector.GetMetrics().SuspiciousRequests,
	}
}
