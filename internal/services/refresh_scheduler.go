package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Refresher runs one refresh cycle. RefreshOrchestrator implements it.
type Refresher interface {
	Refresh(ctx context.Context, now time.Time) (*RefreshResult, error)
}

// RefreshSchedulerConfig holds configuration for the refresh scheduler
type RefreshSchedulerConfig struct {
	// Interval is how often a refresh cycle runs (default: 1h)
	Interval time.Duration

	// Location is the timezone the month boundaries are evaluated in (default: UTC)
	Location *time.Location
}

// DefaultRefreshSchedulerConfig returns sensible defaults
func DefaultRefreshSchedulerConfig() RefreshSchedulerConfig {
	return RefreshSchedulerConfig{
		Interval: 1 * time.Hour,
		Location: time.UTC,
	}
}

// RefreshScheduler triggers refresh cycles on a ticker, the unattended
// counterpart of a client refreshing whenever it comes to the foreground.
type RefreshScheduler struct {
	refresher Refresher
	config    RefreshSchedulerConfig
	clock     func() time.Time

	// Lifecycle management
	mu      sync.Mutex
	running bool
	runs    int
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewRefreshScheduler(refresher Refresher, config RefreshSchedulerConfig) *RefreshScheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultRefreshSchedulerConfig().Interval
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	return &RefreshScheduler{
		refresher: refresher,
		config:    config,
		clock:     time.Now,
	}
}

// Start begins the refresh loop. Returns an error if already running.
func (s *RefreshScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("refresh scheduler is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(ctx)

	slog.InfoContext(ctx, "Refresh scheduler started",
		"interval", s.config.Interval,
		"timezone", s.config.Location.String())

	return nil
}

// Stop gracefully stops the scheduler and waits for the current cycle.
func (s *RefreshScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	close(s.stopCh)

	select {
	case <-s.doneCh:
		slog.InfoContext(ctx, "Refresh scheduler stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Refresh scheduler stop timed out")
		return ctx.Err()
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	return nil
}

// IsRunning returns whether the scheduler is currently running
func (s *RefreshScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Runs returns how many cycles have been attempted.
func (s *RefreshScheduler) Runs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

func (s *RefreshScheduler) runLoop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Refresh immediately on startup
	s.RunOnce(ctx)

	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single refresh cycle at the current time.
func (s *RefreshScheduler) RunOnce(ctx context.Context) {
	s.mu.Lock()
	s.runs++
	s.mu.Unlock()

	now := s.clock().In(s.config.Location)
	res, err := s.refresher.Refresh(ctx, now)
	if err != nil {
		if res != nil && res.Stale {
			slog.WarnContext(ctx, "Refresh completed with stale data", "error", err)
			return
		}
		slog.ErrorContext(ctx, "Refresh failed", "error", err)
		return
	}
	if res.Generated > 0 {
		slog.InfoContext(ctx, "Recurring transactions materialized", "count", res.Generated)
	}
}
