package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRefresher struct {
	mu    sync.Mutex
	calls []time.Time
}

func (r *countingRefresher) Refresh(_ context.Context, now time.Time) (*RefreshResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, now)
	return &RefreshResult{}, nil
}

func (r *countingRefresher) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestDefaultRefreshSchedulerConfig(t *testing.T) {
	config := DefaultRefreshSchedulerConfig()
	assert.Equal(t, time.Hour, config.Interval)
	assert.Equal(t, time.UTC, config.Location)
}

func TestNewRefreshScheduler_FillsDefaults(t *testing.T) {
	s := NewRefreshScheduler(&countingRefresher{}, RefreshSchedulerConfig{})
	assert.Equal(t, time.Hour, s.config.Interval)
	assert.Equal(t, time.UTC, s.config.Location)
	assert.False(t, s.IsRunning())
}

func TestRefreshScheduler_RunsImmediatelyAndOnTick(t *testing.T) {
	r := &countingRefresher{}
	s := NewRefreshScheduler(r, RefreshSchedulerConfig{Interval: 10 * time.Millisecond})

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start(ctx), "second start should fail")

	assert.Eventually(t, func() bool { return r.Calls() >= 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.IsRunning())
	assert.GreaterOrEqual(t, s.Runs(), 2)
}

func TestRefreshScheduler_StopNotRunning(t *testing.T) {
	s := NewRefreshScheduler(&countingRefresher{}, DefaultRefreshSchedulerConfig())
	assert.NoError(t, s.Stop(context.Background()))
}

func TestRefreshScheduler_RunOnceUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	r := &countingRefresher{}
	s := NewRefreshScheduler(r, RefreshSchedulerConfig{Interval: time.Hour, Location: loc})
	s.clock = func() time.Time { return time.Date(2024, 1, 31, 23, 0, 0, 0, time.UTC) }

	s.RunOnce(context.Background())

	require.Equal(t, 1, r.Calls())
	assert.Equal(t, time.February, r.calls[0].Month())
	assert.Equal(t, 1, s.Runs())
}
