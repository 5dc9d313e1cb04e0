package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneysaver/internal/core"
	"moneysaver/internal/storage"
)

func seed(t *testing.T, store *flakyStore, txs []core.Transaction, rules []core.RecurringRule, goals []core.Goal) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Ledger.SaveTransactions(ctx, txs))
	require.NoError(t, store.Ledger.SaveRecurringRules(ctx, rules))
	require.NoError(t, store.Ledger.SaveGoals(ctx, goals))
}

func TestRefresh_MaterializesAndAggregates(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	pub := &recordingPublisher{}
	seed(t, store,
		[]core.Transaction{tx(core.Income, 100, "Salary", "2024-01-05T00:00:00Z")},
		[]core.RecurringRule{rule("r1", 1, "2024-01-01T00:00:00Z"), rule("r2", 20, "2024-01-20T00:00:00Z"), rule("r3", 2, "2024-01-02T00:00:00Z")},
		[]core.Goal{goal(10, 50)},
	)
	orch := NewRefreshOrchestrator(newTestService(store, pub), nil)
	now := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)

	res, err := orch.Refresh(ctx, now)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Generated)
	assert.False(t, res.Stale)
	require.Len(t, res.Transactions, 3)
	// r3 was materialized after r1, so it sits at the head.
	assert.Equal(t, core.NewTimestamp(now), res.Transactions[0].Date)
	assert.Equal(t, core.NewTimestamp(now), res.Transactions[1].Date)
	assert.Equal(t, "Salary", res.Transactions[2].Category)
	assert.Len(t, res.Goals, 1)
	assert.True(t, decimal.NewFromInt(100).Equal(res.Income))
	assert.True(t, decimal.NewFromInt(200).Equal(res.Expense))
	assert.True(t, decimal.NewFromInt(-100).Equal(res.Balance))

	rules, err := store.Ledger.RecurringRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, "r1", rules[0].ID)
	assert.Equal(t, core.NewTimestamp(now), rules[0].LastGenerated)
	assert.Equal(t, core.Timestamp("2024-01-20T00:00:00Z"), rules[1].LastGenerated)
	assert.Equal(t, core.NewTimestamp(now), rules[2].LastGenerated)

	events := pub.Events()
	require.Len(t, events, 2)
	assert.Equal(t, core.SourceRecurring, events[0].source)
	assert.Equal(t, "r1", events[0].ruleID)
	assert.Equal(t, "r3", events[1].ruleID)

	// A second refresh in the same month generates nothing.
	again, err := orch.Refresh(ctx, now.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, again.Generated)
	assert.Len(t, again.Transactions, 3)
}

func TestRefresh_NothingDueDoesNotWrite(t *testing.T) {
	store := newFlakyStore()
	store.failTxWrites = true
	store.failRuleWrites = true
	seed(t, store, nil, []core.RecurringRule{rule("r1", 20, "2024-01-20T00:00:00Z")}, nil)

	res, err := NewRefreshOrchestrator(newTestService(store, nil), nil).
		Refresh(context.Background(), time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, res.Stale)
	assert.Zero(t, res.Generated)
	assert.NotNil(t, res.Transactions)
	assert.NotNil(t, res.Skipped)
}

func TestRefresh_EmptyStore(t *testing.T) {
	res, err := NewRefreshOrchestrator(newTestService(newFlakyStore(), nil), nil).
		Refresh(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, res.Transactions)
	assert.Empty(t, res.Goals)
	assert.True(t, res.Balance.IsZero())
}

func TestRefresh_WriteFailureReturnsStaleResult(t *testing.T) {
	store := newFlakyStore()
	pub := &recordingPublisher{}
	seed(t, store,
		[]core.Transaction{tx(core.Income, 100, "Salary", "2024-01-05T00:00:00Z")},
		[]core.RecurringRule{rule("r1", 1, "2024-01-01T00:00:00Z")},
		nil,
	)
	store.failTxWrites = true

	res, err := NewRefreshOrchestrator(newTestService(store, pub), nil).
		Refresh(context.Background(), time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStorageUnavailable)

	require.NotNil(t, res)
	assert.True(t, res.Stale)
	assert.Len(t, res.Transactions, 1)
	assert.True(t, decimal.NewFromInt(100).Equal(res.Balance))
	assert.Empty(t, pub.Events())
}

func TestRefresh_RuleWriteFailureIsStale(t *testing.T) {
	store := newFlakyStore()
	seed(t, store, nil, []core.RecurringRule{rule("r1", 1, "2024-01-01T00:00:00Z")}, nil)
	store.failRuleWrites = true
	orch := NewRefreshOrchestrator(newTestService(store, nil), nil)

	res, err := orch.Refresh(context.Background(), time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC))
	assert.ErrorIs(t, err, core.ErrStorageUnavailable)
	require.NotNil(t, res)
	assert.True(t, res.Stale)
	assert.Len(t, res.Transactions, 1)

	// The rule kept its old lastGenerated, so the month is generated again.
	store.mu.Lock()
	store.failRuleWrites = false
	store.mu.Unlock()
	again, err := orch.Refresh(context.Background(), time.Date(2024, 2, 16, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, again.Generated)
	assert.Len(t, again.Transactions, 2)
}

func TestRefresh_RuleReadFailureAborts(t *testing.T) {
	store := newFlakyStore()
	store.failRuleReads = true

	res, err := NewRefreshOrchestrator(newTestService(store, nil), nil).Refresh(context.Background(), time.Now())
	assert.ErrorIs(t, err, core.ErrStorageUnavailable)
	assert.Nil(t, res)
}

func TestRefresh_ZeroNow(t *testing.T) {
	_, err := NewRefreshOrchestrator(newTestService(newFlakyStore(), nil), nil).Refresh(context.Background(), time.Time{})
	assert.ErrorIs(t, err, core.ErrInvalidTimestamp)
}

func TestRefresh_ReportsSkippedRules(t *testing.T) {
	store := newFlakyStore()
	seed(t, store, nil, []core.RecurringRule{rule("bad", 1, "yesterday"), rule("ok", 1, "2024-01-01T00:00:00Z")}, nil)

	res, err := NewRefreshOrchestrator(newTestService(store, nil), nil).
		Refresh(context.Background(), time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Generated)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "bad", res.Skipped[0].RuleID)
}

func TestRefresh_ConcurrentCallsGenerateOnce(t *testing.T) {
	store := newFlakyStore()
	seed(t, store, nil, []core.RecurringRule{rule("r1", 1, "2024-01-01T00:00:00Z")}, nil)
	orch := NewRefreshOrchestrator(newTestService(store, nil), nil)
	now := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := orch.Refresh(context.Background(), now)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	txs, err := store.Ledger.Transactions(context.Background())
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestRefresh_CancelledCallerDoesNotAbortCycle(t *testing.T) {
	store := newFlakyStore()
	seed(t, store, nil, []core.RecurringRule{rule("r1", 1, "2024-01-01T00:00:00Z")}, nil)
	svc := newTestService(store, nil)
	orch := NewRefreshOrchestrator(svc, nil)

	// Hold the ledger lock so the cycle cannot finish before the caller gives up.
	svc.mu.Lock()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := orch.Refresh(ctx, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC))
		errCh <- err
	}()
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)
	svc.mu.Unlock()

	assert.Eventually(t, func() bool {
		txs, err := store.Ledger.Transactions(context.Background())
		return err == nil && len(txs) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestRefresh_SameMonthAcrossZones(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	seed(t, store, nil, []core.RecurringRule{rule("r1", 1, "2024-02-01T12:00:00Z")}, nil)
	rome := time.FixedZone("CET", 60*60)
	orch := NewRefreshOrchestrator(NewLedgerService(store, nil, WithLocation(rome)), nil)

	// 00:30 on March 1st in Rome is still February 29th in UTC.
	first, err := orch.Refresh(ctx, time.Date(2024, 3, 1, 0, 30, 0, 0, rome))
	require.NoError(t, err)
	assert.Equal(t, 1, first.Generated)

	second, err := orch.Refresh(ctx, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, second.Generated)
	assert.Len(t, second.Transactions, 1)
	assert.Equal(t, rome, second.RefreshedAt.Location())
}

func TestRefresh_MalformedAmountsDoNotAbort(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	require.NoError(t, store.raw.Write(ctx, storage.Transactions, json.RawMessage(
		`[{"id":"t1","amount":"100","type":"income","date":"2024-01-05"},{"id":"t2","amount":"abc","type":"expense","date":"2024-01-06"}]`)))
	require.NoError(t, store.raw.Write(ctx, storage.RecurringRules, json.RawMessage(
		`[{"id":"r1","amount":"","type":"expense","dayOfMonth":1,"lastGenerated":"2024-01-01T00:00:00Z"},`+
			`{"id":"r2","amount":"30","type":"expense","dayOfMonth":1,"lastGenerated":"2024-01-01T00:00:00Z"}]`)))
	require.NoError(t, store.raw.Write(ctx, storage.Goals, json.RawMessage(
		`[{"id":"g1","name":"Bike","targetAmount":"300","currentAmount":"abc"}]`)))

	res, err := NewRefreshOrchestrator(newTestService(store, nil), nil).
		Refresh(ctx, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, 2, res.Generated)
	assert.Len(t, res.Transactions, 4)
	require.Len(t, res.Goals, 1)
	assert.True(t, res.Goals[0].CurrentAmount.IsZero())
	assert.True(t, decimal.NewFromInt(100).Equal(res.Income))
	assert.True(t, decimal.NewFromInt(30).Equal(res.Expense))
	assert.True(t, decimal.NewFromInt(70).Equal(res.Balance))
}
