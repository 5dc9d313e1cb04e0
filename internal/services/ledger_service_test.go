package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneysaver/internal/core"
)

var fixedNow = time.Date(2024, 3, 14, 15, 9, 26, 0, time.UTC)

func newTestService(store LedgerStore, pub EventPublisher) *LedgerService {
	return NewLedgerService(store, pub, WithClock(func() time.Time { return fixedNow }))
}

func TestLedgerService_CreateTransaction(t *testing.T) {
	ctx := context.Background()
	store := newFlakyStore()
	pub := &recordingPublisher{}
	svc := newTestService(store, pub)

	first, err := svc.CreateTransaction(ctx, core.TransactionDraft{Amount: "12,50", Type: core.Expense, Note: " lunch "})
	require.NoError(t, err)
	second, err := svc.CreateTransaction(ctx, core.TransactionDraft{Amount: "1000", Category: "Salary", Type: core.Income})
	require.NoError(t, err)

	assert.Equal(t, core.DefaultCategory, first.Category)
	assert.Equal(t, "lunch", first.Note)
	assert.Equal(t, "12.5", first.Amount.String())
	assert.Equal(t, core.NewTimestamp(fixedNow), first.Date)

	txs, err := svc.Transactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, second.ID, txs[0].ID, "newest first")
	assert.Equal(t, first.ID, txs[1].ID)

	events := pub.Events()
	require.Len(t, events, 2)
	assert.Equal(t, core.SourceManual, events[0].source)
	assert.Empty(t, events[0].ruleID)

	rules, err := svc.RecurringRules(ctx)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestLedgerService_CreateTransaction_Validation(t *testing.T) {
	svc := newTestService(newFlakyStore(), nil)

	tests := []struct {
		name  string
		draft core.TransactionDraft
		want  error
	}{
		{"missing amount", core.TransactionDraft{Type: core.Expense}, core.ErrInvalidAmount},
		{"zero amount", core.TransactionDraft{Amount: "0", Type: core.Expense}, core.ErrInvalidAmount},
		{"non numeric", core.TransactionDraft{Amount: "ten", Type: core.Income}, core.ErrInvalidAmount},
		{"bad type", core.TransactionDraft{Amount: "5", Type: "gift"}, core.ErrInvalidType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTransaction(context.Background(), tt.draft)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLedgerService_CreateTransaction_Recurring(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFlakyStore(), nil)

	tx, err := svc.CreateTransaction(ctx, core.TransactionDraft{Amount: "700", Category: "Rent", Type: core.Expense, Note: "Flat", Recurring: true})
	require.NoError(t, err)

	rules, err := svc.RecurringRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)

	r := rules[0]
	assert.Regexp(t, `^rec_`, r.ID)
	assert.Equal(t, 14, r.DayOfMonth)
	assert.Equal(t, core.NewTimestamp(fixedNow), r.LastGenerated)
	assert.True(t, tx.Amount.Equal(r.Amount))
	assert.Equal(t, tx.Category, r.Category)
	assert.Equal(t, tx.Note, r.Note)

	// The originating transaction is not duplicated by a same-month refresh.
	res, err := NewRefreshOrchestrator(svc, nil).Refresh(ctx, fixedNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, res.Generated)
	assert.Len(t, res.Transactions, 1)
}

func TestLedgerService_CreateTransaction_StorageFailure(t *testing.T) {
	store := newFlakyStore()
	store.failTxWrites = true
	pub := &recordingPublisher{}
	svc := newTestService(store, pub)

	_, err := svc.CreateTransaction(context.Background(), core.TransactionDraft{Amount: "5", Type: core.Expense})
	assert.ErrorIs(t, err, core.ErrStorageUnavailable)
	assert.Empty(t, pub.Events())
}

func TestLedgerService_PublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := newTestService(newFlakyStore(), pub)

	_, err := svc.CreateTransaction(ctx, core.TransactionDraft{Amount: "5", Type: core.Expense})
	require.NoError(t, err)

	txs, err := svc.Transactions(ctx)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestLedgerService_Goals(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFlakyStore(), nil)

	g, err := svc.CreateGoal(ctx, "Holiday", "100")
	require.NoError(t, err)
	assert.True(t, g.CurrentAmount.IsZero())

	_, err = svc.CreateGoal(ctx, "  ", "100")
	assert.ErrorIs(t, err, core.ErrEmptyName)
	_, err = svc.CreateGoal(ctx, "Car", "-1")
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	g, err = svc.ApplyGoalTransaction(ctx, g.ID, core.Deposit, "80")
	require.NoError(t, err)
	assert.Equal(t, "80", g.CurrentAmount.String())

	g, err = svc.ApplyGoalTransaction(ctx, g.ID, core.Deposit, "50")
	require.NoError(t, err)
	assert.Equal(t, "100", g.CurrentAmount.String())

	g, err = svc.ApplyGoalTransaction(ctx, g.ID, core.Withdraw, "170")
	require.NoError(t, err)
	assert.True(t, g.CurrentAmount.IsZero())

	_, err = svc.ApplyGoalTransaction(ctx, g.ID, core.Deposit, "abc")
	assert.ErrorIs(t, err, core.ErrRejected)
	_, err = svc.ApplyGoalTransaction(ctx, g.ID, core.Deposit, "")
	assert.ErrorIs(t, err, core.ErrRejected)
	_, err = svc.ApplyGoalTransaction(ctx, "missing", core.Deposit, "5")
	assert.ErrorIs(t, err, core.ErrGoalNotFound)

	goals, err := svc.Goals(ctx)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.True(t, goals[0].CurrentAmount.IsZero())
}

func TestLedgerService_GoalsAppendOrder(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFlakyStore(), nil)

	a, err := svc.CreateGoal(ctx, "A", "10")
	require.NoError(t, err)
	b, err := svc.CreateGoal(ctx, "B", "10")
	require.NoError(t, err)

	goals, err := svc.Goals(ctx)
	require.NoError(t, err)
	require.Len(t, goals, 2)
	assert.Equal(t, a.ID, goals[0].ID)
	assert.Equal(t, b.ID, goals[1].ID)
}

func TestLedgerService_MonthOverview(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newFlakyStore(), nil)

	_, err := svc.CreateTransaction(ctx, core.TransactionDraft{Amount: "100", Type: core.Income, Category: "Salary"})
	require.NoError(t, err)
	_, err = svc.CreateTransaction(ctx, core.TransactionDraft{Amount: "40", Type: core.Expense, Category: "Groceries"})
	require.NoError(t, err)

	ov, err := svc.MonthOverview(ctx, 2024, 3, time.UTC)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(60).Equal(ov.Totals.Balance))
	assert.Equal(t, 2, ov.Count)

	_, err = svc.MonthOverview(ctx, 2024, 13, time.UTC)
	assert.ErrorIs(t, err, core.ErrRejected)
}

func TestParseGoalAction(t *testing.T) {
	a, err := ParseGoalAction(" Deposit ")
	require.NoError(t, err)
	assert.Equal(t, core.Deposit, a)

	_, err = ParseGoalAction("steal")
	assert.ErrorIs(t, err, core.ErrRejected)
}

func TestLedgerService_RecurringDayUsesLocation(t *testing.T) {
	zone := time.FixedZone("AEST", 10*60*60)
	svc := NewLedgerService(newFlakyStore(), nil,
		WithClock(func() time.Time { return fixedNow }), WithLocation(zone))

	r, err := svc.CreateRecurringRule(context.Background(), core.Transaction{
		ID: "t1", Amount: decimal.NewFromInt(5), Category: "Rent", Type: core.Expense,
	})
	require.NoError(t, err)
	// 15:09 UTC on the 14th is already the 15th in zone.
	assert.Equal(t, 15, r.DayOfMonth)
	assert.Equal(t, core.NewTimestamp(fixedNow), r.LastGenerated)
}
