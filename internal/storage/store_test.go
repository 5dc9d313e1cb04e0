package storage_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneysaver/internal/core"
	"moneysaver/internal/storage"
	"moneysaver/internal/storage/memory"
)

type failingStore struct{ err error }

func (f failingStore) Read(context.Context, storage.Collection) (json.RawMessage, error) {
	return nil, f.err
}

func (f failingStore) Write(context.Context, storage.Collection, json.RawMessage) error {
	return f.err
}

func TestLedger_EmptyCollections(t *testing.T) {
	ledger := storage.NewLedger(memory.New())
	ctx := context.Background()

	txs, err := ledger.Transactions(ctx)
	require.NoError(t, err)
	assert.NotNil(t, txs)
	assert.Empty(t, txs)

	goals, err := ledger.Goals(ctx)
	require.NoError(t, err)
	assert.Empty(t, goals)

	rules, err := ledger.RecurringRules(ctx)
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestLedger_RoundTripPreservesOrder(t *testing.T) {
	ledger := storage.NewLedger(memory.New())
	ctx := context.Background()
	now := time.Date(2024, 2, 15, 10, 0, 0, 0, time.UTC)

	first := core.NewTransaction(decimal.NewFromInt(100), "Salary", core.Income, "", now)
	second := core.NewTransaction(decimal.RequireFromString("40.25"), "Rent", core.Expense, "", now)
	require.NoError(t, ledger.SaveTransactions(ctx, []core.Transaction{second, first}))

	got, err := ledger.Transactions(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID)
	assert.True(t, got[0].Amount.Equal(second.Amount))
	assert.Equal(t, first.ID, got[1].ID)

	rule := core.NewRecurringRule(first, now)
	require.NoError(t, ledger.SaveRecurringRules(ctx, []core.RecurringRule{rule}))
	rules, err := ledger.RecurringRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, rule.LastGenerated, rules[0].LastGenerated)

	goal := core.NewGoal("Trip", decimal.NewFromInt(500))
	require.NoError(t, ledger.SaveGoals(ctx, []core.Goal{goal}))
	goals, err := ledger.Goals(ctx)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, "Trip", goals[0].Name)
}

func TestLedger_FailuresAreStorageUnavailable(t *testing.T) {
	ledger := storage.NewLedger(failingStore{err: errors.New("disk gone")})
	ctx := context.Background()

	_, err := ledger.Transactions(ctx)
	assert.ErrorIs(t, err, core.ErrStorageUnavailable)

	err = ledger.SaveGoals(ctx, nil)
	assert.ErrorIs(t, err, core.ErrStorageUnavailable)
	assert.Contains(t, err.Error(), "disk gone")
}

func TestLedger_CorruptCollection(t *testing.T) {
	store := memory.New()
	require.NoError(t, store.Write(context.Background(), storage.Goals, json.RawMessage(`{"not":"an array"}`)))

	_, err := storage.NewLedger(store).Goals(context.Background())
	assert.ErrorIs(t, err, core.ErrStorageUnavailable)
}

func TestLedger_MalformedAmountsDecodeAsZero(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	require.NoError(t, store.Write(ctx, storage.Transactions, json.RawMessage(
		`[{"id":"t1","amount":"100","type":"income"},{"id":"t2","amount":"abc","type":"expense"}]`)))
	require.NoError(t, store.Write(ctx, storage.RecurringRules, json.RawMessage(
		`[{"id":"r1","amount":"","type":"expense","dayOfMonth":1}]`)))
	require.NoError(t, store.Write(ctx, storage.Goals, json.RawMessage(
		`[{"id":"g1","name":"Bike","targetAmount":"abc","currentAmount":"12,5"}]`)))
	ledger := storage.NewLedger(store)

	txs, err := ledger.Transactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.True(t, txs[0].Amount.Equal(decimal.NewFromInt(100)))
	assert.True(t, txs[1].Amount.IsZero())

	rules, err := ledger.RecurringRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.True(t, rules[0].Amount.IsZero())
	assert.Equal(t, 1, rules[0].DayOfMonth)

	goals, err := ledger.Goals(ctx)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.True(t, goals[0].TargetAmount.IsZero())
	assert.Equal(t, "12.5", goals[0].CurrentAmount.String())
}

func TestLedger_Clear(t *testing.T) {
	store := memory.New()
	ledger := storage.NewLedger(store)
	ctx := context.Background()
	require.NoError(t, ledger.SaveGoals(ctx, []core.Goal{core.NewGoal("x", decimal.NewFromInt(1))}))

	require.NoError(t, ledger.Clear(ctx))
	goals, err := ledger.Goals(ctx)
	require.NoError(t, err)
	assert.Empty(t, goals)
}

func TestCollection_IsValid(t *testing.T) {
	for _, c := range storage.Collections {
		assert.True(t, c.IsValid(), c.String())
	}
	assert.False(t, storage.Collection("budgets").IsValid())
}
