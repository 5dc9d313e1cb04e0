// Package storage persists the ledger collections. Every collection is stored as
// a whole JSON array and is only ever read or overwritten in full.
package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"moneysaver/internal/core"
)

// Collection names a persisted record collection.
type Collection string

const (
	Transactions   Collection = "transactions"
	Goals          Collection = "goals"
	RecurringRules Collection = "recurringRules"
)

// Collections lists every collection the ledger owns.
var Collections = []Collection{Transactions, Goals, RecurringRules}

func (c Collection) String() string {
	return string(c)
}

// IsValid reports whether c is one of the ledger collections.
func (c Collection) IsValid() bool {
	switch c {
	case Transactions, Goals, RecurringRules:
		return true
	default:
		return false
	}
}

// CollectionStore is the whole-collection persistence contract.
type CollectionStore interface {
	// Read returns the stored JSON array, or nil when the collection was never written.
	Read(ctx context.Context, c Collection) (json.RawMessage, error)
	// Write overwrites the collection with payload.
	Write(ctx context.Context, c Collection, payload json.RawMessage) error
}

// Ledger is a typed view over a CollectionStore. All failures are reported as
// core.ErrStorageUnavailable.
type Ledger struct {
	store CollectionStore
}

func NewLedger(store CollectionStore) *Ledger {
	return &Ledger{store: store}
}

func (l *Ledger) Transactions(ctx context.Context) ([]core.Transaction, error) {
	return readCollection[core.Transaction](ctx, l.store, Transactions)
}

func (l *Ledger) SaveTransactions(ctx context.Context, txs []core.Transaction) error {
	return writeCollection(ctx, l.store, Transactions, txs)
}

func (l *Ledger) Goals(ctx context.Context) ([]core.Goal, error) {
	return readCollection[core.Goal](ctx, l.store, Goals)
}

func (l *Ledger) SaveGoals(ctx context.Context, goals []core.Goal) error {
	return writeCollection(ctx, l.store, Goals, goals)
}

func (l *Ledger) RecurringRules(ctx context.Context) ([]core.RecurringRule, error) {
	return readCollection[core.RecurringRule](ctx, l.store, RecurringRules)
}

func (l *Ledger) SaveRecurringRules(ctx context.Context, rules []core.RecurringRule) error {
	return writeCollection(ctx, l.store, RecurringRules, rules)
}

// Clear overwrites every collection with an empty array.
func (l *Ledger) Clear(ctx context.Context) error {
	for _, c := range Collections {
		if err := l.store.Write(ctx, c, json.RawMessage("[]")); err != nil {
			return fmt.Errorf("%w: clear %s: %w", core.ErrStorageUnavailable, c, err)
		}
	}
	return nil
}

func readCollection[T any](ctx context.Context, s CollectionStore, c Collection) ([]T, error) {
	raw, err := s.Read(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", core.ErrStorageUnavailable, c, err)
	}
	out := []T{}
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", core.ErrStorageUnavailable, c, err)
	}
	return out, nil
}

func writeCollection[T any](ctx context.Context, s CollectionStore, c Collection, records []T) error {
	if records == nil {
		records = []T{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", core.ErrStorageUnavailable, c, err)
	}
	if err := s.Write(ctx, c, payload); err != nil {
		return fmt.Errorf("%w: write %s: %w", core.ErrStorageUnavailable, c, err)
	}
	return nil
}
