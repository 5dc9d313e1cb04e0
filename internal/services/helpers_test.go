package services

import (
	"context"
	"errors"
	"sync"

	"moneysaver/internal/core"
	"moneysaver/internal/storage"
	"moneysaver/internal/storage/memory"
)

var errDiskFull = errors.New("disk full")

// flakyStore wraps a real ledger and fails selected writes.
type flakyStore struct {
	*storage.Ledger
	raw *memory.Store

	mu             sync.Mutex
	failTxWrites   bool
	failRuleWrites bool
	failRuleReads  bool
	ruleReads      int
}

func newFlakyStore() *flakyStore {
	raw := memory.New()
	return &flakyStore{Ledger: storage.NewLedger(raw), raw: raw}
}

func (s *flakyStore) SaveTransactions(ctx context.Context, txs []core.Transaction) error {
	s.mu.Lock()
	fail := s.failTxWrites
	s.mu.Unlock()
	if fail {
		return errors.Join(core.ErrStorageUnavailable, errDiskFull)
	}
	return s.Ledger.SaveTransactions(ctx, txs)
}

func (s *flakyStore) SaveRecurringRules(ctx context.Context, rules []core.RecurringRule) error {
	s.mu.Lock()
	fail := s.failRuleWrites
	s.mu.Unlock()
	if fail {
		return errors.Join(core.ErrStorageUnavailable, errDiskFull)
	}
	return s.Ledger.SaveRecurringRules(ctx, rules)
}

func (s *flakyStore) RecurringRules(ctx context.Context) ([]core.RecurringRule, error) {
	s.mu.Lock()
	s.ruleReads++
	fail := s.failRuleReads
	s.mu.Unlock()
	if fail {
		return nil, errors.Join(core.ErrStorageUnavailable, errDiskFull)
	}
	return s.Ledger.RecurringRules(ctx)
}

type publishedEvent struct {
	tx     core.Transaction
	source core.TransactionSource
	ruleID string
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) PublishTransactionCreated(_ context.Context, tx core.Transaction, source core.TransactionSource, ruleID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{tx: tx, source: source, ruleID: ruleID})
	return p.err
}

func (p *recordingPublisher) Events() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}
