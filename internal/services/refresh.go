package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/singleflight"

	"moneysaver/internal/core"
)

// RefreshResult is what the UI renders after a refresh cycle.
type RefreshResult struct {
	Transactions []core.Transaction `json:"transactions"`
	Goals        []core.Goal        `json:"goals"`
	core.Totals
	Generated   int           `json:"generated"`
	Skipped     []SkippedRule `json:"skipped"`
	Stale       bool          `json:"stale"`
	RefreshedAt time.Time     `json:"refreshedAt"`
}

// RefreshOrchestrator runs the refresh cycle: materialize due recurring rules,
// persist them, then read back and aggregate the ledger.
type RefreshOrchestrator struct {
	ledger *LedgerService
	engine *RecurringEngine
	group  singleflight.Group
}

func NewRefreshOrchestrator(ledger *LedgerService, engine *RecurringEngine) *RefreshOrchestrator {
	if engine == nil {
		engine = NewRecurringEngine(nil)
	}
	return &RefreshOrchestrator{ledger: ledger, engine: engine}
}

// Refresh runs one cycle at now, read in the ledger's location so that every
// entry point agrees on the calendar month. Calls that overlap an in-flight cycle share its
// result. The cycle itself is not cancelled with ctx; a cancelled caller only
// stops waiting for it.
//
// When persisting generated records fails, the result is still returned, marked
// Stale, together with an error wrapping core.ErrStorageUnavailable.
func (o *RefreshOrchestrator) Refresh(ctx context.Context, now time.Time) (*RefreshResult, error) {
	if now.IsZero() {
		return nil, fmt.Errorf("%w: zero refresh time", core.ErrInvalidTimestamp)
	}
	now = now.In(o.ledger.loc)

	detached := context.WithoutCancel(ctx)
	ch := o.group.DoChan("refresh", func() (any, error) {
		res, err := o.run(detached, now)
		return cycleOutcome{result: res, err: err}, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		out := r.Val.(cycleOutcome)
		if r.Shared {
			slog.DebugContext(ctx, "Joined in-flight refresh")
		}
		return out.result, out.err
	}
}

// cycleOutcome carries a result and a partial-failure error through singleflight,
// which otherwise drops the value when err is non-nil.
type cycleOutcome struct {
	result *RefreshResult
	err    error
}

func (o *RefreshOrchestrator) run(ctx context.Context, now time.Time) (*RefreshResult, error) {
	start := time.Now()
	store := o.ledger.store

	o.ledger.mu.Lock()
	rules, err := store.RecurringRules(ctx)
	if err != nil {
		o.ledger.mu.Unlock()
		return nil, fmt.Errorf("refresh: %w", err)
	}

	m, err := o.engine.Materialize(now, rules)
	if err != nil {
		o.ledger.mu.Unlock()
		return nil, fmt.Errorf("refresh: %w", err)
	}
	for _, sk := range m.Skipped {
		slog.WarnContext(ctx, "Skipping recurring rule", "rule_id", sk.RuleID, "error", sk.Err)
	}

	var writeErr error
	if len(m.NewTransactions) > 0 {
		writeErr = o.persist(ctx, m)
	}

	txs, txErr := store.Transactions(ctx)
	goals, goalErr := store.Goals(ctx)
	o.ledger.mu.Unlock()

	if err := errors.Join(txErr, goalErr); err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}

	if len(m.NewTransactions) > 0 && writeErr == nil {
		for _, tx := range m.NewTransactions {
			o.ledger.publish(ctx, tx, core.SourceRecurring, m.RuleFor(tx.ID))
		}
	}

	res := &RefreshResult{
		Transactions: txs,
		Goals:        goals,
		Totals:       Aggregate(txs),
		Generated:    len(m.NewTransactions),
		Skipped:      m.Skipped,
		Stale:        writeErr != nil,
		RefreshedAt:  now,
	}
	if res.Skipped == nil {
		res.Skipped = []SkippedRule{}
	}

	slog.InfoContext(ctx, "Refresh completed",
		"generated", res.Generated,
		"skipped", len(res.Skipped),
		"transactions", len(txs),
		"goals", len(goals),
		"stale", res.Stale,
		"duration", time.Since(start))

	if writeErr != nil {
		return res, fmt.Errorf("refresh: %w", writeErr)
	}
	return res, nil
}

// persist writes generated transactions first, then the rules that produced
// them. Rules are re-read so that only the changed ones are replaced by id.
// Callers hold the ledger lock.
func (o *RefreshOrchestrator) persist(ctx context.Context, m Materialization) error {
	store := o.ledger.store

	// Each generated transaction goes to the head, so the last rule ends up first.
	fresh := slices.Clone(m.NewTransactions)
	slices.Reverse(fresh)
	if err := o.ledger.prependTransactions(ctx, fresh); err != nil {
		slog.ErrorContext(ctx, "Failed to persist generated transactions", "count", len(fresh), "error", err)
		return err
	}

	current, err := store.RecurringRules(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to re-read recurring rules", "error", err)
		return err
	}
	changed := make(map[string]core.RecurringRule, len(m.changed))
	for _, r := range m.ChangedRules() {
		changed[r.ID] = r
	}
	for i, r := range current {
		if u, ok := changed[r.ID]; ok {
			current[i] = u
		}
	}
	if err := store.SaveRecurringRules(ctx, current); err != nil {
		slog.ErrorContext(ctx, "Failed to persist recurring rules", "count", len(changed), "error", err)
		return err
	}

	for _, tx := range m.NewTransactions {
		slog.InfoContext(ctx, "Materialized recurring transaction", "rule_id", m.RuleFor(tx.ID), "id", tx.ID)
	}
	return nil
}
