package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"moneysaver/internal/core"
)

// LedgerStore is the typed whole-collection store the services work against.
// storage.Ledger implements it.
type LedgerStore interface {
	Transactions(ctx context.Context) ([]core.Transaction, error)
	SaveTransactions(ctx context.Context, txs []core.Transaction) error
	Goals(ctx context.Context) ([]core.Goal, error)
	SaveGoals(ctx context.Context, goals []core.Goal) error
	RecurringRules(ctx context.Context) ([]core.RecurringRule, error)
	SaveRecurringRules(ctx context.Context, rules []core.RecurringRule) error
}

// EventPublisher announces created transactions to downstream consumers.
type EventPublisher interface {
	PublishTransactionCreated(ctx context.Context, tx core.Transaction, source core.TransactionSource, ruleID string) error
}

// LedgerService owns the read-modify-write entry points of the ledger. Every
// mutation holds mu so that two writers in one process never interleave their
// whole-collection overwrites.
type LedgerService struct {
	store     LedgerStore
	publisher EventPublisher
	clock     func() time.Time
	loc       *time.Location

	mu sync.Mutex
}

type LedgerOption func(*LedgerService)

// WithClock overrides the time source used to stamp new records.
func WithClock(clock func() time.Time) LedgerOption {
	return func(s *LedgerService) {
		s.clock = clock
	}
}

// WithLocation sets the time zone that decides calendar months: the day of a new
// recurring rule and the month a refresh runs in. The default is UTC.
func WithLocation(loc *time.Location) LedgerOption {
	return func(s *LedgerService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// NewLedgerService builds the service. publisher may be nil, in which case
// events are skipped.
func NewLedgerService(store LedgerStore, publisher EventPublisher, opts ...LedgerOption) *LedgerService {
	s := &LedgerService{
		store:     store,
		publisher: publisher,
		clock:     time.Now,
		loc:       time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTransaction validates the draft, stores the transaction at the head of
// the collection and publishes it. A draft marked recurring also gets a rule.
func (s *LedgerService) CreateTransaction(ctx context.Context, draft core.TransactionDraft) (core.Transaction, error) {
	if err := draft.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}
	amount, _ := core.ParseAmount(draft.Amount)
	now := s.now()
	tx := core.NewTransaction(amount, draft.Category, draft.Type, draft.Note, now)

	s.mu.Lock()
	err := s.prependTransactions(ctx, []core.Transaction{tx})
	s.mu.Unlock()
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction recorded",
		"id", tx.ID, "type", tx.Type, "category", tx.Category, "amount", tx.Amount.String())
	s.publish(ctx, tx, core.SourceManual, "")

	if draft.Recurring {
		if _, err := s.createRecurringRuleAt(ctx, tx, now); err != nil {
			return tx, fmt.Errorf("transaction %s saved, recurring rule not created: %w", tx.ID, err)
		}
	}

	return tx, nil
}

// CreateRecurringRule derives a monthly rule from tx and appends it.
func (s *LedgerService) CreateRecurringRule(ctx context.Context, tx core.Transaction) (core.RecurringRule, error) {
	return s.createRecurringRuleAt(ctx, tx, s.now())
}

func (s *LedgerService) now() time.Time {
	return s.clock().In(s.loc)
}

func (s *LedgerService) createRecurringRuleAt(ctx context.Context, tx core.Transaction, now time.Time) (core.RecurringRule, error) {
	rule := core.NewRecurringRule(tx, now)
	if err := rule.Validate(); err != nil {
		return core.RecurringRule{}, fmt.Errorf("validate recurring rule: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rules, err := s.store.RecurringRules(ctx)
	if err != nil {
		return core.RecurringRule{}, err
	}
	if err := s.store.SaveRecurringRules(ctx, append(rules, rule)); err != nil {
		return core.RecurringRule{}, err
	}

	slog.InfoContext(ctx, "Recurring rule created", "rule_id", rule.ID, "day_of_month", rule.DayOfMonth)
	return rule, nil
}

// CreateGoal appends a new goal with nothing saved towards it yet.
func (s *LedgerService) CreateGoal(ctx context.Context, name string, target string) (core.Goal, error) {
	amount, err := core.ParseAmount(target)
	if err != nil {
		return core.Goal{}, fmt.Errorf("goal target: %w", err)
	}
	goal := core.NewGoal(name, amount)
	if err := goal.Validate(); err != nil {
		return core.Goal{}, fmt.Errorf("validate goal: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	goals, err := s.store.Goals(ctx)
	if err != nil {
		return core.Goal{}, err
	}
	if err := s.store.SaveGoals(ctx, append(goals, goal)); err != nil {
		return core.Goal{}, err
	}

	slog.InfoContext(ctx, "Goal created", "goal_id", goal.ID, "target", goal.TargetAmount.String())
	return goal, nil
}

// ApplyGoalTransaction deposits into or withdraws from a goal. amount is the raw
// user input; anything that is not a positive number is ErrRejected.
func (s *LedgerService) ApplyGoalTransaction(ctx context.Context, goalID string, action core.GoalAction, amount string) (core.Goal, error) {
	delta, err := ParseGoalAmount(amount)
	if err != nil {
		return core.Goal{}, err
	}
	if !action.Valid() {
		return core.Goal{}, fmt.Errorf("%w: unknown goal action %q", core.ErrRejected, action)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	goals, err := s.store.Goals(ctx)
	if err != nil {
		return core.Goal{}, err
	}

	idx := -1
	for i := range goals {
		if goals[i].ID == goalID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return core.Goal{}, fmt.Errorf("%w: %s", core.ErrGoalNotFound, goalID)
	}

	updated, err := ApplyDelta(goals[idx], action, delta)
	if err != nil {
		return core.Goal{}, err
	}
	goals[idx] = updated

	if err := s.store.SaveGoals(ctx, goals); err != nil {
		return core.Goal{}, err
	}

	slog.InfoContext(ctx, "Goal updated",
		"goal_id", goalID, "action", action, "amount", delta.String(), "current", updated.CurrentAmount.String())
	return updated, nil
}

func (s *LedgerService) Transactions(ctx context.Context) ([]core.Transaction, error) {
	return s.store.Transactions(ctx)
}

func (s *LedgerService) Goals(ctx context.Context) ([]core.Goal, error) {
	return s.store.Goals(ctx)
}

func (s *LedgerService) RecurringRules(ctx context.Context) ([]core.RecurringRule, error) {
	return s.store.RecurringRules(ctx)
}

// MonthOverview summarizes the stored transactions for one month.
func (s *LedgerService) MonthOverview(ctx context.Context, year, month int, loc *time.Location) (core.MonthOverview, error) {
	if month < 1 || month > 12 {
		return core.MonthOverview{}, fmt.Errorf("%w: month %d", core.ErrRejected, month)
	}
	txs, err := s.store.Transactions(ctx)
	if err != nil {
		return core.MonthOverview{}, err
	}
	return SummarizeMonth(txs, year, month, loc), nil
}

// prependTransactions puts txs in front of the stored collection. Callers hold mu.
func (s *LedgerService) prependTransactions(ctx context.Context, txs []core.Transaction) error {
	existing, err := s.store.Transactions(ctx)
	if err != nil {
		return err
	}
	all := make([]core.Transaction, 0, len(txs)+len(existing))
	all = append(all, txs...)
	all = append(all, existing...)
	return s.store.SaveTransactions(ctx, all)
}

// publish never fails the caller: the ledger write already happened.
func (s *LedgerService) publish(ctx context.Context, tx core.Transaction, source core.TransactionSource, ruleID string) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Event publisher not available, skipping transaction event", "id", tx.ID)
		return
	}
	if err := s.publisher.PublishTransactionCreated(ctx, tx, source, ruleID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event", "id", tx.ID, "source", source, "error", err)
	}
}

// ParseGoalAction maps a path segment or flag value onto a goal action.
func ParseGoalAction(s string) (core.GoalAction, error) {
	a := core.GoalAction(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", fmt.Errorf("%w: unknown goal action %q", core.ErrRejected, s)
	}
	return a, nil
}
