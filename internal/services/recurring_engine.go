package services

import (
	"fmt"
	"time"

	"moneysaver/internal/core"
)

// SkippedRule reports a rule the engine could not evaluate.
type SkippedRule struct {
	RuleID string `json:"ruleId"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// Materialization is the outcome of one engine pass.
type Materialization struct {
	// NewTransactions holds the generated transactions in rule order.
	NewTransactions []core.Transaction
	// UpdatedRules holds every input rule in input order, generating rules
	// replaced by their copy with LastGenerated moved to now.
	UpdatedRules []core.RecurringRule
	Skipped      []SkippedRule

	origin  map[string]string
	changed []int
}

// RuleFor returns the id of the rule that produced the given transaction.
func (m Materialization) RuleFor(txID string) string {
	return m.origin[txID]
}

// ChangedRules returns only the rules that generated a transaction.
func (m Materialization) ChangedRules() []core.RecurringRule {
	out := make([]core.RecurringRule, 0, len(m.changed))
	for _, i := range m.changed {
		out = append(out, m.UpdatedRules[i])
	}
	return out
}

// RecurringEngine decides which recurring rules owe a transaction. It performs
// no I/O.
type RecurringEngine struct {
	checker DuenessChecker
}

func NewRecurringEngine(checker DuenessChecker) *RecurringEngine {
	if checker == nil {
		checker = MonthlyChecker{}
	}
	return &RecurringEngine{checker: checker}
}

// Materialize evaluates every rule against now. Rules with a malformed
// LastGenerated are reported in Skipped and passed through unchanged; the rest of
// the batch is still processed.
func (e *RecurringEngine) Materialize(now time.Time, rules []core.RecurringRule) (Materialization, error) {
	if now.IsZero() {
		return Materialization{}, fmt.Errorf("%w: zero reference time", core.ErrInvalidTimestamp)
	}

	m := Materialization{
		UpdatedRules: make([]core.RecurringRule, len(rules)),
		origin:       make(map[string]string),
	}
	copy(m.UpdatedRules, rules)

	for i, rule := range rules {
		due, err := e.needsGeneration(rule, now)
		if err != nil {
			m.Skipped = append(m.Skipped, SkippedRule{RuleID: rule.ID, Reason: err.Error(), Err: err})
			continue
		}
		if !due {
			continue
		}

		tx := rule.Materialize(now)
		m.NewTransactions = append(m.NewTransactions, tx)
		m.origin[tx.ID] = rule.ID

		rule.LastGenerated = core.NewTimestamp(now)
		m.UpdatedRules[i] = rule
		m.changed = append(m.changed, i)
	}

	return m, nil
}

func (e *RecurringEngine) needsGeneration(rule core.RecurringRule, now time.Time) (bool, error) {
	last, err := rule.LastGenerated.Time()
	if err != nil {
		return false, fmt.Errorf("rule %s: last generated: %w", rule.ID, err)
	}
	// LastGenerated only moves forward; a clock behind it generates nothing.
	if !last.IsZero() && now.Before(last) {
		return false, nil
	}
	return e.checker.IsDue(last, now, rule.EffectiveDay()), nil
}
