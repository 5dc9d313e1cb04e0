package services

import (
	"fmt"

	"github.com/shopspring/decimal"

	"moneysaver/internal/core"
)

// ApplyDelta moves a goal's current amount by amount. Deposits are capped at the
// target and withdrawals floored at zero; the excess is discarded. Non-positive
// amounts and unknown actions are rejected without touching the goal.
func ApplyDelta(goal core.Goal, action core.GoalAction, amount decimal.Decimal) (core.Goal, error) {
	if !action.Valid() {
		return goal, fmt.Errorf("%w: unknown goal action %q", core.ErrRejected, action)
	}
	if !amount.IsPositive() {
		return goal, fmt.Errorf("%w: amount must be positive", core.ErrRejected)
	}

	next := goal.CurrentAmount
	switch action {
	case core.Deposit:
		next = next.Add(amount)
	case core.Withdraw:
		next = next.Sub(amount)
	}

	goal.CurrentAmount = clamp(next, decimal.Zero, decimal.Max(goal.TargetAmount, decimal.Zero))
	return goal, nil
}

// ParseGoalAmount turns raw UI input into a delta amount. Absent, non-numeric,
// zero and negative input are all rejections.
func ParseGoalAmount(s string) (decimal.Decimal, error) {
	amount, err := core.ParseAmount(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", core.ErrRejected, err)
	}
	return amount, nil
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	return decimal.Min(decimal.Max(v, lo), hi)
}
