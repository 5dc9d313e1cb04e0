package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Expense TransactionType = "expense"
	Income  TransactionType = "income"
)

const (
	Deposit  GoalAction = "deposit"
	Withdraw GoalAction = "withdraw"
)

const (
	SourceManual    TransactionSource = "manual"
	SourceRecurring TransactionSource = "recurring"
)

// DefaultCategory is used when a transaction is recorded without one.
const DefaultCategory = "Other"

// RecurringSuffix marks the note of a transaction materialized from a recurring rule.
const RecurringSuffix = "(Recurring)"

// Categories offered by the entry form.
var Categories = []string{"Groceries", "Rent", "Entertainment", "Salary", "Transport", "Shopping", "Health", "Other"}

type (
	TransactionType string

	GoalAction string

	// TransactionSource records how a transaction came to exist.
	TransactionSource string

	Transaction struct {
		ID       string          `json:"id"`
		Amount   decimal.Decimal `json:"amount"`
		Category string          `json:"category"`
		Type     TransactionType `json:"type"`
		Note     string          `json:"note"`
		Date     Timestamp       `json:"date"`
	}

	// RecurringRule is a template that materializes one transaction per calendar month.
	RecurringRule struct {
		ID            string          `json:"id"`
		Amount        decimal.Decimal `json:"amount"`
		Category      string          `json:"category"`
		Type          TransactionType `json:"type"`
		Note          string          `json:"note"`
		DayOfMonth    int             `json:"dayOfMonth"`
		LastGenerated Timestamp       `json:"lastGenerated,omitempty"`
	}

	Goal struct {
		ID            string          `json:"id"`
		Name          string          `json:"name"`
		TargetAmount  decimal.Decimal `json:"targetAmount"`
		CurrentAmount decimal.Decimal `json:"currentAmount"`
	}

	// TransactionDraft carries the raw fields submitted by the entry form.
	TransactionDraft struct {
		Amount    string
		Category  string
		Type      TransactionType
		Note      string
		Recurring bool
	}
)

var (
	ErrInvalidTimestamp   = errors.New("invalid timestamp")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrRejected           = errors.New("rejected")

	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrInvalidDayOfMonth = errors.New("invalid day of month")
	ErrEmptyName         = errors.New("empty goal name")
	ErrGoalNotFound      = errors.New("goal not found")
)

func (t TransactionType) Valid() bool {
	return t == Expense || t == Income
}

func (a GoalAction) Valid() bool {
	return a == Deposit || a == Withdraw
}

// NewTransaction stamps a fresh id and date on the given fields.
func NewTransaction(amount decimal.Decimal, category string, typ TransactionType, note string, now time.Time) Transaction {
	category = strings.TrimSpace(category)
	if category == "" {
		category = DefaultCategory
	}
	return Transaction{
		ID:       uuid.NewString(),
		Amount:   amount,
		Category: category,
		Type:     typ,
		Note:     strings.TrimSpace(note),
		Date:     NewTimestamp(now),
	}
}

// NewRecurringRule builds the rule for a transaction marked recurring. The rule is
// stamped as already generated at creation so the originating transaction is not
// duplicated on the next refresh.
func NewRecurringRule(tx Transaction, now time.Time) RecurringRule {
	return RecurringRule{
		ID:            "rec_" + uuid.NewString(),
		Amount:        tx.Amount,
		Category:      tx.Category,
		Type:          tx.Type,
		Note:          tx.Note,
		DayOfMonth:    now.Day(),
		LastGenerated: NewTimestamp(now),
	}
}

// NewGoal creates an empty goal.
func NewGoal(name string, target decimal.Decimal) Goal {
	return Goal{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(name),
		TargetAmount:  target,
		CurrentAmount: decimal.Zero,
	}
}

// EffectiveDay returns the rule's day of month, treating an unset day as the 1st.
func (r RecurringRule) EffectiveDay() int {
	if r.DayOfMonth <= 0 {
		return 1
	}
	return r.DayOfMonth
}

// Materialize returns the transaction a rule produces at now.
func (r RecurringRule) Materialize(now time.Time) Transaction {
	return Transaction{
		ID:       uuid.NewString(),
		Amount:   r.Amount,
		Category: r.Category,
		Type:     r.Type,
		Note:     strings.TrimSpace(r.Note + " " + RecurringSuffix),
		Date:     NewTimestamp(now),
	}
}

func (d TransactionDraft) Validate() error {
	if _, err := ParseAmount(d.Amount); err != nil {
		return err
	}
	if !d.Type.Valid() {
		return ErrInvalidType
	}
	if len(d.Note) > 200 {
		return errors.New("note too long (max 200 characters)")
	}
	return nil
}

func (r RecurringRule) Validate() error {
	if r.DayOfMonth < 0 || r.DayOfMonth > 31 {
		return ErrInvalidDayOfMonth
	}
	if !r.Type.Valid() {
		return ErrInvalidType
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if !g.TargetAmount.IsPositive() {
		return ErrInvalidAmount
	}
	if g.CurrentAmount.IsNegative() || g.CurrentAmount.GreaterThan(g.TargetAmount) {
		return errors.New("current amount out of range")
	}
	return nil
}

// Progress returns the completed fraction of the goal in [0, 1].
func (g Goal) Progress() decimal.Decimal {
	if !g.TargetAmount.IsPositive() {
		return decimal.Zero
	}
	return g.CurrentAmount.Div(g.TargetAmount).Round(4)
}

// Reached reports whether the goal has been fully funded.
func (g Goal) Reached() bool {
	return g.TargetAmount.IsPositive() && g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount)
}
