package core

import "github.com/shopspring/decimal"

// Totals is the aggregate view of a set of transactions.
type Totals struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string          `json:"name"`
	Type   TransactionType `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}

// MonthOverview is a compact summary for a specific year+month.
type MonthOverview struct {
	Year       int              `json:"year"`
	Month      int              `json:"month"` // 1-12
	Totals     Totals           `json:"totals"`
	Count      int              `json:"count"`
	ByCategory []CategoryAmount `json:"byCategory"`
}
