package services

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"moneysaver/internal/core"
)

// Aggregate sums income and expense over all transactions. Transactions of an
// unknown type are ignored; amounts are summed as stored, sign included.
func Aggregate(txs []core.Transaction) core.Totals {
	income, expense := decimal.Zero, decimal.Zero
	for _, tx := range txs {
		switch tx.Type {
		case core.Income:
			income = income.Add(tx.Amount)
		case core.Expense:
			expense = expense.Add(tx.Amount)
		}
	}
	return core.Totals{
		Income:  income,
		Expense: expense,
		Balance: income.Sub(expense),
	}
}

// SummarizeMonth aggregates the transactions dated in the given month, evaluated
// in loc. Transactions with an unparseable date are left out.
func SummarizeMonth(txs []core.Transaction, year, month int, loc *time.Location) core.MonthOverview {
	if loc == nil {
		loc = time.UTC
	}

	overview := core.MonthOverview{Year: year, Month: month}

	type key struct {
		name string
		typ  core.TransactionType
	}
	byCategory := map[key]decimal.Decimal{}
	var inMonth []core.Transaction

	for _, tx := range txs {
		if !tx.Type.Valid() {
			continue
		}
		t, err := tx.Date.Time()
		if err != nil || t.IsZero() {
			continue
		}
		t = t.In(loc)
		if t.Year() != year || int(t.Month()) != month {
			continue
		}
		inMonth = append(inMonth, tx)
		k := key{name: tx.Category, typ: tx.Type}
		byCategory[k] = byCategory[k].Add(tx.Amount)
	}

	overview.Totals = Aggregate(inMonth)
	overview.Count = len(inMonth)
	overview.ByCategory = make([]core.CategoryAmount, 0, len(byCategory))
	for k, amount := range byCategory {
		overview.ByCategory = append(overview.ByCategory, core.CategoryAmount{Name: k.name, Type: k.typ, Amount: amount})
	}
	slices.SortFunc(overview.ByCategory, func(a, b core.CategoryAmount) int {
		if c := b.Amount.Cmp(a.Amount); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.Type, b.Type)
	})

	return overview
}
