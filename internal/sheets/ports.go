// Package sheets exports ledger transactions to a spreadsheet, one row each.
package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"moneysaver/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionExporter appends one row per transaction.
	TransactionExporter interface {
		Export(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}

	// ExportChecker reports whether a transaction already has a row, so that a
	// redelivered event does not produce a duplicate.
	ExportChecker interface {
		Exported(ctx context.Context, tx core.Transaction) (bool, error)
	}

	// Exporter is the full adapter surface used by the export worker.
	Exporter interface {
		TransactionExporter
		ExportChecker
	}
)

// Header is the first row of every export sheet.
var Header = []any{"Date", "Type", "Category", "Amount", "Note", "ID"}

// IDColumn is the zero-based column holding the transaction id.
const IDColumn = 5

// Row renders tx as [date, type, category, amount, note, id]. Dates are written
// as YYYY-MM-DD in UTC; an unparseable date is written verbatim.
func Row(tx core.Transaction) []any {
	date := tx.Date.String()
	if t, err := tx.Date.Time(); err == nil && !t.IsZero() {
		date = t.UTC().Format("2006-01-02")
	}
	return []any{
		date,
		string(tx.Type),
		tx.Category,
		core.FormatAmount(tx.Amount),
		tx.Note,
		tx.ID,
	}
}

// SheetFor returns the sheet a transaction belongs to: the base name prefixed
// with the transaction's year, falling back to the current year.
func SheetFor(base string, tx core.Transaction) string {
	year := time.Now().UTC().Year()
	if t, err := tx.Date.Time(); err == nil && !t.IsZero() {
		year = t.UTC().Year()
	}
	return YearPrefixedName(base, year)
}

// YearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func YearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
