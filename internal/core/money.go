// Package core provides money parsing and handling utilities.
//
// Amounts are carried as shopspring decimals so that sums of user-entered values
// stay exact.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts user input into a positive decimal amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rejects
// empty, non-numeric, zero and negative input with ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders an amount with two decimals for display.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
