// Package services provides business logic and orchestration services.
//
// This file holds the dueness strategy for recurring rules. The checker decides,
// from the last generation time alone, whether a rule owes a transaction for the
// period containing now.

package services

import "time"

// DuenessChecker is the strategy interface for checking if a recurring rule is due.
type DuenessChecker interface {
	// IsDue returns true if the rule should materialize a transaction at now.
	// A zero lastGenerated means the rule has never generated.
	IsDue(lastGenerated, now time.Time, dayOfMonth int) bool
}

// MonthlyChecker implements DuenessChecker for monthly rules.
type MonthlyChecker struct{}

// IsDue returns true if the rule never generated, or if we're in a new month and
// have reached the target day. A target day beyond the end of the current month
// is never reached, so such a rule skips that month.
func (MonthlyChecker) IsDue(lastGenerated, now time.Time, dayOfMonth int) bool {
	if lastGenerated.IsZero() {
		return true
	}

	last := lastGenerated.In(now.Location())
	if last.After(now) {
		return false
	}

	// Already generated this month?
	if last.Year() == now.Year() && last.Month() == now.Month() {
		return false
	}

	return now.Day() >= dayOfMonth
}
