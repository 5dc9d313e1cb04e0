package services

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestMonthlyChecker_IsDue(t *testing.T) {
	checker := MonthlyChecker{}

	tests := []struct {
		name       string
		last       time.Time
		now        time.Time
		dayOfMonth int
		want       bool
	}{
		{"never generated", time.Time{}, date(2024, 2, 1), 15, true},
		{"new month past day", date(2024, 1, 1), date(2024, 2, 15), 1, true},
		{"new month on day", date(2024, 1, 20), date(2024, 2, 20), 20, true},
		{"new month before day", date(2024, 1, 20), date(2024, 2, 10), 20, false},
		{"same month", date(2024, 2, 1), date(2024, 2, 28), 1, false},
		{"same month different year", date(2023, 2, 1), date(2024, 2, 3), 1, true},
		{"day beyond month length", date(2024, 1, 31), date(2024, 2, 29), 31, false},
		{"skipped month catches up once", date(2023, 11, 5), date(2024, 2, 5), 5, true},
		{"clock behind last generation", date(2024, 3, 5), date(2024, 2, 20), 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checker.IsDue(tt.last, tt.now, tt.dayOfMonth); got != tt.want {
				t.Errorf("IsDue(%v, %v, %d) = %v, want %v", tt.last, tt.now, tt.dayOfMonth, got, tt.want)
			}
		})
	}
}

func TestMonthlyChecker_ComparesInNowLocation(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// 2024-01-31 23:30 UTC is already February in Rome.
	last := time.Date(2024, 1, 31, 23, 30, 0, 0, time.UTC)
	now := time.Date(2024, 2, 10, 9, 0, 0, 0, rome)

	if (MonthlyChecker{}).IsDue(last, now, 1) {
		t.Error("expected rule generated in local February to not be due again in February")
	}
}
