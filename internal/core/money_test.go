package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{" 2.50 ", "2.5", true},
		{"1000000.999", "1000000.999", true},
		{"-1", "", false},
		{"0", "", false},
		{"0.00", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"1,2.3", "", false},
		{"", "", false},
		{"   ", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("%q expected ErrInvalidAmount, got %v", tc.in, err)
		}
	}
}

func TestFormatAmount(t *testing.T) {
	if got := FormatAmount(decimal.RequireFromString("12.5")); got != "12.50" {
		t.Fatalf("FormatAmount = %q, want 12.50", got)
	}
	if got := FormatAmount(decimal.Zero); got != "0.00" {
		t.Fatalf("FormatAmount = %q, want 0.00", got)
	}
}
