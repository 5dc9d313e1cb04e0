package core

import (
	"fmt"
	"strings"
	"time"
)

// Timestamp is an ISO-8601 instant as stored in the ledger collections. It is kept
// as text so a single malformed record does not poison a whole collection decode.
type Timestamp string

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// NewTimestamp formats t in UTC with nanosecond precision.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(t.UTC().Format(time.RFC3339Nano))
}

// ParseTimestamp parses s into a time, accepting RFC 3339 and date-only forms.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidTimestamp)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
}

// IsZero reports whether the timestamp is absent.
func (ts Timestamp) IsZero() bool {
	return strings.TrimSpace(string(ts)) == ""
}

// Time parses the timestamp. An absent timestamp yields the zero time and no error.
func (ts Timestamp) Time() (time.Time, error) {
	if ts.IsZero() {
		return time.Time{}, nil
	}
	return ParseTimestamp(string(ts))
}

func (ts Timestamp) String() string {
	return string(ts)
}
