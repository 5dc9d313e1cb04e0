package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"moneysaver/internal/core"
)

// maxBodyBytes bounds request bodies; every payload here is a handful of fields.
const maxBodyBytes = 64 << 10

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from query parameters, defaulting
// to the month of now. Non-numeric values are ErrRejected; range checks are
// left to the service.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return MonthParams{}, fmt.Errorf("%w: year %q", core.ErrRejected, v)
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return MonthParams{}, fmt.Errorf("%w: month %q", core.ErrRejected, v)
		}
		params.Month = m
	}
	return params, nil
}

// ParseRefreshTime reads the optional now parameter. Absent means fallback.
func ParseRefreshTime(query url.Values, fallback time.Time) (time.Time, error) {
	v := strings.TrimSpace(query.Get("now"))
	if v == "" {
		return fallback, nil
	}
	return core.ParseTimestamp(v)
}

// RequestBodyParser handles JSON and form-encoded request bodies.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads the request body once and keeps it for parsing.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}
	if p.body[0] == '[' {
		p.err = errors.New("expected a JSON object")
		return p.err
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a trimmed string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return strings.TrimSpace(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return strings.TrimSpace(p.formData.Get(key))
	}
	return ""
}

// Bool returns a boolean field. JSON booleans and the strings "true", "on"
// and "1" count as true.
func (p *RequestBodyParser) Bool(key string) bool {
	switch strings.ToLower(p.Get(key)) {
	case "true", "on", "1":
		return true
	default:
		return false
	}
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}
