package core

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
)

// StoredAmount decodes an amount as it appears in a stored record: a JSON number,
// a numeric string, or a string using a decimal comma. Anything else yields zero
// with ok false. Sign is not checked.
func StoredAmount(raw json.RawMessage) (amount decimal.Decimal, ok bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return decimal.Zero, false
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return decimal.Zero, false
		}
		s = strings.TrimSpace(str)
		if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
			s = strings.Replace(s, ",", ".", 1)
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// storedInt decodes a whole number stored as a JSON number or numeric string.
func storedInt(raw json.RawMessage) (int, bool) {
	d, ok := StoredAmount(raw)
	if !ok || !d.IsInteger() {
		return 0, false
	}
	return int(d.IntPart()), true
}

func decodeAmountField(raw json.RawMessage, record, id, field string) decimal.Decimal {
	d, ok := StoredAmount(raw)
	if !ok {
		slog.Warn("Malformed stored amount, using zero",
			"component", "core", "record", record, "id", id, "field", field, "value", string(raw))
	}
	return d
}

func (t *Transaction) UnmarshalJSON(data []byte) error {
	type plain Transaction
	aux := struct {
		*plain
		Amount json.RawMessage `json:"amount"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	t.Amount = decodeAmountField(aux.Amount, "transaction", t.ID, "amount")
	return nil
}

func (r *RecurringRule) UnmarshalJSON(data []byte) error {
	type plain RecurringRule
	aux := struct {
		*plain
		Amount     json.RawMessage `json:"amount"`
		DayOfMonth json.RawMessage `json:"dayOfMonth"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.Amount = decodeAmountField(aux.Amount, "recurringRule", r.ID, "amount")
	r.DayOfMonth = 0
	if len(aux.DayOfMonth) > 0 && string(aux.DayOfMonth) != "null" {
		day, ok := storedInt(aux.DayOfMonth)
		if !ok {
			slog.Warn("Malformed day of month, using default",
				"component", "core", "id", r.ID, "value", string(aux.DayOfMonth))
		}
		r.DayOfMonth = day
	}
	return nil
}

func (g *Goal) UnmarshalJSON(data []byte) error {
	type plain Goal
	aux := struct {
		*plain
		TargetAmount  json.RawMessage `json:"targetAmount"`
		CurrentAmount json.RawMessage `json:"currentAmount"`
	}{plain: (*plain)(g)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	g.TargetAmount = decodeAmountField(aux.TargetAmount, "goal", g.ID, "targetAmount")
	g.CurrentAmount = decodeAmountField(aux.CurrentAmount, "goal", g.ID, "currentAmount")
	return nil
}
