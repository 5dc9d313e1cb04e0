package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"moneysaver/internal/core"
)

// TransactionCreatedType is the message type for newly recorded transactions.
const TransactionCreatedType = "transaction.created"

// TransactionCreatedMessage announces a transaction that was just written to the
// ledger, either entered by the user or materialized from a recurring rule.
// It carries the full record so consumers never read back from the ledger.
type TransactionCreatedMessage struct {
	Type        string                 `json:"type"`
	Source      core.TransactionSource `json:"source"`
	RuleID      string                 `json:"ruleId,omitempty"`
	Transaction core.Transaction       `json:"transaction"`
	Timestamp   time.Time              `json:"timestamp"`
}

// NewTransactionCreatedMessage creates a message stamped with the current time
func NewTransactionCreatedMessage(tx core.Transaction, source core.TransactionSource, ruleID string) *TransactionCreatedMessage {
	return &TransactionCreatedMessage{
		Type:        TransactionCreatedType,
		Source:      source,
		RuleID:      ruleID,
		Transaction: tx,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionCreatedMessageFromJSON decodes and sanity-checks a message body.
func TransactionCreatedMessageFromJSON(data []byte) (*TransactionCreatedMessage, error) {
	var msg TransactionCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type != TransactionCreatedType {
		return nil, fmt.Errorf("unexpected message type %q", msg.Type)
	}
	if msg.Transaction.ID == "" {
		return nil, fmt.Errorf("message without transaction id")
	}
	return &msg, nil
}
