package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// LedgerChangedMessage announces that a user's ledger was committed with new
// content. The worker re-reads the ledger itself, so only the owner travels.
type LedgerChangedMessage struct {
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason"`
	Count     int       `json:"count,omitempty"` // transactions touched, when known
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(userID, reason string, count int) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		UserID:    userID,
		Reason:    reason,
		Count:     count,
		Timestamp: time.Now(),
	}
}

func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON decodes a message and rejects ones without an owner.
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" {
		return nil, errors.New("ledger changed message without user_id")
	}
	return &msg, nil
}
