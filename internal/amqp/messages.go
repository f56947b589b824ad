package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType names a ledger change.
type EventType string

const (
	EventShiftOpened        EventType = "shift.opened"
	EventShiftClosed        EventType = "shift.closed"
	EventTransactionCreated EventType = "transaction.created"
	EventTransactionUpdated EventType = "transaction.updated"
	EventTransactionDeleted EventType = "transaction.deleted"
	EventExpensesCleared    EventType = "expenses.cleared"
	EventCategoryRenamed    EventType = "category.renamed"
)

var errMissingEventType = errors.New("event type is required")

// LedgerEvent is published after a successful ledger mutation. It carries
// identifiers only; consumers reload whatever state they need.
type LedgerEvent struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	AccountID     string    `json:"account_id"`
	ShiftID       string    `json:"shift_id,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Category      string    `json:"category,omitempty"`
	OldCategory   string    `json:"old_category,omitempty"`
	Count         int64     `json:"count,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewLedgerEvent(t EventType, accountID string) *LedgerEvent {
	return &LedgerEvent{
		ID:        uuid.NewString(),
		Type:      t,
		AccountID: accountID,
		Timestamp: time.Now().UTC(),
	}
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode ledger event: %w", err)
	}
	if e.Type == "" {
		return nil, errMissingEventType
	}
	return &e, nil
}
