package amqp

import (
	"encoding/json"
	"time"
)

// Ledger event kinds published to the audit queue.
const (
	EventTransactionCreated = "transaction.created"
	EventTransactionDeleted = "transaction.deleted"
	EventInvoicePaid        = "invoice.paid"
	EventInvoiceUnpaid      = "invoice.unpaid"
)

// LedgerEvent is a lightweight audit message. It carries only identifiers
// and the amount involved; consumers fetch full records from the store if
// they need them.
type LedgerEvent struct {
	Event     string    `json:"event"`
	OwnerID   string    `json:"owner_id"`
	EntityID  string    `json:"entity_id"`
	Amount    string    `json:"amount,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerEvent(event, ownerID, entityID, amount string) *LedgerEvent {
	return &LedgerEvent{
		Event:     event,
		OwnerID:   ownerID,
		EntityID:  entityID,
		Amount:    amount,
		Timestamp: time.Now(),
	}
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
