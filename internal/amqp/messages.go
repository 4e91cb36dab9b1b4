package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// EventKind names what happened to a ledger entity.
type EventKind string

const (
	TransactionCreated EventKind = "transaction.created"
	TransactionUpdated EventKind = "transaction.updated"
	TransactionDeleted EventKind = "transaction.deleted"
	CategoryCreated    EventKind = "category.created"
	CategoryUpdated    EventKind = "category.updated"
	CategoryDeleted    EventKind = "category.deleted"
)

var errMalformedEvent = errors.New("malformed ledger event")

// LedgerEvent is a lightweight notification that a user's ledger changed.
// Consumers reload state from the database; the event carries no amounts.
type LedgerEvent struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"kind"`
	UserID    int64     `json:"user_id"`
	EntityID  int64     `json:"entity_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEvent stamps a fresh event ID and time.
func NewLedgerEvent(kind EventKind, userID, entityID int64) LedgerEvent {
	return LedgerEvent{
		ID:        uuid.NewString(),
		Kind:      kind,
		UserID:    userID,
		EntityID:  entityID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and sanity-checks an event body.
func LedgerEventFromJSON(data []byte) (LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return LedgerEvent{}, err
	}
	if e.Kind == "" || e.UserID <= 0 {
		return LedgerEvent{}, errMalformedEvent
	}
	return e, nil
}
