package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"fintrack/internal/core"
)

// EventType names a domain change.
type EventType string

const (
	TransactionCreated EventType = "transaction.created"
	TransactionDeleted EventType = "transaction.deleted"
	GoalCreated        EventType = "goal.created"
	GoalUpdated        EventType = "goal.updated"
	GoalActivated      EventType = "goal.activated"
	GoalDeactivated    EventType = "goal.deactivated"
	GoalDeleted        EventType = "goal.deleted"
	BudgetSet          EventType = "budget.set"
	BudgetUpdated      EventType = "budget.updated"
	BudgetDeleted      EventType = "budget.deleted"
	CategoryCreated    EventType = "category.created"
)

var errMissingType = errors.New("event type is required")

// Event is published after every successful write. Transaction is only
// set for transaction events so consumers need not read the store.
type Event struct {
	Type        EventType         `json:"type"`
	UserID      string            `json:"userId,omitempty"`
	EntityID    string            `json:"entityId"`
	Timestamp   time.Time         `json:"timestamp"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
}

// NewEvent creates an event stamped with the current time.
func NewEvent(t EventType, userID, entityID string) Event {
	return Event{
		Type:      t,
		UserID:    userID,
		EntityID:  entityID,
		Timestamp: time.Now().UTC(),
	}
}

// NewTransactionEvent carries a copy of the transaction.
func NewTransactionEvent(t EventType, txn core.Transaction) Event {
	ev := NewEvent(t, txn.UserID, txn.ID)
	ev.Transaction = &txn
	return ev
}

// ToJSON converts the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// EventFromJSON decodes an event and rejects bodies without a type.
func EventFromJSON(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if ev.Type == "" {
		return nil, errMissingType
	}
	return &ev, nil
}
