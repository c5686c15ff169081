package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/apisak-w/pwa-expense-manager/internal/domain/expense"
)

// Action identifies the remote mutation an outbox item carries
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Valid reports whether a is a known outbox action
func (a Action) Valid() bool {
	return a == ActionCreate || a == ActionUpdate || a == ActionDelete
}

// Item is one pending remote mutation. The payload is a full transaction for
// create/update, or just the target id for delete. An item stays queued until
// a strategy confirms it was applied remotely.
type Item struct {
	ID        string          `json:"id"`
	Action    Action          `json:"action"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

// DeletePayload is the payload shape for delete items
type DeletePayload struct {
	ID string `json:"id"`
}

// NewItem builds a queue item with a fresh id and the given payload
func NewItem(action Action, payload any) (*Item, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal outbox payload: %w", err)
	}
	return &Item{
		ID:        uuid.NewString(),
		Action:    action,
		Payload:   raw,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Transaction decodes the payload of a create or update item
func (i *Item) Transaction() (*expense.Transaction, error) {
	if i.Action == ActionDelete {
		return nil, fmt.Errorf("outbox item %s is a delete, payload holds no transaction", i.ID)
	}
	var tx expense.Transaction
	if err := json.Unmarshal(i.Payload, &tx); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction from outbox payload: %w", err)
	}
	return &tx, nil
}

// DeleteTarget decodes the target transaction id of a delete item
func (i *Item) DeleteTarget() (string, error) {
	var p DeletePayload
	if err := json.Unmarshal(i.Payload, &p); err != nil {
		return "", fmt.Errorf("failed to unmarshal delete target from outbox payload: %w", err)
	}
	if p.ID == "" {
		return "", fmt.Errorf("outbox item %s has an empty delete target", i.ID)
	}
	return p.ID, nil
}
