package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"moneymanager/internal/core"
)

// TransactionEvent announces a ledger change. Transaction carries the record
// as it was after the change; for deletions it is the last stored state.
type TransactionEvent struct {
	Kind        core.EventKind    `json:"kind"`
	ID          string            `json:"id"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

func NewTransactionEvent(kind core.EventKind, tx core.Transaction) *TransactionEvent {
	return &TransactionEvent{
		Kind:        kind,
		ID:          tx.ID,
		Transaction: &tx,
		Timestamp:   time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and sanity-checks an event body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var ev TransactionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if !ev.Kind.Valid() {
		return nil, fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	if ev.ID == "" {
		return nil, fmt.Errorf("event %s has no transaction id", ev.Kind)
	}
	if ev.Kind != core.EventDeleted && ev.Transaction == nil {
		return nil, fmt.Errorf("event %s for %s has no transaction", ev.Kind, ev.ID)
	}
	return &ev, nil
}
