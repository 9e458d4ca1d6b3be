package core

// EventKind names a change to the ledger.
type EventKind string

const (
	EventCreated EventKind = "transaction.created"
	EventUpdated EventKind = "transaction.updated"
	EventDeleted EventKind = "transaction.deleted"
)

func (k EventKind) Valid() bool {
	switch k {
	case EventCreated, EventUpdated, EventDeleted:
		return true
	default:
		return false
	}
}
