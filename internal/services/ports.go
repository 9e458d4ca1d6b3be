package services

import (
	"context"

	"moneymanager/internal/core"
)

// Ports for the ledger service.
type (
	// Store persists transactions. Missing records are reported with an
	// error wrapping core.ErrNotFound.
	Store interface {
		Insert(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		Get(ctx context.Context, id string) (core.Transaction, error)
		// Query returns matching records ordered by date, most recent first.
		Query(ctx context.Context, f core.Filter) ([]core.Transaction, error)
		// Update merges the set fields of p into the record atomically.
		Update(ctx context.Context, id string, p core.Patch) (core.Transaction, error)
		Delete(ctx context.Context, id string) error
	}

	// Pinger is implemented by stores that can report liveness cheaply.
	Pinger interface {
		Ping(ctx context.Context) error
	}

	// EventPublisher fans ledger changes out to other consumers.
	EventPublisher interface {
		PublishTransactionEvent(ctx context.Context, kind core.EventKind, tx core.Transaction) error
	}
)
