package sheets

import (
	"context"

	"moneymanager/internal/core"
)

// Ports for outbound mirror adapters.
type (
	// Mirror keeps a row per transaction in an external sheet. Both
	// operations are idempotent: upserting an unchanged record rewrites the
	// same row and removing a missing id is not an error.
	Mirror interface {
		Upsert(ctx context.Context, tx core.Transaction) error
		Remove(ctx context.Context, id string) error
	}

	// RowLister reads the mirrored rows back for reconciliation.
	RowLister interface {
		Rows(ctx context.Context) ([]core.Transaction, error)
	}

	// ListingMirror is a Mirror that can also be reconciled.
	ListingMirror interface {
		Mirror
		RowLister
	}
)
