// Package worker applies ledger change events to the sheet mirror and
// reconciles the mirror against the store.
package worker

import (
	"context"
	"fmt"

	"moneymanager/internal/amqp"
	"moneymanager/internal/core"
	"moneymanager/internal/log"
	"moneymanager/internal/sheets"
)

// Source lists the authoritative ledger for reconciliation.
type Source interface {
	Query(ctx context.Context, f core.Filter) ([]core.Transaction, error)
}

// SyncWorker handles synchronization of ledger changes to the sheet mirror.
type SyncWorker struct {
	mirror sheets.Mirror
	source Source
	logger *log.Logger
}

// NewSyncWorker builds a worker. source may be nil, which disables Reconcile.
func NewSyncWorker(mirror sheets.Mirror, source Source, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SyncWorker{
		mirror: mirror,
		source: source,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent applies a single change event. Returning an error requeues it.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	w.logger.DebugContext(ctx, "Processing transaction event",
		log.FieldEventKind, string(ev.Kind),
		log.FieldTransactionID, ev.ID)

	switch ev.Kind {
	case core.EventCreated, core.EventUpdated:
		if ev.Transaction == nil {
			return fmt.Errorf("%s event for %s carries no transaction", ev.Kind, ev.ID)
		}
		if err := w.mirror.Upsert(ctx, *ev.Transaction); err != nil {
			return fmt.Errorf("mirror upsert %s: %w", ev.ID, err)
		}
	case core.EventDeleted:
		if err := w.mirror.Remove(ctx, ev.ID); err != nil {
			return fmt.Errorf("mirror remove %s: %w", ev.ID, err)
		}
	default:
		// Unknown kinds are acknowledged so they do not loop forever.
		w.logger.WarnContext(ctx, "Ignoring unknown event kind", log.FieldEventKind, string(ev.Kind))
		return nil
	}

	w.logger.InfoContext(ctx, "Mirror updated",
		log.FieldEventKind, string(ev.Kind),
		log.FieldTransactionID, ev.ID)
	return nil
}

// ReconcileResult summarizes one reconciliation pass.
type ReconcileResult struct {
	Upserted int
	Removed  int
	Failed   int
}

// Reconcile brings the mirror in line with the source: missing or stale rows
// are rewritten and rows for deleted transactions are removed. It recovers
// from events lost while the worker was down.
func (w *SyncWorker) Reconcile(ctx context.Context) (ReconcileResult, error) {
	var res ReconcileResult
	if w.source == nil {
		return res, nil
	}

	txs, err := w.source.Query(ctx, core.Filter{})
	if err != nil {
		return res, fmt.Errorf("list ledger: %w", err)
	}

	mirrored := map[string]core.Transaction{}
	lister, canList := w.mirror.(sheets.RowLister)
	if canList {
		rows, err := lister.Rows(ctx)
		if err != nil {
			return res, fmt.Errorf("list mirror rows: %w", err)
		}
		for _, row := range rows {
			mirrored[row.ID] = row
		}
	}

	for _, tx := range txs {
		if row, ok := mirrored[tx.ID]; ok && sameRow(row, tx) {
			delete(mirrored, tx.ID)
			continue
		}
		delete(mirrored, tx.ID)
		if err := w.mirror.Upsert(ctx, tx); err != nil {
			w.logger.WarnContext(ctx, "Reconcile upsert failed", log.FieldTransactionID, tx.ID, log.FieldError, err)
			res.Failed++
			continue
		}
		res.Upserted++
	}

	// Whatever is left has no ledger record anymore.
	for id := range mirrored {
		if err := w.mirror.Remove(ctx, id); err != nil {
			w.logger.WarnContext(ctx, "Reconcile remove failed", log.FieldTransactionID, id, log.FieldError, err)
			res.Failed++
			continue
		}
		res.Removed++
	}

	w.logger.InfoContext(ctx, "Reconcile completed",
		"ledger", len(txs),
		"upserted", res.Upserted,
		"removed", res.Removed,
		"failed", res.Failed)
	return res, nil
}

// sameRow compares the columns the mirror stores.
func sameRow(a, b core.Transaction) bool {
	return a.ID == b.ID &&
		a.Type == b.Type &&
		a.Division == b.Division &&
		a.Category == b.Category &&
		a.Description == b.Description &&
		a.Amount == b.Amount &&
		a.Date.Equal(b.Date) &&
		a.CreatedAt.Equal(b.CreatedAt)
}
