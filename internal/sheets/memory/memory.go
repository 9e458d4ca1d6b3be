// Package memory is an in-process sheets.Mirror used when no spreadsheet is
// configured and in tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"moneymanager/internal/core"
	"moneymanager/internal/sheets"
)

var _ sheets.ListingMirror = (*Mirror)(nil)

type Mirror struct {
	mu      sync.Mutex
	rows    map[string]core.Transaction
	upserts int
	removes int
}

func New() *Mirror {
	return &Mirror{rows: make(map[string]core.Transaction)}
}

func (m *Mirror) Upsert(ctx context.Context, tx core.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[tx.ID] = tx
	m.upserts++
	return nil
}

func (m *Mirror) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	m.removes++
	return nil
}

// Rows returns the mirrored rows in ledger order.
func (m *Mirror) Rows(ctx context.Context) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	out := make([]core.Transaction, 0, len(m.rows))
	for _, tx := range m.rows {
		out = append(out, tx)
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return core.Less(out[i], out[j]) })
	return out, nil
}

// Row returns the mirrored copy of id.
func (m *Mirror) Row(id string) (core.Transaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.rows[id]
	return tx, ok
}

// Calls reports how many upserts and removes were applied.
func (m *Mirror) Calls() (upserts, removes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upserts, m.removes
}
