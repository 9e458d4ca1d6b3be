// Package memory is a Store that keeps the ledger in process memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"moneymanager/internal/core"
)

type Store struct {
	mu    sync.RWMutex
	items map[string]core.Transaction
}

func New() *Store {
	return &Store{items: make(map[string]core.Transaction)}
}

// NewSeeded returns a store holding two sample records created at now.
func NewSeeded(now time.Time) *Store {
	s := New()
	now = now.UTC()
	for _, tx := range SampleTransactions(now) {
		s.items[tx.ID] = tx
	}
	return s
}

// SampleTransactions returns the demo records used to seed an empty ledger.
func SampleTransactions(now time.Time) []core.Transaction {
	mk := func(t core.TxType, category, desc string, cents int64) core.Transaction {
		return core.Transaction{
			ID:            uuid.NewString(),
			Type:          t,
			Division:      core.Personal,
			Category:      category,
			Amount:        core.Money{Cents: cents},
			Description:   desc,
			Date:          now,
			CreatedAt:     now,
			EditableUntil: now.Add(core.EditWindow),
		}
	}
	return []core.Transaction{
		mk(core.Income, "Salary", "Monthly salary", 2000000),
		mk(core.Expense, "Food", "Groceries", 200000),
	}
}

func (s *Store) Insert(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if _, exists := s.items[tx.ID]; exists {
		return core.Transaction{}, fmt.Errorf("insert %s: duplicate id", tx.ID)
	}
	s.items[tx.ID] = tx
	return tx, nil
}

func (s *Store) Get(ctx context.Context, id string) (core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.items[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("get %s: %w", id, core.ErrNotFound)
	}
	return tx, nil
}

func (s *Store) Query(ctx context.Context, f core.Filter) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]core.Transaction, 0, len(s.items))
	for _, tx := range s.items {
		if f.Matches(tx) {
			out = append(out, tx)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return core.Less(out[i], out[j]) })
	return out, nil
}

func (s *Store) Update(ctx context.Context, id string, p core.Patch) (core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.items[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("update %s: %w", id, core.ErrNotFound)
	}
	p.Apply(&tx)
	s.items[id] = tx
	return tx, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("delete %s: %w", id, core.ErrNotFound)
	}
	delete(s.items, id)
	return nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
