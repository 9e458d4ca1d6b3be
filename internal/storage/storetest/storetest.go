// Package storetest holds behaviour checks shared by every ledger Store
// implementation.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"moneymanager/internal/core"
)

// Store mirrors services.Store so this package does not import services.
type Store interface {
	Insert(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	Get(ctx context.Context, id string) (core.Transaction, error)
	Query(ctx context.Context, f core.Filter) ([]core.Transaction, error)
	Update(ctx context.Context, id string, p core.Patch) (core.Transaction, error)
	Delete(ctx context.Context, id string) error
}

var base = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func record(id string, typ core.TxType, div core.Division, category string, cents int64, date time.Time) core.Transaction {
	return core.Transaction{
		ID:            id,
		Type:          typ,
		Division:      div,
		Category:      category,
		Amount:        core.Money{Cents: cents},
		Description:   "desc " + id,
		Date:          date,
		CreatedAt:     base,
		EditableUntil: base.Add(core.EditWindow),
	}
}

// Run exercises newStore against the Store contract. newStore must return
// an empty store on every call.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("insert and get", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		in := record("t1", core.Income, core.Personal, "Salary", 2000000, base)
		got, err := s.Insert(ctx, in)
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		assertEqual(t, in, got)

		got, err = s.Get(ctx, "t1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		assertEqual(t, in, got)
	})

	t.Run("insert assigns id", func(t *testing.T) {
		s := newStore(t)
		in := record("", core.Expense, core.Office, "Rent", 100, base)
		got, err := s.Insert(context.Background(), in)
		if err != nil {
			t.Fatalf("insert: %v", err)
		}
		if got.ID == "" {
			t.Fatalf("expected generated id")
		}
	})

	t.Run("missing records", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		if _, err := s.Get(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("get: expected ErrNotFound, got %v", err)
		}
		cat := "x"
		if _, err := s.Update(ctx, "nope", core.Patch{Category: &cat}); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("update: expected ErrNotFound, got %v", err)
		}
		if err := s.Delete(ctx, "nope"); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("delete: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("query filters and order", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		seed := []core.Transaction{
			record("a", core.Income, core.Personal, "Salary", 100, base.Add(-72*time.Hour)),
			record("b", core.Expense, core.Office, "Rent", 200, base.Add(-48*time.Hour)),
			record("c", core.Expense, core.Personal, "Food", 300, base.Add(-24*time.Hour)),
			record("d", core.Income, core.Office, "Consulting", 400, base),
		}
		for _, tx := range seed {
			if _, err := s.Insert(ctx, tx); err != nil {
				t.Fatalf("insert %s: %v", tx.ID, err)
			}
		}

		from := base.Add(-48 * time.Hour)
		to := core.EndOfDay(base.Add(-24 * time.Hour))
		cases := []struct {
			name string
			f    core.Filter
			want []string
		}{
			{"all", core.Filter{}, []string{"d", "c", "b", "a"}},
			{"office", core.Filter{Division: "Office"}, []string{"d", "b"}},
			{"category", core.Filter{Category: "Food"}, []string{"c"}},
			{"range", core.Filter{From: &from, To: &to}, []string{"c", "b"}},
			{"range and division", core.Filter{Division: "Office", From: &from, To: &to}, []string{"b"}},
			{"no match", core.Filter{Category: "Travel"}, []string{}},
		}
		for _, tc := range cases {
			got, err := s.Query(ctx, tc.f)
			if err != nil {
				t.Fatalf("%s: %v", tc.name, err)
			}
			if ids := idsOf(got); fmt.Sprint(ids) != fmt.Sprint(tc.want) {
				t.Fatalf("%s: got %v want %v", tc.name, ids, tc.want)
			}
		}
	})

	t.Run("update merges only set fields", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		in := record("u1", core.Expense, core.Personal, "Food", 500, base)
		if _, err := s.Insert(ctx, in); err != nil {
			t.Fatalf("insert: %v", err)
		}
		amount := core.Money{Cents: 750}
		div := core.Office
		got, err := s.Update(ctx, "u1", core.Patch{Amount: &amount, Division: &div})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		want := in
		want.Amount = amount
		want.Division = div
		assertEqual(t, want, got)

		stored, _ := s.Get(ctx, "u1")
		assertEqual(t, want, stored)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		if _, err := s.Insert(ctx, record("d1", core.Income, core.Office, "X", 1, base)); err != nil {
			t.Fatalf("insert: %v", err)
		}
		if err := s.Delete(ctx, "d1"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := s.Delete(ctx, "d1"); !errors.Is(err, core.ErrNotFound) {
			t.Fatalf("second delete: expected ErrNotFound, got %v", err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		s := newStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := s.Query(ctx, core.Filter{}); err == nil {
			t.Fatalf("expected error for canceled context")
		}
	})

	t.Run("concurrent updates", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		if _, err := s.Insert(ctx, record("c1", core.Income, core.Office, "X", 1, base)); err != nil {
			t.Fatalf("insert: %v", err)
		}
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				amount := core.Money{Cents: int64(i)}
				if _, err := s.Update(ctx, "c1", core.Patch{Amount: &amount}); err != nil {
					t.Errorf("update %d: %v", i, err)
				}
			}(i)
		}
		wg.Wait()
		got, err := s.Get(ctx, "c1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Category != "X" || got.Amount.Cents < 0 || got.Amount.Cents > 7 {
			t.Fatalf("record corrupted: %+v", got)
		}
	})
}

func idsOf(txs []core.Transaction) []string {
	ids := make([]string, 0, len(txs))
	for _, tx := range txs {
		ids = append(ids, tx.ID)
	}
	return ids
}

func assertEqual(t *testing.T, want, got core.Transaction) {
	t.Helper()
	if want.ID != got.ID || want.Type != got.Type || want.Division != got.Division ||
		want.Category != got.Category || want.Amount != got.Amount || want.Description != got.Description ||
		!want.Date.Equal(got.Date) || !want.CreatedAt.Equal(got.CreatedAt) || !want.EditableUntil.Equal(got.EditableUntil) {
		t.Fatalf("record mismatch:\nwant %+v\ngot  %+v", want, got)
	}
}
