package memory

import (
	"context"
	"testing"
	"time"

	"moneymanager/internal/core"
	"moneymanager/internal/storage/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(*testing.T) storetest.Store { return New() })
}

func TestNewSeeded(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewSeeded(now)
	if s.Len() != 2 {
		t.Fatalf("expected 2 seed records, got %d", s.Len())
	}
	txs, err := s.Query(context.Background(), core.Filter{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	st, err := core.Summarize(txs)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if st.Income.Cents != 2000000 || st.Expense.Cents != 200000 || st.Net.Cents != 1800000 {
		t.Fatalf("unexpected seed totals: %+v", st)
	}
	for _, tx := range txs {
		if !tx.EditableUntil.Equal(now.Add(core.EditWindow)) {
			t.Fatalf("seed record window: %v", tx.EditableUntil)
		}
	}
}
