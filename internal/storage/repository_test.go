package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"moneymanager/internal/core"
	"moneymanager/internal/storage/storetest"
)

func newTestRepo(t *testing.T) *SQLRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "ledger.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Store { return newTestRepo(t) })
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	now := time.Date(2024, 2, 3, 4, 5, 6, 7_000_000, time.UTC)
	tx := core.Transaction{
		ID: "keep", Type: core.Expense, Division: core.Office, Category: "Rent",
		Amount: core.Money{Cents: 123456}, Description: "office rent",
		Date: now, CreatedAt: now, EditableUntil: now.Add(core.EditWindow),
	}
	if _, err := repo.Insert(context.Background(), tx); err != nil {
		t.Fatalf("insert: %v", err)
	}
	repo.Close()

	// Migrations must be idempotent on an existing database.
	repo, err = NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()
	got, err := repo.Get(context.Background(), "keep")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.EditableUntil.Equal(got.CreatedAt.Add(core.EditWindow)) || got.Amount.Cents != 123456 {
		t.Fatalf("unexpected record: %+v", got)
	}
	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestRebind(t *testing.T) {
	pg := &SQLRepository{dialect: DialectPostgres}
	lite := &SQLRepository{dialect: DialectSQLite}
	q := "SELECT a FROM t WHERE x = ? AND y = ? AND z = ?"
	if got := pg.rebind(q); got != "SELECT a FROM t WHERE x = $1 AND y = $2 AND z = $3" {
		t.Fatalf("postgres rebind: %s", got)
	}
	if got := lite.rebind(q); got != q {
		t.Fatalf("sqlite rebind changed query: %s", got)
	}
}
