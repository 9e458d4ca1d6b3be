package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"moneymanager/internal/config"
	"moneymanager/internal/core"
	"moneymanager/internal/storage"
	"moneymanager/internal/storage/memory"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite ok", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, false},
		{"sqlite missing path", Config{Type: SQLiteBackend}, true},
		{"postgres missing url", Config{Type: PostgresBackend}, true},
		{"postgres ok", Config{Type: PostgresBackend, DatabaseURL: "postgres://localhost/ledger"}, false},
		{"unknown", Config{Type: "sheets"}, true},
		{"amqp missing queue", Config{Type: MemoryBackend, AMQPURL: "amqp://localhost", AMQPExchange: "ledger"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, SeedData: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer res.Cleanup()

	mem, ok := res.Store.(*memory.Store)
	if !ok {
		t.Fatalf("expected memory store, got %T", res.Store)
	}
	if mem.Len() != 2 {
		t.Fatalf("expected seeded store, got %d records", mem.Len())
	}
	if res.Publisher != nil {
		t.Fatalf("publisher must be nil without AMQP_URL")
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := res.Store.(*storage.SQLRepository); !ok {
		t.Fatalf("expected SQL repository, got %T", res.Store)
	}
	if _, err := res.Store.Get(context.Background(), "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := res.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
	cfg := &config.Config{DataBackend: "postgres", DatabaseURL: "postgres://db/ledger", RedisAddr: "localhost:6379"}
	bc, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if bc.Type != PostgresBackend || bc.DatabaseURL != cfg.DatabaseURL || bc.RedisAddr != cfg.RedisAddr {
		t.Fatalf("unexpected backend config: %+v", bc)
	}
}

func TestCloseAllJoinsErrors(t *testing.T) {
	var order []int
	boom := errors.New("boom")
	cleanup := closeAll([]CleanupFunc{
		func() error { order = append(order, 1); return nil },
		func() error { order = append(order, 2); return boom },
	})
	err := cleanup()
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Fatalf("cleanups must run in reverse order, got %v", order)
	}
}
