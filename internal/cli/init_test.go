package cli

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"moneymanager/internal/config"
	"moneymanager/internal/core"
	"moneymanager/internal/log"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("DATA_BACKEND", "memory")

	cfg, err := LoadConfig((*config.Config).Validate)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Port != "7070" {
		t.Errorf("Port = %q, want 7070", cfg.Port)
	}

	boom := errors.New("nope")
	if _, err := LoadConfig(func(*config.Config) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("LoadConfig() error = %v, want validator error", err)
	}

	t.Setenv("AMQP_URL", "")
	if _, err := LoadConfig((*config.Config).ValidateWorker); err == nil {
		t.Error("worker validation should require AMQP_URL")
	}
}

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := SetupLogger(&config.Config{LogLevel: "debug", LogFormat: "json"})
	if logger.Component() != log.ComponentApp {
		t.Errorf("Component() = %q, want %q", logger.Component(), log.ComponentApp)
	}
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug level should be enabled")
	}
}

func TestOpenBackend(t *testing.T) {
	ctx := context.Background()
	logger := log.New(log.Config{Level: slog.LevelError})

	res, err := OpenBackend(ctx, logger, &config.Config{DataBackend: "memory", SeedData: true})
	if err != nil {
		t.Fatalf("OpenBackend() error = %v", err)
	}
	defer res.Cleanup()

	txs, err := res.Store.Query(ctx, core.Filter{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(txs) == 0 {
		t.Error("seeded memory backend should hold sample data")
	}
	if res.Publisher != nil {
		t.Error("publisher should be nil without AMQP_URL")
	}

	if _, err := OpenBackend(ctx, logger, &config.Config{DataBackend: "sheets"}); err == nil {
		t.Error("OpenBackend() should reject unknown backends")
	}
}
