package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"moneymanager/internal/amqp"
	"moneymanager/internal/services"
	"moneymanager/internal/storage"
	"moneymanager/internal/storage/memory"
	"moneymanager/internal/storage/rediscache"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger.With("component", "backend"),
		now:    time.Now,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store    services.Store
		cleanups []CleanupFunc
	)

	switch config.Type {
	case MemoryBackend:
		store = f.createMemoryStore(config)
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize SQLite store: %w", err)
		}
		store = repo
		cleanups = append(cleanups, repo.Close)
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case PostgresBackend:
		repo, err := storage.NewPostgresRepository(ctx, config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("initialize Postgres store: %w", err)
		}
		store = repo
		cleanups = append(cleanups, repo.Close)
		f.logger.Info("Initialized Postgres backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	if config.RedisAddr != "" {
		client, err := rediscache.NewClient(config.RedisAddr, config.RedisPassword, config.RedisDB)
		if err != nil {
			f.logger.Warn("Failed to connect to Redis, continuing without record cache", "error", err)
		} else {
			store = rediscache.New(store, client, config.RedisTTL)
			cleanups = append(cleanups, client.Close)
			f.logger.Info("Enabled Redis record cache", "addr", config.RedisAddr, "ttl", config.RedisTTL)
		}
	}

	result := &BackendResult{Store: store}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		} else {
			result.Publisher = client
			cleanups = append(cleanups, client.Close)
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	result.Cleanup = closeAll(cleanups)
	return result, nil
}

func (f *DefaultFactory) createMemoryStore(config Config) services.Store {
	if config.SeedData {
		f.logger.Info("Initialized memory backend with sample data")
		return memory.NewSeeded(f.now())
	}
	f.logger.Info("Initialized memory backend")
	return memory.New()
}

// closeAll runs cleanups in reverse order and joins their errors.
func closeAll(cleanups []CleanupFunc) CleanupFunc {
	return func() error {
		var errs []error
		for i := len(cleanups) - 1; i >= 0; i-- {
			if err := cleanups[i](); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			return fmt.Errorf("close backend: %w", errors.Join(errs...))
		}
		return nil
	}
}
