// Package rediscache wraps a ledger store with a Redis read-through cache
// for single-record lookups.
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"moneymanager/internal/core"
	"moneymanager/internal/services"
)

const keyPrefix = "ledger:tx:"

// NewClient connects to Redis and verifies the connection with a ping.
func NewClient(addr, password string, db int) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return rdb, nil
}

// Store caches Get results of the wrapped store as JSON. Cache failures are
// logged and fall through to the wrapped store.
type Store struct {
	next   services.Store
	client *goredis.Client
	ttl    time.Duration
}

var _ services.Store = (*Store)(nil)

func New(next services.Store, client *goredis.Client, ttl time.Duration) *Store {
	return &Store{next: next, client: client, ttl: ttl}
}

func (s *Store) Insert(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	stored, err := s.next.Insert(ctx, tx)
	if err != nil {
		return stored, err
	}
	s.set(ctx, stored)
	return stored, nil
}

func (s *Store) Get(ctx context.Context, id string) (core.Transaction, error) {
	if tx, ok := s.get(ctx, id); ok {
		return tx, nil
	}
	tx, err := s.next.Get(ctx, id)
	if err != nil {
		return tx, err
	}
	s.set(ctx, tx)
	return tx, nil
}

func (s *Store) Query(ctx context.Context, f core.Filter) ([]core.Transaction, error) {
	return s.next.Query(ctx, f)
}

func (s *Store) Update(ctx context.Context, id string, p core.Patch) (core.Transaction, error) {
	s.evict(ctx, id)
	tx, err := s.next.Update(ctx, id, p)
	if err != nil {
		return tx, err
	}
	s.evict(ctx, id)
	return tx, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.next.Delete(ctx, id); err != nil {
		return err
	}
	s.evict(ctx, id)
	return nil
}

// Ping checks Redis and, when supported, the wrapped store.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	if p, ok := s.next.(services.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *Store) get(ctx context.Context, id string) (core.Transaction, bool) {
	data, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if err != goredis.Nil {
			slog.WarnContext(ctx, "Redis read failed", "component", "cache", "transaction_id", id, "error", err)
		}
		return core.Transaction{}, false
	}
	var tx core.Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		slog.WarnContext(ctx, "Discarding undecodable cache entry", "component", "cache", "transaction_id", id, "error", err)
		s.evict(ctx, id)
		return core.Transaction{}, false
	}
	return tx, true
}

func (s *Store) set(ctx context.Context, tx core.Transaction) {
	data, err := json.Marshal(tx)
	if err != nil {
		slog.WarnContext(ctx, "Cache marshal failed", "component", "cache", "transaction_id", tx.ID, "error", err)
		return
	}
	if err := s.client.Set(ctx, keyPrefix+tx.ID, data, s.ttl).Err(); err != nil {
		slog.WarnContext(ctx, "Redis write failed", "component", "cache", "transaction_id", tx.ID, "error", err)
	}
}

func (s *Store) evict(ctx context.Context, id string) {
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		slog.WarnContext(ctx, "Redis delete failed", "component", "cache", "transaction_id", id, "error", err)
	}
}
