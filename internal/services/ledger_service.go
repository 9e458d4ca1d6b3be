package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"moneymanager/internal/cache"
	"moneymanager/internal/core"
	"moneymanager/internal/log"
)

const (
	defaultStoreTimeout = 5 * time.Second
	statsCacheSize      = 128
)

// Options configures a LedgerService. Zero values select defaults.
type Options struct {
	StoreTimeout  time.Duration
	StatsCacheTTL time.Duration
	Publisher     EventPublisher
	Logger        *log.Logger
	Clock         func() time.Time
}

// LedgerService enforces the ledger rules around a Store: input validation,
// the edit window, stats aggregation and change events.
type LedgerService struct {
	store     Store
	publisher EventPublisher
	logger    *log.Logger
	events    *log.StructuredLogger
	now       func() time.Time
	timeout   time.Duration

	stats *cache.LRUCache[core.Stats]
	group singleflight.Group

	// statsMu orders cache fills against invalidation; generation counts
	// writes and is guarded by it.
	statsMu    sync.Mutex
	generation uint64
}

func NewLedgerService(store Store, opts Options) *LedgerService {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	logger := opts.Logger.WithComponent(log.ComponentLedger)

	s := &LedgerService{
		store:     store,
		publisher: opts.Publisher,
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
		now:       opts.Clock,
		timeout:   opts.StoreTimeout,
	}
	if opts.StatsCacheTTL > 0 {
		s.stats = cache.NewLRUCache[core.Stats](statsCacheSize, opts.StatsCacheTTL)
	}
	return s
}

// StatsCache exposes the stats cache so its expired entries can be swept by
// a cache.Manager. It is nil when caching is disabled.
func (s *LedgerService) StatsCache() *cache.LRUCache[core.Stats] {
	return s.stats
}

// Create validates req and stores a new transaction that stays editable for
// core.EditWindow.
func (s *LedgerService) Create(ctx context.Context, req CreateRequest) (core.Transaction, error) {
	if err := validateRequest(req); err != nil {
		return core.Transaction{}, err
	}

	// Millisecond precision matches what the SQL stores keep.
	now := s.now().UTC().Truncate(time.Millisecond)
	tx := req.toTransaction()
	tx.ID = uuid.NewString()
	tx.CreatedAt = now
	tx.EditableUntil = now.Add(core.EditWindow)
	if tx.Date.IsZero() {
		tx.Date = now
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	sctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	stored, err := s.store.Insert(sctx, tx)
	if err != nil {
		return core.Transaction{}, s.storeError(ctx, log.OpCreate, err)
	}

	s.afterWrite(ctx, log.OpCreate, core.EventCreated, stored)
	return stored, nil
}

// List returns the transactions matching f, most recent first.
func (s *LedgerService) List(ctx context.Context, f core.Filter) ([]core.Transaction, error) {
	txs, err := s.query(ctx, normalizeFilter(f))
	if err != nil {
		return nil, s.storeError(ctx, log.OpList, err)
	}
	return txs, nil
}

// Stats totals the transactions matching f.
func (s *LedgerService) Stats(ctx context.Context, f core.Filter) (core.Stats, error) {
	f = normalizeFilter(f)
	key := f.Key()
	if s.stats != nil {
		if st, ok := s.stats.Get(key); ok {
			return st, nil
		}
	}

	gen := s.currentGeneration()
	v, err, _ := s.group.Do(key+"#"+strconv.FormatUint(gen, 10), func() (any, error) {
		txs, err := s.query(ctx, f)
		if err != nil {
			return nil, err
		}
		st, err := core.Summarize(txs)
		if err != nil {
			return nil, fmt.Errorf("summarize %d records: %w", len(txs), err)
		}
		return st, nil
	})
	if errors.Is(err, core.ErrTotalOverflow) {
		s.logger.ErrorContext(ctx, "Stats total overflow", log.FieldError, err)
		return core.Stats{}, err
	}
	if err != nil {
		return core.Stats{}, s.storeError(ctx, log.OpStats, err)
	}

	st := v.(core.Stats)
	if s.stats != nil {
		s.statsMu.Lock()
		if s.generation == gen {
			s.stats.Set(key, st)
		}
		s.statsMu.Unlock()
	}
	return st, nil
}

// Update merges req into the record id while its edit window is open.
func (s *LedgerService) Update(ctx context.Context, id string, req UpdateRequest) (core.Transaction, error) {
	if err := validateRequest(req); err != nil {
		return core.Transaction{}, err
	}

	current, err := s.get(ctx, id)
	if err != nil {
		return core.Transaction{}, s.storeError(ctx, log.OpUpdate, err)
	}
	if !current.Editable(s.now()) {
		return core.Transaction{}, fmt.Errorf("update %s: %w", id, core.ErrEditWindowExpired)
	}

	patch := req.toPatch()
	if patch.Empty() {
		return current, nil
	}
	merged := current
	patch.Apply(&merged)
	if err := merged.Validate(); err != nil {
		return core.Transaction{}, err
	}

	sctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	updated, err := s.store.Update(sctx, id, patch)
	if err != nil {
		return core.Transaction{}, s.storeError(ctx, log.OpUpdate, err)
	}

	s.afterWrite(ctx, log.OpUpdate, core.EventUpdated, updated)
	return updated, nil
}

// Delete removes the record id while its edit window is open.
func (s *LedgerService) Delete(ctx context.Context, id string) error {
	current, err := s.get(ctx, id)
	if err != nil {
		return s.storeError(ctx, log.OpDelete, err)
	}
	if !current.Editable(s.now()) {
		return fmt.Errorf("delete %s: %w", id, core.ErrEditWindowExpired)
	}

	sctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.store.Delete(sctx, id); err != nil {
		return s.storeError(ctx, log.OpDelete, err)
	}

	s.afterWrite(ctx, log.OpDelete, core.EventDeleted, current)
	return nil
}

// Ready checks that the store answers within the store timeout.
func (s *LedgerService) Ready(ctx context.Context) error {
	sctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if p, ok := s.store.(Pinger); ok {
		return p.Ping(sctx)
	}
	_, err := s.store.Query(sctx, core.Filter{})
	return err
}

func (s *LedgerService) get(ctx context.Context, id string) (core.Transaction, error) {
	if strings.TrimSpace(id) == "" {
		return core.Transaction{}, core.ErrNotFound
	}
	sctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.store.Get(sctx, id)
}

func (s *LedgerService) query(ctx context.Context, f core.Filter) ([]core.Transaction, error) {
	sctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.store.Query(sctx, f)
}

// storeError keeps not-found errors as they are and reports every other
// store failure as core.ErrStorageUnavailable.
func (s *LedgerService) storeError(ctx context.Context, op string, err error) error {
	if errors.Is(err, core.ErrNotFound) {
		return err
	}
	errType := log.ErrorTypeDatabase
	if errors.Is(err, context.DeadlineExceeded) {
		errType = log.ErrorTypeTimeout
	}
	s.events.LogError(ctx, "Store operation failed", err, log.ComponentStorage, op,
		log.NewFields().WithErrorType(errType))
	return fmt.Errorf("%w: %w", core.ErrStorageUnavailable, err)
}

func (s *LedgerService) currentGeneration() uint64 {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.generation
}

func (s *LedgerService) afterWrite(ctx context.Context, op string, kind core.EventKind, tx core.Transaction) {
	s.statsMu.Lock()
	s.generation++
	if s.stats != nil {
		s.stats.Purge()
	}
	s.statsMu.Unlock()

	s.events.LogTransactionChanged(ctx, op, tx.ID, string(tx.Type), string(tx.Division), tx.Category, tx.Amount.Cents)

	if s.publisher == nil {
		return
	}
	// A failed publish never fails the request; the record is already stored.
	if err := s.publisher.PublishTransactionEvent(ctx, kind, tx); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish transaction event",
			log.FieldTransactionID, tx.ID,
			log.FieldEventKind, string(kind),
			log.FieldError, err)
	}
}

// normalizeFilter treats the "All" sentinel as no filter.
func normalizeFilter(f core.Filter) core.Filter {
	f.Division = strings.TrimSpace(f.Division)
	f.Category = strings.TrimSpace(f.Category)
	if f.Division == core.AllSentinel {
		f.Division = ""
	}
	if f.Category == core.AllSentinel {
		f.Category = ""
	}
	return f
}
