// Package storage is the SQL-backed ledger store. The same queries run on
// SQLite (modernc.org/sqlite) and PostgreSQL (lib/pq); timestamps are kept
// as Unix milliseconds so both dialects compare them identically.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"moneymanager/internal/core"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	return string(d)
}

const columns = "id, type, division, category, amount_cents, description, date_ms, created_at_ms, editable_until_ms"

type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLiteRepository opens (creating if needed) the SQLite file at dbPath
// and migrates it.
func NewSQLiteRepository(dbPath string) (*SQLRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	if err := RunMigrations(DialectSQLite, dsn); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection serializes access.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("SQLite store ready", "component", "storage", "db_path", dbPath)
	return &SQLRepository{db: db, dialect: DialectSQLite}, nil
}

// NewPostgresRepository connects to the PostgreSQL database at dsn and
// migrates it.
func NewPostgresRepository(ctx context.Context, dsn string) (*SQLRepository, error) {
	if err := RunMigrations(DialectPostgres, dsn); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.InfoContext(ctx, "Postgres store ready", "component", "storage")
	return &SQLRepository{db: db, dialect: DialectPostgres}, nil
}

func (r *SQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLRepository) Insert(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	q := r.rebind("INSERT INTO transactions (" + columns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if _, err := r.db.ExecContext(ctx, q, rowArgs(tx)...); err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved",
		"component", "storage",
		"dialect", r.dialect,
		"transaction_id", tx.ID,
		"amount_cents", tx.Amount.Cents)

	return tx, nil
}

func (r *SQLRepository) Get(ctx context.Context, id string) (core.Transaction, error) {
	q := r.rebind("SELECT " + columns + " FROM transactions WHERE id = ?")
	tx, err := scanTransaction(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("get %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get %s: %w", id, err)
	}
	return tx, nil
}

func (r *SQLRepository) Query(ctx context.Context, f core.Filter) ([]core.Transaction, error) {
	var (
		where []string
		args  []any
	)
	if f.Division != "" {
		where = append(where, "division = ?")
		args = append(args, f.Division)
	}
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.From != nil {
		where = append(where, "date_ms >= ?")
		args = append(args, f.From.UnixMilli())
	}
	if f.To != nil {
		where = append(where, "date_ms <= ?")
		args = append(args, f.To.UnixMilli())
	}

	q := "SELECT " + columns + " FROM transactions"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY date_ms DESC, created_at_ms DESC, id ASC"

	rows, err := r.db.QueryContext(ctx, r.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// Update reads, merges and writes the record inside one SQL transaction.
func (r *SQLRepository) Update(ctx context.Context, id string, p core.Patch) (core.Transaction, error) {
	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("begin update: %w", err)
	}
	defer sqlTx.Rollback()

	sel := "SELECT " + columns + " FROM transactions WHERE id = ?"
	if r.dialect == DialectPostgres {
		sel += " FOR UPDATE"
	}
	tx, err := scanTransaction(sqlTx.QueryRowContext(ctx, r.rebind(sel), id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("update %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("load %s for update: %w", id, err)
	}

	p.Apply(&tx)
	upd := r.rebind(`UPDATE transactions
		SET type = ?, division = ?, category = ?, amount_cents = ?, description = ?, date_ms = ?
		WHERE id = ?`)
	if _, err := sqlTx.ExecContext(ctx, upd,
		string(tx.Type), string(tx.Division), tx.Category, tx.Amount.Cents, tx.Description, tx.Date.UnixMilli(), id); err != nil {
		return core.Transaction{}, fmt.Errorf("update %s: %w", id, err)
	}

	if err := sqlTx.Commit(); err != nil {
		return core.Transaction{}, fmt.Errorf("commit update: %w", err)
	}
	return tx, nil
}

func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.rebind("DELETE FROM transactions WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (r *SQLRepository) rebind(q string) string {
	if r.dialect != DialectPostgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx                                 core.Transaction
		txType, division                   string
		dateMs, createdAtMs, editableUntil int64
	)
	if err := row.Scan(&tx.ID, &txType, &division, &tx.Category, &tx.Amount.Cents, &tx.Description,
		&dateMs, &createdAtMs, &editableUntil); err != nil {
		return core.Transaction{}, err
	}
	tx.Type = core.TxType(txType)
	tx.Division = core.Division(division)
	tx.Date = time.UnixMilli(dateMs).UTC()
	tx.CreatedAt = time.UnixMilli(createdAtMs).UTC()
	tx.EditableUntil = time.UnixMilli(editableUntil).UTC()
	return tx, nil
}

func rowArgs(tx core.Transaction) []any {
	return []any{
		tx.ID,
		string(tx.Type),
		string(tx.Division),
		tx.Category,
		tx.Amount.Cents,
		tx.Description,
		tx.Date.UnixMilli(),
		tx.CreatedAt.UnixMilli(),
		tx.EditableUntil.UnixMilli(),
	}
}
