package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"poolScope/internal/storage"
)

//go:embed schema.sql
var schema string

// Store provides Postgres persistence for the entity store and scheduler state.
type Store struct {
	pool *pgxpool.Pool
}

var (
	_ storage.Store      = (*Store)(nil)
	_ storage.StateStore = (*Store)(nil)
)

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// LoadState returns last_processed_ts for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var ts int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_ts FROM indexer_state WHERE name=$1`, name)
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(ts), true, nil
}

// SaveState upserts last_processed_ts for a name.
func (s *Store) SaveState(ctx context.Context, name string, ts uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO indexer_state (name, last_processed_ts, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_ts = EXCLUDED.last_processed_ts, updated_at = now()
	`, name, int64(ts))
	return err
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// table describes one entity table: its key columns come first in columns.
type table struct {
	name    string
	columns []string
	keys    int
}

func (t table) selectSQL() string {
	where := make([]string, t.keys)
	for i := 0; i < t.keys; i++ {
		where[i] = fmt.Sprintf("%s=$%d", t.columns[i], i+1)
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s", joinColumns(t), t.name, strings.Join(where, " AND "))
}

func (t table) insertSQL() string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING",
		t.name, strings.Join(t.columns, ", "), placeholders(len(t.columns)), strings.Join(t.columns[:t.keys], ", "))
}

func (t table) upsertSQL() string {
	set := make([]string, 0, len(t.columns)-t.keys)
	for _, column := range t.columns[t.keys:] {
		set = append(set, fmt.Sprintf("%s = EXCLUDED.%s", column, column))
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		t.name, strings.Join(t.columns, ", "), placeholders(len(t.columns)), strings.Join(t.columns[:t.keys], ", "), strings.Join(set, ", "))
}

func joinColumns(t table) string { return strings.Join(t.columns, ", ") }

func placeholders(n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = "$" + strconv.Itoa(i+1)
	}
	return strings.Join(out, ", ")
}

// updateRow locks a row, applies fn in Go and writes the full row back.
func updateRow[T any](ctx context.Context, db *pgxpool.Pool, t table, key []any, scan func(pgx.Row) (*T, error), fn func(*T), args func(*T) []any) (*T, error) {
	var out *T
	err := pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		row, err := scan(tx.QueryRow(ctx, t.selectSQL()+" FOR UPDATE", key...))
		if err != nil || row == nil {
			return err
		}
		fn(row)
		if _, err := tx.Exec(ctx, t.upsertSQL(), args(row)...); err != nil {
			return err
		}
		out = row
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", t.name, err)
	}
	return out, nil
}

// insertRow inserts when absent and returns the stored row.
func insertRow[T any](ctx context.Context, db querier, t table, key []any, scan func(pgx.Row) (*T, error), args []any) (*T, error) {
	if _, err := db.Exec(ctx, t.insertSQL(), args...); err != nil {
		return nil, fmt.Errorf("insert %s: %w", t.name, err)
	}
	return findRow(ctx, db, t, key, scan)
}

func findRow[T any](ctx context.Context, db querier, t table, key []any, scan func(pgx.Row) (*T, error)) (*T, error) {
	row, err := scan(db.QueryRow(ctx, t.selectSQL(), key...))
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", t.name, err)
	}
	return row, nil
}

func noRows(err error) bool { return errors.Is(err, pgx.ErrNoRows) }

func toNumeric(v *big.Int) pgtype.Numeric {
	if v == nil {
		return pgtype.Numeric{}
	}
	return pgtype.Numeric{Int: new(big.Int).Set(v), Valid: true}
}

// fromNumeric converts an integral NUMERIC. Postgres may return it with a positive exponent.
func fromNumeric(n pgtype.Numeric) *big.Int {
	if !n.Valid || n.NaN || n.Int == nil {
		return nil
	}
	out := new(big.Int).Set(n.Int)
	switch {
	case n.Exp > 0:
		out.Mul(out, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n.Exp)), nil))
	case n.Exp < 0:
		out.Quo(out, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-n.Exp)), nil))
	}
	return out
}

// numerics scans a run of NUMERIC columns into big.Int fields.
type numerics []pgtype.Numeric

func newNumerics(n int) numerics { return make(numerics, n) }

func (n numerics) dest() []any {
	out := make([]any, len(n))
	for i := range n {
		out[i] = &n[i]
	}
	return out
}

func (n numerics) assign(targets ...**big.Int) {
	for i, target := range targets {
		*target = fromNumeric(n[i])
	}
}
