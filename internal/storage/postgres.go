package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/pkordes/travel-journal/migrations"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Integration tests pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresBackend stores payloads as JSONB in the kv_store table.
type PostgresBackend struct {
	db   db
	pool *pgxpool.Pool // nil when constructed around a caller-owned connection
}

// OpenPostgres creates a connection pool for dsn, verifies the database is
// reachable and applies the kv_store migrations.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresBackend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage.OpenPostgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage.OpenPostgres: ping: %w", err)
	}

	// goose needs database/sql; closing this handle leaves the pool open.
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()
	if err := Migrate(ctx, goose.DialectPostgres, sqlDB, migrations.Postgres()); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresBackend{db: pool, pool: pool}, nil
}

// NewPostgresBackend wraps an existing connection or transaction.
// The caller keeps ownership; Close is a no-op.
func NewPostgresBackend(conn db) *PostgresBackend {
	return &PostgresBackend{db: conn}
}

func (p *PostgresBackend) Get(ctx context.Context, key string) ([]byte, error) {
	const q = `SELECT value::text FROM kv_store WHERE key = @key`

	var value string
	err := p.db.QueryRow(ctx, q, pgx.NamedArgs{"key": key}).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("storage.PostgresBackend.Get: %w", err)
	}
	return []byte(value), nil
}

func (p *PostgresBackend) Put(ctx context.Context, key string, value []byte) error {
	const q = `
		INSERT INTO kv_store (key, value)
		VALUES (@key, @value::jsonb)
		ON CONFLICT (key) DO UPDATE
		SET value      = EXCLUDED.value,
		    updated_at = now()`

	args := pgx.NamedArgs{
		"key":   key,
		"value": string(value),
	}
	if _, err := p.db.Exec(ctx, q, args); err != nil {
		return fmt.Errorf("storage.PostgresBackend.Put: %w", err)
	}
	return nil
}

func (p *PostgresBackend) Ping(ctx context.Context) error {
	if p.pool != nil {
		return p.pool.Ping(ctx)
	}
	_, err := p.db.Exec(ctx, `SELECT 1`)
	return err
}

func (p *PostgresBackend) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}
