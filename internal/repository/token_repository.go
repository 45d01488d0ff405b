package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/coupon-console/internal/token"
)

// PoolInterface defines the database operations needed by repositories.
// This allows for easier testing with mocks.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const createTokensTable = `CREATE TABLE IF NOT EXISTS console_tokens (
	key        TEXT PRIMARY KEY,
	token      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresTokenStore keeps the bearer token in a single row keyed by key,
// for consoles that share one session across hosts.
type PostgresTokenStore struct {
	pool PoolInterface
	key  string
}

var _ token.Store = (*PostgresTokenStore)(nil)

// NewPostgresTokenStore creates a store on the given pool.
func NewPostgresTokenStore(pool *pgxpool.Pool, key string) *PostgresTokenStore {
	return &PostgresTokenStore{pool: pool, key: key}
}

// NewPostgresTokenStoreWithPool creates a store with a custom pool interface.
// This is primarily used for testing.
func NewPostgresTokenStoreWithPool(pool PoolInterface, key string) *PostgresTokenStore {
	return &PostgresTokenStore{pool: pool, key: key}
}

// EnsureSchema creates the token table if it is missing.
func (r *PostgresTokenStore) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, createTokensTable); err != nil {
		return fmt.Errorf("create console_tokens: %w", err)
	}
	return nil
}

// Set upserts the token row.
func (r *PostgresTokenStore) Set(ctx context.Context, tok string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO console_tokens (key, token, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET token = EXCLUDED.token, updated_at = EXCLUDED.updated_at`,
		r.key, tok)
	if err != nil {
		return fmt.Errorf("store token %s: %w", r.key, err)
	}
	return nil
}

// Get returns the stored token, or "" when no row exists.
func (r *PostgresTokenStore) Get(ctx context.Context) (string, error) {
	var tok string
	err := r.pool.QueryRow(ctx, `SELECT token FROM console_tokens WHERE key = $1`, r.key).Scan(&tok)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get token %s: %w", r.key, err)
	}
	return tok, nil
}

// Remove deletes the token row. Deleting a missing row is not an error.
func (r *PostgresTokenStore) Remove(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM console_tokens WHERE key = $1`, r.key); err != nil {
		return fmt.Errorf("delete token %s: %w", r.key, err)
	}
	return nil
}
