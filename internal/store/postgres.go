package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresKV stores entries in the console_kv table.
type PostgresKV struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewPostgresKV constructs a store over db. ttl <= 0 disables expiry.
func NewPostgresKV(db *sql.DB, ttl time.Duration) *PostgresKV {
	return &PostgresKV{db: db, ttl: ttl, now: time.Now}
}

func (p *PostgresKV) Get(ctx context.Context, key string) (string, error) {
	const query = `
		SELECT value
		FROM console_kv
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > $2)`
	var value string
	err := p.db.QueryRowContext(ctx, query, key, p.now()).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

func (p *PostgresKV) Set(ctx context.Context, key, value string) error {
	now := p.now()
	var expiresAt sql.NullTime
	if p.ttl > 0 {
		expiresAt = sql.NullTime{Time: now.Add(p.ttl), Valid: true}
	}

	const query = `
		INSERT INTO console_kv (key, value, expires_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at`
	_, err := p.db.ExecContext(ctx, query, key, value, expiresAt, now)
	return err
}

func (p *PostgresKV) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM console_kv WHERE key = $1`
	_, err := p.db.ExecContext(ctx, query, key)
	return err
}

// PurgeExpired removes expired rows and returns how many were deleted.
func (p *PostgresKV) PurgeExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM console_kv WHERE expires_at IS NOT NULL AND expires_at <= $1`
	result, err := p.db.ExecContext(ctx, query, p.now())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
