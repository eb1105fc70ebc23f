package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const idempotencyColumns = `idempotency_key, user_id, request_hash, status_code, response_body, created_at, expires_at`

// IdempotencyCacheEntry is a replayed response for a staff API write. The
// request hash guards against the same key being reused with a different
// payload.
type IdempotencyCacheEntry struct {
	Key          string
	UserID       uuid.UUID
	RequestHash  string
	StatusCode   int
	ResponseBody []byte
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

type IdempotencyRepository struct {
	db *sql.DB
}

func NewIdempotencyRepository(db *sql.DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

// Get returns the cached response for a key, or nil when there is no live
// entry. Expired entries are treated as absent even before cleanup runs.
func (r *IdempotencyRepository) Get(ctx context.Context, key string, userID uuid.UUID) (*IdempotencyCacheEntry, error) {
	query := `SELECT ` + idempotencyColumns + `
		FROM idempotency_cache
		WHERE idempotency_key = $1 AND user_id = $2 AND expires_at > now()`

	var e IdempotencyCacheEntry
	err := r.db.QueryRowContext(ctx, query, key, userID).Scan(
		&e.Key, &e.UserID, &e.RequestHash, &e.StatusCode,
		&e.ResponseBody, &e.CreatedAt, &e.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}
	return &e, nil
}

// Set records a response for replay. Concurrent requests can race here; the
// first writer wins and later writers keep their own already-sent response.
func (r *IdempotencyRepository) Set(ctx context.Context, entry *IdempotencyCacheEntry) error {
	query := `INSERT INTO idempotency_cache (` + idempotencyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (idempotency_key, user_id) DO NOTHING`

	_, err := r.db.ExecContext(ctx, query,
		entry.Key, entry.UserID, entry.RequestHash, entry.StatusCode,
		entry.ResponseBody, entry.CreatedAt, entry.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("Set: %w", err)
	}
	return nil
}

func (r *IdempotencyRepository) CleanExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM idempotency_cache WHERE expires_at < now()`,
	)
	if err != nil {
		return 0, fmt.Errorf("CleanExpired: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("CleanExpired: rows affected: %w", err)
	}
	return n, nil
}
