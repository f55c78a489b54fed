package nonce

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/glimpsegive/glimpse-ledger/internal/errs"
)

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore keeps nonces in the nonces table.
type PGStore struct {
	db  pgxQuerier
	now func() time.Time
}

var _ Store = (*PGStore)(nil)

// NewPGStore returns a store on q (usually a *pgxpool.Pool).
func NewPGStore(q pgxQuerier) *PGStore {
	return &PGStore{db: q, now: time.Now}
}

// Put purges expired rows, then inserts value.
func (s *PGStore) Put(ctx context.Context, value string, ttl time.Duration) error {
	now := s.now()
	if _, err := s.db.Exec(ctx, `DELETE FROM nonces WHERE expires_at < $1`, now); err != nil {
		return fmt.Errorf("purge nonces: %w", err)
	}
	if _, err := s.db.Exec(ctx, `INSERT INTO nonces (nonce, expires_at) VALUES ($1, $2)`, value, now.Add(ttl)); err != nil {
		return fmt.Errorf("insert nonce: %w", err)
	}
	return nil
}

// Consume deletes value and reports whether it was still live.
func (s *PGStore) Consume(ctx context.Context, value string) error {
	var expiresAt time.Time
	err := s.db.QueryRow(ctx, `DELETE FROM nonces WHERE nonce = $1 RETURNING expires_at`, value).Scan(&expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.ErrNonceInvalid
	}
	if err != nil {
		return fmt.Errorf("consume nonce: %w", err)
	}
	if expiresAt.Before(s.now()) {
		return fmt.Errorf("%w: expired", errs.ErrNonceInvalid)
	}
	return nil
}
