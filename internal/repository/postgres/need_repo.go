package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/glimpsegive/glimpse-ledger/internal/errs"
	"github.com/glimpsegive/glimpse-ledger/internal/repository"
)

// NeedRepo implements NeedRepository using PostgreSQL.
type NeedRepo struct{ db *DB }

var _ repository.NeedRepository = (*NeedRepo)(nil)

// NewNeedRepo constructs a need repository.
func NewNeedRepo(db *DB) *NeedRepo { return &NeedRepo{db: db} }

// IDBySlug resolves a slug to the need's id.
func (r *NeedRepo) IDBySlug(ctx context.Context, slug string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.db.Pool.QueryRow(ctx, `SELECT id FROM needs WHERE slug=$1`, slug).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, errs.ErrNotFound
	}
	return id, err
}

// Slugs lists all need slugs in a stable order.
func (r *NeedRepo) Slugs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT slug FROM needs ORDER BY slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
