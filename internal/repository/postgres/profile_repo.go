package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/glimpsegive/glimpse-ledger/internal/model"
	"github.com/glimpsegive/glimpse-ledger/internal/repository"
)

// ProfileRepo implements ProfileRepository using PostgreSQL.
type ProfileRepo struct{ db *DB }

var _ repository.ProfileRepository = (*ProfileRepo)(nil)

// NewProfileRepo constructs a profile repository.
func NewProfileRepo(db *DB) *ProfileRepo { return &ProfileRepo{db: db} }

// UpsertByWallet inserts a profile for wallet or returns the existing one.
func (r *ProfileRepo) UpsertByWallet(ctx context.Context, wallet string) (*model.Profile, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	const q = `
INSERT INTO profiles (id, wallet_address)
VALUES ($1, $2)
ON CONFLICT (wallet_address) DO UPDATE SET updated_at=now()
RETURNING id, wallet_address, display_name, avatar_url`
	var p model.Profile
	if err := r.db.Pool.QueryRow(ctx, q, id, wallet).Scan(&p.ID, &p.WalletAddress, &p.DisplayName, &p.AvatarURL); err != nil {
		return nil, err
	}
	return &p, nil
}
