// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/glimpsegive/glimpse-ledger/internal/model"
)

// LedgerRepository is the only write path into the donation ledger.
// Rows are never updated or deleted.
type LedgerRepository interface {
	// Insert stores t and fills CreatedAt. A second row for the same
	// signature fails with errs.ErrAlreadyExists.
	Insert(ctx context.Context, t *model.Transaction) error
	// ListByWallet returns the wallet's rows, newest first.
	ListByWallet(ctx context.Context, wallet string, limit int) ([]model.Transaction, error)
}

// NeedRepository resolves needs by slug.
type NeedRepository interface {
	// IDBySlug returns errs.ErrNotFound for an unknown slug.
	IDBySlug(ctx context.Context, slug string) (uuid.UUID, error)
	// Slugs lists every need slug, for vault derivation at startup.
	Slugs(ctx context.Context) ([]string, error)
}

// ProfileRepository stores wallet-bound profiles.
type ProfileRepository interface {
	// UpsertByWallet returns the wallet's profile, creating it on first sign-in.
	UpsertByWallet(ctx context.Context, wallet string) (*model.Profile, error)
}
