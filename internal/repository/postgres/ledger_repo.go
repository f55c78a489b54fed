package postgres

import (
	"context"
	"fmt"

	"github.com/glimpsegive/glimpse-ledger/internal/errs"
	"github.com/glimpsegive/glimpse-ledger/internal/model"
	"github.com/glimpsegive/glimpse-ledger/internal/repository"
)

// LedgerRepo implements LedgerRepository using PostgreSQL.
type LedgerRepo struct{ db *DB }

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

// NewLedgerRepo constructs a ledger repository.
func NewLedgerRepo(db *DB) *LedgerRepo { return &LedgerRepo{db: db} }

// Insert adds one row. The unique index on tx_signature decides races
// between concurrent submissions of the same signature.
func (r *LedgerRepo) Insert(ctx context.Context, t *model.Transaction) error {
	const q = `
INSERT INTO transactions (id, wallet_address, need_id, tx_signature, amount, note)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING created_at`
	err := r.db.Pool.QueryRow(ctx, q, t.ID, t.WalletAddress, t.NeedID, t.TxSignature, t.Amount, t.Note).Scan(&t.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("signature %s: %w", t.TxSignature, errs.ErrAlreadyExists)
	}
	return err
}

// ListByWallet returns up to limit rows for wallet, newest first.
func (r *LedgerRepo) ListByWallet(ctx context.Context, wallet string, limit int) ([]model.Transaction, error) {
	const q = `
SELECT t.id, t.wallet_address, t.need_id, n.slug, t.tx_signature, t.amount, t.note, t.created_at
FROM transactions t
LEFT JOIN needs n ON n.id = t.need_id
WHERE t.wallet_address=$1
ORDER BY t.created_at DESC
LIMIT $2`
	rows, err := r.db.Pool.Query(ctx, q, wallet, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.WalletAddress, &t.NeedID, &t.NeedSlug, &t.TxSignature, &t.Amount, &t.Note, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
