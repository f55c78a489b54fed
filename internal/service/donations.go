// Package service contains the donation recording pipeline and wallet sign-in.
package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/gagliardetto/solana-go"
	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/glimpsegive/glimpse-ledger/internal/chain"
	"github.com/glimpsegive/glimpse-ledger/internal/errs"
	"github.com/glimpsegive/glimpse-ledger/internal/escrow"
	"github.com/glimpsegive/glimpse-ledger/internal/events"
	"github.com/glimpsegive/glimpse-ledger/internal/metrics"
	"github.com/glimpsegive/glimpse-ledger/internal/model"
	"github.com/glimpsegive/glimpse-ledger/internal/repository"
)

// MaxNoteLen bounds the donor note in characters.
const MaxNoteLen = 500

// Authorizer checks bearer tokens.
type Authorizer interface {
	Authorize(header, claimedWallet string) (model.Session, error)
	Session(header string) (model.Session, error)
}

// Verifier derives verified facts from a fetched transaction.
type Verifier interface {
	Verify(tx *chain.Transaction, claim model.Claim) (model.VerifiedDonation, error)
}

// Blockhasher supplies recent blockhashes for new transactions.
type Blockhasher interface {
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
}

// VaultRegistry holds the vaults the verifier and builder resolve slugs with.
type VaultRegistry interface {
	Lookup(slug string) (escrow.Vault, bool)
	Add(slug string) (escrow.Vault, error)
}

// DonationDeps are the collaborators of DonationService. Events, Metrics,
// Vaults, Builder and Blockhash are optional.
type DonationDeps struct {
	Gate      Authorizer
	Fetcher   chain.Fetcher
	Verifier  Verifier
	Needs     repository.NeedRepository
	Ledger    repository.LedgerRepository
	Events    events.Publisher
	Metrics   *metrics.Metrics
	Vaults    VaultRegistry
	Builder   *escrow.Builder
	Blockhash Blockhasher
	Log       *zap.Logger

	HistoryLimit int
}

// DonationService records verified donations. It holds no per-request state;
// concurrent submissions of one signature are settled by the ledger's
// unique index.
type DonationService struct {
	d   DonationDeps
	now func() time.Time
}

// NewDonationService constructs the pipeline.
func NewDonationService(d DonationDeps) *DonationService {
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.HistoryLimit <= 0 {
		d.HistoryLimit = 50
	}
	return &DonationService{d: d, now: time.Now}
}

// Record runs RECEIVED -> AUTHENTICATED -> FETCHED -> VERIFIED -> RECORDED.
// Every rejection leaves the ledger untouched; nothing is retried here.
func (s *DonationService) Record(ctx context.Context, authHeader string, claim model.Claim) (model.Transaction, error) {
	t, err := s.record(ctx, authHeader, claim)
	s.count(outcome(err))
	return t, err
}

func (s *DonationService) record(ctx context.Context, authHeader string, claim model.Claim) (model.Transaction, error) {
	if err := validateClaim(claim); err != nil {
		return model.Transaction{}, err
	}
	log := s.d.Log.With(zap.String("sig", claim.TxSignature), zap.String("wallet", claim.WalletAddress))

	if _, err := s.d.Gate.Authorize(authHeader, claim.WalletAddress); err != nil {
		return model.Transaction{}, err
	}

	start := s.now()
	tx, err := s.d.Fetcher.Fetch(ctx, claim.TxSignature)
	if s.d.Metrics != nil {
		s.d.Metrics.FetchLatency.Observe(s.now().Sub(start).Seconds())
	}
	if err != nil {
		var fe *chain.FetchError
		switch {
		case !errors.As(err, &fe) || fe.Pending():
			log.Info("fetch transaction", zap.Error(err))
			return model.Transaction{}, errs.ErrTxNotFound
		case fe.Kind == chain.KindInvalidSignature:
			return model.Transaction{}, fmt.Errorf("%w: tx_signature is not a valid signature", errs.ErrValidation)
		default:
			log.Error("fetch transaction", zap.Error(err))
			return model.Transaction{}, fmt.Errorf("fetch transaction: %w", err)
		}
	}

	if err := s.registerVault(ctx, claim.NeedSlug); err != nil {
		log.Error("register vault", zap.Error(err))
		return model.Transaction{}, err
	}

	verified, err := s.d.Verifier.Verify(tx, claim)
	if err != nil {
		log.Info("verification rejected", zap.Error(err))
		return model.Transaction{}, err
	}

	row := model.Transaction{
		WalletAddress: verified.Signer,
		TxSignature:   claim.TxSignature,
		Amount:        verified.Amount,
	}
	if claim.Note != "" {
		note := claim.Note
		row.Note = &note
	}
	if verified.NeedSlug != "" {
		id, err := s.d.Needs.IDBySlug(ctx, verified.NeedSlug)
		switch {
		case errors.Is(err, errs.ErrNotFound):
			return model.Transaction{}, fmt.Errorf("%w: %q", errs.ErrUnknownNeed, verified.NeedSlug)
		case err != nil:
			log.Error("resolve need", zap.Error(err))
			return model.Transaction{}, errs.ErrRecordingFailed
		}
		row.NeedID = &id
	}

	if row.ID, err = uuid.NewV4(); err != nil {
		return model.Transaction{}, err
	}
	if err := s.d.Ledger.Insert(ctx, &row); err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			log.Info("duplicate submission")
			return model.Transaction{}, errs.ErrAlreadyExists
		}
		log.Error("insert ledger row", zap.Error(err), zap.String("amount", verified.Amount.String()))
		return model.Transaction{}, errs.ErrRecordingFailed
	}
	log.Info("donation recorded", zap.String("id", row.ID.String()), zap.String("amount", row.Amount.String()))

	ev := model.DonationRecorded{
		ID:            row.ID,
		TxSignature:   row.TxSignature,
		WalletAddress: row.WalletAddress,
		NeedSlug:      verified.NeedSlug,
		Amount:        row.Amount,
		RecordedAt:    row.CreatedAt,
	}
	if err := s.d.Events.DonationRecorded(ctx, ev); err != nil {
		log.Warn("publish donation event", zap.Error(err))
	}
	return row, nil
}

func validateClaim(c model.Claim) error {
	if c.TxSignature == "" {
		return fmt.Errorf("%w: missing or invalid tx_signature", errs.ErrValidation)
	}
	if c.WalletAddress == "" {
		return fmt.Errorf("%w: missing or invalid wallet_address", errs.ErrValidation)
	}
	if utf8.RuneCountInString(c.Note) > MaxNoteLen {
		return fmt.Errorf("%w: note longer than %d characters", errs.ErrValidation, MaxNoteLen)
	}
	return nil
}

// History returns the caller's own donations; the wallet comes from the token only.
func (s *DonationService) History(ctx context.Context, authHeader string) ([]model.Transaction, error) {
	sess, err := s.d.Gate.Session(authHeader)
	if err != nil {
		return nil, err
	}
	return s.d.Ledger.ListByWallet(ctx, sess.WalletAddress, s.d.HistoryLimit)
}

// PrepareRequest asks for an unsigned donate transaction.
type PrepareRequest struct {
	Donor    string
	NeedSlug string
	Amount   decimal.Decimal
}

// PreparedDonation is an unsigned transaction for the donor's wallet to sign.
type PreparedDonation struct {
	Transaction string // base64 wire form with empty signature slots
	Vault       string
	BaseUnits   uint64
	Blockhash   string
}

// Prepare builds an unsigned donate transaction against a fresh blockhash.
func (s *DonationService) Prepare(ctx context.Context, req PrepareRequest) (PreparedDonation, error) {
	if s.d.Builder == nil || s.d.Blockhash == nil {
		return PreparedDonation{}, errors.New("prepare: builder not configured")
	}
	donor, err := solana.PublicKeyFromBase58(req.Donor)
	if err != nil {
		return PreparedDonation{}, fmt.Errorf("%w: invalid donor address", errs.ErrValidation)
	}
	if req.NeedSlug == "" {
		return PreparedDonation{}, fmt.Errorf("%w: missing need_slug", errs.ErrValidation)
	}
	if err := s.registerVault(ctx, req.NeedSlug); err != nil {
		return PreparedDonation{}, err
	}
	if _, ok := s.d.Builder.Vaults.Lookup(req.NeedSlug); !ok {
		return PreparedDonation{}, fmt.Errorf("%w: %q", errs.ErrUnknownNeed, req.NeedSlug)
	}
	if _, err := escrow.ToBaseUnits(req.Amount, s.d.Builder.Decimals); err != nil {
		return PreparedDonation{}, fmt.Errorf("%w: %v", errs.ErrValidation, err)
	}

	bh, err := s.d.Blockhash.LatestBlockhash(ctx)
	if err != nil {
		return PreparedDonation{}, fmt.Errorf("latest blockhash: %w", err)
	}
	plan, err := s.d.Builder.BuildDonateTransaction(donor, req.NeedSlug, req.Amount, bh)
	if err != nil {
		return PreparedDonation{}, err
	}
	raw, err := escrow.MarshalUnsigned(plan.Tx)
	if err != nil {
		return PreparedDonation{}, err
	}
	return PreparedDonation{
		Transaction: base64.StdEncoding.EncodeToString(raw),
		Vault:       plan.Vault.Address.String(),
		BaseUnits:   plan.BaseUnits,
		Blockhash:   bh.String(),
	}, nil
}

// registerVault derives the vault of a need created after startup. Slugs with
// no need row are left unregistered, and lookups for them keep failing.
func (s *DonationService) registerVault(ctx context.Context, slug string) error {
	if slug == "" || s.d.Vaults == nil {
		return nil
	}
	if _, ok := s.d.Vaults.Lookup(slug); ok {
		return nil
	}
	_, err := s.d.Needs.IDBySlug(ctx, slug)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("resolve need %q: %w", slug, err)
	}
	if _, err := s.d.Vaults.Add(slug); err != nil {
		s.d.Log.Warn("need has no derivable vault", zap.String("slug", slug), zap.Error(err))
	}
	return nil
}

func (s *DonationService) count(o string) {
	if s.d.Metrics != nil {
		s.d.Metrics.Submissions.WithLabelValues(o).Inc()
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "recorded"
	case errors.Is(err, errs.ErrValidation):
		return "invalid"
	case errors.Is(err, errs.ErrMissingToken), errors.Is(err, errs.ErrInvalidToken):
		return "unauthenticated"
	case errors.Is(err, errs.ErrWalletMismatch):
		return "wallet_mismatch"
	case errors.Is(err, errs.ErrTxNotFound):
		return "not_found"
	case errors.Is(err, errs.ErrTxFailed):
		return "failed_onchain"
	case errors.Is(err, errs.ErrNotSigner):
		return "not_signer"
	case errors.Is(err, errs.ErrAmountIndeterminate):
		return "amount_indeterminate"
	case errors.Is(err, errs.ErrUnknownNeed), errors.Is(err, errs.ErrDestinationMismatch):
		return "bad_need"
	case errors.Is(err, errs.ErrAlreadyExists):
		return "duplicate"
	default:
		return "error"
	}
}
