// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
)

// NeedStatus is the lifecycle state of a funding request.
type NeedStatus string

const (
	NeedActive    NeedStatus = "active"
	NeedFulfilled NeedStatus = "fulfilled"
	NeedArchived  NeedStatus = "archived"
)

// Need is a funding request. Slug is immutable once a vault is derived from it.
type Need struct {
	ID          uuid.UUID
	Slug        string // unique, vault derivation seed
	Title       string
	Description string
	Target      decimal.Decimal
	Funded      decimal.Decimal
	Partner     *string
	Status      NeedStatus
}

// Transaction is a verified ledger row. Rows are append-only.
type Transaction struct {
	ID            uuid.UUID
	WalletAddress string     // signer
	NeedID        *uuid.UUID // nil when no need was claimed
	NeedSlug      *string    // read side only
	TxSignature   string     // unique
	Amount        decimal.Decimal
	Note          *string
	CreatedAt     time.Time
}

// Claim is what a client asserts about a submitted donation.
// Nothing in it is trusted until checked against the chain.
type Claim struct {
	TxSignature   string
	WalletAddress string
	NeedSlug      string // empty when no need is claimed
	Note          string
}

// VerifiedDonation holds facts re-derived from the ledger.
type VerifiedDonation struct {
	Signer   string
	Amount   decimal.Decimal
	NeedSlug string // empty when no need was claimed
}

// Profile is a wallet-bound user profile created on first sign-in.
type Profile struct {
	ID            uuid.UUID
	WalletAddress string
	DisplayName   *string
	AvatarURL     *string
}

// Session is the authenticated identity extracted from a verified token.
type Session struct {
	ProfileID     string
	WalletAddress string
	ExpiresAt     time.Time
}

// Tokens collects an issued session token and its expiry.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time
}

// DonationRecorded is published after a ledger row is committed.
type DonationRecorded struct {
	ID            uuid.UUID       `json:"id"`
	TxSignature   string          `json:"tx_signature"`
	WalletAddress string          `json:"wallet_address"`
	NeedSlug      string          `json:"need_slug,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	RecordedAt    time.Time       `json:"recorded_at"`
}
