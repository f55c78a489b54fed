package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/glimpsegive/glimpse-ledger/internal/auth"
	"github.com/glimpsegive/glimpse-ledger/internal/chain"
	"github.com/glimpsegive/glimpse-ledger/internal/errs"
	"github.com/glimpsegive/glimpse-ledger/internal/escrow"
	"github.com/glimpsegive/glimpse-ledger/internal/model"
	"github.com/glimpsegive/glimpse-ledger/internal/repository"
)

const (
	testWallet = "WALLETX"
	groceries  = "CnxrG6ScusNpSFVyy4Ti34ZE5bjYhRVVWHTN73859S5c"
)

var testKey = []byte("service-test-key")

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	tx    *chain.Transaction
	err   error
}

func (f *fakeFetcher) Fetch(context.Context, string) (*chain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.tx, f.err
}

type fakeNeeds struct {
	ids map[string]uuid.UUID
	err error
}

var _ repository.NeedRepository = (*fakeNeeds)(nil)

func (f *fakeNeeds) IDBySlug(_ context.Context, slug string) (uuid.UUID, error) {
	if f.err != nil {
		return uuid.Nil, f.err
	}
	id, ok := f.ids[slug]
	if !ok {
		return uuid.Nil, errs.ErrNotFound
	}
	return id, nil
}

func (f *fakeNeeds) Slugs(context.Context) ([]string, error) {
	out := make([]string, 0, len(f.ids))
	for s := range f.ids {
		out = append(out, s)
	}
	return out, nil
}

// fakeLedger enforces the signature uniqueness the real table does.
type fakeLedger struct {
	mu        sync.Mutex
	rows      map[string]model.Transaction
	insertErr error
	inserts   int
}

var _ repository.LedgerRepository = (*fakeLedger)(nil)

func newFakeLedger() *fakeLedger { return &fakeLedger{rows: map[string]model.Transaction{}} }

func (f *fakeLedger) Insert(_ context.Context, t *model.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserts++
	if f.insertErr != nil {
		return f.insertErr
	}
	if _, dup := f.rows[t.TxSignature]; dup {
		return errs.ErrAlreadyExists
	}
	t.CreatedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.rows[t.TxSignature] = *t
	return nil
}

func (f *fakeLedger) ListByWallet(_ context.Context, wallet string, limit int) ([]model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Transaction
	for _, r := range f.rows {
		if r.WalletAddress == wallet && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakePublisher struct {
	events []model.DonationRecorded
	err    error
}

func (f *fakePublisher) DonationRecorded(_ context.Context, ev model.DonationRecorded) error {
	f.events = append(f.events, ev)
	return f.err
}

func bearer(t *testing.T, wallet string) string {
	t.Helper()
	tok, err := auth.NewIssuer(testKey, time.Hour).Issue(model.Profile{ID: uuid.Must(uuid.NewV4()), WalletAddress: wallet})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return "Bearer " + tok.AccessToken
}

func balance(owner, amount string) chain.TokenBalance {
	return chain.TokenBalance{AccountIndex: 1, Mint: escrow.DevnetUSDCMint.String(), Owner: owner, Amount: amount, Decimals: 6}
}

// groceriesDonation is a finalized 100 USDC donation by WALLETX to the groceries vault.
func groceriesDonation() *chain.Transaction {
	return &chain.Transaction{
		Signature: "SIG1",
		AccountKeys: []chain.AccountKey{
			{Address: testWallet, Signer: true, Writable: true},
			{Address: groceries, Writable: true},
			{Address: escrow.DevnetUSDCMint.String()},
		},
		PreTokenBalances:  []chain.TokenBalance{balance(testWallet, "500000000")},
		PostTokenBalances: []chain.TokenBalance{balance(testWallet, "400000000")},
	}
}
