package httpserver

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap/zaptest"

	"github.com/glimpsegive/glimpse-ledger/internal/auth"
	"github.com/glimpsegive/glimpse-ledger/internal/chain"
	"github.com/glimpsegive/glimpse-ledger/internal/errs"
	"github.com/glimpsegive/glimpse-ledger/internal/escrow"
	"github.com/glimpsegive/glimpse-ledger/internal/metrics"
	"github.com/glimpsegive/glimpse-ledger/internal/model"
	"github.com/glimpsegive/glimpse-ledger/internal/service"
	"github.com/glimpsegive/glimpse-ledger/internal/verify"
)

const (
	testWallet     = "WALLETX"
	groceriesVault = "CnxrG6ScusNpSFVyy4Ti34ZE5bjYhRVVWHTN73859S5c"
)

var testKey = []byte("http-test-key")

type stubFetcher struct {
	mu    sync.Mutex
	calls int
	tx    *chain.Transaction
	err   error
}

func (f *stubFetcher) Fetch(context.Context, string) (*chain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.tx, f.err
}

type stubNeeds struct{ ids map[string]uuid.UUID }

func (s stubNeeds) IDBySlug(_ context.Context, slug string) (uuid.UUID, error) {
	id, ok := s.ids[slug]
	if !ok {
		return uuid.Nil, errs.ErrNotFound
	}
	return id, nil
}

func (s stubNeeds) Slugs(context.Context) ([]string, error) { return nil, nil }

// memLedger mirrors the unique constraint on tx_signature.
type memLedger struct {
	mu   sync.Mutex
	rows []model.Transaction
}

func (l *memLedger) Insert(_ context.Context, t *model.Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range l.rows {
		if r.TxSignature == t.TxSignature {
			return errs.ErrAlreadyExists
		}
	}
	t.CreatedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.rows = append(l.rows, *t)
	return nil
}

func (l *memLedger) ListByWallet(_ context.Context, wallet string, limit int) ([]model.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []model.Transaction
	for i := len(l.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if l.rows[i].WalletAddress == wallet {
			out = append(out, l.rows[i])
		}
	}
	return out, nil
}

func (l *memLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rows)
}

type stubSignIn struct {
	nonce   string
	tokens  model.Tokens
	profile model.Profile
	err     error
	gotIP   string
}

func (s *stubSignIn) IssueNonce(context.Context) (string, error) { return s.nonce, s.err }

func (s *stubSignIn) SignIn(_ context.Context, _ auth.SignIn, ip string) (model.Tokens, model.Profile, error) {
	s.gotIP = ip
	return s.tokens, s.profile, s.err
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type harness struct {
	srv     *Server
	fetcher *stubFetcher
	ledger  *memLedger
	signin  *stubSignIn
	metrics *metrics.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		fetcher: &stubFetcher{tx: groceriesDonation()},
		ledger:  &memLedger{},
		signin:  &stubSignIn{},
		metrics: metrics.New(),
	}
	log := zaptest.NewLogger(t)
	donations := service.NewDonationService(service.DonationDeps{
		Gate:     auth.NewGate(testKey),
		Fetcher:  h.fetcher,
		Verifier: verify.New(escrow.DevnetUSDCMint.String(), escrow.USDCDecimals, escrow.NewDirectory(escrow.DefaultProgramID)),
		Needs:    stubNeeds{ids: map[string]uuid.UUID{"groceries": uuid.Must(uuid.NewV4())}},
		Ledger:   h.ledger,
		Metrics:  h.metrics,
		Log:      log,
	})
	h.srv = New(donations, h.signin, stubPinger{}, h.metrics, log)
	return h
}

func bearer(t *testing.T, wallet string) string {
	t.Helper()
	tok, err := auth.NewIssuer(testKey, time.Hour).Issue(model.Profile{ID: uuid.Must(uuid.NewV4()), WalletAddress: wallet})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return "Bearer " + tok.AccessToken
}

func usdc(owner, amount string) chain.TokenBalance {
	return chain.TokenBalance{AccountIndex: 0, Mint: escrow.DevnetUSDCMint.String(), Owner: owner, Amount: amount, Decimals: 6}
}

// groceriesDonation moves 100 USDC from WALLETX into the groceries vault.
func groceriesDonation() *chain.Transaction {
	return &chain.Transaction{
		Signature: "SIG1",
		AccountKeys: []chain.AccountKey{
			{Address: testWallet, Signer: true, Writable: true},
			{Address: groceriesVault, Writable: true},
		},
		PreTokenBalances:  []chain.TokenBalance{usdc(testWallet, "500000000")},
		PostTokenBalances: []chain.TokenBalance{usdc(testWallet, "400000000")},
	}
}
