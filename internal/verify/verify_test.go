package verify

import (
	"errors"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/glimpsegive/glimpse-ledger/internal/chain"
	"github.com/glimpsegive/glimpse-ledger/internal/errs"
	"github.com/glimpsegive/glimpse-ledger/internal/escrow"
	"github.com/glimpsegive/glimpse-ledger/internal/model"
)

const (
	wallet = "WALLETX"
	mint   = "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU"
	vault  = "CnxrG6ScusNpSFVyy4Ti34ZE5bjYhRVVWHTN73859S5c"
)

type vaults map[string]string

func (v vaults) VaultAddress(slug string) (string, bool) {
	a, ok := v[slug]
	return a, ok
}

func newVerifier() *Verifier {
	return New(mint, 6, vaults{"groceries": vault})
}

func balance(owner, amount string) chain.TokenBalance {
	return chain.TokenBalance{AccountIndex: 1, Mint: mint, Owner: owner, Amount: amount, Decimals: 6}
}

func donationTx() *chain.Transaction {
	return &chain.Transaction{
		Signature: "SIG1",
		AccountKeys: []chain.AccountKey{
			{Address: wallet, Signer: true, Writable: true},
			{Address: vault, Writable: true},
			{Address: mint},
		},
		PreTokenBalances:  []chain.TokenBalance{balance(wallet, "500000000")},
		PostTokenBalances: []chain.TokenBalance{balance(wallet, "400000000")},
	}
}

func claim() model.Claim {
	return model.Claim{TxSignature: "SIG1", WalletAddress: wallet, NeedSlug: "groceries"}
}

func TestVerify_HappyPath(t *testing.T) {
	got, err := newVerifier().Verify(donationTx(), claim())
	require.NoError(t, err)
	require.Equal(t, wallet, got.Signer)
	require.Equal(t, "groceries", got.NeedSlug)
	require.True(t, got.Amount.Equal(decimal.NewFromInt(100)), "amount %s", got.Amount)
}

func TestVerify_SeedDirectoryVault(t *testing.T) {
	v := New(mint, 6, escrow.NewDirectory(escrow.DefaultProgramID))
	_, err := v.Verify(donationTx(), claim())
	require.NoError(t, err)
}

func TestVerify_NoNeedSkipsDestination(t *testing.T) {
	tx := donationTx()
	tx.AccountKeys = tx.AccountKeys[:1]
	c := claim()
	c.NeedSlug = ""

	got, err := newVerifier().Verify(tx, c)
	require.NoError(t, err)
	require.Empty(t, got.NeedSlug)
}

func TestVerify_SignerEnforcement(t *testing.T) {
	tests := []struct {
		name string
		keys []chain.AccountKey
	}{
		{"absent", []chain.AccountKey{{Address: "OTHER", Signer: true}, {Address: vault, Writable: true}}},
		{"present but not signer", []chain.AccountKey{{Address: "OTHER", Signer: true}, {Address: wallet, Writable: true}, {Address: vault}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tx := donationTx()
			tx.AccountKeys = tc.keys
			_, err := newVerifier().Verify(tx, claim())
			require.ErrorIs(t, err, errs.ErrNotSigner)
		})
	}
}

func TestVerify_OnChainError(t *testing.T) {
	tests := []struct {
		name    string
		txErr   any
		message string
	}{
		{"custom program error", map[string]any{"InstructionError": []any{float64(0), map[string]any{"Custom": float64(6002)}}}, "Donation amount must be greater than zero"},
		{"unknown custom code", map[string]any{"InstructionError": []any{float64(0), map[string]any{"Custom": float64(42)}}}, "program error 42"},
		{"builtin", "AccountInUse", errs.ErrTxFailed.Error()},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tx := donationTx()
			tx.Err = tc.txErr
			_, err := newVerifier().Verify(tx, claim())
			require.ErrorIs(t, err, errs.ErrTxFailed)
			require.Contains(t, err.Error(), tc.message)
		})
	}
}

func TestVerify_FailedBeforeSigner(t *testing.T) {
	tx := donationTx()
	tx.Err = "AccountInUse"
	tx.AccountKeys = nil
	_, err := newVerifier().Verify(tx, claim())
	require.ErrorIs(t, err, errs.ErrTxFailed)
}

func TestVerify_AmountDerivation(t *testing.T) {
	for _, n := range []int64{1, 999_999, 1_000_000, 123_456_789, 1_000_000_000_000} {
		t.Run(strconv.FormatInt(n, 10), func(t *testing.T) {
			pre := int64(2_000_000_000_000)
			tx := donationTx()
			tx.PreTokenBalances = []chain.TokenBalance{balance(wallet, strconv.FormatInt(pre, 10))}
			tx.PostTokenBalances = []chain.TokenBalance{balance(wallet, strconv.FormatInt(pre-n, 10))}

			got, err := newVerifier().Verify(tx, claim())
			require.NoError(t, err)
			want := decimal.New(n, -6)
			require.True(t, got.Amount.Equal(want), "got %s want %s", got.Amount, want)
		})
	}
}

func TestVerify_AmountIgnoresOtherOwnersAndMints(t *testing.T) {
	tx := donationTx()
	other := balance(vault, "0")
	otherMint := balance(wallet, "900000000")
	otherMint.Mint = "So11111111111111111111111111111111111111112"
	tx.PreTokenBalances = append(tx.PreTokenBalances, other, otherMint)
	other.Amount = "100000000"
	otherMint.Amount = "1"
	tx.PostTokenBalances = append(tx.PostTokenBalances, other, otherMint)

	got, err := newVerifier().Verify(tx, claim())
	require.NoError(t, err)
	require.True(t, got.Amount.Equal(decimal.NewFromInt(100)))
}

func TestVerify_MissingPostCountsAsZero(t *testing.T) {
	tx := donationTx()
	tx.PostTokenBalances = nil

	got, err := newVerifier().Verify(tx, claim())
	require.NoError(t, err)
	require.True(t, got.Amount.Equal(decimal.NewFromInt(500)))
}

func TestVerify_AmountIndeterminate(t *testing.T) {
	tests := []struct {
		name string
		pre  []chain.TokenBalance
		post []chain.TokenBalance
	}{
		{"increase", []chain.TokenBalance{balance(wallet, "1")}, []chain.TokenBalance{balance(wallet, "2")}},
		{"unchanged", []chain.TokenBalance{balance(wallet, "5")}, []chain.TokenBalance{balance(wallet, "5")}},
		{"no entries", nil, nil},
		{"only other owners", []chain.TokenBalance{balance("OTHER", "5")}, []chain.TokenBalance{balance("OTHER", "1")}},
		{"only post", nil, []chain.TokenBalance{balance(wallet, "5")}},
		{"garbage amount", []chain.TokenBalance{balance(wallet, "1e9")}, []chain.TokenBalance{balance(wallet, "0")}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tx := donationTx()
			tx.PreTokenBalances = tc.pre
			tx.PostTokenBalances = tc.post
			_, err := newVerifier().Verify(tx, claim())
			require.ErrorIs(t, err, errs.ErrAmountIndeterminate)
		})
	}
}

func TestVerify_DestinationEnforcement(t *testing.T) {
	tx := donationTx()
	tx.AccountKeys = []chain.AccountKey{{Address: wallet, Signer: true, Writable: true}, {Address: "SOMEWHERE_ELSE", Writable: true}}

	_, err := newVerifier().Verify(tx, claim())
	require.ErrorIs(t, err, errs.ErrDestinationMismatch)
}

func TestVerify_ReadonlyVaultIsNotDestination(t *testing.T) {
	tx := donationTx()
	tx.AccountKeys[1].Writable = false

	_, err := newVerifier().Verify(tx, claim())
	require.ErrorIs(t, err, errs.ErrDestinationMismatch)
}

func TestVerify_AmountKeepsEveryDecimal(t *testing.T) {
	tests := []struct {
		decimals uint8
		pre      string
		post     string
		want     string
	}{
		{9, "1000000000", "999999999", "0.000000001"},
		{9, "1123456789", "1000000000", "0.123456789"},
		{0, "18446744073709551615", "0", "18446744073709551615"},
	}
	for _, tt := range tests {
		bal := func(amount string) chain.TokenBalance {
			return chain.TokenBalance{AccountIndex: 1, Mint: mint, Owner: wallet, Amount: amount, Decimals: tt.decimals}
		}
		tx := donationTx()
		tx.PreTokenBalances = []chain.TokenBalance{bal(tt.pre)}
		tx.PostTokenBalances = []chain.TokenBalance{bal(tt.post)}

		got, err := New(mint, tt.decimals, vaults{"groceries": vault}).Verify(tx, claim())
		require.NoError(t, err)
		require.Equal(t, tt.want, got.Amount.String())
	}
}

func TestVerify_UnknownSlugRejected(t *testing.T) {
	c := claim()
	c.NeedSlug = "yacht"

	_, err := newVerifier().Verify(donationTx(), c)
	require.ErrorIs(t, err, errs.ErrUnknownNeed)
	require.False(t, errors.Is(err, errs.ErrDestinationMismatch))
}

func TestVerify_NilTransaction(t *testing.T) {
	_, err := newVerifier().Verify(nil, claim())
	require.ErrorIs(t, err, errs.ErrTxNotFound)
}
