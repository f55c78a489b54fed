// Package verify turns a client's donation claim into facts re-derived from
// the fetched on-chain transaction. It performs no I/O.
package verify

import (
	"fmt"
	"math/big"

	"github.com/glimpsegive/glimpse-ledger/internal/chain"
	"github.com/glimpsegive/glimpse-ledger/internal/errs"
	"github.com/glimpsegive/glimpse-ledger/internal/escrow"
	"github.com/glimpsegive/glimpse-ledger/internal/model"
)

// VaultResolver maps a need slug to its vault address.
type VaultResolver interface {
	VaultAddress(slug string) (string, bool)
}

// Verifier checks fetched transactions against claims for one token mint.
type Verifier struct {
	Mint     string
	Decimals uint8
	Vaults   VaultResolver
}

// New returns a Verifier for mint with the given decimals.
func New(mint string, decimals uint8, vaults VaultResolver) *Verifier {
	return &Verifier{Mint: mint, Decimals: decimals, Vaults: vaults}
}

// Verify runs, in order, the execution, signer, amount and destination checks.
// The claim's wallet and slug are the only client inputs consulted.
func (v *Verifier) Verify(tx *chain.Transaction, claim model.Claim) (model.VerifiedDonation, error) {
	if tx == nil {
		return model.VerifiedDonation{}, errs.ErrTxNotFound
	}
	if tx.Failed() {
		return model.VerifiedDonation{}, failure(tx.Err)
	}
	if !tx.IsSigner(claim.WalletAddress) {
		return model.VerifiedDonation{}, errs.ErrNotSigner
	}

	spent, err := v.spent(tx, claim.WalletAddress)
	if err != nil {
		return model.VerifiedDonation{}, err
	}

	if claim.NeedSlug != "" {
		vault, ok := v.Vaults.VaultAddress(claim.NeedSlug)
		if !ok {
			return model.VerifiedDonation{}, fmt.Errorf("%w: %q", errs.ErrUnknownNeed, claim.NeedSlug)
		}
		// the donate instruction credits the vault, so it must be writable
		if !tx.HasWritableAccount(vault) {
			return model.VerifiedDonation{}, errs.ErrDestinationMismatch
		}
	}

	return model.VerifiedDonation{
		Signer:   claim.WalletAddress,
		Amount:   escrow.FromBaseUnits(spent, v.Decimals),
		NeedSlug: claim.NeedSlug,
	}, nil
}

// spent returns pre minus post for the owner's accounts of the configured mint.
// A missing snapshot side counts as zero, but at least one must exist.
func (v *Verifier) spent(tx *chain.Transaction, owner string) (*big.Int, error) {
	pre, preFound, err := v.ownerBalance(tx.PreTokenBalances, owner)
	if err != nil {
		return nil, err
	}
	post, postFound, err := v.ownerBalance(tx.PostTokenBalances, owner)
	if err != nil {
		return nil, err
	}
	if !preFound && !postFound {
		return nil, fmt.Errorf("%w: no balance entries for signer", errs.ErrAmountIndeterminate)
	}

	spent := new(big.Int).Sub(pre, post)
	if spent.Sign() <= 0 {
		return nil, fmt.Errorf("%w: signer balance did not decrease", errs.ErrAmountIndeterminate)
	}
	return spent, nil
}

func (v *Verifier) ownerBalance(balances []chain.TokenBalance, owner string) (*big.Int, bool, error) {
	total := new(big.Int)
	found := false
	for _, b := range balances {
		if b.Owner != owner || b.Mint != v.Mint {
			continue
		}
		if b.Decimals != v.Decimals {
			return nil, false, fmt.Errorf("%w: mint reports %d decimals", errs.ErrAmountIndeterminate, b.Decimals)
		}
		n, ok := new(big.Int).SetString(b.Amount, 10)
		if !ok || n.Sign() < 0 {
			return nil, false, fmt.Errorf("%w: bad raw amount %q", errs.ErrAmountIndeterminate, b.Amount)
		}
		total.Add(total, n)
		found = true
	}
	return total, found, nil
}

func failure(txErr any) error {
	code, ok := chain.CustomErrorCode(txErr)
	if !ok {
		return errs.ErrTxFailed
	}
	if pe, known := escrow.LookupProgramError(code); known {
		return fmt.Errorf("%w: %s", errs.ErrTxFailed, pe.Message)
	}
	return fmt.Errorf("%w: program error %d", errs.ErrTxFailed, code)
}
