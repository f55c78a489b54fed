package escrow

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// ErrNotDonate is returned when instruction data does not start with the donate tag.
var ErrNotDonate = errors.New("not a donate instruction")

// DonateAccounts lists the accounts of a donate call.
type DonateAccounts struct {
	Donor             solana.PublicKey
	Vault             solana.PublicKey
	Mint              solana.PublicKey
	DonorTokenAccount solana.PublicKey
	VaultTokenAccount solana.PublicKey
}

// EncodeDonateData returns discriminator || amount (u64 little-endian).
func EncodeDonateData(baseUnits uint64) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteBytes(DonateDiscriminator[:], false); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(baseUnits, binary.LittleEndian); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeDonateData extracts the amount from donate instruction data.
func DecodeDonateData(data []byte) (uint64, error) {
	if len(data) != 16 || !bytes.Equal(data[:8], DonateDiscriminator[:]) {
		return 0, ErrNotDonate
	}
	return bin.NewBorshDecoder(data[8:]).ReadUint64(binary.LittleEndian)
}

// NewDonateInstruction builds the donate instruction. The account order is
// fixed by the program: donor, vault, mint, donor ATA, vault ATA, token program.
func NewDonateInstruction(programID solana.PublicKey, acc DonateAccounts, baseUnits uint64) (solana.Instruction, error) {
	data, err := EncodeDonateData(baseUnits)
	if err != nil {
		return nil, err
	}
	metas := solana.AccountMetaSlice{
		solana.NewAccountMeta(acc.Donor, true, true),
		solana.NewAccountMeta(acc.Vault, true, false),
		solana.NewAccountMeta(acc.Mint, false, false),
		solana.NewAccountMeta(acc.DonorTokenAccount, true, false),
		solana.NewAccountMeta(acc.VaultTokenAccount, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
	}
	return solana.NewInstruction(programID, metas, data), nil
}

// Builder assembles unsigned donate transactions for a wallet to sign.
type Builder struct {
	Mint     solana.PublicKey
	Decimals uint8
	Vaults   *Directory
}

// DonatePlan is an unsigned donate transaction and the values it encodes.
type DonatePlan struct {
	Tx        *solana.Transaction
	Vault     Vault
	BaseUnits uint64
}

// BuildDonateTransaction derives the vault and token accounts for slug and
// wraps a donate instruction in a transaction paid by donor. It does not sign.
func (b *Builder) BuildDonateTransaction(
	donor solana.PublicKey, slug string, amount decimal.Decimal, recentBlockhash solana.Hash,
) (*DonatePlan, error) {
	units, err := ToBaseUnits(amount, b.Decimals)
	if err != nil {
		return nil, err
	}
	vault, ok := b.Vaults.Lookup(slug)
	if !ok {
		return nil, fmt.Errorf("vault for %q: %w", slug, ErrUnknownVault)
	}
	donorATA, _, err := solana.FindAssociatedTokenAddress(donor, b.Mint)
	if err != nil {
		return nil, fmt.Errorf("donor token account: %w", err)
	}
	vaultATA, _, err := solana.FindAssociatedTokenAddress(vault.Address, b.Mint)
	if err != nil {
		return nil, fmt.Errorf("vault token account: %w", err)
	}

	ix, err := NewDonateInstruction(b.Vaults.ProgramID(), DonateAccounts{
		Donor:             donor,
		Vault:             vault.Address,
		Mint:              b.Mint,
		DonorTokenAccount: donorATA,
		VaultTokenAccount: vaultATA,
	}, units)
	if err != nil {
		return nil, err
	}

	tx, err := solana.NewTransaction([]solana.Instruction{ix}, recentBlockhash, solana.TransactionPayer(donor))
	if err != nil {
		return nil, fmt.Errorf("new transaction: %w", err)
	}
	return &DonatePlan{Tx: tx, Vault: vault, BaseUnits: units}, nil
}

// ErrUnknownVault is returned for slugs absent from the directory.
var ErrUnknownVault = errors.New("unknown vault")

// MarshalUnsigned serializes tx with zeroed signature slots, the wire form
// wallets expect for signing requests.
func MarshalUnsigned(tx *solana.Transaction) ([]byte, error) {
	cp := *tx
	cp.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)
	return cp.MarshalBinary()
}
