package escrow

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
)

// ErrInvalidSlug is returned for slugs that cannot seed a vault.
var ErrInvalidSlug = errors.New("slug must be 1-32 bytes")

// Vault is a derived program address with its bump.
type Vault struct {
	Slug    string
	Address solana.PublicKey
	Bump    uint8
}

// SeedVaults is the precomputed vault table for the seed needs under
// DefaultProgramID. Generated by cmd/vaultgen; vault_test.go re-derives it.
var SeedVaults = []Vault{
	{Slug: "shower", Address: solana.MustPublicKeyFromBase58("5Qnw3W3MbF6oNmPhN5Nfh93g51hKppFtH5y6TkZPMEsM"), Bump: 254},
	{Slug: "groceries", Address: solana.MustPublicKeyFromBase58("CnxrG6ScusNpSFVyy4Ti34ZE5bjYhRVVWHTN73859S5c"), Bump: 255},
	{Slug: "wardrobe", Address: solana.MustPublicKeyFromBase58("EW82JfL5rZxEsjuL3pJovyugYbtF1PPhEL7ejZQ6MmKa"), Bump: 252},
	{Slug: "tires", Address: solana.MustPublicKeyFromBase58("HjfPfQvx1wy5BRKDZxrFCKde3KY74pJypyNQQuxASEVf"), Bump: 255},
	{Slug: "rent", Address: solana.MustPublicKeyFromBase58("EMmuGFWUJbpjopt2DqZAyQLnSnEKK4dVLqbpy9shr26k"), Bump: 255},
}

// DeriveVault finds the program address for ["need", slug]. The result is
// off-curve, so only the program can sign for it.
func DeriveVault(programID solana.PublicKey, slug string) (Vault, error) {
	if len(slug) == 0 || len(slug) > MaxSlugLen {
		return Vault{}, ErrInvalidSlug
	}
	addr, bump, err := solana.FindProgramAddress([][]byte{[]byte(VaultSeed), []byte(slug)}, programID)
	if err != nil {
		return Vault{}, fmt.Errorf("derive vault %q: %w", slug, err)
	}
	return Vault{Slug: slug, Address: addr, Bump: bump}, nil
}

// Directory maps need slugs to vault addresses for one program.
// Safe for concurrent use.
type Directory struct {
	programID solana.PublicKey

	mu     sync.RWMutex
	vaults map[string]Vault
}

// NewDirectory returns a directory for programID. The seed table is preloaded
// only when it was generated for the same program.
func NewDirectory(programID solana.PublicKey) *Directory {
	d := &Directory{programID: programID, vaults: make(map[string]Vault)}
	if programID.Equals(DefaultProgramID) {
		for _, v := range SeedVaults {
			d.vaults[v.Slug] = v
		}
	}
	return d
}

// ProgramID returns the escrow program the directory derives for.
func (d *Directory) ProgramID() solana.PublicKey { return d.programID }

// Add derives and registers the vault of slug. Known slugs are left untouched.
func (d *Directory) Add(slug string) (Vault, error) {
	if v, ok := d.Lookup(slug); ok {
		return v, nil
	}
	v, err := DeriveVault(d.programID, slug)
	if err != nil {
		return Vault{}, err
	}
	d.mu.Lock()
	d.vaults[slug] = v
	d.mu.Unlock()
	return v, nil
}

// Lookup returns the vault of a registered slug.
func (d *Directory) Lookup(slug string) (Vault, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.vaults[slug]
	return v, ok
}

// VaultAddress returns the base58 vault address of a registered slug.
func (d *Directory) VaultAddress(slug string) (string, bool) {
	v, ok := d.Lookup(slug)
	if !ok {
		return "", false
	}
	return v.Address.String(), true
}

// Len reports the number of registered slugs.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.vaults)
}
