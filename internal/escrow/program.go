// Package escrow encodes instructions for the on-chain donation escrow program
// and derives the per-need vault addresses it owns.
package escrow

import "github.com/gagliardetto/solana-go"

// Default deployment addresses (devnet).
var (
	DefaultProgramID = solana.MustPublicKeyFromBase58("7Ma28eiEEd4WKDCwbfejbPevcsuchePsvYvdw6Tme6NE")
	DevnetUSDCMint   = solana.MustPublicKeyFromBase58("4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU")
	MainnetUSDCMint  = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
)

// USDCDecimals is the number of decimals of the USDC mint.
const USDCDecimals uint8 = 6

// VaultSeed namespaces every vault derivation.
const VaultSeed = "need"

// MaxSlugLen is the longest slug the program accepts as a seed.
const MaxSlugLen = 32

// DonateDiscriminator selects the "donate" handler: sha256("global:donate")[:8].
var DonateDiscriminator = [8]byte{121, 186, 218, 211, 73, 70, 196, 180}
