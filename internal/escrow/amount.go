package escrow

import (
	"errors"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	ErrNegativeAmount = errors.New("amount must not be negative")
	ErrZeroAmount     = errors.New("amount rounds to zero base units")
	ErrAmountOverflow = errors.New("amount exceeds u64 base units")
	ErrNonFinite      = errors.New("amount must be finite")
)

// AmountFromFloat converts a UI amount, rejecting NaN and infinities.
func AmountFromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, ErrNonFinite
	}
	return decimal.NewFromFloat(f), nil
}

// ToBaseUnits scales amount by 10^decimals and rounds half away from zero,
// so 1.0000005 at 6 decimals becomes 1000001.
func ToBaseUnits(amount decimal.Decimal, decimals uint8) (uint64, error) {
	if amount.IsNegative() {
		return 0, ErrNegativeAmount
	}
	units := amount.Shift(int32(decimals)).Round(0)
	if units.Sign() == 0 {
		return 0, ErrZeroAmount
	}
	bi := units.BigInt()
	if !bi.IsUint64() {
		return 0, ErrAmountOverflow
	}
	return bi.Uint64(), nil
}

// FromBaseUnits converts base units back to display units without rounding.
func FromBaseUnits(units *big.Int, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(units, -int32(decimals))
}
