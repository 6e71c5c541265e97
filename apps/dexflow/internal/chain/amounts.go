package chain

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ToBaseUnits converts a human decimal amount string to token base units
// (multiplied by 10^decimals, fractional base units truncated).
func ToBaseUnits(amount string, decimals int) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid decimal amount %q: %w", amount, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("negative amount %q", amount)
	}
	scaled := d.Shift(int32(decimals))
	return scaled.Truncate(0).BigInt(), nil
}

// FromBaseUnits converts a base-unit amount back to a human decimal string,
// trimming trailing zeros.
func FromBaseUnits(amount *big.Int, decimals int) string {
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}
