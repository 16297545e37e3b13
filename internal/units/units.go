package units

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// EtherDecimals is the decimals used for native currency and launched tokens.
const EtherDecimals = 18

// ToWei converts a decimal amount into its integer base-unit value.
// Fractions below one base unit are truncated.
func ToWei(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).Truncate(0).BigInt()
}

// FromWei converts an integer base-unit value into a decimal amount.
func FromWei(value *big.Int, decimals int32) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(value, -decimals)
}

// FormatWei renders a wei value in ether units without trailing zeros.
func FormatWei(value *big.Int) string {
	return FromWei(value, EtherDecimals).String()
}

// FormatGwei renders a wei value in gwei.
func FormatGwei(value *big.Int) string {
	return FromWei(value, 9).String()
}

// ParsePositive parses a strictly positive decimal amount.
func ParsePositive(input string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(input)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", input, err)
	}
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount must be positive: %s", input)
	}
	return amount, nil
}
