package fixedpoint

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Common precisions used by the tractor order wire format.
const (
	// AmountDecimals covers token amounts, temperature and podline values.
	AmountDecimals int32 = 6
	// RatioDecimals covers the slippage ratio.
	RatioDecimals int32 = 18
)

// ToFixedPoint parses a non-negative human decimal string into a fixed-point
// integer at the given precision. Malformed input and amounts with more
// fractional digits than the precision allows are rejected.
func ToFixedPoint(value string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return nil, fmt.Errorf("parse decimal %q: %w", value, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("amount %q must not be negative", value)
	}

	shifted := d.Shift(decimals)
	if !shifted.IsInteger() {
		return nil, fmt.Errorf("amount %q exceeds %d decimal places", value, decimals)
	}
	return shifted.BigInt(), nil
}

// FromFixedPoint formats a fixed-point integer as a human decimal string.
// Trailing zeros are dropped. Negative values are allowed here because tip
// amounts are signed on the wire.
func FromFixedPoint(value *big.Int, decimals int32) string {
	if value == nil {
		return "0"
	}
	return decimal.NewFromBigInt(value, -decimals).String()
}

// Decimal converts a fixed-point integer into a decimal.Decimal for
// arithmetic in a shared value unit.
func Decimal(value *big.Int, decimals int32) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(value, -decimals)
}
