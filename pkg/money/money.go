// Package money holds the minor-unit arithmetic shared by settlement and the API.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const maxBasisPoints = 10000

// FeeFromBasisPoints returns amount*bps/10000 rounded half up, in cents.
func FeeFromBasisPoints(amountCents int64, bps int) (int64, error) {
	if amountCents <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}
	if bps < 0 || bps >= maxBasisPoints {
		return 0, fmt.Errorf("basis points must be in [0, %d)", maxBasisPoints)
	}
	fee := decimal.NewFromInt(amountCents).
		Mul(decimal.NewFromInt(int64(bps))).
		Div(decimal.NewFromInt(maxBasisPoints)).
		Round(0)
	return fee.IntPart(), nil
}

// Net returns amount minus fee, requiring 0 <= fee < amount.
func Net(amountCents, feeCents int64) (int64, error) {
	if amountCents <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}
	if feeCents < 0 || feeCents >= amountCents {
		return 0, fmt.Errorf("fee must be at least zero and below the amount")
	}
	return amountCents - feeCents, nil
}

// Format renders cents as a two-decimal major-unit string.
func Format(cents int64) string {
	return decimal.NewFromInt(cents).Shift(-2).StringFixed(2)
}
