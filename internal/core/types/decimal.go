// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// CostScale is the number of fractional digits kept for unit costs
// (matches NUMERIC(15,4) columns).
const CostScale int32 = 4

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// FromQuantity lifts an integer unit count into decimal arithmetic.
func FromQuantity(q int64) Money {
	return decimal.NewFromInt(q)
}

// RoundCost rounds half away from zero to CostScale digits.
func RoundCost(m Money) Money {
	return m.Round(CostScale)
}

// RoundAmount rounds half away from zero to two digits.
func RoundAmount(m Money) Money {
	return m.Round(2)
}

// Ratio returns num/den rounded to places, or zero when den is zero.
func Ratio(num, den Money, places int32) Money {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.DivRound(den, places)
}
