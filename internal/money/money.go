package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

// MinorPerMajor is the number of minor units (paise) in one major unit (rupee).
const MinorPerMajor = 100

var (
	ErrNegativeAmount = errors.New("amount must not be negative")

	hundred = decimal.NewFromInt(MinorPerMajor)
)

// ToMinor converts a major-unit price to minor units, rounding half away from zero.
func ToMinor(major decimal.Decimal) (int64, error) {
	if major.IsNegative() {
		return 0, ErrNegativeAmount
	}
	return major.Mul(hundred).Round(0).IntPart(), nil
}

// FromMinor converts minor units back to a major-unit decimal.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// Format renders minor units with two fraction digits, e.g. 49700 -> "497.00".
func Format(minor int64) string {
	return FromMinor(minor).StringFixed(2)
}
