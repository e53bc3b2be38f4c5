package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CentsPlaces is the number of decimal places the ledger keeps.
const CentsPlaces = 2

var (
	maxAmount = decimal.New(1, 15) // 1,000,000,000,000,000.00
	cent      = decimal.New(1, -CentsPlaces)
)

// RoundCents rounds half away from zero to two decimal places.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(CentsPlaces)
}

// HasAtMostCents reports whether d has no more than two decimal places.
func HasAtMostCents(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(CentsPlaces))
}

// OneCent returns 0.01.
func OneCent() decimal.Decimal { return cent }

// ValidateAmount checks an entry side: non-negative, at most two decimals, below the ceiling.
func ValidateAmount(field string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeAmount.ForField(field)
	}
	if !HasAtMostCents(amount) {
		return ErrTooManyDecimals.ForField(field)
	}
	if amount.GreaterThan(maxAmount) {
		return NewValidationError(field, fmt.Sprintf("amount exceeds maximum of %s", maxAmount.StringFixed(CentsPlaces)))
	}
	return nil
}

// ParseAmount parses a decimal string and rounds it to cents.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, NewValidationError("amount", fmt.Sprintf("invalid amount %q", s))
	}
	return RoundCents(d), nil
}
