// Package money holds the bounds every stored or charged amount respects.
package money

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits in one minor unit.
const Scale = 2

// maxIntDigits is the integer part of a NUMERIC(12,2) column.
const maxIntDigits = 10

var (
	// ErrSubMinorUnit is returned when an amount has more precision than the
	// smallest currency unit.
	ErrSubMinorUnit = errors.New("amount has fractional minor units")
	// ErrTooLarge is returned for amounts above MaxAmount.
	ErrTooLarge = errors.New("amount exceeds maximum")
)

// MaxAmount is the largest amount an order column can hold.
var MaxAmount = decimal.RequireFromString("9999999999.99")

// Check reports whether v fits in [-MaxAmount, MaxAmount] with at most Scale
// fractional digits. Oversized exponents are rejected before any rescaling.
func Check(v decimal.Decimal) error {
	if v.IsZero() {
		return nil
	}
	digits := int64(v.NumDigits())
	exp := int64(v.Exponent())

	if digits+exp > maxIntDigits {
		return errors.Wrapf(ErrTooLarge, "amount with %d integer digits", digits+exp)
	}
	if exp < -Scale {
		// |v| < 10^(digits+exp), so below one minor unit it cannot be whole.
		if digits+exp < -Scale+1 {
			return errors.Wrap(ErrSubMinorUnit, "amount smaller than one minor unit")
		}
		if !v.Equal(v.Truncate(Scale)) {
			return errors.Wrapf(ErrSubMinorUnit, "amount %s", v)
		}
	}
	if v.Abs().GreaterThan(MaxAmount) {
		return errors.Wrapf(ErrTooLarge, "amount %s", v)
	}
	return nil
}
