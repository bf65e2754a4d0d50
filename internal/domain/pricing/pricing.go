// Package pricing computes the payable amount of a cart.
package pricing

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/food-checkout/internal/domain/cart"
	"github.com/xenking/food-checkout/internal/domain/discount"
	"github.com/xenking/food-checkout/internal/domain/money"
)

var hundred = decimal.NewFromInt(100)

// PricedCart is derived from a cart and never stored.
type PricedCart struct {
	Items          []cart.LineItem
	Subtotal       decimal.Decimal
	DiscountCode   string
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
}

// Price sums the items and subtracts the flat discount, if any. The total is
// clamped at zero. Amounts stay in major units with no rounding applied.
func Price(items []cart.LineItem, applied *discount.Code) PricedCart {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.Total())
	}

	pc := PricedCart{
		Items:          append([]cart.LineItem(nil), items...),
		Subtotal:       subtotal,
		DiscountAmount: decimal.Zero,
	}
	if applied != nil {
		pc.DiscountCode = applied.Code
		pc.DiscountAmount = applied.Amount
	}

	pc.Total = subtotal.Sub(pc.DiscountAmount)
	if pc.Total.IsNegative() {
		pc.Total = decimal.Zero
	}
	return pc
}

// MinorUnits converts a major-unit amount to the smallest currency unit.
// Amounts above money.MaxAmount are rejected, so the result never overflows.
func MinorUnits(amount decimal.Decimal) (int64, error) {
	if err := money.Check(amount); err != nil {
		return 0, err
	}
	if amount.IsNegative() {
		return 0, errors.Errorf("negative amount %s", amount)
	}
	return amount.Mul(hundred).IntPart(), nil
}
