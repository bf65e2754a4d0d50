// Package cart holds the live, session-local list of line items a user
// intends to purchase.
package cart

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/food-checkout/internal/domain/discount"
	"github.com/xenking/food-checkout/internal/domain/money"
)

// MaxQuantity is the largest quantity a single line may hold.
const MaxQuantity = 999

var (
	// ErrEmpty is returned when an operation needs at least one line item.
	ErrEmpty = errors.New("cart is empty")
	// ErrItemNotFound is returned when a food id is not in the cart.
	ErrItemNotFound = errors.New("item not in cart")
)

// InvalidItemError reports a line item that violates price or quantity bounds.
type InvalidItemError struct {
	FoodID string
	Reason string
	Err    error
}

func (e *InvalidItemError) Error() string {
	return "invalid item " + e.FoodID + ": " + e.Reason
}

func (e *InvalidItemError) Unwrap() error { return e.Err }

// LineItem is one catalog item plus a requested quantity.
type LineItem struct {
	FoodID    string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Validate checks the unit price and quantity bounds.
func (li LineItem) Validate() error {
	switch {
	case li.FoodID == "":
		return &InvalidItemError{Reason: "food id required"}
	case li.UnitPrice.IsNegative():
		return &InvalidItemError{FoodID: li.FoodID, Reason: "unit price must not be negative"}
	case li.Quantity < 1:
		return &InvalidItemError{FoodID: li.FoodID, Reason: "quantity must be at least 1"}
	case li.Quantity > MaxQuantity:
		return &InvalidItemError{FoodID: li.FoodID, Reason: fmt.Sprintf("quantity must be at most %d", MaxQuantity)}
	}
	if err := money.Check(li.UnitPrice); err != nil {
		return &InvalidItemError{FoodID: li.FoodID, Reason: "unit price: " + err.Error(), Err: err}
	}
	return nil
}

// Total is the unit price times the quantity.
func (li LineItem) Total() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Cart is not safe for concurrent use; one checkout runs against it at a time.
type Cart struct {
	items    []LineItem
	discount *discount.Code
	locked   bool
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// Add appends item, or adds its quantity to an existing line with the same
// food id. A duplicate line must carry the same name and unit price. The
// cart subtotal never exceeds money.MaxAmount.
func (c *Cart) Add(item LineItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	i := c.index(item.FoodID)
	if i < 0 {
		if err := c.checkSubtotal(item.FoodID, item.Total()); err != nil {
			return err
		}
		c.items = append(c.items, item)
		return nil
	}

	cur := c.items[i]
	switch {
	case !cur.UnitPrice.Equal(item.UnitPrice):
		return &InvalidItemError{FoodID: item.FoodID, Reason: "unit price differs from the line already in the cart"}
	case cur.Name != item.Name:
		return &InvalidItemError{FoodID: item.FoodID, Reason: "name differs from the line already in the cart"}
	}
	return c.grow(i, item.Quantity)
}

// Remove drops the line for foodID.
func (c *Cart) Remove(foodID string) error {
	i := c.index(foodID)
	if i < 0 {
		return ErrItemNotFound
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	return nil
}

// Increment raises the quantity of foodID, never above MaxQuantity.
func (c *Cart) Increment(foodID string) error {
	i := c.index(foodID)
	if i < 0 {
		return ErrItemNotFound
	}
	return c.grow(i, 1)
}

// Decrement lowers the quantity of foodID, never below 1.
func (c *Cart) Decrement(foodID string) error {
	i := c.index(foodID)
	if i < 0 {
		return ErrItemNotFound
	}
	if c.items[i].Quantity > 1 {
		c.items[i].Quantity--
	}
	return nil
}

// Items returns a copy of the line items.
func (c *Cart) Items() []LineItem {
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Len() int { return len(c.items) }

// Clear empties the cart and releases the discount lock.
func (c *Cart) Clear() {
	c.items = nil
	c.discount = nil
	c.locked = false
}

// Discount returns the applied discount code, or nil.
func (c *Cart) Discount() *discount.Code {
	if c.discount == nil {
		return nil
	}
	d := *c.discount
	return &d
}

// ApplyDiscount validates code and locks it in on success. While a code is
// locked every further call returns discount.ErrLocked and changes nothing.
// A rejected code leaves the cart without a discount.
func (c *Cart) ApplyDiscount(ctx context.Context, v discount.Validator, code string) (*discount.Code, error) {
	if c.locked {
		return c.Discount(), discount.ErrLocked
	}

	d, err := v.Validate(ctx, code)
	if err != nil {
		if errors.Is(err, discount.ErrRejected) {
			c.discount = nil
			return nil, discount.ErrRejected
		}
		return nil, errors.Wrap(err, "validate discount")
	}

	c.discount = d
	c.locked = true
	return c.Discount(), nil
}

func (c *Cart) grow(i, by int) error {
	it := c.items[i]
	if by > MaxQuantity-it.Quantity {
		return &InvalidItemError{FoodID: it.FoodID, Reason: fmt.Sprintf("quantity must be at most %d", MaxQuantity)}
	}
	if err := c.checkSubtotal(it.FoodID, it.UnitPrice.Mul(decimal.NewFromInt(int64(by)))); err != nil {
		return err
	}
	c.items[i].Quantity += by
	return nil
}

func (c *Cart) checkSubtotal(foodID string, extra decimal.Decimal) error {
	sum := extra
	for _, it := range c.items {
		sum = sum.Add(it.Total())
	}
	if sum.GreaterThan(money.MaxAmount) {
		return &InvalidItemError{FoodID: foodID, Reason: "cart total exceeds maximum", Err: money.ErrTooLarge}
	}
	return nil
}

func (c *Cart) index(foodID string) int {
	for i := range c.items {
		if c.items[i].FoodID == foodID {
			return i
		}
	}
	return -1
}
