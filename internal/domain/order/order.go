package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/food-checkout/internal/domain/cart"
)

var (
	// ErrNotFound is returned when no order matches a lookup.
	ErrNotFound = errors.New("order not found")
	// ErrDuplicateToken is returned by Repository.Create when an order with
	// the same checkout token already exists.
	ErrDuplicateToken = errors.New("order with checkout token already exists")
)

// PaymentMethod is how the customer pays for an order.
type PaymentMethod string

const (
	PaymentOnline PaymentMethod = "online"
	PaymentCOD    PaymentMethod = "cod"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentOnline || m == PaymentCOD
}

// Status is the payment state recorded with an order.
type Status string

const (
	StatusPending         Status = "pending"
	StatusPaymentComplete Status = "payment complete"
	StatusPaymentFailed   Status = "payment failed"
)

// Order is the append-only record of a completed checkout attempt.
// Items are a snapshot of the cart at checkout time.
type Order struct {
	ID             string
	UserID         string
	CheckoutToken  string
	CreatedAt      time.Time
	Items          []cart.LineItem
	Total          decimal.Decimal
	DiscountCode   *string
	DiscountAmount decimal.Decimal
	PaymentMethod  PaymentMethod
	Status         Status
}

// Repository is the durable store for orders.
type Repository interface {
	// Create writes o once. It returns ErrDuplicateToken if an order with the
	// same checkout token exists.
	Create(ctx context.Context, o *Order) error
	// FindByCheckoutToken returns ErrNotFound when there is no such order.
	FindByCheckoutToken(ctx context.Context, token string) (*Order, error)
	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID string) ([]Order, error)
}
