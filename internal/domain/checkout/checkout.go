// Package checkout turns a cart into a priced, paid and recorded order.
//
// One call to Service.Checkout is one attempt. It walks the states
//
//	Idle -> Pricing -> RequestingSecret -> AwaitingPaymentSheet -> Confirming -> Recording -> Done
//	Idle -> Pricing -> Recording -> Done    (cash on delivery)
//
// and stops in Failed on the first error. The order is never written before
// payment is confirmed. The caller must not run two attempts against the same
// cart at once.
package checkout

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xenking/food-checkout/internal/domain/cart"
	"github.com/xenking/food-checkout/internal/domain/order"
	"github.com/xenking/food-checkout/internal/domain/payment"
	"github.com/xenking/food-checkout/internal/domain/pricing"
)

// State is a step of a checkout attempt.
type State string

const (
	StateIdle                 State = "Idle"
	StatePricing              State = "Pricing"
	StateRequestingSecret     State = "RequestingSecret"
	StateAwaitingPaymentSheet State = "AwaitingPaymentSheet"
	StateConfirming           State = "Confirming"
	StateRecording            State = "Recording"
	StateDone                 State = "Done"
	StateFailed               State = "Failed"
)

// Kind classifies a failed attempt.
type Kind string

const (
	KindAuthRequired        Kind = "AuthRequired"
	KindEmptyCart           Kind = "EmptyCart"
	KindInvalidRequest      Kind = "InvalidRequest"
	KindIntentRequestFailed Kind = "IntentRequestFailed"
	KindSheetInitFailed     Kind = "SheetInitFailed"
	KindPaymentDeclined     Kind = "PaymentDeclined"
	KindOrderSaveFailed     Kind = "OrderSaveFailed"
)

var messages = map[Kind]string{
	KindAuthRequired:        "Please sign in to place an order.",
	KindEmptyCart:           "Your cart is empty.",
	KindInvalidRequest:      "The checkout request is invalid.",
	KindIntentRequestFailed: "Could not start the payment. Please check your connection and try again.",
	KindSheetInitFailed:     "The payment form could not be opened. Please try again later.",
	KindPaymentDeclined:     "There was an error processing your payment.",
	KindOrderSaveFailed:     "Something went wrong while saving your order. Please contact support.",
}

// Error is the tagged result of a failed attempt. State is the step that
// failed; Trail lists every state entered, ending in StateFailed.
type Error struct {
	Kind  Kind
	State State
	Trail []State
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("checkout %s in %s: %v", e.Kind, e.State, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Message is the single user-visible message for the failure kind.
func (e *Error) Message() string {
	return MessageFor(e.Kind)
}

// MessageFor returns the user-visible message for k.
func MessageFor(k Kind) string {
	if m, ok := messages[k]; ok {
		return m
	}
	return "Something went wrong."
}

// IntentRequest asks the payment-intent server for a client secret. The
// items and discount code let the server re-price the cart.
type IntentRequest struct {
	Amount         decimal.Decimal
	Items          []cart.LineItem
	DiscountCode   string
	IdempotencyKey string
}

// IntentRequester obtains a client secret for a payable amount.
type IntentRequester interface {
	RequestClientSecret(ctx context.Context, req IntentRequest) (string, error)
}

// OrderRecorder persists orders. *order.Recorder implements it.
type OrderRecorder interface {
	Save(ctx context.Context, req order.SaveRequest) (*order.Order, error)
	Find(ctx context.Context, userID, token string) (*order.Order, error)
}

// Request is one checkout attempt.
type Request struct {
	Cart   *cart.Cart
	Method order.PaymentMethod
	// Sheet is required for online payment.
	Sheet payment.Sheet
	// Token identifies the attempt across retries. It is sent as the
	// payment-intent idempotency key and stored on the order. A fresh
	// token is generated when empty.
	Token string
}

// Result is a successful attempt.
type Result struct {
	Order  *order.Order
	Priced pricing.PricedCart
	Trail  []State
	// Replayed is set when Token was already recorded and no new payment
	// or order was made.
	Replayed bool
}
