// Package payment covers payment-intent creation and payment-sheet
// confirmation.
package payment

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrInvalidAmount is returned for amounts that cannot be charged.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrAmountMismatch is returned when the requested amount differs from
	// the server-side price of the submitted items.
	ErrAmountMismatch = errors.New("amount does not match cart total")
	// ErrCanceled is returned by Sheet.Present when the customer dismisses the sheet.
	ErrCanceled = errors.New("payment canceled")
)

// Intent is a processor-side payment intent. It is never persisted here.
type Intent struct {
	ID           string
	ClientSecret string
	AmountMinor  int64
	Currency     string
}

// Processor creates payment intents with a third-party processor.
type Processor interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency, idempotencyKey string) (*Intent, error)
}

// ProcessorError carries a processor rejection message safe to show callers.
type ProcessorError struct {
	Message string
	Err     error
}

func (e *ProcessorError) Error() string {
	if e.Err == nil {
		return "processor: " + e.Message
	}
	return fmt.Sprintf("processor: %s: %v", e.Message, e.Err)
}

func (e *ProcessorError) Unwrap() error { return e.Err }
