package payment

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
)

// Sheet collects payment details for one client secret and confirms the
// payment. Init must succeed before Present is called.
type Sheet interface {
	Init(ctx context.Context, clientSecret, returnURL string) error
	Present(ctx context.Context) error
}

// SheetInitError reports that the sheet could not be bound to the intent,
// e.g. a malformed secret.
type SheetInitError struct {
	Err error
}

func (e *SheetInitError) Error() string {
	return fmt.Sprintf("init payment sheet: %v", e.Err)
}

func (e *SheetInitError) Unwrap() error { return e.Err }

// DeclinedError reports that the customer-facing payment did not complete.
type DeclinedError struct {
	Reason string
	Err    error
}

func (e *DeclinedError) Error() string {
	return fmt.Sprintf("payment declined: %s", e.Reason)
}

func (e *DeclinedError) Unwrap() error { return e.Err }

// InitSheet binds sheet to clientSecret, wrapping failures in *SheetInitError.
func InitSheet(ctx context.Context, sheet Sheet, clientSecret, returnURL string) error {
	if err := sheet.Init(ctx, clientSecret, returnURL); err != nil {
		return &SheetInitError{Err: err}
	}
	return nil
}

// PresentSheet confirms payment, wrapping failures in *DeclinedError.
func PresentSheet(ctx context.Context, sheet Sheet) error {
	err := sheet.Present(ctx)
	if err == nil {
		return nil
	}
	var de *DeclinedError
	if errors.As(err, &de) {
		return de
	}
	return &DeclinedError{Reason: err.Error(), Err: err}
}
