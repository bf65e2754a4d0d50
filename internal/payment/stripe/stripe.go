// Package stripe adapts the Stripe PaymentIntents API to the payment ports.
package stripe

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"

	"github.com/xenking/food-checkout/internal/domain/payment"
)

// IntentAPI is the subset of the PaymentIntents client used here.
type IntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Confirm(id string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error)
}

// NewIntentAPI returns the live PaymentIntents client for secretKey.
func NewIntentAPI(secretKey string) IntentAPI {
	return client.New(secretKey, nil).PaymentIntents
}

// Processor creates payment intents with automatic payment methods.
type Processor struct {
	api IntentAPI
}

var _ payment.Processor = (*Processor)(nil)

func NewProcessor(api IntentAPI) *Processor {
	return &Processor{api: api}
}

// CreateIntent implements payment.Processor.
func (p *Processor) CreateIntent(ctx context.Context, amountMinor int64, currency, idempotencyKey string) (*payment.Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountMinor),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}

	pi, err := p.api.New(params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) {
			return nil, &payment.ProcessorError{Message: se.Msg, Err: err}
		}
		return nil, errors.Wrap(err, "create payment intent")
	}

	zctx.From(ctx).Debug("Payment intent created",
		zap.String("intent_id", pi.ID),
		zap.Int64("amount_minor", pi.Amount),
	)
	return &payment.Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountMinor:  pi.Amount,
		Currency:     string(pi.Currency),
	}, nil
}

// IntentIDFromSecret extracts "pi_123" from "pi_123_secret_abc".
func IntentIDFromSecret(secret string) (string, error) {
	id, rest, ok := strings.Cut(secret, "_secret_")
	if !ok || rest == "" || !strings.HasPrefix(id, "pi_") || len(id) == len("pi_") {
		return "", errors.New("malformed client secret")
	}
	return id, nil
}

// Sheet confirms a payment intent server-side with a payment method the
// client collected. One Sheet serves one checkout attempt.
type Sheet struct {
	api             IntentAPI
	paymentMethodID string

	intentID  string
	returnURL string
}

var _ payment.Sheet = (*Sheet)(nil)

// Init implements payment.Sheet. It resolves the intent behind clientSecret.
func (s *Sheet) Init(ctx context.Context, clientSecret, returnURL string) error {
	id, err := IntentIDFromSecret(clientSecret)
	if err != nil {
		return err
	}
	params := &stripe.PaymentIntentParams{ClientSecret: stripe.String(clientSecret)}
	params.Context = ctx
	pi, err := s.api.Get(id, params)
	if err != nil {
		return errors.Wrap(err, "retrieve payment intent")
	}
	if pi.Status == stripe.PaymentIntentStatusCanceled {
		return errors.Errorf("payment intent %s is canceled", pi.ID)
	}
	s.intentID = pi.ID
	s.returnURL = returnURL
	return nil
}

// Present implements payment.Sheet.
func (s *Sheet) Present(ctx context.Context) error {
	if s.intentID == "" {
		return errors.New("sheet not initialized")
	}
	if s.paymentMethodID == "" {
		return &payment.DeclinedError{Reason: "no payment method provided", Err: payment.ErrCanceled}
	}

	params := &stripe.PaymentIntentConfirmParams{
		PaymentMethod: stripe.String(s.paymentMethodID),
	}
	if s.returnURL != "" {
		params.ReturnURL = stripe.String(s.returnURL)
	}
	params.Context = ctx

	pi, err := s.api.Confirm(s.intentID, params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) {
			return &payment.DeclinedError{Reason: se.Msg, Err: err}
		}
		return errors.Wrap(err, "confirm payment intent")
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return nil
	case stripe.PaymentIntentStatusCanceled:
		return &payment.DeclinedError{Reason: "payment canceled", Err: payment.ErrCanceled}
	default:
		reason := "payment " + string(pi.Status)
		if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
			reason = pi.LastPaymentError.Msg
		}
		return &payment.DeclinedError{Reason: reason}
	}
}

// SheetFactory builds a Sheet per checkout request.
type SheetFactory struct {
	api IntentAPI
}

func NewSheetFactory(api IntentAPI) *SheetFactory {
	return &SheetFactory{api: api}
}

// NewSheet returns a sheet that pays with paymentMethodID.
func (f *SheetFactory) NewSheet(paymentMethodID string) payment.Sheet {
	return &Sheet{api: f.api, paymentMethodID: paymentMethodID}
}
