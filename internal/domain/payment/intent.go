package payment

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/food-checkout/internal/domain/cart"
	"github.com/xenking/food-checkout/internal/domain/discount"
	"github.com/xenking/food-checkout/internal/domain/pricing"
)

// CreateRequest asks for a payment intent. Amount is in major units.
// When Items is set the amount is checked against the server-side price.
type CreateRequest struct {
	Amount         decimal.Decimal
	Items          []cart.LineItem
	DiscountCode   string
	IdempotencyKey string
}

// IntentService is the server side of the payment-intent handshake. It owns
// the major-to-minor unit conversion.
type IntentService struct {
	processor Processor
	discounts discount.Validator
	currency  string
}

// NewIntentService creates an IntentService charging in currency.
func NewIntentService(processor Processor, discounts discount.Validator, currency string) *IntentService {
	return &IntentService{
		processor: processor,
		discounts: discounts,
		currency:  currency,
	}
}

// Create validates the request and creates a processor intent for
// Amount × 100 minor units.
func (s *IntentService) Create(ctx context.Context, req CreateRequest) (*Intent, error) {
	minor, err := pricing.MinorUnits(req.Amount)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidAmount, "%v", err)
	}
	if minor <= 0 {
		return nil, errors.Wrapf(ErrInvalidAmount, "amount %s must be positive", req.Amount)
	}

	if len(req.Items) > 0 {
		if err := s.verify(ctx, req); err != nil {
			return nil, err
		}
	}

	intent, err := s.processor.CreateIntent(ctx, minor, s.currency, req.IdempotencyKey)
	if err != nil {
		return nil, errors.Wrap(err, "create processor intent")
	}
	return intent, nil
}

func (s *IntentService) verify(ctx context.Context, req CreateRequest) error {
	for _, it := range req.Items {
		if err := it.Validate(); err != nil {
			return err
		}
	}

	var applied *discount.Code
	if req.DiscountCode != "" {
		c, err := s.discounts.Validate(ctx, req.DiscountCode)
		if err != nil {
			return errors.Wrap(err, "validate discount")
		}
		applied = c
	}

	priced := pricing.Price(req.Items, applied)
	if !priced.Total.Equal(req.Amount) {
		return errors.Wrapf(ErrAmountMismatch, "requested %s, priced %s", req.Amount, priced.Total)
	}
	return nil
}
