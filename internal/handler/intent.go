package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/food-checkout/internal/domain/cart"
	"github.com/xenking/food-checkout/internal/domain/discount"
	"github.com/xenking/food-checkout/internal/domain/money"
	"github.com/xenking/food-checkout/internal/domain/payment"
	"github.com/xenking/food-checkout/internal/wire"
	"github.com/xenking/food-checkout/pkg/httpmiddleware"
)

// CreatePaymentIntent handles POST /create-payment-intent.
//
// Every failure, processor outages included, answers
// 400 {"error":{"message":...}}.
func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lg := zctx.From(ctx)

	data, err := readBody(w, r)
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, wire.ErrorBody{Message: "could not read request body"})
		return
	}
	req, err := wire.DecodeIntentRequest(data)
	if err != nil {
		msg := "Invalid request: " + err.Error()
		if errors.Is(err, money.ErrSubMinorUnit) || errors.Is(err, money.ErrTooLarge) {
			msg = "Invalid amount"
		}
		writeError(ctx, w, http.StatusBadRequest, wire.ErrorBody{Message: msg})
		return
	}

	intent, err := h.intents.Create(ctx, payment.CreateRequest{
		Amount:         req.Amount,
		Items:          req.Items,
		DiscountCode:   req.DiscountCode,
		IdempotencyKey: httpmiddleware.IdempotencyKeyFromContext(ctx),
	})
	if err != nil {
		code, msg := intentErrorResponse(err)
		lg.Warn("Payment intent rejected",
			zap.String("amount", req.Amount.String()),
			zap.Int("status", code),
			zap.Error(err),
		)
		writeError(ctx, w, code, wire.ErrorBody{Message: msg})
		return
	}

	lg.Info("Payment intent created",
		zap.String("intent_id", intent.ID),
		zap.Int64("amount_minor", intent.AmountMinor),
		zap.String("currency", intent.Currency),
	)
	var e jx.Encoder
	wire.EncodeClientSecret(&e, intent.ClientSecret)
	writeJSON(w, http.StatusOK, &e)
}

func intentErrorResponse(err error) (int, string) {
	var (
		pe *payment.ProcessorError
		ie *cart.InvalidItemError
	)
	switch {
	case errors.As(err, &pe):
		return http.StatusBadRequest, pe.Message
	case errors.As(err, &ie):
		return http.StatusBadRequest, ie.Error()
	case errors.Is(err, payment.ErrInvalidAmount):
		return http.StatusBadRequest, "Invalid amount"
	case errors.Is(err, payment.ErrAmountMismatch):
		return http.StatusBadRequest, "Amount does not match cart total"
	case errors.Is(err, discount.ErrRejected):
		return http.StatusBadRequest, "Invalid discount code"
	default:
		return http.StatusBadRequest, "Payment processor unavailable"
	}
}
