package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/food-checkout/internal/domain/auth"
	"github.com/xenking/food-checkout/internal/domain/cart"
	"github.com/xenking/food-checkout/internal/domain/checkout"
	"github.com/xenking/food-checkout/internal/domain/discount"
	"github.com/xenking/food-checkout/internal/domain/order"
	"github.com/xenking/food-checkout/internal/wire"
	"github.com/xenking/food-checkout/pkg/httpmiddleware"
)

const kindDiscountRejected = "DiscountRejected"

var checkoutStatus = map[checkout.Kind]int{
	checkout.KindAuthRequired:        http.StatusUnauthorized,
	checkout.KindEmptyCart:           http.StatusBadRequest,
	checkout.KindInvalidRequest:      http.StatusBadRequest,
	checkout.KindIntentRequestFailed: http.StatusBadGateway,
	checkout.KindSheetInitFailed:     http.StatusBadGateway,
	checkout.KindPaymentDeclined:     http.StatusPaymentRequired,
	checkout.KindOrderSaveFailed:     http.StatusInternalServerError,
}

func invalidRequest(msg string) wire.ErrorBody {
	return wire.ErrorBody{Kind: string(checkout.KindInvalidRequest), Message: msg}
}

// Checkout handles POST /api/checkout. It answers 201 with the new order,
// or 200 with the existing one when the checkout token was already used.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data, err := readBody(w, r)
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, invalidRequest("could not read request body"))
		return
	}
	req, err := wire.DecodeCheckoutRequest(data)
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, invalidRequest("Invalid request: "+err.Error()))
		return
	}

	c := cart.New()
	for _, it := range req.Items {
		if err := c.Add(it); err != nil {
			writeError(ctx, w, http.StatusBadRequest, invalidRequest(err.Error()))
			return
		}
	}

	// Anonymous callers skip discount lookup and fail auth in the orchestrator.
	if _, ok := auth.UserFromContext(ctx); ok && req.DiscountCode != "" {
		if _, err := c.ApplyDiscount(ctx, h.discounts, req.DiscountCode); err != nil {
			if errors.Is(err, discount.ErrRejected) {
				writeError(ctx, w, http.StatusUnprocessableEntity, wire.ErrorBody{
					Kind:    kindDiscountRejected,
					Message: "Invalid discount code.",
				})
				return
			}
			zctx.From(ctx).Error("Discount validation failed", zap.Error(err))
			writeError(ctx, w, http.StatusInternalServerError, wire.ErrorBody{Message: "Something went wrong."})
			return
		}
	}

	token := req.CheckoutToken
	if token == "" {
		token = httpmiddleware.IdempotencyKeyFromContext(ctx)
	}
	creq := checkout.Request{
		Cart:   c,
		Method: order.PaymentMethod(req.PaymentMethod),
		Token:  token,
	}
	if creq.Method == order.PaymentOnline {
		creq.Sheet = h.sheets.NewSheet(req.PaymentMethodID)
	}

	res, err := h.checkouts.Checkout(ctx, creq)
	if err != nil {
		var cerr *checkout.Error
		if !errors.As(err, &cerr) {
			zctx.From(ctx).Error("Checkout failed unexpectedly", zap.Error(err))
			writeError(ctx, w, http.StatusInternalServerError, wire.ErrorBody{Message: checkout.MessageFor("")})
			return
		}
		code, ok := checkoutStatus[cerr.Kind]
		if !ok {
			code = http.StatusInternalServerError
		}
		writeError(ctx, w, code, wire.ErrorBody{Kind: string(cerr.Kind), Message: cerr.Message()})
		return
	}

	code := http.StatusCreated
	if res.Replayed {
		code = http.StatusOK
	}
	var e jx.Encoder
	wire.EncodeOrder(&e, res.Order)
	writeJSON(w, code, &e)
}
