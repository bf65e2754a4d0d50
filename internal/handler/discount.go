package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/food-checkout/internal/domain/auth"
	"github.com/xenking/food-checkout/internal/domain/discount"
	"github.com/xenking/food-checkout/internal/wire"
)

// ValidateDiscount handles POST /api/discounts/validate.
func (h *Handler) ValidateDiscount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := auth.UserFromContext(ctx); !ok {
		writeAuthRequired(w, r)
		return
	}

	data, err := readBody(w, r)
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, invalidRequest("could not read request body"))
		return
	}
	code, err := wire.DecodeDiscountRequest(data)
	if err != nil {
		writeError(ctx, w, http.StatusBadRequest, invalidRequest("Invalid request: "+err.Error()))
		return
	}

	c, err := h.discounts.Validate(ctx, code)
	switch {
	case errors.Is(err, discount.ErrRejected):
		writeError(ctx, w, http.StatusUnprocessableEntity, wire.ErrorBody{
			Kind:    kindDiscountRejected,
			Message: "Invalid discount code.",
		})
		return
	case err != nil:
		zctx.From(ctx).Error("Discount validation failed", zap.Error(err))
		writeError(ctx, w, http.StatusInternalServerError, wire.ErrorBody{Message: "Something went wrong."})
		return
	}

	var e jx.Encoder
	wire.EncodeDiscount(&e, c)
	writeJSON(w, http.StatusOK, &e)
}
