package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/food-checkout/internal/domain/auth"
	"github.com/xenking/food-checkout/internal/domain/order"
	"github.com/xenking/food-checkout/internal/wire"
)

// ListOrders handles GET /api/orders?status=&q=, newest first.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := auth.UserFromContext(ctx)
	if !ok {
		writeAuthRequired(w, r)
		return
	}

	q := r.URL.Query()
	orders, err := h.orders.History(ctx, user.UID, order.Filter{
		Status: q.Get("status"),
		Query:  q.Get("q"),
	})
	if err != nil {
		zctx.From(ctx).Error("List orders failed", zap.Error(err))
		writeError(ctx, w, http.StatusInternalServerError, wire.ErrorBody{Message: "Could not load your orders."})
		return
	}

	var e jx.Encoder
	wire.EncodeOrders(&e, orders)
	writeJSON(w, http.StatusOK, &e)
}
