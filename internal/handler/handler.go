// Package handler implements the HTTP API on chi with the wire codec.
package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/food-checkout/internal/domain/checkout"
	"github.com/xenking/food-checkout/internal/domain/discount"
	"github.com/xenking/food-checkout/internal/domain/order"
	"github.com/xenking/food-checkout/internal/domain/payment"
	"github.com/xenking/food-checkout/internal/wire"
	"github.com/xenking/food-checkout/pkg/httpmiddleware"
)

const maxBodyBytes = 1 << 20

// IntentCreator is implemented by *payment.IntentService.
type IntentCreator interface {
	Create(ctx context.Context, req payment.CreateRequest) (*payment.Intent, error)
}

// Checkouter is implemented by *checkout.Service.
type Checkouter interface {
	Checkout(ctx context.Context, req checkout.Request) (*checkout.Result, error)
}

// OrderHistory is implemented by *order.Recorder.
type OrderHistory interface {
	History(ctx context.Context, userID string, f order.Filter) ([]order.Order, error)
}

// SheetFactory builds the payment sheet for an online checkout.
type SheetFactory interface {
	NewSheet(paymentMethodID string) payment.Sheet
}

// Handler serves the payment-intent and checkout API.
type Handler struct {
	intents   IntentCreator
	checkouts Checkouter
	discounts discount.Validator
	orders    OrderHistory
	sheets    SheetFactory
}

func NewHandler(
	intents IntentCreator,
	checkouts Checkouter,
	discounts discount.Validator,
	orders OrderHistory,
	sheets SheetFactory,
) *Handler {
	return &Handler{
		intents:   intents,
		checkouts: checkouts,
		discounts: discounts,
		orders:    orders,
		sheets:    sheets,
	}
}

// NewRouter mounts the API routes on a chi router.
func NewRouter(h *Handler, sec *Security) *chi.Mux {
	r := chi.NewRouter()

	r.With(
		sec.RequireAPIKey(),
		httpmiddleware.IdempotencyKey(),
	).Post("/create-payment-intent", h.CreatePaymentIntent)

	r.Route("/api", func(r chi.Router) {
		r.Use(sec.Bearer())
		r.With(httpmiddleware.IdempotencyKey()).Post("/checkout", h.Checkout)
		r.Post("/discounts/validate", h.ValidateDiscount)
		r.Get("/orders", h.ListOrders)
	})
	return r
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	return data, nil
}

func writeJSON(w http.ResponseWriter, code int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}

func writeError(ctx context.Context, w http.ResponseWriter, code int, body wire.ErrorBody) {
	if code >= http.StatusInternalServerError {
		zctx.From(ctx).Debug("Responding with server error",
			zap.Int("status", code),
			zap.String("kind", body.Kind),
		)
	}
	var e jx.Encoder
	wire.EncodeError(&e, body)
	writeJSON(w, code, &e)
}
