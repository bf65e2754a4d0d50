package checkout

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/food-checkout/internal/domain/auth"
	"github.com/xenking/food-checkout/internal/domain/cart"
	"github.com/xenking/food-checkout/internal/domain/order"
	"github.com/xenking/food-checkout/internal/domain/payment"
	"github.com/xenking/food-checkout/internal/domain/pricing"
)

const instrumentationName = "github.com/xenking/food-checkout/internal/domain/checkout"

// Option configures a Service.
type Option func(*Service)

// WithReturnURL sets the URL the payment sheet returns to after
// out-of-band authentication.
func WithReturnURL(u string) Option {
	return func(s *Service) { s.returnURL = u }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracerProvider = tp }
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

// Service is the checkout orchestrator.
type Service struct {
	sessions auth.Session
	intents  IntentRequester
	orders   OrderRecorder

	returnURL      string
	newToken       func() string
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	tracer   trace.Tracer
	attempts metric.Int64Counter
	totals   metric.Float64Histogram
}

// NewService creates a checkout Service. Dependencies are passed explicitly.
func NewService(
	sessions auth.Session,
	intents IntentRequester,
	orders OrderRecorder,
	opts ...Option,
) (*Service, error) {
	s := &Service{
		sessions:       sessions,
		intents:        intents,
		orders:         orders,
		newToken:       uuid.NewString,
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, o := range opts {
		o(s)
	}

	s.tracer = s.tracerProvider.Tracer(instrumentationName)
	meter := s.meterProvider.Meter(instrumentationName)

	var err error
	if s.attempts, err = meter.Int64Counter("checkout.attempts",
		metric.WithDescription("Checkout attempts by payment method and outcome"),
	); err != nil {
		return nil, errors.Wrap(err, "create attempts counter")
	}
	if s.totals, err = meter.Float64Histogram("checkout.total",
		metric.WithDescription("Recorded order totals in major currency units"),
	); err != nil {
		return nil, errors.Wrap(err, "create totals histogram")
	}
	return s, nil
}

// attempt tracks one run through the state machine.
type attempt struct {
	ctx    context.Context
	span   trace.Span
	lg     *zap.Logger
	method order.PaymentMethod
	state  State
	trail  []State
}

func (a *attempt) enter(st State) {
	a.state = st
	a.trail = append(a.trail, st)
	a.span.AddEvent(string(st))
	a.lg.Debug("Checkout state", zap.String("state", string(st)))
}

func (a *attempt) fail(kind Kind, err error) *Error {
	failed := a.state
	a.trail = append(a.trail, StateFailed)
	a.span.RecordError(err)
	a.span.SetStatus(codes.Error, string(kind))
	return &Error{Kind: kind, State: failed, Trail: a.trail, Err: err}
}

// Checkout runs one attempt. Failures are returned as *Error and leave the
// cart untouched; on success the cart is cleared.
func (s *Service) Checkout(ctx context.Context, req Request) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "checkout",
		trace.WithAttributes(attribute.String("payment.method", string(req.Method))),
	)
	defer span.End()

	a := &attempt{
		ctx:    ctx,
		span:   span,
		lg:     zctx.From(ctx).With(zap.String("payment_method", string(req.Method))),
		method: req.Method,
	}
	a.enter(StateIdle)

	res, err := s.run(a, req)
	if err != nil {
		var cerr *Error
		if errors.As(err, &cerr) {
			s.record(ctx, req.Method, string(cerr.Kind))
			lvl := a.lg.Warn
			if cerr.Kind == KindOrderSaveFailed && req.Method == order.PaymentOnline {
				// Payment has been captured with no order record.
				lvl = a.lg.Error
			}
			lvl("Checkout failed",
				zap.String("kind", string(cerr.Kind)),
				zap.String("state", string(cerr.State)),
				zap.Error(cerr.Err),
			)
		}
		return nil, err
	}

	outcome := "done"
	if res.Replayed {
		outcome = "replayed"
	} else {
		s.totals.Record(ctx, res.Priced.Total.InexactFloat64(),
			metric.WithAttributes(attribute.String("method", string(req.Method))),
		)
	}
	s.record(ctx, req.Method, outcome)
	a.lg.Info("Checkout done",
		zap.String("order_id", res.Order.ID),
		zap.Bool("replayed", res.Replayed),
	)
	return res, nil
}

func (s *Service) run(a *attempt, req Request) (*Result, error) {
	ctx := a.ctx

	user, ok := s.sessions.CurrentUser(ctx)
	if !ok {
		return nil, a.fail(KindAuthRequired, auth.ErrUnauthenticated)
	}
	a.lg = a.lg.With(zap.String("user_id", user.UID))

	if !req.Method.Valid() {
		return nil, a.fail(KindInvalidRequest, errors.Errorf("unknown payment method %q", req.Method))
	}
	if req.Method == order.PaymentOnline && req.Sheet == nil {
		return nil, a.fail(KindInvalidRequest, errors.New("payment sheet required for online payment"))
	}

	a.enter(StatePricing)
	if req.Cart == nil || req.Cart.Len() == 0 {
		return nil, a.fail(KindEmptyCart, cart.ErrEmpty)
	}
	priced := pricing.Price(req.Cart.Items(), req.Cart.Discount())

	token := req.Token
	if token == "" {
		token = s.newToken()
	}
	a.span.SetAttributes(attribute.String("checkout.token", token))

	existing, err := s.orders.Find(ctx, user.UID, token)
	switch {
	case err == nil:
		a.enter(StateDone)
		req.Cart.Clear()
		return &Result{Order: existing, Priced: priced, Trail: a.trail, Replayed: true}, nil
	case errors.Is(err, order.ErrTokenOwner):
		return nil, a.fail(KindInvalidRequest, err)
	case !errors.Is(err, order.ErrNotFound):
		// Fail before any money moves if the store is unreachable.
		return nil, a.fail(KindOrderSaveFailed, err)
	}

	status := order.StatusPending
	if req.Method == order.PaymentOnline {
		a.enter(StateRequestingSecret)
		secret, err := s.intents.RequestClientSecret(ctx, IntentRequest{
			Amount:         priced.Total,
			Items:          priced.Items,
			DiscountCode:   priced.DiscountCode,
			IdempotencyKey: token,
		})
		if err != nil {
			return nil, a.fail(KindIntentRequestFailed, err)
		}

		a.enter(StateAwaitingPaymentSheet)
		if err := payment.InitSheet(ctx, req.Sheet, secret, s.returnURL); err != nil {
			return nil, a.fail(KindSheetInitFailed, err)
		}

		a.enter(StateConfirming)
		if err := payment.PresentSheet(ctx, req.Sheet); err != nil {
			return nil, a.fail(KindPaymentDeclined, err)
		}
		status = order.StatusPaymentComplete
	}

	a.enter(StateRecording)
	o, err := s.orders.Save(ctx, order.SaveRequest{
		UserID:         user.UID,
		CheckoutToken:  token,
		Items:          priced.Items,
		Total:          priced.Total,
		DiscountCode:   priced.DiscountCode,
		DiscountAmount: priced.DiscountAmount,
		PaymentMethod:  req.Method,
		Status:         status,
	})
	if err != nil {
		return nil, a.fail(KindOrderSaveFailed, err)
	}

	a.enter(StateDone)
	req.Cart.Clear()
	return &Result{Order: o, Priced: priced, Trail: a.trail}, nil
}

func (s *Service) record(ctx context.Context, method order.PaymentMethod, outcome string) {
	s.attempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", string(method)),
		attribute.String("outcome", outcome),
	))
}
