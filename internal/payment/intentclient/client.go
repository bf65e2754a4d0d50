// Package intentclient calls the payment-intent server on behalf of the
// checkout orchestrator.
package intentclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/xenking/food-checkout/internal/domain/checkout"
	"github.com/xenking/food-checkout/internal/wire"
)

const (
	intentPath        = "/create-payment-intent"
	apiKeyHeader      = "api_key"
	idempotencyHeader = "Idempotency-Key"
)

// ErrUnavailable is returned while the breaker refuses calls.
var ErrUnavailable = errors.New("payment intent server unavailable")

// RemoteError is a non-200 answer from the intent server.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("intent server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("intent server returned %d: %s", e.StatusCode, e.Message)
}

type options struct {
	timeout   time.Duration
	transport http.RoundTripper
	logger    *zap.Logger
	breaker   gobreaker.Settings
}

// Option configures a Client.
type Option func(*options)

// WithTimeout bounds a single request. Default is 10s.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithTransport sets the underlying round tripper, e.g. an otelhttp transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithLogger logs breaker state changes.
func WithLogger(lg *zap.Logger) Option {
	return func(o *options) { o.logger = lg }
}

// WithBreakerTimeout sets how long the breaker stays open before probing.
func WithBreakerTimeout(d time.Duration) Option {
	return func(o *options) { o.breaker.Timeout = d }
}

// Client requests client secrets over HTTP. Calls are never retried: a
// retry must reuse the same checkout token so the server can dedupe it.
type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	apiKey  string
}

var _ checkout.IntentRequester = (*Client)(nil)

// New returns a client for the server at baseURL.
func New(baseURL, apiKey string, opts ...Option) *Client {
	o := options{
		timeout: 10 * time.Second,
		logger:  zap.NewNop(),
		breaker: gobreaker.Settings{
			Name:        "payment-intent",
			MaxRequests: 1,
			Interval:    30 * time.Second,
			Timeout:     15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(&o)
	}

	lg := o.logger
	o.breaker.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.Requests >= 3 && counts.TotalFailures*2 >= counts.Requests
	}
	// Canceled callers are not server failures.
	o.breaker.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, context.Canceled)
	}
	o.breaker.OnStateChange = func(name string, from, to gobreaker.State) {
		lg.Warn("Circuit breaker state changed",
			zap.String("circuit", name),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}

	hc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(o.timeout).
		SetRetryCount(0)
	if o.transport != nil {
		hc.SetTransport(o.transport)
	}

	return &Client{
		http:    hc,
		breaker: gobreaker.NewCircuitBreaker(o.breaker),
		apiKey:  apiKey,
	}
}

// RequestClientSecret asks the server for a client secret for req.Amount
// (major units). Only transport failures and 5xx answers count against the
// breaker; a 4xx or a canceled ctx does not.
func (c *Client) RequestClientSecret(ctx context.Context, req checkout.IntentRequest) (string, error) {
	var e jx.Encoder
	wire.EncodeIntentRequest(&e, wire.IntentRequest{
		Amount:       req.Amount,
		Items:        req.Items,
		DiscountCode: req.DiscountCode,
	})
	body := e.Bytes()

	out, err := c.breaker.Execute(func() (interface{}, error) {
		r := c.http.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetHeader(apiKeyHeader, c.apiKey).
			SetBody(body)
		if req.IdempotencyKey != "" {
			r.SetHeader(idempotencyHeader, req.IdempotencyKey)
		}
		resp, err := r.Post(intentPath)
		if err != nil {
			return nil, errors.Wrap(err, "send request")
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return nil, remoteError(resp)
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", errors.Wrapf(ErrUnavailable, "circuit %s", c.breaker.Name())
		}
		return "", err
	}

	resp := out.(*resty.Response)
	if resp.StatusCode() != http.StatusOK {
		return "", remoteError(resp)
	}
	secret, err := wire.DecodeClientSecret(resp.Body())
	if err != nil {
		return "", errors.Wrap(err, "decode response")
	}
	return secret, nil
}

func remoteError(resp *resty.Response) *RemoteError {
	re := &RemoteError{StatusCode: resp.StatusCode()}
	if b, err := wire.DecodeError(resp.Body()); err == nil {
		re.Message = b.Message
	}
	return re
}
