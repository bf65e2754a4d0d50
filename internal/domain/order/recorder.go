package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/food-checkout/internal/domain/cart"
	"github.com/xenking/food-checkout/internal/domain/money"
)

// ErrTokenOwner is returned when a checkout token is replayed by a different user.
var ErrTokenOwner = errors.New("checkout token belongs to another user")

// InvalidOrderError describes a save request that cannot be recorded.
type InvalidOrderError struct {
	Field string
	Err   error
}

func (e *InvalidOrderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid order: %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid order: %s", e.Field)
}

func (e *InvalidOrderError) Unwrap() error { return e.Err }

// SaveRequest holds everything the recorder needs to write an order.
type SaveRequest struct {
	UserID         string
	CheckoutToken  string
	Items          []cart.LineItem
	Total          decimal.Decimal
	DiscountCode   string
	DiscountAmount decimal.Decimal
	PaymentMethod  PaymentMethod
	Status         Status
}

// Filter narrows an order history listing.
type Filter struct {
	// Status matches case-insensitively. Empty or "all" matches everything.
	Status string
	// Query matches item names case-insensitively by substring.
	Query string
}

// Recorder persists finalized orders and serves order history.
type Recorder struct {
	repo Repository
	now  func() time.Time
}

// NewRecorder creates a Recorder writing to repo.
func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo, now: time.Now}
}

// Save writes a new order with id "order_<epoch-millis>". Saving again with
// a checkout token that is already recorded returns the stored order.
func (r *Recorder) Save(ctx context.Context, req SaveRequest) (*Order, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	now := r.now().UTC()
	o := &Order{
		ID:             fmt.Sprintf("order_%d", now.UnixMilli()),
		UserID:         req.UserID,
		CheckoutToken:  req.CheckoutToken,
		CreatedAt:      now,
		Items:          append([]cart.LineItem(nil), req.Items...),
		Total:          req.Total,
		DiscountAmount: req.DiscountAmount,
		PaymentMethod:  req.PaymentMethod,
		Status:         req.Status,
	}
	if o.CheckoutToken == "" {
		o.CheckoutToken = o.ID
	}
	if req.DiscountCode != "" {
		code := req.DiscountCode
		o.DiscountCode = &code
	}

	err := r.repo.Create(ctx, o)
	if errors.Is(err, ErrDuplicateToken) {
		return r.Find(ctx, req.UserID, o.CheckoutToken)
	}
	if err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return o, nil
}

// Find returns the order recorded for token, if it belongs to userID.
func (r *Recorder) Find(ctx context.Context, userID, token string) (*Order, error) {
	o, err := r.repo.FindByCheckoutToken(ctx, token)
	if err != nil {
		return nil, errors.Wrap(err, "find order by token")
	}
	if o.UserID != userID {
		return nil, ErrTokenOwner
	}
	return o, nil
}

// History lists the user's orders newest first, narrowed by f.
func (r *Recorder) History(ctx context.Context, userID string, f Filter) ([]Order, error) {
	all, err := r.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}

	status := strings.TrimSpace(f.Status)
	if strings.EqualFold(status, "all") {
		status = ""
	}
	query := strings.ToLower(strings.TrimSpace(f.Query))

	out := make([]Order, 0, len(all))
	for _, o := range all {
		if status != "" && !strings.EqualFold(string(o.Status), status) {
			continue
		}
		if query != "" && !hasItemLike(o.Items, query) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func hasItemLike(items []cart.LineItem, query string) bool {
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Name), query) {
			return true
		}
	}
	return false
}

func validate(req SaveRequest) error {
	switch {
	case req.UserID == "":
		return &InvalidOrderError{Field: "user id required"}
	case len(req.Items) == 0:
		return &InvalidOrderError{Field: "items required"}
	case !req.PaymentMethod.Valid():
		return &InvalidOrderError{Field: fmt.Sprintf("unknown payment method %q", req.PaymentMethod)}
	case req.Status != StatusPending && req.Status != StatusPaymentComplete && req.Status != StatusPaymentFailed:
		return &InvalidOrderError{Field: fmt.Sprintf("unknown status %q", req.Status)}
	case req.Total.IsNegative():
		return &InvalidOrderError{Field: "total must not be negative"}
	}
	if err := money.Check(req.Total); err != nil {
		return &InvalidOrderError{Field: "total", Err: err}
	}
	if err := money.Check(req.DiscountAmount); err != nil {
		return &InvalidOrderError{Field: "discount amount", Err: err}
	}
	for i, it := range req.Items {
		if err := it.Validate(); err != nil {
			return &InvalidOrderError{Field: fmt.Sprintf("item %d", i), Err: err}
		}
	}
	return nil
}
