package wire

import (
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/food-checkout/internal/domain/cart"
	"github.com/xenking/food-checkout/internal/domain/money"
	"github.com/xenking/food-checkout/internal/domain/order"
)

func encode(f func(e *jx.Encoder)) string {
	var e jx.Encoder
	f(&e)
	return string(e.Bytes())
}

func TestDecodeIntentRequest(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantAmount string
		wantItems  int
		wantCode   string
		wantErr    bool
	}{
		{name: "integer amount", body: `{"amount":390}`, wantAmount: "390"},
		{name: "fractional amount", body: `{"amount":6.5}`, wantAmount: "6.5"},
		{name: "string amount", body: `{"amount":"390"}`, wantAmount: "390"},
		{
			name:       "with items",
			body:       `{"amount":390,"items":[{"foodId":"f1","name":"Burger","unitPrice":200,"quantity":2}],"discountCode":"Nischal","extra":true}`,
			wantAmount: "390",
			wantItems:  1,
			wantCode:   "Nischal",
		},
		{name: "null code", body: `{"amount":1,"discountCode":null}`, wantAmount: "1"},
		{name: "missing amount", body: `{}`, wantErr: true},
		{name: "bad amount", body: `{"amount":true}`, wantErr: true},
		{name: "item without price", body: `{"amount":1,"items":[{"foodId":"f1","quantity":1}]}`, wantErr: true},
		{name: "not json", body: `amount=390`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeIntentRequest([]byte(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.wantAmount).Equal(got.Amount))
			assert.Len(t, got.Items, tt.wantItems)
			assert.Equal(t, tt.wantCode, got.DiscountCode)
		})
	}
}

func TestDecodeDecimal_Bounds(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{name: "two decimals", body: `{"amount":10.25}`},
		{name: "trailing zeros", body: `{"amount":10.2500}`},
		{name: "largest amount", body: `{"amount":9999999999.99}`},
		{name: "sub-minor", body: `{"amount":10.005}`, wantErr: money.ErrSubMinorUnit},
		{name: "sub-minor string", body: `{"amount":"0.001"}`, wantErr: money.ErrSubMinorUnit},
		{name: "above max", body: `{"amount":10000000000}`, wantErr: money.ErrTooLarge},
		{name: "huge exponent", body: `{"amount":1e2000000000}`, wantErr: money.ErrTooLarge},
		{name: "tiny exponent", body: `{"amount":1e-2000000000}`, wantErr: money.ErrSubMinorUnit},
		{
			name:    "huge exponent unit price",
			body:    `{"amount":1,"items":[{"foodId":"f1","unitPrice":1e2000000000,"quantity":1}]}`,
			wantErr: money.ErrTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Now()
			_, err := DecodeIntentRequest([]byte(tt.body))
			assert.Less(t, time.Since(start), time.Second)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecodeCheckoutRequest_RejectsUnboundedPrice(t *testing.T) {
	_, err := DecodeCheckoutRequest([]byte(`{"items":[{"foodId":"f1","unitPrice":0.005,"quantity":1}],"paymentMethod":"cod"}`))
	require.ErrorIs(t, err, money.ErrSubMinorUnit)
}

func TestIntentRequest_RoundTripsItems(t *testing.T) {
	in := IntentRequest{
		Amount: decimal.NewFromInt(390),
		Items: []cart.LineItem{
			{FoodID: "f1", Name: "Burger", UnitPrice: decimal.RequireFromString("200"), Quantity: 2},
		},
		DiscountCode: "Nischal",
	}
	body := encode(func(e *jx.Encoder) { EncodeIntentRequest(e, in) })

	out, err := DecodeIntentRequest([]byte(body))
	require.NoError(t, err)
	assert.True(t, in.Amount.Equal(out.Amount))
	require.Len(t, out.Items, 1)
	assert.Equal(t, "f1", out.Items[0].FoodID)
	assert.True(t, in.Items[0].UnitPrice.Equal(out.Items[0].UnitPrice))
	assert.Equal(t, 2, out.Items[0].Quantity)
}

func TestClientSecret(t *testing.T) {
	body := encode(func(e *jx.Encoder) { EncodeClientSecret(e, "pi_1_secret_x") })
	assert.JSONEq(t, `{"clientSecret":"pi_1_secret_x"}`, body)

	s, err := DecodeClientSecret([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, "pi_1_secret_x", s)

	_, err = DecodeClientSecret([]byte(`{"other":1}`))
	var mf *MissingFieldError
	require.ErrorAs(t, err, &mf)
}

func TestError(t *testing.T) {
	plain := encode(func(e *jx.Encoder) { EncodeError(e, ErrorBody{Message: "Invalid amount"}) })
	assert.JSONEq(t, `{"error":{"message":"Invalid amount"}}`, plain)

	tagged := encode(func(e *jx.Encoder) {
		EncodeError(e, ErrorBody{Kind: "EmptyCart", Message: "Your cart is empty."})
	})
	assert.JSONEq(t, `{"error":{"kind":"EmptyCart","message":"Your cart is empty."}}`, tagged)

	b, err := DecodeError([]byte(tagged))
	require.NoError(t, err)
	assert.Equal(t, ErrorBody{Kind: "EmptyCart", Message: "Your cart is empty."}, b)
}

func TestEncodeOrder(t *testing.T) {
	o := &order.Order{
		ID:             "order_1749988800000",
		UserID:         "u1",
		CheckoutToken:  "tok",
		CreatedAt:      time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
		Items:          []cart.LineItem{{FoodID: "f1", Name: "Burger", UnitPrice: decimal.NewFromInt(200), Quantity: 2}},
		Total:          decimal.NewFromInt(400),
		DiscountAmount: decimal.Zero,
		PaymentMethod:  order.PaymentCOD,
		Status:         order.StatusPending,
	}
	body := encode(func(e *jx.Encoder) { EncodeOrder(e, o) })

	assert.JSONEq(t, `{
		"id":"order_1749988800000",
		"userId":"u1",
		"date":"2025-06-15T12:00:00.000Z",
		"items":[{"foodId":"f1","name":"Burger","unitPrice":200,"quantity":2}],
		"total":400,
		"discountCode":null,
		"discountAmount":0,
		"paymentMethod":"cod",
		"status":"pending",
		"checkoutToken":"tok"
	}`, body)

	back, err := DecodeOrder([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, o.ID, back.ID)
	assert.True(t, o.CreatedAt.Equal(back.CreatedAt))
	assert.Nil(t, back.DiscountCode)
}

func TestDecodeCheckoutRequest(t *testing.T) {
	r, err := DecodeCheckoutRequest([]byte(`{
		"items":[{"foodId":"f1","name":"Burger","unitPrice":200,"quantity":2}],
		"discountCode":"Nischal",
		"paymentMethod":"online",
		"paymentMethodId":"pm_card_visa",
		"checkoutToken":"tok-1"
	}`))
	require.NoError(t, err)
	assert.Len(t, r.Items, 1)
	assert.Equal(t, "Nischal", r.DiscountCode)
	assert.Equal(t, "online", r.PaymentMethod)
	assert.Equal(t, "pm_card_visa", r.PaymentMethodID)
	assert.Equal(t, "tok-1", r.CheckoutToken)

	_, err = DecodeCheckoutRequest([]byte(`{"items":[]}`))
	var mf *MissingFieldError
	require.ErrorAs(t, err, &mf)
	assert.Equal(t, "paymentMethod", mf.Field)
}

func TestDecodeDiscountRequest(t *testing.T) {
	code, err := DecodeDiscountRequest([]byte(`{"code":"Nischal"}`))
	require.NoError(t, err)
	assert.Equal(t, "Nischal", code)

	_, err = DecodeDiscountRequest([]byte(`{}`))
	require.Error(t, err)
}

func TestLineItems_Marshal(t *testing.T) {
	items := []cart.LineItem{
		{FoodID: "f1", Name: "Burger", UnitPrice: decimal.RequireFromString("199.5"), Quantity: 2},
		{FoodID: "f2", Name: "Momo", UnitPrice: decimal.NewFromInt(120), Quantity: 1},
	}
	data := MarshalLineItems(items)
	assert.JSONEq(t, `[
		{"foodId":"f1","name":"Burger","unitPrice":199.5,"quantity":2},
		{"foodId":"f2","name":"Momo","unitPrice":120,"quantity":1}
	]`, string(data))

	back, err := UnmarshalLineItems(data)
	require.NoError(t, err)
	require.Len(t, back, 2)
	assert.True(t, items[0].UnitPrice.Equal(back[0].UnitPrice))

	empty, err := UnmarshalLineItems(MarshalLineItems(nil))
	require.NoError(t, err)
	assert.Empty(t, empty)
}
