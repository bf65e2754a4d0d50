package wire

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/food-checkout/internal/domain/cart"
	"github.com/xenking/food-checkout/internal/domain/discount"
	"github.com/xenking/food-checkout/internal/domain/order"
)

// TimeLayout is ISO-8601 with millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// CheckoutRequest is the body of POST /api/checkout.
type CheckoutRequest struct {
	Items           []cart.LineItem
	DiscountCode    string
	PaymentMethod   string
	PaymentMethodID string
	CheckoutToken   string
}

// DecodeCheckoutRequest parses a checkout request body.
func DecodeCheckoutRequest(data []byte) (CheckoutRequest, error) {
	var (
		r         CheckoutRequest
		hasMethod bool
	)
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "items":
			r.Items, err = decodeLineItems(d)
		case "discountCode":
			r.DiscountCode, err = decodeOptionalString(d)
		case "paymentMethod":
			r.PaymentMethod, err = d.Str()
			hasMethod = true
		case "paymentMethodId":
			r.PaymentMethodID, err = decodeOptionalString(d)
		case "checkoutToken":
			r.CheckoutToken, err = decodeOptionalString(d)
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "decode %s", key)
		}
		return nil
	})
	if err != nil {
		return r, err
	}
	if !hasMethod {
		return r, &MissingFieldError{Field: "paymentMethod"}
	}
	return r, nil
}

// EncodeOrder writes o as a JSON object.
func EncodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("userId", func(e *jx.Encoder) { e.Str(o.UserID) })
		e.Field("date", func(e *jx.Encoder) { e.Str(o.CreatedAt.UTC().Format(TimeLayout)) })
		e.Field("items", func(e *jx.Encoder) { encodeLineItems(e, o.Items) })
		e.Field("total", func(e *jx.Encoder) { encodeDecimal(e, o.Total) })
		e.Field("discountCode", func(e *jx.Encoder) {
			if o.DiscountCode == nil {
				e.Null()
				return
			}
			e.Str(*o.DiscountCode)
		})
		e.Field("discountAmount", func(e *jx.Encoder) { encodeDecimal(e, o.DiscountAmount) })
		e.Field("paymentMethod", func(e *jx.Encoder) { e.Str(string(o.PaymentMethod)) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
		e.Field("checkoutToken", func(e *jx.Encoder) { e.Str(o.CheckoutToken) })
	})
}

// EncodeOrders writes orders as a JSON array.
func EncodeOrders(e *jx.Encoder, orders []order.Order) {
	e.Arr(func(e *jx.Encoder) {
		for i := range orders {
			EncodeOrder(e, &orders[i])
		}
	})
}

// DecodeOrder reads an order object. It is the inverse of EncodeOrder.
func DecodeOrder(data []byte) (*order.Order, error) {
	o := &order.Order{}
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			o.ID, err = d.Str()
		case "userId":
			o.UserID, err = d.Str()
		case "date":
			var s string
			if s, err = d.Str(); err == nil {
				o.CreatedAt, err = time.Parse(TimeLayout, s)
			}
		case "items":
			o.Items, err = decodeLineItems(d)
		case "total":
			o.Total, err = decodeDecimal(d)
		case "discountCode":
			var s string
			if s, err = decodeOptionalString(d); err == nil && s != "" {
				o.DiscountCode = &s
			}
		case "discountAmount":
			o.DiscountAmount, err = decodeDecimal(d)
		case "paymentMethod":
			var s string
			s, err = d.Str()
			o.PaymentMethod = order.PaymentMethod(s)
		case "status":
			var s string
			s, err = d.Str()
			o.Status = order.Status(s)
		case "checkoutToken":
			o.CheckoutToken, err = d.Str()
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "decode %s", key)
		}
		return nil
	})
	return o, err
}

// DecodeDiscountRequest reads {"code": "..."}.
func DecodeDiscountRequest(data []byte) (string, error) {
	var (
		code string
		has  bool
	)
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		if key != "code" {
			return d.Skip()
		}
		has = true
		s, err := d.Str()
		code = s
		return err
	})
	if err != nil {
		return "", err
	}
	if !has {
		return "", &MissingFieldError{Field: "code"}
	}
	return code, nil
}

// EncodeDiscount writes {"code": ..., "amount": ...}.
func EncodeDiscount(e *jx.Encoder, c *discount.Code) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Str(c.Code) })
		e.Field("amount", func(e *jx.Encoder) { encodeDecimal(e, c.Amount) })
		if c.Description != "" {
			e.Field("description", func(e *jx.Encoder) { e.Str(c.Description) })
		}
	})
}
