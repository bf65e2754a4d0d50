package wire

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/food-checkout/internal/domain/cart"
)

// IntentRequest is the body of POST /create-payment-intent. Amount is in
// major currency units; Items and DiscountCode are optional.
type IntentRequest struct {
	Amount       decimal.Decimal
	Items        []cart.LineItem
	DiscountCode string
}

// EncodeIntentRequest writes r as a JSON object.
func EncodeIntentRequest(e *jx.Encoder, r IntentRequest) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("amount", func(e *jx.Encoder) { encodeDecimal(e, r.Amount) })
		if len(r.Items) > 0 {
			e.Field("items", func(e *jx.Encoder) { encodeLineItems(e, r.Items) })
		}
		if r.DiscountCode != "" {
			e.Field("discountCode", func(e *jx.Encoder) { e.Str(r.DiscountCode) })
		}
	})
}

// DecodeIntentRequest parses a payment-intent request body.
func DecodeIntentRequest(data []byte) (IntentRequest, error) {
	var (
		r         IntentRequest
		hasAmount bool
	)
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "amount":
			r.Amount, err = decodeDecimal(d)
			hasAmount = true
		case "items":
			r.Items, err = decodeLineItems(d)
		case "discountCode":
			r.DiscountCode, err = decodeOptionalString(d)
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
	if !hasAmount {
		return r, &MissingFieldError{Field: "amount"}
	}
	return r, nil
}

// EncodeClientSecret writes {"clientSecret": secret}.
func EncodeClientSecret(e *jx.Encoder, secret string) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("clientSecret", func(e *jx.Encoder) { e.Str(secret) })
	})
}

// DecodeClientSecret reads a payment-intent success body.
func DecodeClientSecret(data []byte) (string, error) {
	var secret string
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		if key != "clientSecret" {
			return d.Skip()
		}
		s, err := d.Str()
		secret = s
		return err
	})
	if err != nil {
		return "", err
	}
	if secret == "" {
		return "", &MissingFieldError{Field: "clientSecret"}
	}
	return secret, nil
}
