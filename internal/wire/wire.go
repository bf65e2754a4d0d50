// Package wire is the JSON codec for the HTTP API, shared by the server
// handlers and the payment-intent client.
package wire

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/food-checkout/internal/domain/cart"
	"github.com/xenking/food-checkout/internal/domain/money"
)

// MissingFieldError reports a required field absent from a request body.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return "missing required field " + e.Field
}

// decodeDecimal reads a JSON number or numeric string and rejects values
// outside money bounds before they reach any arithmetic.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	var raw string
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = s
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		raw = n.String()
	default:
		return decimal.Decimal{}, errors.Errorf("expected number, got %s", d.Next())
	}

	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if err := money.Check(v); err != nil {
		return decimal.Decimal{}, err
	}
	return v, nil
}

func encodeDecimal(e *jx.Encoder, v decimal.Decimal) {
	e.Num(jx.Num(v.String()))
}

func decodeOptionalString(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

func encodeLineItem(e *jx.Encoder, it cart.LineItem) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("foodId", func(e *jx.Encoder) { e.Str(it.FoodID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(it.Name) })
		e.Field("unitPrice", func(e *jx.Encoder) { encodeDecimal(e, it.UnitPrice) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
	})
}

func encodeLineItems(e *jx.Encoder, items []cart.LineItem) {
	e.Arr(func(e *jx.Encoder) {
		for _, it := range items {
			encodeLineItem(e, it)
		}
	})
}

func decodeLineItem(d *jx.Decoder) (cart.LineItem, error) {
	var (
		it                       cart.LineItem
		hasID, hasPrice, hasQty bool
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "foodId":
			it.FoodID, err = d.Str()
			hasID = true
		case "name":
			it.Name, err = decodeOptionalString(d)
		case "unitPrice":
			it.UnitPrice, err = decodeDecimal(d)
			hasPrice = true
		case "quantity":
			it.Quantity, err = d.Int()
			hasQty = true
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "decode %s", key)
		}
		return nil
	})
	if err != nil {
		return it, err
	}
	switch {
	case !hasID:
		return it, &MissingFieldError{Field: "foodId"}
	case !hasPrice:
		return it, &MissingFieldError{Field: "unitPrice"}
	case !hasQty:
		return it, &MissingFieldError{Field: "quantity"}
	}
	return it, nil
}

func decodeLineItems(d *jx.Decoder) ([]cart.LineItem, error) {
	var items []cart.LineItem
	err := d.Arr(func(d *jx.Decoder) error {
		it, err := decodeLineItem(d)
		if err != nil {
			return err
		}
		items = append(items, it)
		return nil
	})
	return items, err
}

// MarshalLineItems encodes items as a JSON array.
func MarshalLineItems(items []cart.LineItem) []byte {
	var e jx.Encoder
	encodeLineItems(&e, items)
	return e.Bytes()
}

// UnmarshalLineItems is the inverse of MarshalLineItems.
func UnmarshalLineItems(data []byte) ([]cart.LineItem, error) {
	return decodeLineItems(jx.DecodeBytes(data))
}
