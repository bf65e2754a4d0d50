package wire

import (
	"github.com/go-faster/jx"
)

// ErrorBody is the payload of {"error": {...}} responses. Kind is empty on
// the payment-intent endpoint.
type ErrorBody struct {
	Kind    string
	Message string
}

// EncodeError writes {"error":{"kind":...,"message":...}}, omitting an empty kind.
func EncodeError(e *jx.Encoder, b ErrorBody) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("error", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				if b.Kind != "" {
					e.Field("kind", func(e *jx.Encoder) { e.Str(b.Kind) })
				}
				e.Field("message", func(e *jx.Encoder) { e.Str(b.Message) })
			})
		})
	})
}

// DecodeError reads an error response body.
func DecodeError(data []byte) (ErrorBody, error) {
	var b ErrorBody
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		if key != "error" {
			return d.Skip()
		}
		return d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "kind":
				b.Kind, err = d.Str()
			case "message":
				b.Message, err = d.Str()
			default:
				err = d.Skip()
			}
			return err
		})
	})
	return b, err
}
