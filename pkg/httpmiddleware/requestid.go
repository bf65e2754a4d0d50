package httpmiddleware

import (
	"context"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDHeader   = "X-Request-ID"
	idempotencyHeader = "Idempotency-Key"
)

type (
	requestIDKey   struct{}
	idempotencyKey struct{}
)

// RequestIDFromContext returns the request ID or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestID reuses a well-formed incoming X-Request-ID or generates a UUID.
// The ID is echoed in the response, stored in the context and attached to
// the request logger.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if !printableToken(id, 128) {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)

			ctx := context.WithValue(r.Context(), requestIDKey{}, id)
			ctx = zctx.With(ctx, zap.String("request_id", id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdempotencyKeyFromContext returns the client-supplied idempotency key or "".
func IdempotencyKeyFromContext(ctx context.Context) string {
	k, _ := ctx.Value(idempotencyKey{}).(string)
	return k
}

// IdempotencyKey stores a well-formed Idempotency-Key header in the context.
// Malformed keys are rejected with 400.
func IdempotencyKey() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := r.Header.Get(idempotencyHeader)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}
			if !printableToken(k, 255) {
				writeError(w, http.StatusBadRequest, "invalid Idempotency-Key header")
				return
			}
			ctx := context.WithValue(r.Context(), idempotencyKey{}, k)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// printableToken reports whether s is 1..maxLen bytes of printable ASCII.
func printableToken(s string, maxLen int) bool {
	if s == "" || len(s) > maxLen {
		return false
	}
	for i := range len(s) {
		if s[i] < 0x20 || s[i] > 0x7e {
			return false
		}
	}
	return true
}
