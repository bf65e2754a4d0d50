package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/go-faster/errors"
)

// ErrAPIKeyNotFound is returned for unknown or inactive keys.
var ErrAPIKeyNotFound = errors.New("api key not found")

// ScopeCreateIntent allows calling the payment-intent endpoint.
const ScopeCreateIntent = "create_payment_intent"

// APIKey is a stored service credential. The key itself is never stored,
// only its HMAC-SHA256 under the server pepper.
type APIKey struct {
	ID      string
	KeyHash string
	Name    string
	Scopes  []string
}

// HasScope reports whether the key grants scope.
func (k *APIKey) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// APIKeyRepository looks up active keys by hash. FindByHash returns
// ErrAPIKeyNotFound when no active key matches.
type APIKeyRepository interface {
	FindByHash(ctx context.Context, hash string) (*APIKey, error)
}

// HashAPIKey returns the hex HMAC-SHA256 of key under pepper.
func HashAPIKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}
