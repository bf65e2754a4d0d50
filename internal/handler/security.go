package handler

import (
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/xenking/food-checkout/internal/domain/auth"
	"github.com/xenking/food-checkout/internal/domain/checkout"
	"github.com/xenking/food-checkout/internal/wire"
)

const apiKeyHeader = "api_key"

// Security authenticates service callers by API key and customers by
// HS256 bearer token.
type Security struct {
	apikeys   auth.APIKeyRepository
	pepper    []byte
	jwtSecret []byte
}

func NewSecurity(apikeys auth.APIKeyRepository, pepper, jwtSecret []byte) *Security {
	return &Security{
		apikeys:   apikeys,
		pepper:    pepper,
		jwtSecret: jwtSecret,
	}
}

// RequireAPIKey admits requests whose api_key header hashes to an active key
// with the create-intent scope.
func (s *Security) RequireAPIKey() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := r.Header.Get(apiKeyHeader)
			if key == "" {
				writeError(ctx, w, http.StatusUnauthorized, wire.ErrorBody{Message: "missing API key"})
				return
			}

			hash := auth.HashAPIKey(s.pepper, key)
			info, err := s.apikeys.FindByHash(ctx, hash)
			if err != nil {
				if !errors.Is(err, auth.ErrAPIKeyNotFound) {
					zctx.From(ctx).Error("API key lookup failed", zap.Error(err))
				}
				writeError(ctx, w, http.StatusUnauthorized, wire.ErrorBody{Message: "invalid API key"})
				return
			}

			// Stored hash must match exactly.
			want, _ := hex.DecodeString(hash)
			got, err := hex.DecodeString(info.KeyHash)
			if err != nil || subtle.ConstantTimeCompare(want, got) != 1 {
				writeError(ctx, w, http.StatusUnauthorized, wire.ErrorBody{Message: "invalid API key"})
				return
			}
			if !info.HasScope(auth.ScopeCreateIntent) {
				writeError(ctx, w, http.StatusForbidden, wire.ErrorBody{Message: "API key lacks scope " + auth.ScopeCreateIntent})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Bearer attaches the token subject as the session user. Requests without
// an Authorization header pass through anonymous; handlers decide whether a
// user is required. Invalid tokens are rejected with 401.
func (s *Security) Bearer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				writeAuthRequired(w, r)
				return
			}
			uid, err := s.parseToken(raw)
			if err != nil {
				zctx.From(ctx).Debug("Rejected bearer token", zap.Error(err))
				writeAuthRequired(w, r)
				return
			}
			ctx = auth.WithUser(ctx, auth.User{UID: uid})
			ctx = zctx.With(ctx, zap.String("user_id", uid))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Security) parseToken(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", errors.Wrap(err, "parse token")
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// SignToken issues an HS256 token for uid valid for ttl.
func SignToken(secret []byte, uid string, ttl time.Duration) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   uid,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	signed, err := tok.SignedString(secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

func writeAuthRequired(w http.ResponseWriter, r *http.Request) {
	writeError(r.Context(), w, http.StatusUnauthorized, wire.ErrorBody{
		Kind:    string(checkout.KindAuthRequired),
		Message: checkout.MessageFor(checkout.KindAuthRequired),
	})
}
