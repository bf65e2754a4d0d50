// Package auth models the authenticated caller: end users checking out and
// services holding API keys.
package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrUnauthenticated is returned when no user is signed in.
var ErrUnauthenticated = errors.New("authentication required")

// User is the signed-in customer.
type User struct {
	UID string
}

// Session reports the signed-in user, if any.
type Session interface {
	CurrentUser(ctx context.Context) (User, bool)
}

type userKey struct{}

// WithUser returns a copy of ctx carrying u.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFromContext returns the user stored by WithUser.
func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(userKey{}).(User)
	if !ok || u.UID == "" {
		return User{}, false
	}
	return u, true
}

// ContextSession is a Session backed by the request context.
type ContextSession struct{}

func (ContextSession) CurrentUser(ctx context.Context) (User, bool) {
	return UserFromContext(ctx)
}
