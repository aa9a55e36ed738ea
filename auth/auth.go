// Package auth resolves request credentials to user identities.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"scoreboard/core"
)

var (
	// ErrMissingCredentials means the request carried no credential this
	// authenticator understands.
	ErrMissingCredentials = errors.New("missing credentials")
	// ErrInvalidCredentials means a credential was present but rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Authenticator maps an inbound request to a verified user identifier.
type Authenticator interface {
	Authenticate(r *http.Request) (core.UserID, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(r *http.Request) (core.UserID, error)

func (f AuthenticatorFunc) Authenticate(r *http.Request) (core.UserID, error) { return f(r) }

type userIDKey struct{}

// WithUserID stores the resolved identity on ctx.
func WithUserID(ctx context.Context, id core.UserID) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// UserIDFromContext retrieves the identity stored by WithUserID.
func UserIDFromContext(ctx context.Context) (core.UserID, bool) {
	id, ok := ctx.Value(userIDKey{}).(core.UserID)
	return id, ok && id != ""
}

// Chain tries each authenticator in order. The first one that recognizes a
// credential decides the outcome.
type Chain []Authenticator

func (c Chain) Authenticate(r *http.Request) (core.UserID, error) {
	for _, a := range c {
		id, err := a.Authenticate(r)
		if errors.Is(err, ErrMissingCredentials) {
			continue
		}
		return id, err
	}
	return "", ErrMissingCredentials
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
