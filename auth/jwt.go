package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"scoreboard/core"
)

// JWT verifies HS256 bearer tokens and reads the user id from the sub claim.
type JWT struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// JWTOption configures a JWT authenticator.
type JWTOption func(*JWT)

// WithIssuer requires and stamps the iss claim.
func WithIssuer(iss string) JWTOption { return func(j *JWT) { j.issuer = iss } }

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) JWTOption {
	return func(j *JWT) {
		if now != nil {
			j.now = now
		}
	}
}

func NewJWT(secret string, opts ...JWTOption) (*JWT, error) {
	if secret == "" {
		return nil, errors.New("jwt secret cannot be empty")
	}
	j := &JWT{secret: []byte(secret), now: time.Now}
	for _, o := range opts {
		o(j)
	}
	return j, nil
}

func (j *JWT) Authenticate(r *http.Request) (core.UserID, error) {
	raw := bearerToken(r)
	if raw == "" {
		return "", ErrMissingCredentials
	}
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(j.now),
	}
	if j.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(j.issuer))
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return j.secret, nil
	}, parserOpts...)
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	id, err := core.NormalizeUserID(core.UserID(claims.Subject))
	if err != nil {
		return "", fmt.Errorf("%w: token missing subject", ErrInvalidCredentials)
	}
	return id, nil
}

// Issue mints a signed token for user valid for ttl.
func (j *JWT) Issue(user core.UserID, ttl time.Duration) (string, error) {
	if _, err := core.NormalizeUserID(user); err != nil {
		return "", err
	}
	now := j.now()
	claims := jwt.RegisteredClaims{
		Subject:   string(user),
		Issuer:    j.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}
