package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"scoreboard/core"
)

// APIKeys authenticates static keys sent in X-API-Key, each bound to a user id.
type APIKeys struct {
	keys map[string]core.UserID
}

// NewAPIKeys builds the authenticator from key -> user id pairs. Blank keys or
// ids are skipped.
func NewAPIKeys(pairs map[string]string) *APIKeys {
	keys := make(map[string]core.UserID, len(pairs))
	for k, v := range pairs {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		keys[k] = core.UserID(v)
	}
	return &APIKeys{keys: keys}
}

func (a *APIKeys) Len() int { return len(a.keys) }

func (a *APIKeys) Authenticate(r *http.Request) (core.UserID, error) {
	key := strings.TrimSpace(r.Header.Get("X-API-Key"))
	if key == "" {
		return "", ErrMissingCredentials
	}
	for k, id := range a.keys {
		if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
			return id, nil
		}
	}
	return "", ErrInvalidCredentials
}
