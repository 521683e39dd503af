package seed

import (
	"crypto/subtle"
	"errors"
	"strings"
)

var (
	// ErrMissingToken is returned when a bearer token is required but absent.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken is returned when the bearer token does not match.
	ErrInvalidToken = errors.New("invalid token")
)

// CheckBearer validates an Authorization header against the configured
// token. An empty token disables the check.
func CheckBearer(header, token string) error {
	if token == "" {
		return nil
	}

	scheme, value, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ErrMissingToken
	}

	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(value)), []byte(token)) != 1 {
		return ErrInvalidToken
	}
	return nil
}
