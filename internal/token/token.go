// Package token mints and validates the signed credentials handed to clients:
// long-lived session tokens and short-lived, identity-scoped reset tokens.
// Neither is persisted; validity is carried entirely by signature and expiry.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Status is the tagged outcome of validating a token.
type Status int

const (
	StatusInvalid Status = iota
	StatusExpired
	StatusValid
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusExpired:
		return "expired"
	default:
		return "invalid"
	}
}

const minKeyLength = 32

var errUnexpectedMethod = errors.New("unexpected signing method")

// parse verifies raw with key and classifies the outcome. The signature is
// checked before expiry, so StatusExpired is only returned for tokens that
// were genuinely signed with key.
func parse(raw string, claims jwt.Claims, key []byte, now func() time.Time) Status {
	if raw == "" {
		return StatusInvalid
	}

	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errUnexpectedMethod
		}
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	switch {
	case err == nil && tok.Valid:
		return StatusValid
	case errors.Is(err, jwt.ErrTokenExpired):
		return StatusExpired
	default:
		return StatusInvalid
	}
}

func sign(claims jwt.Claims, key []byte) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}
