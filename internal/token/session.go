package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ErlanBelekov/credential-service/internal/domain"
)

const SessionTTL = 7 * 24 * time.Hour

// SessionClaims identify the holder of a session token.
type SessionClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// IdentityID returns the subject the token was issued to.
func (c *SessionClaims) IdentityID() string { return c.Subject }

type SessionService struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewSessionService(key []byte, now func() time.Time) (*SessionService, error) {
	if len(key) < minKeyLength {
		return nil, fmt.Errorf("session key must be at least %d bytes", minKeyLength)
	}
	if now == nil {
		now = time.Now
	}
	return &SessionService{key: key, ttl: SessionTTL, now: now}, nil
}

// Issue signs a session token for identity and returns it with its expiry.
func (s *SessionService) Issue(identity *domain.Identity) (string, time.Time, error) {
	if identity == nil || identity.ID == "" {
		return "", time.Time{}, errors.New("issue session: identity without id")
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := SessionClaims{
		Name:  identity.Name,
		Email: identity.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := sign(claims, s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate returns the claims of raw when it is StatusValid.
func (s *SessionService) Validate(raw string) (*SessionClaims, Status) {
	claims := &SessionClaims{}
	status := parse(raw, claims, s.key, s.now)
	if status != StatusValid {
		return nil, status
	}
	if claims.Subject == "" {
		return nil, StatusInvalid
	}
	return claims, StatusValid
}
