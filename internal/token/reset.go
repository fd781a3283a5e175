package token

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ErlanBelekov/credential-service/internal/domain"
)

const ResetTTL = 15 * time.Minute

// ResetClaims authorise one password change for Subject.
type ResetClaims struct {
	// Fingerprint of the secret hash current at issue time. Once the password
	// changes the token no longer matches the identity.
	Fingerprint string `json:"fp"`
	jwt.RegisteredClaims
}

// ResetService signs reset tokens with a key derived from the identity id
// and the process-wide reset secret, so a token only verifies against the
// identity it was issued for.
type ResetService struct {
	secret string
	ttl    time.Duration
	now    func() time.Time
}

func NewResetService(secret string, now func() time.Time) (*ResetService, error) {
	if len(secret) < minKeyLength {
		return nil, fmt.Errorf("reset secret must be at least %d bytes", minKeyLength)
	}
	if now == nil {
		now = time.Now
	}
	return &ResetService{secret: secret, ttl: ResetTTL, now: now}, nil
}

func (s *ResetService) Issue(identity *domain.Identity) (string, error) {
	if identity == nil || identity.ID == "" {
		return "", errors.New("issue reset token: identity without id")
	}

	now := s.now()
	claims := ResetClaims{
		Fingerprint: Fingerprint(identity.SecretHash),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := sign(claims, s.deriveKey(identity.ID))
	if err != nil {
		return "", fmt.Errorf("sign reset token: %w", err)
	}
	return signed, nil
}

// Validate checks raw against the key derived from identityID. A token
// issued for any other identity is StatusInvalid.
func (s *ResetService) Validate(identityID, raw string) (*ResetClaims, Status) {
	if identityID == "" {
		return nil, StatusInvalid
	}

	claims := &ResetClaims{}
	status := parse(raw, claims, s.deriveKey(identityID), s.now)
	if status != StatusValid {
		return nil, status
	}
	if claims.Subject != identityID {
		return nil, StatusInvalid
	}
	return claims, StatusValid
}

func (s *ResetService) deriveKey(identityID string) []byte {
	return []byte(identityID + s.secret)
}

// Fingerprint is a short, non-reversible digest of a secret hash.
func Fingerprint(secretHash string) string {
	sum := sha256.Sum256([]byte(secretHash))
	return hex.EncodeToString(sum[:8])
}
