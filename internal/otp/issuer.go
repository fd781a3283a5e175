// Package otp issues and checks numeric email verification codes.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ErlanBelekov/credential-service/internal/domain"
	"github.com/ErlanBelekov/credential-service/internal/repository"
)

const (
	MinDigits  = 4
	MaxDigits  = 10
	DefaultTTL = 15 * time.Minute
)

// Result is the outcome of checking a submitted code.
type Result int

const (
	Mismatch Result = iota
	Expired
	Valid
)

func (r Result) String() string {
	switch r {
	case Valid:
		return "valid"
	case Expired:
		return "expired"
	default:
		return "mismatch"
	}
}

type Issuer struct {
	codes  repository.CodeRepository
	digits int
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Issuer)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(i *Issuer) { i.now = now }
}

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(i *Issuer) { i.ttl = ttl }
}

func NewIssuer(codes repository.CodeRepository, digits int, opts ...Option) (*Issuer, error) {
	if digits < MinDigits || digits > MaxDigits {
		return nil, fmt.Errorf("otp digits must be in [%d, %d], got %d", MinDigits, MaxDigits, digits)
	}
	i := &Issuer{
		codes:  codes,
		digits: digits,
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

func (i *Issuer) TTL() time.Duration { return i.ttl }

// Retention is how long a store must keep a code issued with ttl. A code
// has to outlive its TTL so Validate can still find it and report Expired
// instead of Mismatch.
func Retention(ttl time.Duration) time.Duration { return 2 * ttl }

// Issue generates a fresh code for identityID, stores it in place of any
// earlier code and returns it for delivery.
func (i *Issuer) Issue(ctx context.Context, identityID string) (string, error) {
	code, err := Generate(i.digits)
	if err != nil {
		return "", err
	}

	c := &domain.OneTimeCode{
		IdentityID: identityID,
		Code:       code,
		IssuedAt:   i.now(),
	}
	if err := i.codes.Replace(ctx, c); err != nil {
		return "", fmt.Errorf("store verification code: %w", err)
	}
	return code, nil
}

// Validate checks code against the stored record for identityID. It has no
// side effects; re-issuing after a failure is the caller's decision.
func (i *Issuer) Validate(ctx context.Context, identityID, code string) (Result, error) {
	stored, err := i.codes.Find(ctx, identityID, strings.TrimSpace(code))
	if err != nil {
		return Mismatch, fmt.Errorf("find verification code: %w", err)
	}
	if stored == nil {
		return Mismatch, nil
	}
	if stored.ExpiredAt(i.now(), i.ttl) {
		return Expired, nil
	}
	return Valid, nil
}

// PurgeAll deletes every pending code for identityID.
func (i *Issuer) PurgeAll(ctx context.Context, identityID string) error {
	if err := i.codes.DeleteByIdentity(ctx, identityID); err != nil {
		return fmt.Errorf("purge verification codes: %w", err)
	}
	return nil
}

// Generate returns a uniformly random decimal code of exactly digits digits.
// Leading zeros are allowed.
func Generate(digits int) (string, error) {
	var b strings.Builder
	b.Grow(digits)

	ten := big.NewInt(10)
	for range digits {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
