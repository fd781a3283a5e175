package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/credential-service/internal/domain"
)

// CodeRepository stores pending one-time verification codes.
type CodeRepository interface {
	// Replace atomically drops every earlier code for the identity and stores c.
	Replace(ctx context.Context, c *domain.OneTimeCode) error
	// Find returns the stored code matching identityID and code, or nil when none matches.
	Find(ctx context.Context, identityID, code string) (*domain.OneTimeCode, error)
	DeleteByIdentity(ctx context.Context, identityID string) error
	// DeleteIssuedBefore removes codes issued before cutoff and returns how many were removed.
	DeleteIssuedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
