package repository

import (
	"context"

	"github.com/ErlanBelekov/credential-service/internal/domain"
)

// IdentityRepository persists identities. Emails are passed already normalised.
// Lookups return domain.ErrIdentityNotFound when no record matches.
type IdentityRepository interface {
	Create(ctx context.Context, email, name, secretHash string) (*domain.Identity, error)
	FindByEmail(ctx context.Context, email string) (*domain.Identity, error)
	FindByID(ctx context.Context, id string) (*domain.Identity, error)
	UpdateSecretHash(ctx context.Context, id, secretHash string) (*domain.Identity, error)
	MarkVerified(ctx context.Context, id string) (*domain.Identity, error)
}
