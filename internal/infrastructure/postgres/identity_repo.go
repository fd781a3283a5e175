package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ErlanBelekov/credential-service/internal/domain"
)

const identityColumns = `id, email, name, secret_hash, verified, roles, created_at, updated_at`

// emailLowercaseConstraint rejects emails that were not normalised.
const emailLowercaseConstraint = "identities_email_lowercase"

type IdentityRepository struct {
	db DB
}

func NewIdentityRepository(db DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

func (r *IdentityRepository) Create(ctx context.Context, email, name, secretHash string) (*domain.Identity, error) {
	query := `
		INSERT INTO identities (email, name, secret_hash)
		VALUES ($1, $2, $3)
		RETURNING ` + identityColumns

	row := r.db.QueryRow(ctx, query, email, name, secretHash)
	identity, err := scanIdentity(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch {
			case pgErr.Code == pgerrcode.UniqueViolation:
				return nil, domain.ErrDuplicateEmail
			case pgErr.Code == pgerrcode.CheckViolation && pgErr.ConstraintName == emailLowercaseConstraint:
				return nil, fmt.Errorf("%w: email must be lower case", domain.ErrValidation)
			}
		}
		return nil, fmt.Errorf("insert identity: %w", err)
	}
	return identity, nil
}

func (r *IdentityRepository) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE email = $1`

	return scanIdentity(r.db.QueryRow(ctx, query, email))
}

func (r *IdentityRepository) FindByID(ctx context.Context, id string) (*domain.Identity, error) {
	if uuid.Validate(id) != nil {
		return nil, domain.ErrIdentityNotFound
	}

	query := `SELECT ` + identityColumns + ` FROM identities WHERE id = $1`

	return scanIdentity(r.db.QueryRow(ctx, query, id))
}

// UpdateSecretHash replaces the hash in a single statement; concurrent
// updates resolve to the last writer.
func (r *IdentityRepository) UpdateSecretHash(ctx context.Context, id, secretHash string) (*domain.Identity, error) {
	if uuid.Validate(id) != nil {
		return nil, domain.ErrIdentityNotFound
	}

	query := `
		UPDATE identities
		SET    secret_hash = $2,
		       updated_at  = NOW()
		WHERE  id = $1
		RETURNING ` + identityColumns

	return scanIdentity(r.db.QueryRow(ctx, query, id, secretHash))
}

// MarkVerified is idempotent: verifying an already verified identity
// succeeds and leaves it verified.
func (r *IdentityRepository) MarkVerified(ctx context.Context, id string) (*domain.Identity, error) {
	if uuid.Validate(id) != nil {
		return nil, domain.ErrIdentityNotFound
	}

	query := `
		UPDATE identities
		SET    verified   = TRUE,
		       updated_at = NOW()
		WHERE  id = $1
		RETURNING ` + identityColumns

	return scanIdentity(r.db.QueryRow(ctx, query, id))
}

func scanIdentity(row pgx.Row) (*domain.Identity, error) {
	var i domain.Identity
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.Name,
		&i.SecretHash,
		&i.Verified,
		&i.Roles,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, fmt.Errorf("scan identity: %w", err)
	}
	return &i, nil
}
