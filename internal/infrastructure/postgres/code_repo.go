package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ErlanBelekov/credential-service/internal/domain"
)

type CodeRepository struct {
	db DB
}

func NewCodeRepository(db DB) *CodeRepository {
	return &CodeRepository{db: db}
}

// Replace deletes every earlier code for the identity and inserts c in one
// transaction, so at most one code per identity is ever pending.
func (r *CodeRepository) Replace(ctx context.Context, c *domain.OneTimeCode) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx,
		`DELETE FROM email_verification_codes WHERE identity_id = $1`,
		c.IdentityID,
	); err != nil {
		return fmt.Errorf("delete previous codes: %w", err)
	}

	if _, err = tx.Exec(ctx,
		`INSERT INTO email_verification_codes (identity_id, code, issued_at) VALUES ($1, $2, $3)`,
		c.IdentityID, c.Code, c.IssuedAt,
	); err != nil {
		return fmt.Errorf("insert code: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *CodeRepository) Find(ctx context.Context, identityID, code string) (*domain.OneTimeCode, error) {
	query := `
		SELECT identity_id, code, issued_at
		FROM   email_verification_codes
		WHERE  identity_id = $1 AND code = $2
		ORDER BY issued_at DESC
		LIMIT 1`

	var c domain.OneTimeCode
	err := r.db.QueryRow(ctx, query, identityID, code).Scan(&c.IdentityID, &c.Code, &c.IssuedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find verification code: %w", err)
	}
	return &c, nil
}

func (r *CodeRepository) DeleteByIdentity(ctx context.Context, identityID string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM email_verification_codes WHERE identity_id = $1`, identityID)
	if err != nil {
		return fmt.Errorf("delete verification codes: %w", err)
	}
	return nil
}

func (r *CodeRepository) DeleteIssuedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM email_verification_codes WHERE issued_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired verification codes: %w", err)
	}
	return tag.RowsAffected(), nil
}
