// Package redis stores pending verification codes in Redis. Keys carry their
// own expiry, so no sweeper is needed for this backend.
package redis

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ErlanBelekov/credential-service/internal/domain"
)

const keyPrefix = "credential:otp:"

type CodeRepository struct {
	client    *goredis.Client
	retention time.Duration
}

// NewCodeRepository keeps each code for retention. Retention should exceed
// the code TTL so that a stale code is reported as expired rather than
// unknown.
func NewCodeRepository(client *goredis.Client, retention time.Duration) *CodeRepository {
	return &CodeRepository{client: client, retention: retention}
}

func NewClient(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func key(identityID string) string {
	return keyPrefix + identityID
}

// Replace overwrites any pending code for the identity.
func (r *CodeRepository) Replace(ctx context.Context, c *domain.OneTimeCode) error {
	value := strconv.FormatInt(c.IssuedAt.UnixNano(), 10) + ":" + c.Code
	if err := r.client.Set(ctx, key(c.IdentityID), value, r.retention).Err(); err != nil {
		return fmt.Errorf("store verification code: %w", err)
	}
	return nil
}

func (r *CodeRepository) Find(ctx context.Context, identityID, code string) (*domain.OneTimeCode, error) {
	value, err := r.client.Get(ctx, key(identityID)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load verification code: %w", err)
	}

	issued, stored, ok := strings.Cut(value, ":")
	if !ok {
		return nil, fmt.Errorf("load verification code: malformed value for %s", identityID)
	}
	nanos, err := strconv.ParseInt(issued, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("load verification code: %w", err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
		return nil, nil
	}
	return &domain.OneTimeCode{
		IdentityID: identityID,
		Code:       stored,
		IssuedAt:   time.Unix(0, nanos).UTC(),
	}, nil
}

func (r *CodeRepository) DeleteByIdentity(ctx context.Context, identityID string) error {
	if err := r.client.Del(ctx, key(identityID)).Err(); err != nil {
		return fmt.Errorf("delete verification code: %w", err)
	}
	return nil
}

// DeleteIssuedBefore is a no-op; Redis expires keys on its own.
func (r *CodeRepository) DeleteIssuedBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}
