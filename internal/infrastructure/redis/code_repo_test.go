package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ErlanBelekov/credential-service/internal/domain"
	"github.com/ErlanBelekov/credential-service/internal/infrastructure/redis"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestCodeRepository_ReplaceAndFind(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	repo := redis.NewCodeRepository(client, time.Hour)

	issued := time.Date(2026, 5, 1, 10, 0, 0, 123, time.UTC)
	require.NoError(t, repo.Replace(ctx, &domain.OneTimeCode{IdentityID: "id-1", Code: "4821", IssuedAt: issued}))

	got, err := repo.Find(ctx, "id-1", "4821")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "4821", got.Code)
	assert.True(t, issued.Equal(got.IssuedAt))

	got, err = repo.Find(ctx, "id-1", "0000")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = repo.Find(ctx, "id-2", "4821")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCodeRepository_ReplaceSupersedes(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	repo := redis.NewCodeRepository(client, time.Hour)

	now := time.Now()
	require.NoError(t, repo.Replace(ctx, &domain.OneTimeCode{IdentityID: "id-1", Code: "1111", IssuedAt: now}))
	require.NoError(t, repo.Replace(ctx, &domain.OneTimeCode{IdentityID: "id-1", Code: "2222", IssuedAt: now}))

	got, err := repo.Find(ctx, "id-1", "1111")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = repo.Find(ctx, "id-1", "2222")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestCodeRepository_RetentionExpiresKey(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	repo := redis.NewCodeRepository(client, 30*time.Minute)

	require.NoError(t, repo.Replace(ctx, &domain.OneTimeCode{IdentityID: "id-1", Code: "4821", IssuedAt: time.Now()}))
	assert.Equal(t, 30*time.Minute, mr.TTL("credential:otp:id-1"))

	mr.FastForward(31 * time.Minute)

	got, err := repo.Find(ctx, "id-1", "4821")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCodeRepository_DeleteByIdentity(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	repo := redis.NewCodeRepository(client, time.Hour)

	require.NoError(t, repo.Replace(ctx, &domain.OneTimeCode{IdentityID: "id-1", Code: "4821", IssuedAt: time.Now()}))
	require.NoError(t, repo.DeleteByIdentity(ctx, "id-1"))
	assert.False(t, mr.Exists("credential:otp:id-1"))

	n, err := repo.DeleteIssuedBefore(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCodeRepository_MalformedValue(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	repo := redis.NewCodeRepository(client, time.Hour)

	require.NoError(t, mr.Set("credential:otp:id-1", "garbage"))

	_, err := repo.Find(ctx, "id-1", "4821")
	assert.Error(t, err)
}

func TestNewClient(t *testing.T) {
	mr, _ := newTestRedis(t)

	client, err := redis.NewClient(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	require.NoError(t, client.Close())

	_, err = redis.NewClient(context.Background(), "::not a url")
	assert.Error(t, err)
}
