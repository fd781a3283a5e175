package otp_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ErlanBelekov/credential-service/internal/domain"
	"github.com/ErlanBelekov/credential-service/internal/otp"
)

type memCodes struct {
	byIdentity map[string]domain.OneTimeCode
	replaceErr error
	findErr    error
}

func newMemCodes() *memCodes {
	return &memCodes{byIdentity: map[string]domain.OneTimeCode{}}
}

func (m *memCodes) Replace(_ context.Context, c *domain.OneTimeCode) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.byIdentity[c.IdentityID] = *c
	return nil
}

func (m *memCodes) Find(_ context.Context, identityID, code string) (*domain.OneTimeCode, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	c, ok := m.byIdentity[identityID]
	if !ok || c.Code != code {
		return nil, nil
	}
	return &c, nil
}

func (m *memCodes) DeleteByIdentity(_ context.Context, identityID string) error {
	delete(m.byIdentity, identityID)
	return nil
}

func (m *memCodes) DeleteIssuedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for id, c := range m.byIdentity {
		if c.IssuedAt.Before(cutoff) {
			delete(m.byIdentity, id)
			n++
		}
	}
	return n, nil
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newIssuer(t *testing.T, codes *memCodes, clock *fakeClock, digits int) *otp.Issuer {
	t.Helper()
	i, err := otp.NewIssuer(codes, digits, otp.WithClock(clock.Now))
	require.NoError(t, err)
	return i
}

func TestNewIssuer_RejectsNarrowCodes(t *testing.T) {
	_, err := otp.NewIssuer(newMemCodes(), 3)
	assert.Error(t, err)

	_, err = otp.NewIssuer(newMemCodes(), 11)
	assert.Error(t, err)
}

func TestGenerate_FixedWidthDigits(t *testing.T) {
	for _, digits := range []int{4, 6, 10} {
		for range 50 {
			code, err := otp.Generate(digits)
			require.NoError(t, err)
			assert.Len(t, code, digits)
			for _, r := range code {
				assert.True(t, r >= '0' && r <= '9', "non-digit in %q", code)
			}
		}
	}
}

func TestIssue_StoresCodeWithIssueTime(t *testing.T) {
	codes := newMemCodes()
	clock := &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	issuer := newIssuer(t, codes, clock, 6)

	code, err := issuer.Issue(context.Background(), "id-1")
	require.NoError(t, err)

	stored := codes.byIdentity["id-1"]
	assert.Equal(t, code, stored.Code)
	assert.Len(t, stored.Code, 6)
	assert.Equal(t, clock.t, stored.IssuedAt)
}

func TestIssue_StoreErrorPropagates(t *testing.T) {
	codes := newMemCodes()
	codes.replaceErr = errors.New("db down")
	issuer := newIssuer(t, codes, &fakeClock{t: time.Now()}, 4)

	_, err := issuer.Issue(context.Background(), "id-1")
	assert.ErrorIs(t, err, codes.replaceErr)
}

func TestValidate(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("matching code within ttl is valid", func(t *testing.T) {
		clock := &fakeClock{t: start}
		issuer := newIssuer(t, newMemCodes(), clock, 4)
		code, err := issuer.Issue(ctx, "id-1")
		require.NoError(t, err)

		clock.Advance(otp.DefaultTTL)
		res, err := issuer.Validate(ctx, "id-1", code)
		require.NoError(t, err)
		assert.Equal(t, otp.Valid, res)
	})

	t.Run("matching code one second past ttl is expired", func(t *testing.T) {
		clock := &fakeClock{t: start}
		issuer := newIssuer(t, newMemCodes(), clock, 4)
		code, err := issuer.Issue(ctx, "id-1")
		require.NoError(t, err)

		clock.Advance(otp.DefaultTTL + time.Second)
		res, err := issuer.Validate(ctx, "id-1", code)
		require.NoError(t, err)
		assert.Equal(t, otp.Expired, res)
	})

	t.Run("unknown code is a mismatch", func(t *testing.T) {
		codes := newMemCodes()
		issuer := newIssuer(t, codes, &fakeClock{t: start}, 4)
		code, err := issuer.Issue(ctx, "id-1")
		require.NoError(t, err)

		wrong := "0000"
		if code == wrong {
			wrong = "1111"
		}
		res, err := issuer.Validate(ctx, "id-1", wrong)
		require.NoError(t, err)
		assert.Equal(t, otp.Mismatch, res)
	})

	t.Run("code bound to another identity is a mismatch", func(t *testing.T) {
		issuer := newIssuer(t, newMemCodes(), &fakeClock{t: start}, 4)
		code, err := issuer.Issue(ctx, "id-1")
		require.NoError(t, err)

		res, err := issuer.Validate(ctx, "id-2", code)
		require.NoError(t, err)
		assert.Equal(t, otp.Mismatch, res)
	})

	t.Run("reissue supersedes the earlier code", func(t *testing.T) {
		codes := newMemCodes()
		issuer := newIssuer(t, codes, &fakeClock{t: start}, 10)
		first, err := issuer.Issue(ctx, "id-1")
		require.NoError(t, err)
		second, err := issuer.Issue(ctx, "id-1")
		require.NoError(t, err)
		if first == second {
			t.Skip("generated identical 10-digit codes")
		}

		res, err := issuer.Validate(ctx, "id-1", first)
		require.NoError(t, err)
		assert.Equal(t, otp.Mismatch, res)

		res, err = issuer.Validate(ctx, "id-1", second)
		require.NoError(t, err)
		assert.Equal(t, otp.Valid, res)
	})

	t.Run("surrounding whitespace is ignored", func(t *testing.T) {
		issuer := newIssuer(t, newMemCodes(), &fakeClock{t: start}, 4)
		code, err := issuer.Issue(ctx, "id-1")
		require.NoError(t, err)

		res, err := issuer.Validate(ctx, "id-1", " "+code+"\n")
		require.NoError(t, err)
		assert.Equal(t, otp.Valid, res)
	})

	t.Run("store error is returned", func(t *testing.T) {
		codes := newMemCodes()
		codes.findErr = errors.New("timeout")
		issuer := newIssuer(t, codes, &fakeClock{t: start}, 4)

		_, err := issuer.Validate(ctx, "id-1", "1234")
		assert.ErrorIs(t, err, codes.findErr)
	})
}

func TestPurgeAll(t *testing.T) {
	ctx := context.Background()
	codes := newMemCodes()
	issuer := newIssuer(t, codes, &fakeClock{t: time.Now()}, 4)

	code, err := issuer.Issue(ctx, "id-1")
	require.NoError(t, err)
	require.NoError(t, issuer.PurgeAll(ctx, "id-1"))

	res, err := issuer.Validate(ctx, "id-1", code)
	require.NoError(t, err)
	assert.Equal(t, otp.Mismatch, res)
}
