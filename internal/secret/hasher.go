// Package secret hashes and verifies user passwords with bcrypt.
package secret

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ErlanBelekov/credential-service/internal/domain"
	"github.com/ErlanBelekov/credential-service/internal/metrics"
)

const DefaultCost = 10

// Hasher bounds the number of concurrent bcrypt operations so CPU-bound
// hashing cannot starve the rest of the process.
type Hasher struct {
	cost  int
	slots chan struct{}
	// dummy is compared against when there is no real hash, so login takes
	// the same time for unknown and known emails.
	dummy []byte
}

// NewHasher returns a Hasher using cost. concurrency <= 0 means GOMAXPROCS.
func NewHasher(cost, concurrency int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if concurrency <= 0 {
		concurrency = runtime.GOMAXPROCS(0)
	}

	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("generate dummy secret: %w", err)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(seed)), cost)
	if err != nil {
		return nil, fmt.Errorf("generate dummy hash: %w", err)
	}

	return &Hasher{
		cost:  cost,
		slots: make(chan struct{}, concurrency),
		dummy: dummy,
	}, nil
}

// Hash returns a salted bcrypt hash of plaintext. Two calls with the same
// plaintext produce different hashes.
func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	release, err := h.acquire(ctx, "hash")
	if err != nil {
		return "", err
	}
	defer release()

	out, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", fmt.Errorf("%w: password must be at most 72 bytes", domain.ErrValidation)
	}
	if err != nil {
		return "", fmt.Errorf("bcrypt hash: %w", err)
	}
	return string(out), nil
}

// Verify reports whether plaintext matches hash. A mismatch is (false, nil);
// only a hash that cannot be parsed returns domain.ErrMalformedHash.
func (h *Hasher) Verify(ctx context.Context, plaintext, hash string) (bool, error) {
	release, err := h.acquire(ctx, "verify")
	if err != nil {
		return false, err
	}
	defer release()

	err = bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", domain.ErrMalformedHash, err)
	}
}

// Burn runs a comparison against a hash that never matches. Callers use it
// to keep response timing uniform when there is nothing to compare against.
func (h *Hasher) Burn(ctx context.Context, plaintext string) {
	_, _ = h.Verify(ctx, plaintext, string(h.dummy))
}

func (h *Hasher) acquire(ctx context.Context, op string) (func(), error) {
	start := time.Now()
	select {
	case h.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for hash slot: %w", ctx.Err())
	}
	metrics.HashSlotsInUse.Inc()

	return func() {
		<-h.slots
		metrics.HashSlotsInUse.Dec()
		metrics.HashDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}, nil
}
