package requestid

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

const maxLength = 64

// New generates a random UUID v4 request ID.
func New() string {
	return uuid.NewString()
}

// Sanitize returns id when it is safe to echo back and log, and a fresh ID
// otherwise. Accepted IDs are at most 64 characters of [A-Za-z0-9._-].
func Sanitize(id string) string {
	if id == "" || len(id) > maxLength {
		return New()
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.':
		default:
			return New()
		}
	}
	return id
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext extracts the request ID from ctx. Returns "" if absent.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
