// Package log builds the process logger and enriches records with values
// carried on the request context.
package log

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"

	"github.com/ErlanBelekov/credential-service/internal/requestid"
)

type identityKey struct{}

// WithIdentityID attaches the authenticated identity to ctx for logging.
func WithIdentityID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// New returns a colourised text logger for ENV=local and a JSON logger
// otherwise, both wrapped in a ContextHandler.
func New(env string, level slog.Level, w io.Writer) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(NewContextHandler(inner))
}

// ContextHandler adds request_id and, once a session is authenticated,
// identity_id to every record logged with a context.
type ContextHandler struct {
	inner slog.Handler
}

func NewContextHandler(inner slog.Handler) *ContextHandler {
	return &ContextHandler{inner: inner}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := requestid.FromContext(ctx); id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}
	if id, _ := ctx.Value(identityKey{}).(string); id != "" {
		r.AddAttrs(slog.String("identity_id", id))
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: h.inner.WithGroup(name)}
}
