package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/ErlanBelekov/credential-service/internal/domain"
	"github.com/ErlanBelekov/credential-service/internal/metrics"
)

type RetryPolicy struct {
	// Timeout bounds a single delivery attempt.
	Timeout time.Duration
	// MaxRetries is the number of attempts after the first one.
	MaxRetries uint64
	// BaseDelay is the first backoff interval; it doubles on each retry.
	BaseDelay time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Timeout: 10 * time.Second, MaxRetries: 2, BaseDelay: 200 * time.Millisecond}
}

// RetrySender bounds every attempt of the wrapped Sender with a timeout and
// retries failures with exponential backoff. Failures marked Permanent are
// not retried. Errors it returns wrap
// domain.ErrDeliveryFailed.
type RetrySender struct {
	next   Sender
	policy RetryPolicy
	logger *slog.Logger
}

func NewRetrySender(next Sender, policy RetryPolicy, logger *slog.Logger) *RetrySender {
	def := DefaultRetryPolicy()
	if policy.Timeout <= 0 {
		policy.Timeout = def.Timeout
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = def.BaseDelay
	}
	return &RetrySender{next: next, policy: policy, logger: logger.With("component", "email")}
}

func (s *RetrySender) Send(ctx context.Context, to, subject, body string) error {
	backoff := retry.WithMaxRetries(s.policy.MaxRetries, retry.NewExponential(s.policy.BaseDelay))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, s.policy.Timeout)
		defer cancel()

		err := s.next.Send(attemptCtx, to, subject, body)
		if err == nil {
			return nil
		}
		// the caller gave up; retrying cannot help
		if ctx.Err() != nil || IsPermanent(err) {
			return err
		}
		s.logger.WarnContext(ctx, "email delivery attempt failed",
			"attempt", attempt,
			"subject", subject,
			"error", err,
		)
		return retry.RetryableError(err)
	})
	if err != nil {
		metrics.MailDeliveriesTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("%w: after %d attempt(s): %w", domain.ErrDeliveryFailed, attempt, err)
	}

	metrics.MailDeliveriesTotal.WithLabelValues("sent").Inc()
	return nil
}
