package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"

	"github.com/resend/resend-go/v2"
)

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// ErrInvalidRecipient is returned for addresses no provider could deliver to.
var ErrInvalidRecipient = errors.New("invalid recipient address")

// permanentError marks a failure that a later attempt cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// category tags outgoing mail so provider dashboards can split the flows.
func category(subject string) string {
	switch subject {
	case VerificationSubject:
		return "verification"
	case PasswordResetSubject:
		return "password_reset"
	default:
		return "other"
	}
}

// LogSender writes mail to the log instead of delivering it. Used in
// ENV=local so codes and reset links show up in the console.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger.With("component", "email")}
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.InfoContext(ctx, "mail not delivered (local)",
		"to", to,
		"category", category(subject),
		"body", body,
	)
	return nil
}

type ResendOption func(*ResendSender)

// WithBaseURL points the sender at another Resend-compatible endpoint.
func WithBaseURL(raw string) ResendOption {
	return func(s *ResendSender) {
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		if u, err := url.Parse(raw); err == nil {
			s.client.BaseURL = u
		}
	}
}

// ResendSender delivers mail through the Resend API. Malformed recipients
// are rejected before any request and reported as permanent.
type ResendSender struct {
	client *resend.Client
	from   string
	logger *slog.Logger
}

func NewResendSender(apiKey, from string, logger *slog.Logger, opts ...ResendOption) *ResendSender {
	s := &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
		logger: logger.With("component", "email"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ResendSender) Send(ctx context.Context, to, subject, body string) error {
	if _, err := mail.ParseAddress(to); err != nil {
		return Permanent(fmt.Errorf("%w: %q", ErrInvalidRecipient, to))
	}

	kind := category(subject)
	resp, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    body,
		Tags:    []resend.Tag{{Name: "category", Value: kind}},
	})
	switch {
	case errors.Is(err, resend.ErrRateLimit):
		return fmt.Errorf("resend %s mail: rate limited: %w", kind, err)
	case err != nil:
		return fmt.Errorf("resend %s mail: %w", kind, err)
	}

	s.logger.DebugContext(ctx, "mail accepted", "category", kind, "message_id", resp.Id)
	return nil
}

// NewSender returns a LogSender for ENV=local and a ResendSender otherwise,
// either one wrapped in a RetrySender.
func NewSender(env, apiKey, from string, policy RetryPolicy, logger *slog.Logger) *RetrySender {
	var base Sender
	if env == "local" {
		base = NewLogSender(logger)
	} else {
		base = NewResendSender(apiKey, from, logger)
	}
	return NewRetrySender(base, policy, logger)
}
