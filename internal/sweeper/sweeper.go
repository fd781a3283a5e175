// Package sweeper removes verification codes that can no longer validate.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ErlanBelekov/credential-service/internal/metrics"
	"github.com/ErlanBelekov/credential-service/internal/otp"
)

// CodeDeleter is satisfied by every repository.CodeRepository.
type CodeDeleter interface {
	DeleteIssuedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type Sweeper struct {
	codes     CodeDeleter
	schedule  cron.Schedule
	spec      string
	retention time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// New parses spec as a standard cron expression or descriptor
// ("*/5 * * * *", "@every 5m"). Each run removes codes older than
// otp.Retention(codeTTL), so an expired code is still found and reported as
// expired for a while after its TTL.
func New(codes CodeDeleter, spec string, codeTTL time.Duration, logger *slog.Logger) (*Sweeper, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse sweep schedule %q: %w", spec, err)
	}
	if codeTTL <= 0 {
		return nil, fmt.Errorf("code ttl must be positive, got %s", codeTTL)
	}
	return &Sweeper{
		codes:     codes,
		schedule:  sched,
		spec:      spec,
		retention: otp.Retention(codeTTL),
		now:       time.Now,
		logger:    logger.With("component", "sweeper"),
	}, nil
}

// Start runs sweeps on schedule until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("sweeper started", "schedule", s.spec, "retention", s.retention)

	for {
		now := s.now()
		timer := time.NewTimer(s.schedule.Next(now).Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("sweeper shut down")
			return
		case <-timer.C:
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("sweep", "error", err)
			}
		}
	}
}

// Sweep deletes every code issued more than the retention ago and returns
// the count.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	start := time.Now()
	defer func() { metrics.SweepCycleDuration.Observe(time.Since(start).Seconds()) }()

	cutoff := s.now().Add(-s.retention)
	n, err := s.codes.DeleteIssuedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete codes issued before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if n > 0 {
		metrics.SweptCodesTotal.Add(float64(n))
		s.logger.InfoContext(ctx, "swept expired codes", "count", n)
	}
	return n, nil
}
