// sweeper periodically deletes verification codes past their TTL from
// postgres. Redis-backed codes expire on their own and need no sweeping.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ErlanBelekov/credential-service/config"
	"github.com/ErlanBelekov/credential-service/internal/health"
	"github.com/ErlanBelekov/credential-service/internal/infrastructure/postgres"
	ctxlog "github.com/ErlanBelekov/credential-service/internal/log"
	"github.com/ErlanBelekov/credential-service/internal/metrics"
	"github.com/ErlanBelekov/credential-service/internal/otp"
	"github.com/ErlanBelekov/credential-service/internal/sweeper"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := ctxlog.New(cfg.Env, cfg.SlogLevel(), os.Stdout)

	if cfg.OTPStore != "postgres" {
		logger.Info("codes are not stored in postgres, nothing to sweep", "otp_store", cfg.OTPStore)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	logger.Info("db connected")

	metrics.Register()
	checker := health.NewChecker(pool, logger, prometheus.DefaultRegisterer)

	sw, err := sweeper.New(postgres.NewCodeRepository(pool), cfg.SweepSchedule, otp.DefaultTTL, logger)
	if err != nil {
		stop()
		log.Fatalf("sweeper: %v", err)
	}
	go sw.Start(ctx)

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}

	logger.Info("sweeper shut down")
}
