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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ErlanBelekov/credential-service/config"
	"github.com/ErlanBelekov/credential-service/internal/email"
	"github.com/ErlanBelekov/credential-service/internal/health"
	"github.com/ErlanBelekov/credential-service/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/credential-service/internal/infrastructure/redis"
	ctxlog "github.com/ErlanBelekov/credential-service/internal/log"
	"github.com/ErlanBelekov/credential-service/internal/metrics"
	"github.com/ErlanBelekov/credential-service/internal/otp"
	"github.com/ErlanBelekov/credential-service/internal/repository"
	"github.com/ErlanBelekov/credential-service/internal/secret"
	"github.com/ErlanBelekov/credential-service/internal/token"
	httptransport "github.com/ErlanBelekov/credential-service/internal/transport/http"
	"github.com/ErlanBelekov/credential-service/internal/transport/http/handler"
	"github.com/ErlanBelekov/credential-service/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := ctxlog.New(cfg.Env, cfg.SlogLevel(), os.Stdout)

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	metrics.Register()
	checker := health.NewChecker(pool, logger, prometheus.DefaultRegisterer)

	// Verification codes live in postgres by default; redis expires them on its own.
	var codeRepo repository.CodeRepository = postgres.NewCodeRepository(pool)
	if cfg.OTPStore == "redis" {
		rdb, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			stop()
			log.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		codeRepo = redis.NewCodeRepository(rdb, otp.Retention(otp.DefaultTTL))
		checker.Add("redis", health.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }))
	}

	issuer, err := otp.NewIssuer(codeRepo, cfg.OTPDigits)
	if err != nil {
		stop()
		log.Fatalf("otp: %v", err)
	}
	hasher, err := secret.NewHasher(cfg.BcryptCost, cfg.HashConcurrency)
	if err != nil {
		stop()
		log.Fatalf("hasher: %v", err)
	}
	sessions, err := token.NewSessionService([]byte(cfg.SessionSecret), nil)
	if err != nil {
		stop()
		log.Fatalf("session tokens: %v", err)
	}
	resets, err := token.NewResetService(cfg.ResetSecret, nil)
	if err != nil {
		stop()
		log.Fatalf("reset tokens: %v", err)
	}

	mailer := email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, email.RetryPolicy{
		Timeout:    cfg.MailTimeout,
		MaxRetries: cfg.MailMaxRetries,
		BaseDelay:  email.DefaultRetryPolicy().BaseDelay,
	}, logger)

	credentials := usecase.NewCredentialUsecase(
		postgres.NewIdentityRepository(pool),
		issuer,
		hasher,
		sessions,
		resets,
		mailer,
		cfg.FrontendHost,
		logger,
	)
	credentialHandler := handler.NewCredentialHandler(credentials, cfg.CookieSecure, logger)

	srv := http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httptransport.NewRouter(logger, httptransport.RouterConfig{HSTS: cfg.Env != "local"}, credentialHandler, credentials),
		ReadHeaderTimeout: 5 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port, "otp_store", cfg.OTPStore)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}
