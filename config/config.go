package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env      string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT" envDefault:"8080" validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`
	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	SessionSecret string `env:"SESSION_SECRET,required" validate:"required,min=32"`
	ResetSecret   string `env:"RESET_SECRET,required"   validate:"required,min=32"`

	BcryptCost      int `env:"BCRYPT_COST"      envDefault:"10" validate:"min=4,max=31"`
	HashConcurrency int `env:"HASH_CONCURRENCY" envDefault:"0"  validate:"min=0,max=256"`

	OTPDigits     int    `env:"OTP_DIGITS"     envDefault:"4"         validate:"min=4,max=10"`
	OTPStore      string `env:"OTP_STORE"      envDefault:"postgres"  validate:"oneof=postgres redis"`
	RedisURL      string `env:"REDIS_URL"                             validate:"required_if=OTPStore redis"`
	SweepSchedule string `env:"SWEEP_SCHEDULE" envDefault:"@every 5m" validate:"required"`

	ResendAPIKey   string        `env:"RESEND_API_KEY"   validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom     string        `env:"RESEND_FROM"      validate:"required_if=Env production,required_if=Env staging"`
	MailTimeout    time.Duration `env:"MAIL_TIMEOUT"     envDefault:"10s" validate:"min=1s"`
	MailMaxRetries uint64        `env:"MAIL_MAX_RETRIES" envDefault:"2"   validate:"max=10"`
	FrontendHost   string        `env:"FRONTEND_HOST"    envDefault:"http://localhost:3000" validate:"required,url"`
	CookieSecure   bool          `env:"COOKIE_SECURE"    envDefault:"false"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.Env == "production" {
		cfg.CookieSecure = true
	}
	cfg.FrontendHost = strings.TrimRight(cfg.FrontendHost, "/")

	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
