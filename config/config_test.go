package config_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/ErlanBelekov/credential-service/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSessionSecret = "session-secret-at-least-32-chars!!"
	testResetSecret   = "reset-secret-at-least-32-chars!!!!"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/credentials")
	t.Setenv("SESSION_SECRET", testSessionSecret)
	t.Setenv("RESET_SECRET", testResetSecret)
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, 4, cfg.OTPDigits)
	assert.Equal(t, "postgres", cfg.OTPStore)
	assert.Equal(t, "@every 5m", cfg.SweepSchedule)
	assert.Equal(t, 10*time.Second, cfg.MailTimeout)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoad_ShortSessionSecret_Fails(t *testing.T) {
	setRequired(t)
	t.Setenv("SESSION_SECRET", "too-short")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_OTPDigitsBelowFour_Fails(t *testing.T) {
	setRequired(t)
	t.Setenv("OTP_DIGITS", "3")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_RedisStoreRequiresURL(t *testing.T) {
	setRequired(t)
	t.Setenv("OTP_STORE", "redis")

	_, err := config.Load()
	assert.Error(t, err)

	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "redis", cfg.OTPStore)
}

func TestLoad_ProductionRequiresResendAndForcesSecureCookie(t *testing.T) {
	setRequired(t)
	t.Setenv("ENV", "production")

	_, err := config.Load()
	assert.Error(t, err)

	t.Setenv("RESEND_API_KEY", "re_test")
	t.Setenv("RESEND_FROM", "noreply@example.com")
	t.Setenv("FRONTEND_HOST", "https://app.example.com/")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, "https://app.example.com", cfg.FrontendHost)
}

func TestSlogLevel(t *testing.T) {
	for level, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		cfg := &config.Config{LogLevel: level}
		assert.Equal(t, want, cfg.SlogLevel(), level)
	}
}
