package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"

	"github.com/ErlanBelekov/credential-service/internal/transport/http/handler"
	"github.com/ErlanBelekov/credential-service/internal/transport/http/middleware"
)

type RouterConfig struct {
	// HSTS enables Strict-Transport-Security; set outside local development.
	HSTS bool
}

func NewRouter(logger *slog.Logger, cfg RouterConfig, credentials *handler.CredentialHandler, auth middleware.Authenticator) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security(cfg.HSTS))
	r.Use(sloggin.NewWithConfig(logger, sloggin.Config{
		DefaultLevel:     slog.LevelInfo,
		ClientErrorLevel: slog.LevelWarn,
		ServerErrorLevel: slog.LevelError,
		// request_id comes from middleware.RequestID via the context handler
		WithRequestID: false,
		// bodies carry passwords and tokens
		WithRequestBody:  false,
		WithResponseBody: false,
	}))
	r.Use(middleware.Metrics())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"status": "failed", "message": "Not found"})
	})

	user := r.Group("/user")
	user.POST("/register", credentials.Register)
	user.POST("/verify-email", credentials.VerifyEmail)
	user.POST("/resend-code", credentials.ResendCode)
	user.POST("/login", credentials.Login)
	user.POST("/logout", credentials.Logout)
	user.POST("/reset-password-email", credentials.RequestPasswordReset)
	user.POST("/reset-password", credentials.ResetPassword)
	user.POST("/change-password", credentials.ChangePassword)
	user.GET("/me", middleware.Auth(auth), credentials.Me)

	return r
}
