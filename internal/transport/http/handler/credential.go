package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ErlanBelekov/credential-service/internal/domain"
	"github.com/ErlanBelekov/credential-service/internal/token"
	"github.com/ErlanBelekov/credential-service/internal/transport/http/middleware"
	"github.com/ErlanBelekov/credential-service/internal/usecase"
)

// credentialUsecaser is the subset of CredentialUsecase the handler needs.
// Defined here (point of use) so tests can inject a fake.
type credentialUsecaser interface {
	Register(ctx context.Context, email, name, secret string) (*domain.Identity, error)
	VerifyEmail(ctx context.Context, email, code string) error
	ResendVerificationCode(ctx context.Context, email string) error
	Login(ctx context.Context, email, secret string) (*usecase.LoginResult, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, identityID, rawToken, secret, confirm string) error
	ChangePassword(ctx context.Context, sessionToken, secret, confirm string) error
}

type CredentialHandler struct {
	credentials  credentialUsecaser
	cookieSecure bool
	logger       *slog.Logger
}

func NewCredentialHandler(credentials credentialUsecaser, cookieSecure bool, logger *slog.Logger) *CredentialHandler {
	return &CredentialHandler{
		credentials:  credentials,
		cookieSecure: cookieSecure,
		logger:       logger.With("component", "credential_handler"),
	}
}

type registerRequest struct {
	Name     string `json:"name"     binding:"required,max=100"`
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required,max=72"`
}

type verifyEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp"   binding:"required,numeric"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type loginRequest struct {
	Email    string `json:"email"    binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type resetPasswordRequest struct {
	ID                   string `json:"id"                    binding:"required"`
	Token                string `json:"token"                 binding:"required"`
	Password             string `json:"password"              binding:"required,max=72"`
	PasswordConfirmation string `json:"password_confirmation" binding:"required"`
}

type changePasswordRequest struct {
	Password             string `json:"password"              binding:"required,max=72"`
	PasswordConfirmation string `json:"password_confirmation" binding:"required"`
}

// POST /user/register
func (h *CredentialHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, errInvalidRequest)
		return
	}

	identity, err := h.credentials.Register(c.Request.Context(), req.Email, req.Name, req.Password)
	if identity != nil && errors.Is(err, domain.ErrDeliveryFailed) {
		respond(c, http.StatusBadGateway, statusFailed, "Account created but code could not be sent", gin.H{
			"user": gin.H{"id": identity.ID, "email": identity.Email},
		})
		return
	}
	if err != nil {
		failWith(c, h.logger, "register", err)
		return
	}

	ok(c, http.StatusCreated, "Registration Success", gin.H{
		"user": gin.H{"id": identity.ID, "email": identity.Email},
	})
}

// POST /user/verify-email
// Unknown emails get the same answer as a wrong code.
func (h *CredentialHandler) VerifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, errInvalidRequest)
		return
	}

	err := h.credentials.VerifyEmail(c.Request.Context(), req.Email, req.OTP)
	switch {
	case err == nil:
		ok(c, http.StatusOK, "Email verified successfully", nil)
	case errors.Is(err, domain.ErrIdentityNotFound):
		fail(c, http.StatusBadRequest, errCodeMismatch)
	case errors.Is(err, domain.ErrDeliveryFailed) &&
		(errors.Is(err, domain.ErrCodeMismatch) || errors.Is(err, domain.ErrCodeExpired)):
		fail(c, http.StatusBadGateway, errCodeNotResent)
	default:
		failWith(c, h.logger, "verify email", err)
	}
}

// POST /user/resend-code
// Unknown and already verified emails get the same answer as a resend.
func (h *CredentialHandler) ResendCode(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, errInvalidRequest)
		return
	}

	err := h.credentials.ResendVerificationCode(c.Request.Context(), req.Email)
	if err != nil && !errors.Is(err, domain.ErrIdentityNotFound) && !errors.Is(err, domain.ErrAlreadyVerified) {
		failWith(c, h.logger, "resend code", err)
		return
	}
	ok(c, http.StatusOK, "If the account exists, a new OTP has been sent to your email", nil)
}

// POST /user/login
// Sets the session as an http-only cookie and also returns it in the body.
func (h *CredentialHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, errInvalidRequest)
		return
	}

	res, err := h.credentials.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		failWith(c, h.logger, "login", err)
		return
	}

	h.setSessionCookie(c, res.Token, int(token.SessionTTL.Seconds()))
	ok(c, http.StatusOK, "Welcome back "+res.Name, gin.H{"token": res.Token})
}

// POST /user/logout
// Sessions are stateless; logging out only clears the cookie.
func (h *CredentialHandler) Logout(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
	ok(c, http.StatusOK, "Logged out", nil)
}

// POST /user/reset-password-email
// Returns the same body whether or not the email exists.
func (h *CredentialHandler) RequestPasswordReset(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, errInvalidRequest)
		return
	}

	err := h.credentials.RequestPasswordReset(c.Request.Context(), req.Email)
	if err != nil && !errors.Is(err, domain.ErrIdentityNotFound) {
		failWith(c, h.logger, "request password reset", err)
		return
	}
	ok(c, http.StatusOK, "Password reset email sent. Please check your email.", nil)
}

// POST /user/reset-password
func (h *CredentialHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, errInvalidRequest)
		return
	}

	err := h.credentials.ConfirmPasswordReset(c.Request.Context(), req.ID, req.Token, req.Password, req.PasswordConfirmation)
	switch {
	case err == nil:
		ok(c, http.StatusOK, "Password reset successfully", nil)
	case errors.Is(err, domain.ErrTokenExpired):
		fail(c, http.StatusBadRequest, errResetExpired)
	case errors.Is(err, domain.ErrTokenInvalid):
		fail(c, http.StatusBadRequest, errResetInvalid)
	default:
		failWith(c, h.logger, "reset password", err)
	}
}

// POST /user/change-password
// The session comes from the cookie or an Authorization: Bearer header.
func (h *CredentialHandler) ChangePassword(c *gin.Context) {
	raw := middleware.SessionToken(c)
	if raw == "" {
		fail(c, http.StatusUnauthorized, errUnauthorized)
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, errInvalidRequest)
		return
	}

	err := h.credentials.ChangePassword(c.Request.Context(), raw, req.Password, req.PasswordConfirmation)
	switch {
	case err == nil:
		ok(c, http.StatusOK, "Password changed successfully", nil)
	case errors.Is(err, domain.ErrTokenExpired):
		fail(c, http.StatusUnauthorized, errSessionExpired)
	default:
		failWith(c, h.logger, "change password", err)
	}
}

// GET /user/me
// Runs behind middleware.Auth.
func (h *CredentialHandler) Me(c *gin.Context) {
	claims := middleware.Claims(c)
	if claims == nil {
		fail(c, http.StatusUnauthorized, errUnauthorized)
		return
	}
	user := gin.H{
		"id":    claims.IdentityID(),
		"name":  claims.Name,
		"email": claims.Email,
	}
	if claims.ExpiresAt != nil {
		user["expires_at"] = claims.ExpiresAt.Time
	}
	ok(c, http.StatusOK, "Authenticated", gin.H{"user": user})
}

func (h *CredentialHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.SessionCookie, value, maxAge, "/", "", h.cookieSecure, true)
}
