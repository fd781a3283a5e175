package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ErlanBelekov/credential-service/internal/domain"
)

const (
	errInternalServer     = "Something went wrong, please try again later"
	errInvalidRequest     = "Invalid request parameters"
	errDuplicateEmail     = "Email already exists"
	errInvalidCredentials = "Invalid email or password"
	errUnverified         = "Your account is not verified"
	errAlreadyVerified    = "Email is already verified"
	errUnauthorized       = "Unauthorized"
	errSessionExpired     = "Token expired. Please log in again."
	errResetInvalid       = "Invalid token. Please request a new password reset link."
	errResetExpired       = "Token expired. Please request a new password reset link."
	errCodeMismatch       = "Invalid OTP, new OTP sent to your email"
	errCodeExpired        = "OTP expired, new OTP sent to your email"
	errCodeNotResent      = "Invalid or expired OTP, and a new OTP could not be sent. Please request another."
	errSecretMismatch     = "New Password and Confirm New Password don't match"
	errSecretTooShort     = "Password must be at least 8 characters"
	errDeliveryFailed     = "Unable to send email, please try again later"
)

type errorMapping struct {
	err     error
	status  int
	message string
}

// errorTable maps business errors to responses. Order matters: the first
// match wins, so specific errors precede the ones they may be wrapped in.
var errorTable = []errorMapping{
	{domain.ErrSecretTooShort, http.StatusBadRequest, errSecretTooShort},
	{domain.ErrSecretMismatch, http.StatusBadRequest, errSecretMismatch},
	{domain.ErrValidation, http.StatusBadRequest, errInvalidRequest},
	{domain.ErrDuplicateEmail, http.StatusConflict, errDuplicateEmail},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, errInvalidCredentials},
	{domain.ErrUnverified, http.StatusUnauthorized, errUnverified},
	{domain.ErrAlreadyVerified, http.StatusBadRequest, errAlreadyVerified},
	{domain.ErrUnauthorized, http.StatusUnauthorized, errUnauthorized},
	{domain.ErrCodeMismatch, http.StatusBadRequest, errCodeMismatch},
	{domain.ErrCodeExpired, http.StatusBadRequest, errCodeExpired},
	{domain.ErrDeliveryFailed, http.StatusBadGateway, errDeliveryFailed},
}

// failWith answers with the mapped status for err, or 500 after logging
// anything it does not recognise.
func failWith(c *gin.Context, logger *slog.Logger, op string, err error) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			fail(c, m.status, m.message)
			return
		}
	}
	logger.ErrorContext(c.Request.Context(), op, "error", err)
	fail(c, http.StatusInternalServerError, errInternalServer)
}
