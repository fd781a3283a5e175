package domain

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrIdentityNotFound   = errors.New("identity not found")
	ErrUnverified         = errors.New("account is not verified")
	ErrAlreadyVerified    = errors.New("email is already verified")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrTokenInvalid       = errors.New("token is invalid")
	ErrTokenExpired       = errors.New("token is expired")
	ErrCodeMismatch       = errors.New("verification code does not match")
	ErrCodeExpired        = errors.New("verification code is expired")
	ErrSecretMismatch     = errors.New("password and confirmation do not match")
	ErrSecretTooShort     = errors.New("password is too short")
	ErrDeliveryFailed     = errors.New("email delivery failed")
	ErrMalformedHash      = errors.New("malformed password hash")
)

// MinSecretLength is the minimum accepted password length in bytes.
const MinSecretLength = 8
