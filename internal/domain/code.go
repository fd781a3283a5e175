package domain

import "time"

// OneTimeCode is a pending email verification attempt for an identity.
type OneTimeCode struct {
	IdentityID string
	Code       string
	IssuedAt   time.Time
}

// ExpiredAt reports whether the code is older than ttl at now.
// A code issued exactly ttl ago is still valid.
func (c *OneTimeCode) ExpiredAt(now time.Time, ttl time.Duration) bool {
	return now.Sub(c.IssuedAt) > ttl
}
