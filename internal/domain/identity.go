package domain

import (
	"strings"
	"time"
)

const RoleUser = "user"

type Identity struct {
	ID         string
	Email      string
	Name       string
	SecretHash string
	Verified   bool
	Roles      []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NormalizeEmail returns the canonical form used for storage and lookup.
// Emails are unique case-insensitively.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
