package email

import (
	"fmt"
	"html"
	"time"
)

const (
	VerificationSubject  = "OTP - Verify your account"
	PasswordResetSubject = "Password Reset Link"
)

// VerificationBody renders the email carrying a one-time code. verifyURL is
// the page where the code is entered.
func VerificationBody(name, code, verifyURL string, ttl time.Duration) string {
	return fmt.Sprintf(
		`<p>Dear %s,</p>`+
			`<p>Please verify your email address by entering the following one-time code:</p>`+
			`<h2>OTP: %s</h2>`+
			`<p>This code is valid for %d minutes. If you didn't request it, please ignore this email.</p>`+
			`<p>Verification link: <a href="%s">%s</a></p>`,
		html.EscapeString(name),
		html.EscapeString(code),
		int(ttl.Minutes()),
		html.EscapeString(verifyURL), html.EscapeString(verifyURL),
	)
}

// PasswordResetBody renders the email carrying a reset link.
func PasswordResetBody(name, link string, ttl time.Duration) string {
	return fmt.Sprintf(
		`<p>Hello %s,</p>`+
			`<p><a href="%s">Click here</a> to reset your password. The link expires in %d minutes.</p>`,
		html.EscapeString(name),
		html.EscapeString(link),
		int(ttl.Minutes()),
	)
}
