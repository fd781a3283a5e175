package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ErlanBelekov/credential-service/internal/domain"
	ctxlog "github.com/ErlanBelekov/credential-service/internal/log"
	"github.com/ErlanBelekov/credential-service/internal/token"
)

// SessionCookie names the cookie carrying the session token.
const SessionCookie = "token"

const (
	claimsKey     = "claims"
	identityIDKey = "identityID"

	errUnauthorized   = "Unauthorized: Token not found in cookie or header"
	errInvalidToken   = "Invalid token"
	errSessionExpired = "Token expired. Please log in again."
)

type Authenticator interface {
	Authenticate(sessionToken string) (*token.SessionClaims, error)
}

// Auth validates the session token and sets "identityID" and "claims" in
// the gin context.
func Auth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := SessionToken(c)
		if raw == "" {
			abort(c, errUnauthorized)
			return
		}

		claims, err := auth.Authenticate(raw)
		if err != nil {
			if errors.Is(err, domain.ErrTokenExpired) {
				abort(c, errSessionExpired)
				return
			}
			abort(c, errInvalidToken)
			return
		}

		c.Request = c.Request.WithContext(ctxlog.WithIdentityID(c.Request.Context(), claims.IdentityID()))
		c.Set(identityIDKey, claims.IdentityID())
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// SessionToken returns the session token from the cookie, falling back to
// an Authorization: Bearer header. Returns "" when neither is present.
func SessionToken(c *gin.Context) string {
	if raw, err := c.Cookie(SessionCookie); err == nil && raw != "" {
		return raw
	}
	header := c.GetHeader("Authorization")
	if raw, found := strings.CutPrefix(header, "Bearer "); found {
		return strings.TrimSpace(raw)
	}
	return ""
}

// Claims returns the session claims set by Auth, or nil.
func Claims(c *gin.Context) *token.SessionClaims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*token.SessionClaims)
	return claims
}

func abort(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "failed", "message": message})
}
