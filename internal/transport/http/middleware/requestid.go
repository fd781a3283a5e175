package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/ErlanBelekov/credential-service/internal/requestid"
)

const RequestIDHeader = "X-Request-ID"

// RequestID attaches a request ID to the request context and echoes it in
// the response. A well-formed incoming X-Request-ID is preserved.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := requestid.Sanitize(c.GetHeader(RequestIDHeader))

		c.Request = c.Request.WithContext(requestid.WithRequestID(c.Request.Context(), id))
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}
