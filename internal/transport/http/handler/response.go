package handler

import "github.com/gin-gonic/gin"

const (
	statusSuccess = "success"
	statusFailed  = "failed"
)

func respond(c *gin.Context, code int, status, message string, extra gin.H) {
	body := gin.H{"status": status, "message": message}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(code, body)
}

func ok(c *gin.Context, code int, message string, extra gin.H) {
	respond(c, code, statusSuccess, message, extra)
}

func fail(c *gin.Context, code int, message string) {
	respond(c, code, statusFailed, message, nil)
}
