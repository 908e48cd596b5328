package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/issueless/issueless/pkg/logger"
)

// AuditLog records authenticated write operations (POST/PUT/DELETE) to the
// structured log so membership and issue mutations leave a trail.
func AuditLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != "POST" && method != "PUT" && method != "DELETE" {
			c.Next()
			return
		}

		c.Next()

		logger.Info().
			Str("audit", "write").
			Uint("user_id", GetUserID(c)).
			Str("username", GetUsername(c)).
			Str("method", method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Str("ip", c.ClientIP()).
			Msg("audit")
	}
}
