package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/umstimetable/timetable-api/pkg/logger"
	"go.uber.org/zap"
)

// RefreshTokenHeader carries the shared secret for refresh requests
const RefreshTokenHeader = "X-Refresh-Token"

// RefreshTokenMiddleware guards the refresh endpoint. Every refresh may cost a
// paid captcha solve, so when a token is configured callers must present it.
// An empty token leaves the route open.
func RefreshTokenMiddleware(validToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if validToken == "" {
			c.Next()
			return
		}

		token := c.GetHeader(RefreshTokenHeader)

		if token == "" {
			logger.Warn("Missing refresh token",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Missing refresh token"})
			return
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(validToken)) != 1 {
			logger.Warn("Invalid refresh token",
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "Invalid refresh token"})
			return
		}

		c.Next()
	}
}
