package middleware

import (
	"github.com/gin-gonic/gin"
)

// securityHeaders are set on every response
var securityHeaders = map[string]string{
	"X-Frame-Options":                   "DENY",
	"X-Content-Type-Options":            "nosniff",
	"Referrer-Policy":                   "strict-origin-when-cross-origin",
	"Permissions-Policy":                "camera=(), microphone=(), geolocation=(), interest-cohort=()",
	"X-Permitted-Cross-Domain-Policies": "none",
}

// SecurityHeadersMiddleware adds security headers to all HTTP responses.
// Timetable data is personal, so API responses are never stored by
// browsers or intermediaries.
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		for name, value := range securityHeaders {
			c.Header(name, value)
		}
		c.Header("Cache-Control", "no-store, no-cache, must-revalidate, private")
		c.Header("Pragma", "no-cache")

		c.Next()
	}
}
