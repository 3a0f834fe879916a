package middleware

import (
	"github.com/gin-gonic/gin"
)

// SecurityHeaders adds the response headers appropriate for a JSON API
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Referrer-Policy", "no-referrer")
		// Gift card codes are bearer instruments
		h.Set("Cache-Control", "no-store")

		c.Next()
	}
}
