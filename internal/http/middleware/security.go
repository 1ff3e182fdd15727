// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides SecurityHeaders and BearerAuth for the admin API.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// SecurityOptions configures SecurityHeaders.
type SecurityOptions struct {
	NoStore bool // add Cache-Control: no-store
}

// SecurityHeaders adds conservative headers for JSON APIs:
// nosniff, frame denial, no referrer, and optionally no-store caching.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		if opt.NoStore {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
		}
		c.Next()
	}
}

// BearerAuth rejects requests whose "Authorization: Bearer <token>" does not
// match token. An empty token rejects everything.
func BearerAuth(token string) gin.HandlerFunc {
	want := []byte(token)
	return func(c *gin.Context) {
		got, found := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" || !found || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), want) != 1 {
			c.Header("WWW-Authenticate", `Bearer realm="slowpoke"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": RequestIDFrom(c),
				"code":       "unauthorized",
				"message":    "missing or invalid token",
			})
			return
		}
		c.Next()
	}
}
