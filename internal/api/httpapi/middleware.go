package httpapi

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guildqueue/internal/infra/logger"
)

// Recovery turns handler panics into 500 responses.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				zlog.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("httpapi: panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, Response{
					Code:    http.StatusInternalServerError,
					Message: "internal server error",
				})
			}
		}()
		c.Next()
	}
}

// RequestLogger logs one line per request.
func RequestLogger() gin.HandlerFunc {
	log := logger.Component("httpapi")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		evt := log.Debug()
		if status >= http.StatusInternalServerError {
			evt = log.Warn()
		}
		evt.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("tenant", c.Param("tenant")).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// TokenAuth requires "Authorization: Bearer <token>". An empty token disables the check.
func TokenAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			Unauthorized(c, "invalid authorization format")
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(token)) != 1 {
			Unauthorized(c, "invalid token")
			c.Abort()
			return
		}
		c.Next()
	}
}
