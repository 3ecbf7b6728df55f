package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Logger writes one access log line per request through the request-scoped
// logger, so every line carries the request ID.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		l := zerolog.Ctx(c.Request.Context())

		var event *zerolog.Event
		switch {
		case status >= 500:
			event = l.Error()
		case status >= 400:
			event = l.Warn()
		default:
			event = l.Info()
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		event.
			Str("user_id", c.GetString(ContextUserID)).
			Str("method", c.Request.Method).
			Str("route", route).
			Str("path", c.Request.URL.Path).
			Str("query", c.Request.URL.RawQuery).
			Str("ip", c.ClientIP()).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Int("bytes", c.Writer.Size()).
			Msg("request")
	}
}
