package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Recovery turns a handler panic into a 500 internal_error response. The
// panic value and stack stay in the log.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				zerolog.Ctx(c.Request.Context()).Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Str("route", c.FullPath()).
					Str("user_id", c.GetString(ContextUserID)).
					Msg("recovered handler panic")

				abort(c, fmt.Errorf("panic: %v", rec))
			}
		}()
		c.Next()
	}
}
