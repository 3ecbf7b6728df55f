package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/conference-api/internal/service/audit"
)

const (
	HeaderXRequestID = "X-Request-ID"
	ContextRequestID = "request_id"
)

// RequestID adds a unique request ID to each request. The request context
// carries a logger tagged with it and the client identity for audit entries.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderXRequestID)
		if rid == "" || len(rid) > 128 {
			rid = uuid.NewString()
		}

		c.Set(ContextRequestID, rid)
		c.Header(HeaderXRequestID, rid)

		reqLogger := log.With().Str("request_id", rid).Logger()
		ctx := reqLogger.WithContext(c.Request.Context())
		ctx = audit.ContextWithRequestInfo(ctx, c.ClientIP(), c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
