package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/conference-api/pkg/errors"
)

// DefaultMaxBodySize bounds JSON request bodies.
const DefaultMaxBodySize int64 = 1 << 20

// SizeLimit rejects oversized bodies up front and caps the reader for
// requests that under-report their length.
func SizeLimit(maxBodySize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBodySize {
			abort(c, apperrors.New("request_too_large", http.StatusRequestEntityTooLarge, "Request body is too large.").
				WithDetail("maxBytes", maxBodySize))
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)
		}
		c.Next()
	}
}
