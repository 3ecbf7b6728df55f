package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jwalitptl/conference-api/pkg/errors"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	ErrorCode apperrors.ErrorCode    `json:"errorCode"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	TraceID   string                 `json:"trace_id,omitempty"`
}

func newErrorResponse(c *gin.Context, err error) (int, ErrorResponse) {
	resp := ErrorResponse{
		ErrorCode: apperrors.ErrInternal,
		Message:   "Internal server error",
		TraceID:   c.GetString(ContextRequestID),
	}
	appErr, ok := apperrors.As(err)
	if !ok {
		return http.StatusInternalServerError, resp
	}
	resp.ErrorCode = appErr.Code
	resp.Message = appErr.Message
	resp.Details = appErr.Details
	return appErr.StatusCode(), resp
}

func abort(c *gin.Context, err error) {
	status, resp := newErrorResponse(c, err)
	c.AbortWithStatusJSON(status, resp)
}

// ErrorHandler renders the last error a handler attached with c.Error. Only
// the code and the fixed message of an *AppError reach the client.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only handle errors if they exist
		if len(c.Errors) == 0 {
			return
		}

		for _, e := range c.Errors {
			event := log.Warn()
			if appErr, ok := apperrors.As(e.Err); !ok || appErr.StatusCode() >= http.StatusInternalServerError {
				event = log.Error()
			}
			event.
				Err(e.Err).
				Str("request_id", c.GetString(ContextRequestID)).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Str("client_ip", c.ClientIP()).
				Msg("Request error")
		}

		if c.Writer.Written() {
			return
		}
		status, resp := newErrorResponse(c, c.Errors.Last().Err)
		c.JSON(status, resp)
	}
}
