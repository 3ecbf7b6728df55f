package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/conference-api/pkg/auth"
	apperrors "github.com/jwalitptl/conference-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestAuthMiddleware(t *testing.T) {
	jwtSvc := auth.NewJWTService("secret", "")
	m := NewAuthMiddleware(jwtSvc)

	engine := gin.New()
	engine.GET("/me", m.Authenticate(), func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})
	engine.GET("/chair", m.Authenticate(), m.RequireRole(auth.RoleChair), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	reviewerToken, err := jwtSvc.GenerateToken("R1", auth.RoleReviewer, time.Hour)
	require.NoError(t, err)
	chairToken, err := jwtSvc.GenerateToken("C1", auth.RoleChair, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		status int
		body   string
	}{
		{name: "missing header", path: "/me", status: http.StatusUnauthorized},
		{name: "wrong scheme", path: "/me", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "bad token", path: "/me", header: "Bearer nope", status: http.StatusUnauthorized},
		{name: "reviewer", path: "/me", header: "Bearer " + reviewerToken, status: http.StatusOK, body: "R1"},
		{name: "reviewer on chair route", path: "/chair", header: "Bearer " + reviewerToken, status: http.StatusForbidden},
		{name: "chair", path: "/chair", header: "Bearer " + chairToken, status: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestErrorHandler_HidesInternalDetail(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID(), ErrorHandler())
	engine.GET("/app", func(c *gin.Context) {
		_ = c.Error(apperrors.Internal("invitation_list_unavailable", "Invitations are unavailable right now. Please retry.", assert.AnError))
	})
	engine.GET("/plain", func(c *gin.Context) {
		_ = c.Error(assert.AnError)
	})
	engine.GET("/bad", func(c *gin.Context) {
		_ = c.Error(apperrors.BadRequest("invalid_reviewer_count", "Exactly three reviewers must be selected.").WithDetail("provided", 2))
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/app", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode(t, w)
	assert.Equal(t, apperrors.ErrorCode("invitation_list_unavailable"), resp.ErrorCode)
	assert.Equal(t, "Invitations are unavailable right now. Please retry.", resp.Message)
	assert.NotEmpty(t, resp.TraceID)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plain", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, apperrors.ErrInternal, decode(t, w).ErrorCode)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bad", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.EqualValues(t, 2, decode(t, w).Details["provided"])
}

func TestRecovery(t *testing.T) {
	engine := gin.New()
	engine.Use(Recovery())
	engine.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "kaboom")
}

func TestRequestID(t *testing.T) {
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestID)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, "abc-123")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get(HeaderXRequestID))

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Body.String(), 36)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.001, Burst: 2})
	engine := gin.New()
	engine.Use(rl.RateLimit())
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestSizeLimit(t *testing.T) {
	engine := gin.New()
	engine.Use(SizeLimit(16))
	engine.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}")))
	assert.Equal(t, http.StatusOK, w.Code)
}
