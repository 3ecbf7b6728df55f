package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/conference-api/internal/email"
	assignmentHandler "github.com/jwalitptl/conference-api/internal/handler/assignment"
	"github.com/jwalitptl/conference-api/internal/handler/health"
	invitationHandler "github.com/jwalitptl/conference-api/internal/handler/invitation"
	"github.com/jwalitptl/conference-api/internal/middleware"
	"github.com/jwalitptl/conference-api/internal/model"
	"github.com/jwalitptl/conference-api/internal/repository"
	"github.com/jwalitptl/conference-api/internal/repository/memory"
	"github.com/jwalitptl/conference-api/internal/service/assignment"
	"github.com/jwalitptl/conference-api/internal/service/audit"
	"github.com/jwalitptl/conference-api/internal/service/authz"
	"github.com/jwalitptl/conference-api/internal/service/expiry"
	"github.com/jwalitptl/conference-api/internal/service/invitation"
	"github.com/jwalitptl/conference-api/internal/service/notification"
	"github.com/jwalitptl/conference-api/pkg/auth"
	"github.com/jwalitptl/conference-api/pkg/clock"
	"github.com/jwalitptl/conference-api/pkg/logger"
	"github.com/jwalitptl/conference-api/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testAPI struct {
	engine *gin.Engine
	store  *memory.Store
	repos  *repository.Repositories
	audit  *audit.AuditLogger
	jwt    auth.JWTService
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repositories()
	clk := clock.NewFixed(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	log := logger.Nop()
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics("test", "", reg)

	auditLogger := audit.NewAuditLogger(audit.NewService(repos.Audit, clk), log)
	guard := authz.NewGuard(repos.Assignments, auditLogger, clk, log)
	sweeper := expiry.NewSweeper(repos.Invitations, clk, m, log)
	dispatcher := notification.NewDispatcher(repos, email.NoEmail{}, email.NewInvitationTemplate("", log), clk, m, log,
		notification.Config{MaxAttempts: 3})

	jwtSvc := auth.NewJWTService("test-secret", "conference-api")
	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)

	r := NewRouter(
		authMiddleware,
		health.NewHandler(nil, reg),
		invitationHandler.NewHandler(
			invitation.NewService(repos.Invitations, repos.Papers, guard, sweeper, log, invitation.Config{DefaultPageSize: 20, MaxPageSize: 100}),
			invitation.NewActionService(repos.Invitations, guard, auditLogger, clk, m, log),
		),
		assignmentHandler.NewHandler(
			assignment.NewOrchestrator(repos, dispatcher, guard, clk, m, log),
			authMiddleware,
			auditLogger,
		),
		RouterConfig{MetricsPrefix: "test_http", Registerer: reg},
	)
	r.Setup()

	store.AddPaper(&model.Paper{ID: "P1", Title: "Streaming Joins", Abstract: "We join streams."})
	for _, id := range []string{"R1", "R2", "R3", "R4"} {
		store.AddReviewer(&model.Reviewer{ID: id, Name: id, Email: id + "@example.org", Eligible: true, CurrentAssignmentCount: 1})
	}

	return &testAPI{engine: r.Engine(), store: store, repos: repos, audit: auditLogger, jwt: jwtSvc}
}

func (a *testAPI) do(t *testing.T, method, path, subject, role string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if subject != "" {
		token, err := a.jwt.GenerateToken(subject, role, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (a *testAPI) assign(t *testing.T) {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/papers/P1/reviewers", "C1", auth.RoleChair,
		map[string]interface{}{"reviewer_ids": []string{"R1", "R2", "R3"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func (a *testAPI) invitationID(t *testing.T, reviewerID string) string {
	t.Helper()
	invs, err := a.repos.Invitations.ListByReviewer(context.Background(), reviewerID)
	require.NoError(t, err)
	require.Len(t, invs, 1)
	return invs[0].ID
}

func TestAssignReviewers_Endpoint(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/v1/papers/P1/reviewers", "C1", auth.RoleChair,
		map[string]interface{}{"reviewer_ids": "R1, R2 ,R3"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "success", body["type"])
	assert.EqualValues(t, 3, body["assignmentCount"])
	assert.NotContains(t, body, "warningCode")

	w = api.do(t, http.MethodPost, "/api/v1/papers/P1/reviewers", "C1", auth.RoleChair,
		map[string]interface{}{"reviewer_ids": []string{"R1", "R2", "R3"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "already_assigned", decode(t, w)["errorCode"])
}

func TestAssignReviewers_EndpointErrors(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodPost, "/api/v1/papers/P1/reviewers", "R1", auth.RoleReviewer,
		map[string]interface{}{"reviewer_ids": []string{"R1", "R2", "R3"}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, http.MethodPost, "/api/v1/papers/P1/reviewers", "C1", auth.RoleChair,
		map[string]interface{}{"reviewer_ids": []string{"R1", "R2"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "invalid_reviewer_count", body["errorCode"])
	details := body["details"].(map[string]interface{})
	assert.EqualValues(t, 3, details["required"])
	assert.EqualValues(t, 2, details["provided"])

	w = api.do(t, http.MethodPost, "/api/v1/papers/P404/reviewers", "C1", auth.RoleChair,
		map[string]interface{}{"reviewer_ids": []string{"R1", "R2", "R3"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "invalid_paper", decode(t, w)["errorCode"])

	w = api.do(t, http.MethodPost, "/api/v1/papers/P1/reviewers", "C1", auth.RoleChair,
		map[string]interface{}{"reviewer_ids": 42})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", decode(t, w)["errorCode"])

	w = api.do(t, http.MethodPost, "/api/v1/papers/P1/reviewers", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInvitationEndpoints(t *testing.T) {
	api := newTestAPI(t)
	api.assign(t)
	id := api.invitationID(t, "R1")

	w := api.do(t, http.MethodGet, "/api/v1/invitations", "R1", auth.RoleReviewer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)
	assert.EqualValues(t, 1, list["totalItems"])
	assert.EqualValues(t, 1, list["totalPages"])
	assert.EqualValues(t, 20, list["pageSize"])
	items := list["items"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "Streaming Joins", items[0].(map[string]interface{})["paperTitle"])

	w = api.do(t, http.MethodGet, "/api/v1/invitations?status=bogus", "R1", auth.RoleReviewer, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_status", decode(t, w)["errorCode"])

	w = api.do(t, http.MethodGet, "/api/v1/invitations/"+id, "R2", auth.RoleReviewer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "You do not have access to this invitation.", decode(t, w)["message"])

	w = api.do(t, http.MethodGet, "/api/v1/invitations/missing", "R1", auth.RoleReviewer, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "invitation_not_found", decode(t, w)["errorCode"])

	w = api.do(t, http.MethodPost, "/api/v1/invitations/"+id+"/accept", "R1", auth.RoleReviewer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	accepted := decode(t, w)
	assert.Equal(t, "accepted", accepted["status"])
	assert.Equal(t, "2025-03-01T12:00:00Z", accepted["respondedAt"])

	w = api.do(t, http.MethodPost, "/api/v1/invitations/"+id+"/reject", "R1", auth.RoleReviewer, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	conflict := decode(t, w)
	assert.Equal(t, "invitation_conflict", conflict["errorCode"])
	assert.Equal(t, "Invitation was already processed.", conflict["message"])

	w = api.do(t, http.MethodGet, "/api/v1/invitations/"+id, "R1", auth.RoleReviewer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "We join streams.", decode(t, w)["abstract"])

	api.audit.Wait()
	denied, err := api.repos.Audit.List(context.Background(), map[string]interface{}{"action": model.AuditActionAccessDenied})
	require.NoError(t, err)
	require.Len(t, denied, 1)
	assert.Equal(t, "192.0.2.1", denied[0].IPAddress)
}

func TestRespondEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.assign(t)
	id := api.invitationID(t, "R2")

	w := api.do(t, http.MethodPost, "/api/v1/invitations/"+id+"/respond", "R2", auth.RoleReviewer,
		map[string]string{"action": "maybe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_action", decode(t, w)["errorCode"])

	w = api.do(t, http.MethodPost, "/api/v1/invitations/"+id+"/respond", "R2", auth.RoleReviewer,
		map[string]string{"action": "reject"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "rejected", decode(t, w)["status"])
}

func TestReviewerPapersEndpoints(t *testing.T) {
	api := newTestAPI(t)
	api.assign(t)

	w := api.do(t, http.MethodGet, "/api/v1/reviewer/papers", "R3", auth.RoleReviewer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["items"], 1)

	w = api.do(t, http.MethodGet, "/api/v1/reviewer/papers/P1", "R3", auth.RoleReviewer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "We join streams.", decode(t, w)["abstract"])

	w = api.do(t, http.MethodGet, "/api/v1/reviewer/papers/P1", "R4", auth.RoleReviewer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHealthEndpoints(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/api/v1/health/live", "", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/health/ready", "", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	api.do(t, http.MethodGet, "/api/v1/health/live", "", "", nil)
	w = api.do(t, http.MethodGet, "/api/v1/health/metrics", "", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_http_requests_total")
}
