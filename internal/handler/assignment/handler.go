package assignment

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/conference-api/internal/middleware"
	"github.com/jwalitptl/conference-api/internal/model"
	assignmentService "github.com/jwalitptl/conference-api/internal/service/assignment"
	"github.com/jwalitptl/conference-api/internal/service/audit"
	"github.com/jwalitptl/conference-api/pkg/auth"
	apperrors "github.com/jwalitptl/conference-api/pkg/errors"
)

type Service interface {
	AssignReviewers(ctx context.Context, paperID string, reviewerIDs []string) (*assignmentService.AssignResult, error)
	ListAssignedPapers(ctx context.Context, reviewerID string) ([]*model.AssignedPaper, error)
	GetAssignedPaper(ctx context.Context, reviewerID, paperID string) (*model.AssignedPaper, error)
}

type Handler struct {
	service Service
	auth    *middleware.AuthMiddleware
	audit   audit.Logger
}

func NewHandler(service Service, authMiddleware *middleware.AuthMiddleware, auditLogger audit.Logger) *Handler {
	return &Handler{service: service, auth: authMiddleware, audit: auditLogger}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	papers := r.Group("/papers")
	{
		papers.POST("/:id/reviewers", h.auth.RequireRole(auth.RoleChair), h.AssignReviewers)
	}

	reviewer := r.Group("/reviewer/papers")
	{
		reviewer.GET("", h.ListAssignedPapers)
		reviewer.GET("/:id", h.GetAssignedPaper)
	}
}

type assignReviewersRequest struct {
	ReviewerIDs ReviewerIDs `json:"reviewer_ids"`
}

func (h *Handler) AssignReviewers(c *gin.Context) {
	var req assignReviewersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest("invalid_request", "Request body must contain reviewer_ids."))
		return
	}

	paperID := c.Param("id")
	result, err := h.service.AssignReviewers(c.Request.Context(), paperID, req.ReviewerIDs)
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.audit.Log(c.Request.Context(), middleware.UserID(c), model.AuditActionAssign, model.AuditEntityPaper, paperID, &audit.LogOptions{
		Metadata: map[string]interface{}{
			"reviewerIds": req.ReviewerIDs,
			"warningCode": result.WarningCode,
		},
	})
	c.JSON(http.StatusOK, result)
}

func (h *Handler) ListAssignedPapers(c *gin.Context) {
	papers, err := h.service.ListAssignedPapers(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": papers})
}

func (h *Handler) GetAssignedPaper(c *gin.Context) {
	paper, err := h.service.GetAssignedPaper(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, paper)
}
