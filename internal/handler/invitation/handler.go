package invitation

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/conference-api/internal/middleware"
	"github.com/jwalitptl/conference-api/internal/model"
	invitationService "github.com/jwalitptl/conference-api/internal/service/invitation"
	apperrors "github.com/jwalitptl/conference-api/pkg/errors"
)

type Lister interface {
	ListForReviewer(ctx context.Context, q invitationService.ListQuery) (*model.InvitationPage, error)
	GetByID(ctx context.Context, reviewerID, invitationID string) (*model.InvitationDetail, error)
}

type Responder interface {
	Respond(ctx context.Context, reviewerID, invitationID string, action invitationService.Action) (*model.ReviewInvitation, error)
}

type Handler struct {
	lister    Lister
	responder Responder
}

func NewHandler(lister Lister, responder Responder) *Handler {
	return &Handler{lister: lister, responder: responder}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	invitations := r.Group("/invitations")
	{
		invitations.GET("", h.ListInvitations)
		invitations.GET("/:id", h.GetInvitation)
		invitations.POST("/:id/accept", h.respondWith(invitationService.ActionAccept))
		invitations.POST("/:id/reject", h.respondWith(invitationService.ActionReject))
		invitations.POST("/:id/respond", h.Respond)
	}
}

type respondRequest struct {
	Action string `json:"action" binding:"required"`
}

type respondResponse struct {
	ID          string                 `json:"id"`
	Status      model.InvitationStatus `json:"status"`
	RespondedAt *time.Time             `json:"respondedAt"`
}

func (h *Handler) ListInvitations(c *gin.Context) {
	page, err := queryInt(c, "page")
	if err != nil {
		_ = c.Error(err)
		return
	}
	pageSize, err := queryInt(c, "page_size")
	if err != nil {
		_ = c.Error(err)
		return
	}

	result, err := h.lister.ListForReviewer(c.Request.Context(), invitationService.ListQuery{
		ReviewerID: middleware.UserID(c),
		Status:     c.Query("status"),
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetInvitation(c *gin.Context) {
	detail, err := h.lister.GetByID(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *Handler) Respond(c *gin.Context) {
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest(invitationService.CodeInvalidAction, "Action must be accept or reject."))
		return
	}
	action, err := invitationService.ParseAction(req.Action)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.respond(c, action)
}

func (h *Handler) respondWith(action invitationService.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.respond(c, action)
	}
}

func (h *Handler) respond(c *gin.Context, action invitationService.Action) {
	inv, err := h.responder.Respond(c.Request.Context(), middleware.UserID(c), c.Param("id"), action)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, respondResponse{
		ID:          inv.ID,
		Status:      inv.Status,
		RespondedAt: inv.RespondedAt,
	})
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.BadRequest("invalid_pagination", "Pagination parameters must be integers.").WithDetail("parameter", key)
	}
	return n, nil
}
