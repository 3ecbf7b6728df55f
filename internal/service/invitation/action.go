package invitation

import (
	"context"
	"errors"
	"strings"

	"github.com/jwalitptl/conference-api/internal/model"
	"github.com/jwalitptl/conference-api/internal/repository"
	"github.com/jwalitptl/conference-api/internal/service/audit"
	"github.com/jwalitptl/conference-api/internal/service/authz"
	"github.com/jwalitptl/conference-api/pkg/clock"
	apperrors "github.com/jwalitptl/conference-api/pkg/errors"
	"github.com/jwalitptl/conference-api/pkg/logger"
	"github.com/jwalitptl/conference-api/pkg/metrics"
)

type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
)

func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionAccept, ActionReject:
		return a, nil
	default:
		return "", apperrors.BadRequest(CodeInvalidAction, "Action must be accept or reject.").WithDetail("action", s)
	}
}

func (a Action) status() model.InvitationStatus {
	if a == ActionAccept {
		return model.InvitationStatusAccepted
	}
	return model.InvitationStatusRejected
}

// ActionService moves a pending invitation to accepted or rejected. It does
// not sweep and does not notify. Answers past the due date are refused.
type ActionService struct {
	invitations repository.InvitationRepository
	guard       *authz.Guard
	audit       audit.Logger
	clock       clock.Clock
	metrics     *metrics.Metrics
	log         *logger.Logger
}

func NewActionService(
	invitations repository.InvitationRepository,
	guard *authz.Guard,
	auditLogger audit.Logger,
	clk clock.Clock,
	m *metrics.Metrics,
	log *logger.Logger,
) *ActionService {
	return &ActionService{
		invitations: invitations,
		guard:       guard,
		audit:       auditLogger,
		clock:       clk,
		metrics:     m,
		log:         log,
	}
}

func (s *ActionService) Respond(ctx context.Context, reviewerID, invitationID string, action Action) (*model.ReviewInvitation, error) {
	if action != ActionAccept && action != ActionReject {
		return nil, apperrors.BadRequest(CodeInvalidAction, "Action must be accept or reject.")
	}

	inv, err := s.invitations.GetByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.reject(action, "not_found", ErrNotFound)
		}
		s.log.Error(err, "failed to load invitation", "invitation_id", invitationID)
		return nil, s.reject(action, "error", unavailable(err))
	}
	if !s.guard.CanAccessInvitation(ctx, reviewerID, inv) {
		return nil, s.reject(action, "forbidden", ErrForbidden)
	}
	// An overdue invitation is treated as declined even before a sweep stored it.
	now := s.clock.Now()
	if inv.Status.IsTerminal() || inv.IsOverdue(now) {
		return nil, s.reject(action, "conflict", ErrConflict)
	}

	updated, err := s.invitations.UpdateStatus(ctx, invitationID, model.InvitationStatusUpdate{
		Status:      action.status(),
		RespondedAt: now,
	})
	switch {
	case errors.Is(err, repository.ErrInvitationNotPending):
		return nil, s.reject(action, "conflict", ErrConflict)
	case errors.Is(err, repository.ErrNotFound):
		return nil, s.reject(action, "not_found", ErrNotFound)
	case err != nil:
		s.log.Error(err, "failed to update invitation",
			"invitation_id", invitationID,
			"reviewer_id", reviewerID,
			"action", action,
		)
		return nil, s.reject(action, "error", apperrors.Internal(CodeUpdateFailed, "Invitation could not be updated. Please retry.", err))
	}

	s.metrics.InvitationResponses.WithLabelValues(string(action), "ok").Inc()
	s.audit.Log(ctx, reviewerID, model.AuditActionRespond, model.AuditEntityInvitation, invitationID, &audit.LogOptions{
		Metadata: map[string]interface{}{"status": updated.Status},
	})
	s.log.Info("invitation answered",
		"invitation_id", invitationID,
		"reviewer_id", reviewerID,
		"status", updated.Status,
	)
	return updated, nil
}

func (s *ActionService) reject(action Action, result string, err error) error {
	s.metrics.InvitationResponses.WithLabelValues(string(action), result).Inc()
	return err
}
