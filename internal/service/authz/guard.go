// Package authz decides whether an actor may see or act on an invitation or
// an assigned paper. Every denial leaves one audit entry.
package authz

import (
	"context"

	"github.com/jwalitptl/conference-api/internal/model"
	"github.com/jwalitptl/conference-api/internal/repository"
	"github.com/jwalitptl/conference-api/internal/service/audit"
	"github.com/jwalitptl/conference-api/pkg/clock"
	"github.com/jwalitptl/conference-api/pkg/logger"
)

type Guard struct {
	assignments repository.AssignmentRepository
	audit       audit.Logger
	clock       clock.Clock
	log         *logger.Logger
}

func NewGuard(assignments repository.AssignmentRepository, auditLogger audit.Logger, clk clock.Clock, log *logger.Logger) *Guard {
	return &Guard{
		assignments: assignments,
		audit:       auditLogger,
		clock:       clk,
		log:         log,
	}
}

// CanAccessInvitation allows only the invitation's own reviewer.
func (g *Guard) CanAccessInvitation(ctx context.Context, userID string, inv *model.ReviewInvitation) bool {
	if inv != nil && userID != "" && inv.ReviewerID == userID {
		return true
	}

	invitationID := ""
	if inv != nil {
		invitationID = inv.ID
	}
	g.deny(ctx, userID, model.AuditEntityInvitation, invitationID, map[string]interface{}{
		"userId":       userID,
		"invitationId": invitationID,
		"timestamp":    g.clock.Now(),
	})
	return false
}

// CanAccessAssignedPaper allows a reviewer who holds an assignment for the paper.
// A lookup failure denies.
func (g *Guard) CanAccessAssignedPaper(ctx context.Context, reviewerID, paperID string) bool {
	if reviewerID != "" {
		assignments, err := g.assignments.ListByPaper(ctx, paperID)
		if err != nil {
			g.log.Error(err, "failed to load assignments for access check",
				"reviewer_id", reviewerID,
				"paper_id", paperID,
			)
		}
		for _, a := range assignments {
			if a.ReviewerID == reviewerID {
				return true
			}
		}
	}

	g.deny(ctx, reviewerID, model.AuditEntityAssignedPaper, paperID, map[string]interface{}{
		"userId":    reviewerID,
		"paperId":   paperID,
		"timestamp": g.clock.Now(),
	})
	return false
}

func (g *Guard) deny(ctx context.Context, userID, entityType, entityID string, metadata map[string]interface{}) {
	g.log.Warn("access denied",
		"user_id", userID,
		"entity_type", entityType,
		"entity_id", entityID,
	)
	g.audit.Log(ctx, userID, model.AuditActionAccessDenied, entityType, entityID, &audit.LogOptions{Metadata: metadata})
}
