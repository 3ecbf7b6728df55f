// Package expiry declines pending invitations whose response window passed.
// It runs lazily on read; there is no background timer.
package expiry

import (
	"context"
	"errors"
	"fmt"

	"github.com/jwalitptl/conference-api/internal/model"
	"github.com/jwalitptl/conference-api/internal/repository"
	"github.com/jwalitptl/conference-api/pkg/clock"
	"github.com/jwalitptl/conference-api/pkg/logger"
	"github.com/jwalitptl/conference-api/pkg/metrics"
)

type Result struct {
	Changed int
}

type Sweeper struct {
	invitations repository.InvitationRepository
	clock       clock.Clock
	metrics     *metrics.Metrics
	log         *logger.Logger
}

func NewSweeper(invitations repository.InvitationRepository, clk clock.Clock, m *metrics.Metrics, log *logger.Logger) *Sweeper {
	return &Sweeper{
		invitations: invitations,
		clock:       clk,
		metrics:     m,
		log:         log,
	}
}

// RefreshStatuses declines every overdue pending invitation and updates the
// slice in place with the persisted state.
func (s *Sweeper) RefreshStatuses(ctx context.Context, invitations []*model.ReviewInvitation) (Result, error) {
	var result Result
	now := s.clock.Now()

	for i, inv := range invitations {
		if inv == nil || !inv.IsOverdue(now) {
			continue
		}

		updated, err := s.invitations.UpdateStatus(ctx, inv.ID, model.InvitationStatusUpdate{
			Status:      model.InvitationStatusDeclined,
			RespondedAt: now,
		})
		switch {
		case err == nil:
			invitations[i] = updated
			result.Changed++
			s.metrics.InvitationsExpired.Inc()
			s.log.Info("invitation expired",
				"invitation_id", inv.ID,
				"reviewer_id", inv.ReviewerID,
				"due_at", inv.ResponseDueAt,
			)
		case errors.Is(err, repository.ErrInvitationNotPending):
			// Someone else moved it first; keep what is stored.
			current, getErr := s.invitations.GetByID(ctx, inv.ID)
			if getErr != nil {
				return result, fmt.Errorf("failed to reload invitation %s: %w", inv.ID, getErr)
			}
			invitations[i] = current
		default:
			return result, fmt.Errorf("failed to expire invitation %s: %w", inv.ID, err)
		}
	}
	return result, nil
}
