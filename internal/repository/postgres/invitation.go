package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/conference-api/internal/model"
	"github.com/jwalitptl/conference-api/internal/repository"
)

const invitationColumns = `id, reviewer_id, paper_id, assignment_id, status, created_at, response_due_at, responded_at`

type invitationRepository struct {
	BaseRepository
}

func NewInvitationRepository(base BaseRepository) repository.InvitationRepository {
	return &invitationRepository{base}
}

func (r *invitationRepository) Create(ctx context.Context, inv *model.ReviewInvitation) error {
	query := `
		INSERT INTO review_invitations (` + invitationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.GetDB().ExecContext(ctx, query,
		inv.ID,
		inv.ReviewerID,
		inv.PaperID,
		inv.AssignmentID,
		inv.Status,
		inv.CreatedAt,
		inv.ResponseDueAt,
		inv.RespondedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil
}

func (r *invitationRepository) GetByID(ctx context.Context, id string) (*model.ReviewInvitation, error) {
	var inv model.ReviewInvitation
	err := r.GetDB().GetContext(ctx, &inv, `SELECT `+invitationColumns+` FROM review_invitations WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return &inv, nil
}

func (r *invitationRepository) ListByReviewer(ctx context.Context, reviewerID string) ([]*model.ReviewInvitation, error) {
	var invitations []*model.ReviewInvitation
	query := `SELECT ` + invitationColumns + ` FROM review_invitations WHERE reviewer_id = $1 ORDER BY created_at DESC`
	if err := r.GetDB().SelectContext(ctx, &invitations, query, reviewerID); err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return invitations, nil
}

func (r *invitationRepository) UpdateStatus(ctx context.Context, id string, update model.InvitationStatusUpdate) (*model.ReviewInvitation, error) {
	var updated model.ReviewInvitation

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			UPDATE review_invitations
			SET status = $1, responded_at = $2
			WHERE id = $3 AND status = $4
			RETURNING ` + invitationColumns
		err := tx.GetContext(ctx, &updated, query, update.Status, update.RespondedAt, id, model.InvitationStatusPending)
		if errors.Is(err, sql.ErrNoRows) {
			var exists bool
			if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM review_invitations WHERE id = $1)`, id); err != nil {
				return fmt.Errorf("failed to check invitation: %w", err)
			}
			if !exists {
				return repository.ErrNotFound
			}
			return repository.ErrInvitationNotPending
		}
		if err != nil {
			return fmt.Errorf("failed to update invitation status: %w", err)
		}

		return insertOutboxEvent(ctx, tx, update.RespondedAt, model.EventInvitationStatusChanged, id, map[string]interface{}{
			"invitation_id": id,
			"reviewer_id":   updated.ReviewerID,
			"paper_id":      updated.PaperID,
			"status":        updated.Status,
			"responded_at":  updated.RespondedAt,
		})
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
