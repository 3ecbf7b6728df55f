package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jwalitptl/conference-api/internal/model"
	"github.com/jwalitptl/conference-api/internal/repository"
)

const reviewerColumns = `r.id, r.name, r.email, r.eligible, r.current_assignment_count`

type reviewerRepository struct {
	BaseRepository
}

func NewReviewerRepository(base BaseRepository) repository.ReviewerRepository {
	return &reviewerRepository{base}
}

func (r *reviewerRepository) GetByID(ctx context.Context, id string) (*model.Reviewer, error) {
	var reviewer model.Reviewer
	err := r.GetDB().GetContext(ctx, &reviewer, `SELECT `+reviewerColumns+` FROM reviewers r WHERE r.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reviewer: %w", err)
	}
	return &reviewer, nil
}

// ListEligible excludes reviewers flagged ineligible and those with a
// declared conflict of interest on the paper.
func (r *reviewerRepository) ListEligible(ctx context.Context, paperID string) ([]*model.Reviewer, error) {
	query := `
		SELECT ` + reviewerColumns + `
		FROM reviewers r
		WHERE r.eligible
		AND NOT EXISTS (
			SELECT 1 FROM paper_conflicts c
			WHERE c.paper_id = $1 AND c.reviewer_id = r.id
		)
		ORDER BY r.id
	`
	var reviewers []*model.Reviewer
	if err := r.GetDB().SelectContext(ctx, &reviewers, query, paperID); err != nil {
		return nil, fmt.Errorf("failed to list eligible reviewers: %w", err)
	}
	return reviewers, nil
}
