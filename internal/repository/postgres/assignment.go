package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/conference-api/internal/model"
	"github.com/jwalitptl/conference-api/internal/repository"
)

type assignmentRepository struct {
	BaseRepository
}

func NewAssignmentRepository(base BaseRepository) repository.AssignmentRepository {
	return &assignmentRepository{base}
}

func (r *assignmentRepository) ListByPaper(ctx context.Context, paperID string) ([]*model.Assignment, error) {
	var assignments []*model.Assignment
	query := `SELECT id, paper_id, reviewer_id, created_at FROM assignments WHERE paper_id = $1 ORDER BY created_at, id`
	if err := r.GetDB().SelectContext(ctx, &assignments, query, paperID); err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, nil
}

func (r *assignmentRepository) ListByReviewer(ctx context.Context, reviewerID string) ([]*model.Assignment, error) {
	var assignments []*model.Assignment
	query := `SELECT id, paper_id, reviewer_id, created_at FROM assignments WHERE reviewer_id = $1 ORDER BY created_at DESC, id`
	if err := r.GetDB().SelectContext(ctx, &assignments, query, reviewerID); err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, nil
}

func (r *assignmentRepository) CreateAssignments(ctx context.Context, paperID string, reviewerIDs []string, now time.Time) ([]*model.Assignment, error) {
	var created []*model.Assignment

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := lockUnassignedPaper(ctx, tx, paperID); err != nil {
			return err
		}
		if err := checkReviewers(ctx, tx, paperID, reviewerIDs); err != nil {
			return err
		}

		insert := `INSERT INTO assignments (id, paper_id, reviewer_id, created_at) VALUES ($1, $2, $3, $4)`
		created = make([]*model.Assignment, 0, len(reviewerIDs))
		for _, reviewerID := range reviewerIDs {
			a := &model.Assignment{
				ID:         uuid.NewString(),
				PaperID:    paperID,
				ReviewerID: reviewerID,
				CreatedAt:  now,
			}
			if _, err := tx.ExecContext(ctx, insert, a.ID, a.PaperID, a.ReviewerID, a.CreatedAt); err != nil {
				return fmt.Errorf("failed to insert assignment: %w", err)
			}
			created = append(created, a)
		}

		workload := `UPDATE reviewers SET current_assignment_count = current_assignment_count + 1 WHERE id = ANY($1)`
		if _, err := tx.ExecContext(ctx, workload, pq.Array(reviewerIDs)); err != nil {
			return fmt.Errorf("failed to update reviewer workload: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE papers SET status = $1 WHERE id = $2`, model.PaperStatusAssigned, paperID); err != nil {
			return fmt.Errorf("failed to update paper status: %w", err)
		}

		return insertOutboxEvent(ctx, tx, now, model.EventAssignmentCreated, paperID, map[string]interface{}{
			"paper_id":     paperID,
			"reviewer_ids": reviewerIDs,
			"created_at":   now,
		})
	})
	if isUniqueViolation(err) {
		return nil, repository.ErrAlreadyAssigned
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}

// lockUnassignedPaper takes a row lock on the paper so concurrent commits for
// the same paper serialize, then rejects papers that already have a set.
func lockUnassignedPaper(ctx context.Context, tx *sqlx.Tx, paperID string) error {
	var status model.PaperStatus
	err := tx.GetContext(ctx, &status, `SELECT status FROM papers WHERE id = $1 FOR UPDATE`, paperID)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock paper: %w", err)
	}
	if status == model.PaperStatusAssigned {
		return repository.ErrAlreadyAssigned
	}

	var existing int
	if err := tx.GetContext(ctx, &existing, `SELECT COUNT(*) FROM assignments WHERE paper_id = $1`, paperID); err != nil {
		return fmt.Errorf("failed to count assignments: %w", err)
	}
	if existing > 0 {
		return repository.ErrAlreadyAssigned
	}
	return nil
}

// checkReviewers locks the selected reviewer rows and re-validates
// eligibility and workload against committed state.
func checkReviewers(ctx context.Context, tx *sqlx.Tx, paperID string, reviewerIDs []string) error {
	query := `
		SELECT r.id, r.name, r.email,
			r.eligible AND NOT EXISTS (
				SELECT 1 FROM paper_conflicts c WHERE c.paper_id = $1 AND c.reviewer_id = r.id
			) AS eligible,
			r.current_assignment_count
		FROM reviewers r
		WHERE r.id = ANY($2)
		ORDER BY r.id
		FOR UPDATE OF r
	`
	var rows []*model.Reviewer
	if err := tx.SelectContext(ctx, &rows, query, paperID, pq.Array(reviewerIDs)); err != nil {
		return fmt.Errorf("failed to lock reviewers: %w", err)
	}

	byID := make(map[string]*model.Reviewer, len(rows))
	for _, rv := range rows {
		byID[rv.ID] = rv
	}
	for _, id := range reviewerIDs {
		rv, ok := byID[id]
		switch {
		case !ok:
			return &repository.ReviewerConstraintError{ReviewerID: id, Constraint: repository.ConstraintMissing}
		case !rv.Eligible:
			return &repository.ReviewerConstraintError{ReviewerID: id, Constraint: repository.ConstraintIneligible}
		case !rv.HasCapacity():
			return &repository.ReviewerConstraintError{ReviewerID: id, Constraint: repository.ConstraintWorkload}
		}
	}
	return nil
}
