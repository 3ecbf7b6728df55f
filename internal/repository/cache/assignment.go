package cache

import (
	"context"
	"time"

	"github.com/jwalitptl/conference-api/internal/model"
	"github.com/jwalitptl/conference-api/internal/repository"
)

// AssignmentRepository drops the cached paper once its reviewer set is
// committed, since the commit flips the paper's status.
type AssignmentRepository struct {
	repository.AssignmentRepository
	papers *PaperRepository
}

func NewAssignmentRepository(next repository.AssignmentRepository, papers *PaperRepository) *AssignmentRepository {
	return &AssignmentRepository{
		AssignmentRepository: next,
		papers:               papers,
	}
}

func (r *AssignmentRepository) CreateAssignments(ctx context.Context, paperID string, reviewerIDs []string, now time.Time) ([]*model.Assignment, error) {
	created, err := r.AssignmentRepository.CreateAssignments(ctx, paperID, reviewerIDs, now)
	if err != nil {
		return nil, err
	}
	r.papers.Invalidate(paperID)
	return created, nil
}
