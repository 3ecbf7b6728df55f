package assignment

import (
	"context"
	"errors"

	"github.com/jwalitptl/conference-api/internal/model"
	"github.com/jwalitptl/conference-api/internal/repository"
	apperrors "github.com/jwalitptl/conference-api/pkg/errors"
)

// ErrPaperForbidden is returned when the reviewer holds no assignment for the paper.
var ErrPaperForbidden = apperrors.Forbidden(apperrors.ErrForbidden, "You do not have access to this paper.")

func assignedPapersUnavailable(err error) error {
	return apperrors.Internal(CodeAssignedPapersUnavailable, "Assigned papers are unavailable right now. Please retry.", err)
}

// ListAssignedPapers returns the reviewer's papers, most recent assignment first.
func (o *Orchestrator) ListAssignedPapers(ctx context.Context, reviewerID string) ([]*model.AssignedPaper, error) {
	assignments, err := o.assignments.ListByReviewer(ctx, reviewerID)
	if err != nil {
		o.log.Error(err, "failed to list assignments", "reviewer_id", reviewerID)
		return nil, assignedPapersUnavailable(err)
	}

	papers := make([]*model.AssignedPaper, 0, len(assignments))
	for _, a := range assignments {
		view := &model.AssignedPaper{
			PaperID:    a.PaperID,
			Title:      model.UnknownPaperTitle,
			AssignedAt: a.CreatedAt,
		}
		paper, err := o.papers.GetByID(ctx, a.PaperID)
		switch {
		case err == nil && paper.Title != "":
			view.Title = paper.Title
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			o.log.Warn("paper lookup failed", "paper_id", a.PaperID, "error", err.Error())
		}
		papers = append(papers, view)
	}
	return papers, nil
}

// GetAssignedPaper includes the abstract. Access requires an assignment.
func (o *Orchestrator) GetAssignedPaper(ctx context.Context, reviewerID, paperID string) (*model.AssignedPaper, error) {
	if !o.guard.CanAccessAssignedPaper(ctx, reviewerID, paperID) {
		return nil, ErrPaperForbidden
	}

	paper, err := o.papers.GetByID(ctx, paperID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound(CodePaperNotFound, "Paper not found.")
	}
	if err != nil {
		o.log.Error(err, "failed to load paper", "paper_id", paperID)
		return nil, assignedPapersUnavailable(err)
	}

	assignments, err := o.assignments.ListByPaper(ctx, paperID)
	if err != nil {
		o.log.Error(err, "failed to list paper assignments", "paper_id", paperID)
		return nil, assignedPapersUnavailable(err)
	}

	view := &model.AssignedPaper{
		PaperID:  paper.ID,
		Title:    paper.Title,
		Abstract: paper.Abstract,
	}
	if view.Title == "" {
		view.Title = model.UnknownPaperTitle
	}
	for _, a := range assignments {
		if a.ReviewerID == reviewerID {
			view.AssignedAt = a.CreatedAt
			break
		}
	}
	return view, nil
}
