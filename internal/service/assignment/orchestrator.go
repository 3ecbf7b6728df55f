package assignment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/conference-api/internal/model"
	"github.com/jwalitptl/conference-api/internal/repository"
	"github.com/jwalitptl/conference-api/internal/service/authz"
	"github.com/jwalitptl/conference-api/internal/service/notification"
	"github.com/jwalitptl/conference-api/pkg/clock"
	apperrors "github.com/jwalitptl/conference-api/pkg/errors"
	"github.com/jwalitptl/conference-api/pkg/logger"
	"github.com/jwalitptl/conference-api/pkg/metrics"
)

const ReviewersRequired = model.ReviewersPerPaper

const ResultSuccess = "success"

// Failure reasons added by the orchestrator itself.
const (
	ReasonInvitationCreateFailed = "invitation_create_failed"
	ReasonFanOutAborted          = "fan_out_aborted"
)

type Notifier interface {
	SendReviewerInvitations(ctx context.Context, paper *model.Paper, reviewers []*model.Reviewer, invitations []*model.ReviewInvitation) notification.BatchResult
}

type AssignResult struct {
	Type               string                    `json:"type"`
	AssignmentCount    int                       `json:"assignmentCount"`
	Assignments        []*model.Assignment       `json:"assignments"`
	WarningCode        string                    `json:"warningCode,omitempty"`
	WarningMessage     string                    `json:"warningMessage,omitempty"`
	InvitationFailures []notification.Failure    `json:"invitationFailures,omitempty"`
	Invitations        []*model.ReviewInvitation `json:"-"`
}

// Orchestrator validates a reviewer selection, commits it atomically and
// fans the new assignments out into invitations and notifications.
type Orchestrator struct {
	papers      repository.PaperRepository
	reviewers   repository.ReviewerRepository
	assignments repository.AssignmentRepository
	invitations repository.InvitationRepository
	notifier    Notifier
	guard       *authz.Guard
	clock       clock.Clock
	metrics     *metrics.Metrics
	log         *logger.Logger
}

func NewOrchestrator(
	repos *repository.Repositories,
	notifier Notifier,
	guard *authz.Guard,
	clk clock.Clock,
	m *metrics.Metrics,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		papers:      repos.Papers,
		reviewers:   repos.Reviewers,
		assignments: repos.Assignments,
		invitations: repos.Invitations,
		notifier:    notifier,
		guard:       guard,
		clock:       clk,
		metrics:     m,
		log:         log,
	}
}

// NormalizeReviewerIDs trims every ID and drops blanks. Order and duplicates
// are kept.
func NormalizeReviewerIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func distinct(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func (o *Orchestrator) AssignReviewers(ctx context.Context, paperID string, reviewerIDs []string) (*AssignResult, error) {
	paper, selected, err := o.validate(ctx, paperID, reviewerIDs)
	if err != nil {
		if appErr, ok := apperrors.As(err); ok {
			o.metrics.AssignmentValidationFailures.WithLabelValues(string(appErr.Code)).Inc()
		}
		return nil, err
	}

	ids := make([]string, len(selected))
	for i, r := range selected {
		ids[i] = r.ID
	}

	now := o.clock.Now()
	assignments, err := o.assignments.CreateAssignments(ctx, paperID, ids, now)
	if err != nil {
		err = o.commitError(paperID, ids, err)
		if appErr, ok := apperrors.As(err); ok {
			o.metrics.AssignmentValidationFailures.WithLabelValues(string(appErr.Code)).Inc()
		}
		return nil, err
	}
	o.metrics.AssignmentsCommitted.Inc()
	o.log.Info("reviewers assigned", "paper_id", paperID, "reviewer_ids", ids)

	result := &AssignResult{
		Type:            ResultSuccess,
		AssignmentCount: len(assignments),
		Assignments:     assignments,
	}
	o.fanOut(ctx, paper, selected, assignments, now, result)
	return result, nil
}

// validate applies the selection rules in order; the first failure wins.
func (o *Orchestrator) validate(ctx context.Context, paperID string, reviewerIDs []string) (*model.Paper, []*model.Reviewer, error) {
	paper, err := o.papers.GetByID(ctx, paperID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, errInvalidPaper(paperID)
	}
	if err != nil {
		o.log.Error(err, "failed to load paper", "paper_id", paperID)
		return nil, nil, errLookupFailed(err)
	}

	if paper.Status == model.PaperStatusAssigned {
		return nil, nil, errAlreadyAssigned(paperID)
	}
	existing, err := o.assignments.ListByPaper(ctx, paperID)
	if err != nil {
		o.log.Error(err, "failed to list paper assignments", "paper_id", paperID)
		return nil, nil, errLookupFailed(err)
	}
	if len(existing) > 0 {
		return nil, nil, errAlreadyAssigned(paperID)
	}

	pool, err := o.reviewers.ListEligible(ctx, paperID)
	if err != nil {
		o.log.Error(err, "failed to list eligible reviewers", "paper_id", paperID)
		return nil, nil, errLookupFailed(err)
	}
	if len(pool) < ReviewersRequired {
		return nil, nil, errInsufficientEligible(len(pool))
	}

	normalized := NormalizeReviewerIDs(reviewerIDs)
	unique := distinct(normalized)
	if len(unique) != ReviewersRequired {
		return nil, nil, errInvalidCount(len(unique))
	}
	if len(normalized) != len(unique) {
		return nil, nil, errDuplicateReviewers()
	}

	eligible := make(map[string]*model.Reviewer, len(pool))
	for _, r := range pool {
		eligible[r.ID] = r
	}
	selected := make([]*model.Reviewer, 0, len(unique))
	for _, id := range unique {
		r, ok := eligible[id]
		if !ok {
			return nil, nil, errIneligibleReviewer(id)
		}
		selected = append(selected, r)
	}
	for _, r := range selected {
		if !r.HasCapacity() {
			return nil, nil, errWorkloadExceeded(r.ID)
		}
	}
	return paper, selected, nil
}

// commitError maps races detected inside the transaction back to the
// validation codes.
func (o *Orchestrator) commitError(paperID string, reviewerIDs []string, err error) error {
	var constraint *repository.ReviewerConstraintError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return errInvalidPaper(paperID)
	case errors.Is(err, repository.ErrAlreadyAssigned):
		return errAlreadyAssigned(paperID)
	case errors.As(err, &constraint):
		if constraint.Constraint == repository.ConstraintWorkload {
			return errWorkloadExceeded(constraint.ReviewerID)
		}
		return errIneligibleReviewer(constraint.ReviewerID)
	}

	o.log.Error(err, "failed to save assignment",
		"paper_id", paperID,
		"reviewer_ids", reviewerIDs,
	)
	return errSaveFailed(err)
}

// fanOut creates one invitation per assignment and notifies each reviewer.
// Nothing here fails the assignment.
func (o *Orchestrator) fanOut(ctx context.Context, paper *model.Paper, reviewers []*model.Reviewer, assignments []*model.Assignment, now time.Time, result *AssignResult) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error(fmt.Errorf("panic: %v", r), "invitation fan-out aborted", "paper_id", paper.ID)
			result.InvitationFailures = append(result.InvitationFailures, notification.Failure{Reason: ReasonFanOutAborted})
		}
		if len(result.InvitationFailures) > 0 {
			result.WarningCode = WarningInvitationDeliveryFailed
			result.WarningMessage = warningMessage
		}
	}()

	for _, a := range assignments {
		inv := model.NewReviewInvitation(uuid.NewString(), a, now)
		if err := o.invitations.Create(ctx, inv); err != nil {
			o.log.Error(err, "failed to create invitation",
				"paper_id", a.PaperID,
				"reviewer_id", a.ReviewerID,
				"assignment_id", a.ID,
			)
			result.InvitationFailures = append(result.InvitationFailures, notification.Failure{
				ReviewerID: a.ReviewerID,
				Reason:     ReasonInvitationCreateFailed,
			})
			continue
		}
		result.Invitations = append(result.Invitations, inv)
	}

	if len(result.Invitations) == 0 {
		return
	}
	batch := o.notifier.SendReviewerInvitations(ctx, paper, reviewers, result.Invitations)
	result.InvitationFailures = append(result.InvitationFailures, batch.Failures...)
	if batch.Status == notification.BatchStatusPartialFailure {
		o.log.Warn("some invitations were not delivered",
			"paper_id", paper.ID,
			"failures", len(batch.Failures),
		)
	}
}
