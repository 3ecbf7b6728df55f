package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jwalitptl/conference-api/internal/model"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyAssigned is returned when a paper already carries a reviewer set.
	ErrAlreadyAssigned = errors.New("paper already has an assignment set")
	// ErrInvitationNotPending is returned by a conditional status update when
	// the invitation left pending before the write.
	ErrInvitationNotPending = errors.New("invitation is no longer pending")
)

// ReviewerConstraint names which rule a reviewer failed at commit time.
type ReviewerConstraint string

const (
	ConstraintMissing    ReviewerConstraint = "missing"
	ConstraintIneligible ReviewerConstraint = "ineligible"
	ConstraintWorkload   ReviewerConstraint = "workload"
)

// ReviewerConstraintError reports a reviewer that stopped qualifying between
// selection and commit.
type ReviewerConstraintError struct {
	ReviewerID string
	Constraint ReviewerConstraint
}

func (e *ReviewerConstraintError) Error() string {
	return fmt.Sprintf("reviewer %s violates %s constraint", e.ReviewerID, e.Constraint)
}

// All repository interfaces in one file
type (
	PaperRepository interface {
		GetByID(ctx context.Context, id string) (*model.Paper, error)
	}

	ReviewerRepository interface {
		GetByID(ctx context.Context, id string) (*model.Reviewer, error)
		// ListEligible returns the reviewers that policy allows to review paperID.
		ListEligible(ctx context.Context, paperID string) ([]*model.Reviewer, error)
	}

	AssignmentRepository interface {
		ListByPaper(ctx context.Context, paperID string) ([]*model.Assignment, error)
		ListByReviewer(ctx context.Context, reviewerID string) ([]*model.Assignment, error)
		// CreateAssignments atomically writes the full reviewer set, increments
		// each reviewer's workload and marks the paper assigned. It returns
		// ErrNotFound for a missing paper, ErrAlreadyAssigned on a race and
		// *ReviewerConstraintError when a reviewer no longer qualifies. Every
		// assignment is stamped with now.
		CreateAssignments(ctx context.Context, paperID string, reviewerIDs []string, now time.Time) ([]*model.Assignment, error)
	}

	InvitationRepository interface {
		Create(ctx context.Context, inv *model.ReviewInvitation) error
		GetByID(ctx context.Context, id string) (*model.ReviewInvitation, error)
		ListByReviewer(ctx context.Context, reviewerID string) ([]*model.ReviewInvitation, error)
		// UpdateStatus applies the update only while the invitation is pending
		// and returns ErrInvitationNotPending otherwise.
		UpdateStatus(ctx context.Context, id string, update model.InvitationStatusUpdate) (*model.ReviewInvitation, error)
	}

	NotificationRepository interface {
		Create(ctx context.Context, record *model.NotificationRecord) error
		List(ctx context.Context) ([]*model.NotificationRecord, error)
		ListByInvitation(ctx context.Context, invitationID string) ([]*model.NotificationRecord, error)
	}

	AuditRepository interface {
		Create(ctx context.Context, log *model.AuditLog) error
		List(ctx context.Context, filters map[string]interface{}) ([]*model.AuditLog, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id string) error
		MarkFailed(ctx context.Context, id string, reason string, terminal bool) error
	}
)

// Repositories bundles one implementation of every gateway contract.
type Repositories struct {
	Papers        PaperRepository
	Reviewers     ReviewerRepository
	Assignments   AssignmentRepository
	Invitations   InvitationRepository
	Notifications NotificationRepository
	Audit         AuditRepository
	Outbox        OutboxRepository
}
