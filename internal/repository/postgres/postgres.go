package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/conference-api/internal/repository"
)

func NewRepositories(db *sqlx.DB) *repository.Repositories {
	base := NewBaseRepository(db)
	return &repository.Repositories{
		Papers:        NewPaperRepository(base),
		Reviewers:     NewReviewerRepository(base),
		Assignments:   NewAssignmentRepository(base),
		Invitations:   NewInvitationRepository(base),
		Notifications: NewNotificationRepository(base),
		Audit:         NewAuditRepository(base),
		Outbox:        NewOutboxRepository(base),
	}
}
