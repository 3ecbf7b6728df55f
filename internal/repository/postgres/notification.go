package postgres

import (
	"context"
	"fmt"

	"github.com/jwalitptl/conference-api/internal/model"
	"github.com/jwalitptl/conference-api/internal/repository"
)

const notificationColumns = `id, invitation_id, reviewer_id, channel, recipient, delivery_status, attempt, sent_at, failure_reason, created_at`

type notificationRepository struct {
	BaseRepository
}

func NewNotificationRepository(base BaseRepository) repository.NotificationRepository {
	return &notificationRepository{base}
}

func (r *notificationRepository) Create(ctx context.Context, record *model.NotificationRecord) error {
	query := `
		INSERT INTO notification_records (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.GetDB().ExecContext(ctx, query,
		record.ID,
		record.InvitationID,
		record.ReviewerID,
		record.Channel,
		record.Recipient,
		record.DeliveryStatus,
		record.Attempt,
		record.SentAt,
		record.FailureReason,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification record: %w", err)
	}
	return nil
}

func (r *notificationRepository) List(ctx context.Context) ([]*model.NotificationRecord, error) {
	var records []*model.NotificationRecord
	query := `SELECT ` + notificationColumns + ` FROM notification_records ORDER BY created_at, attempt`
	if err := r.GetDB().SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("failed to list notification records: %w", err)
	}
	return records, nil
}

func (r *notificationRepository) ListByInvitation(ctx context.Context, invitationID string) ([]*model.NotificationRecord, error) {
	var records []*model.NotificationRecord
	query := `SELECT ` + notificationColumns + ` FROM notification_records WHERE invitation_id = $1 ORDER BY attempt`
	if err := r.GetDB().SelectContext(ctx, &records, query, invitationID); err != nil {
		return nil, fmt.Errorf("failed to list notification records: %w", err)
	}
	return records, nil
}
