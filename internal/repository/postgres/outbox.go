package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jwalitptl/conference-api/internal/model"
	"github.com/jwalitptl/conference-api/internal/repository"
)

type outboxRepository struct {
	BaseRepository
}

func NewOutboxRepository(base BaseRepository) repository.OutboxRepository {
	return &outboxRepository{base}
}

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}
	if event.Payload == nil {
		return fmt.Errorf("event payload cannot be nil")
	}

	query := `
		INSERT INTO outbox_events (
			id, event_type, aggregate_id, payload, status, attempts, created_at
		) VALUES (
			$1, $2, $3, $4, $5, 0, $6
		)
	`
	event.ID = ulid.Make().String()
	event.CreatedAt = time.Now().UTC()
	event.Status = model.OutboxStatusPending

	_, err := r.GetDB().ExecContext(ctx, query,
		event.ID,
		event.EventType,
		event.AggregateID,
		event.Payload,
		event.Status,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

// GetPendingEvents returns pending events oldest first. Rows locked by another
// worker are skipped.
func (r *outboxRepository) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	query := `
		SELECT id, event_type, aggregate_id, payload, status, attempts, last_error, created_at, processed_at
		FROM outbox_events
		WHERE status = $1
		ORDER BY id ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`

	var events []*model.OutboxEvent
	if err := r.GetDB().SelectContext(ctx, &events, query, model.OutboxStatusPending, limit); err != nil {
		return nil, fmt.Errorf("failed to get pending events: %w", err)
	}
	return events, nil
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id string) error {
	query := `
		UPDATE outbox_events
		SET status = $1, processed_at = $2, attempts = attempts + 1, last_error = NULL
		WHERE id = $3
	`
	if _, err := r.GetDB().ExecContext(ctx, query, model.OutboxStatusProcessed, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}

// MarkFailed records a failed publish. Non-terminal failures stay pending so
// the next poll retries them.
func (r *outboxRepository) MarkFailed(ctx context.Context, id string, reason string, terminal bool) error {
	status := model.OutboxStatusPending
	if terminal {
		status = model.OutboxStatusFailed
	}
	query := `
		UPDATE outbox_events
		SET status = $1, last_error = $2, attempts = attempts + 1
		WHERE id = $3
	`
	if _, err := r.GetDB().ExecContext(ctx, query, status, reason, id); err != nil {
		return fmt.Errorf("failed to mark event failed: %w", err)
	}
	return nil
}
