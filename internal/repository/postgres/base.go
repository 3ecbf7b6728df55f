package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/oklog/ulid/v2"

	"github.com/jwalitptl/conference-api/internal/model"
)

const uniqueViolation = "23505"

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	db *sqlx.DB
}

// NewBaseRepository creates a new base repository
func NewBaseRepository(db *sqlx.DB) BaseRepository {
	return BaseRepository{db: db}
}

// GetDB returns the database instance
func (r *BaseRepository) GetDB() *sqlx.DB {
	return r.db
}

// WithTx executes a function within a transaction
func (r *BaseRepository) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

// insertOutboxEvent records an event in the same transaction as the state
// change it describes, stamped with the time of that change.
func insertOutboxEvent(ctx context.Context, tx *sqlx.Tx, at time.Time, eventType, aggregateID string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	query := `
		INSERT INTO outbox_events (id, event_type, aggregate_id, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6)
	`
	_, err = tx.ExecContext(ctx, query,
		ulid.Make().String(),
		eventType,
		aggregateID,
		body,
		model.OutboxStatusPending,
		at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
