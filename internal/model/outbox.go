package model

import (
	"encoding/json"
	"time"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "PENDING"
	OutboxStatusProcessed OutboxStatus = "PROCESSED"
	OutboxStatusFailed    OutboxStatus = "FAILED"
)

const (
	EventAssignmentCreated       = "assignment.created"
	EventInvitationStatusChanged = "invitation.status_changed"
)

type OutboxEvent struct {
	ID          string          `db:"id" json:"id"`
	EventType   string          `db:"event_type" json:"event_type"`
	AggregateID string          `db:"aggregate_id" json:"aggregate_id"`
	Payload     json.RawMessage `db:"payload" json:"payload"`
	Status      OutboxStatus    `db:"status" json:"status"`
	Attempts    int             `db:"attempts" json:"attempts"`
	LastError   *string         `db:"last_error" json:"last_error,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
}
