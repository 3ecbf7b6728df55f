package model

import (
	"time"
)

type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

const NotificationChannelEmail = "email"

// NotificationRecord is the append-only audit trail of delivery attempts.
// One record is written per attempt; retries append new records.
type NotificationRecord struct {
	ID             string             `json:"id" db:"id"`
	InvitationID   string             `json:"invitation_id" db:"invitation_id"`
	ReviewerID     string             `json:"reviewer_id" db:"reviewer_id"`
	Channel        string             `json:"channel" db:"channel"`
	Recipient      string             `json:"recipient" db:"recipient"`
	DeliveryStatus NotificationStatus `json:"delivery_status" db:"delivery_status"`
	Attempt        int                `json:"attempt" db:"attempt"`
	SentAt         *time.Time         `json:"sent_at,omitempty" db:"sent_at"`
	FailureReason  string             `json:"failure_reason,omitempty" db:"failure_reason"`
	CreatedAt      time.Time          `json:"created_at" db:"created_at"`
}
