package model

import (
	"encoding/json"
	"time"
)

type AuditLog struct {
	ID         string          `json:"id" db:"id"`
	UserID     string          `json:"user_id" db:"user_id"`
	Action     string          `json:"action" db:"action"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   string          `json:"entity_id" db:"entity_id"`
	Metadata   json.RawMessage `json:"metadata" db:"metadata"`
	IPAddress  string          `json:"ip_address" db:"ip_address"`
	UserAgent  string          `json:"user_agent" db:"user_agent"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

const (
	// Action types
	AuditActionAccessDenied = "access_denied"
	AuditActionRespond      = "respond"
	AuditActionAssign       = "assign"

	// Entity types
	AuditEntityInvitation    = "review_invitation"
	AuditEntityAssignedPaper = "assigned_paper"
	AuditEntityPaper         = "paper"
)
