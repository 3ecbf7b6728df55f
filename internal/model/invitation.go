package model

import (
	"fmt"
	"strings"
	"time"
)

// InvitationResponseWindow is how long a reviewer has to answer an invitation.
const InvitationResponseWindow = 14 * 24 * time.Hour

type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusRejected InvitationStatus = "rejected"
	InvitationStatusDeclined InvitationStatus = "declined"
)

// ParseInvitationStatus converts raw input into a status. Unknown values are
// rejected rather than defaulted.
func ParseInvitationStatus(s string) (InvitationStatus, error) {
	switch st := InvitationStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case InvitationStatusPending, InvitationStatusAccepted, InvitationStatusRejected, InvitationStatusDeclined:
		return st, nil
	default:
		return "", fmt.Errorf("unknown invitation status %q", s)
	}
}

// IsTerminal reports whether no further transition is possible.
func (s InvitationStatus) IsTerminal() bool {
	return s != InvitationStatusPending
}

// ReviewInvitation tracks one reviewer's response to one assignment.
type ReviewInvitation struct {
	ID            string           `json:"id" db:"id"`
	ReviewerID    string           `json:"reviewer_id" db:"reviewer_id"`
	PaperID       string           `json:"paper_id" db:"paper_id"`
	AssignmentID  string           `json:"assignment_id" db:"assignment_id"`
	Status        InvitationStatus `json:"status" db:"status"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
	ResponseDueAt *time.Time       `json:"response_due_at" db:"response_due_at"`
	RespondedAt   *time.Time       `json:"responded_at" db:"responded_at"`
}

// NewReviewInvitation builds a pending invitation for an assignment created at now.
func NewReviewInvitation(id string, a *Assignment, now time.Time) *ReviewInvitation {
	return &ReviewInvitation{
		ID:            id,
		ReviewerID:    a.ReviewerID,
		PaperID:       a.PaperID,
		AssignmentID:  a.ID,
		Status:        InvitationStatusPending,
		CreatedAt:     now,
		ResponseDueAt: TimePtr(now.Add(InvitationResponseWindow)),
	}
}

// IsOverdue reports whether a pending invitation passed its due date at now.
// Invitations without a due date never expire.
func (i *ReviewInvitation) IsOverdue(now time.Time) bool {
	if i.Status != InvitationStatusPending || i.ResponseDueAt == nil || i.ResponseDueAt.IsZero() {
		return false
	}
	return i.ResponseDueAt.Before(now)
}

// InvitationStatusUpdate moves an invitation out of pending.
type InvitationStatusUpdate struct {
	Status      InvitationStatus
	RespondedAt time.Time
}

// InvitationSummary is a list item enriched with the paper title.
type InvitationSummary struct {
	ID            string           `json:"id"`
	PaperID       string           `json:"paperId"`
	PaperTitle    string           `json:"paperTitle"`
	Status        InvitationStatus `json:"status"`
	CreatedAt     time.Time        `json:"createdAt"`
	ResponseDueAt *time.Time       `json:"responseDueAt"`
	RespondedAt   *time.Time       `json:"respondedAt"`
}

// InvitationDetail carries the abstract only once the invitation is accepted.
type InvitationDetail struct {
	InvitationSummary
	Abstract string `json:"abstract,omitempty"`
}

// InvitationPage is one page of a reviewer's invitations.
type InvitationPage struct {
	Items      []*InvitationSummary `json:"items"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"pageSize"`
	TotalItems int                  `json:"totalItems"`
	TotalPages int                  `json:"totalPages"`
}
