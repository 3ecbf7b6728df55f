package model

import "time"

// ReviewersPerPaper is the exact size of a paper's reviewer set.
const ReviewersPerPaper = 3

// Assignment binds one paper to one reviewer. Assignments are only ever
// created in complete sets of ReviewersPerPaper and never modified.
type Assignment struct {
	ID         string    `json:"id" db:"id"`
	PaperID    string    `json:"paperId" db:"paper_id"`
	ReviewerID string    `json:"reviewerId" db:"reviewer_id"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// AssignedPaper is the reviewer-facing view of a paper they were assigned.
type AssignedPaper struct {
	PaperID    string    `json:"paperId"`
	Title      string    `json:"title"`
	Abstract   string    `json:"abstract,omitempty"`
	AssignedAt time.Time `json:"assignedAt"`
}
