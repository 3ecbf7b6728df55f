package model

type PaperStatus string

const (
	PaperStatusSubmitted PaperStatus = "submitted"
	PaperStatusAssigned  PaperStatus = "assigned"
	PaperStatusWithdrawn PaperStatus = "withdrawn"
	PaperStatusDecided   PaperStatus = "decided"
)

// Paper is owned by the submission subsystem. The review engine only reads it
// and expects the status to move to assigned when a reviewer set is committed.
type Paper struct {
	ID       string      `json:"id" db:"id"`
	Title    string      `json:"title" db:"title"`
	Abstract string      `json:"abstract" db:"abstract"`
	Status   PaperStatus `json:"status" db:"status"`
}

// UnknownPaperTitle is shown when an invitation references a paper that can
// no longer be resolved.
const UnknownPaperTitle = "Unknown paper"
