package model

// MaxReviewerWorkload is the number of active assignments at which a reviewer
// stops accepting new ones.
const MaxReviewerWorkload = 5

type Reviewer struct {
	ID                     string `json:"id" db:"id"`
	Name                   string `json:"name" db:"name"`
	Email                  string `json:"email" db:"email"`
	Eligible               bool   `json:"eligible" db:"eligible"`
	CurrentAssignmentCount int    `json:"current_assignment_count" db:"current_assignment_count"`
}

// HasCapacity reports whether the reviewer can take one more assignment.
func (r *Reviewer) HasCapacity() bool {
	return r.CurrentAssignmentCount < MaxReviewerWorkload
}
