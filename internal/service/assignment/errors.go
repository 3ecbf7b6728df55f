package assignment

import (
	"net/http"

	apperrors "github.com/jwalitptl/conference-api/pkg/errors"
)

const (
	CodeInvalidPaper              apperrors.ErrorCode = "invalid_paper"
	CodeAlreadyAssigned           apperrors.ErrorCode = "already_assigned"
	CodeInsufficientEligible      apperrors.ErrorCode = "insufficient_eligible_reviewers"
	CodeInvalidReviewerCount      apperrors.ErrorCode = "invalid_reviewer_count"
	CodeDuplicateReviewers        apperrors.ErrorCode = "duplicate_reviewers"
	CodeIneligibleReviewer        apperrors.ErrorCode = "ineligible_reviewer"
	CodeReviewerWorkloadExceeded  apperrors.ErrorCode = "reviewer_workload_exceeded"
	CodeAssignmentSaveFailed      apperrors.ErrorCode = "assignment_save_failed"
	CodeAssignmentLookupFailed    apperrors.ErrorCode = "assignment_lookup_failed"
	CodeAssignedPapersUnavailable apperrors.ErrorCode = "assigned_papers_unavailable"
	CodePaperNotFound             apperrors.ErrorCode = "paper_not_found"
)

// WarningInvitationDeliveryFailed marks a committed assignment whose
// invitations were not all created or delivered.
const WarningInvitationDeliveryFailed = "invitation_delivery_failed"

const warningMessage = "Reviewers were assigned, but some invitations could not be delivered."

func errInvalidPaper(paperID string) error {
	return apperrors.NotFound(CodeInvalidPaper, "Paper not found.").WithDetail("paperId", paperID)
}

func errAlreadyAssigned(paperID string) error {
	return apperrors.BadRequest(CodeAlreadyAssigned, "Paper already has reviewers assigned.").WithDetail("paperId", paperID)
}

func errInsufficientEligible(available int) error {
	return apperrors.New(CodeInsufficientEligible, http.StatusConflict, "Not enough eligible reviewers for this paper.").
		WithDetail("required", ReviewersRequired).
		WithDetail("available", available)
}

func errInvalidCount(provided int) error {
	return apperrors.BadRequest(CodeInvalidReviewerCount, "Exactly three reviewers must be selected.").
		WithDetail("required", ReviewersRequired).
		WithDetail("provided", provided)
}

func errDuplicateReviewers() error {
	return apperrors.BadRequest(CodeDuplicateReviewers, "Each reviewer can only be selected once.")
}

func errIneligibleReviewer(reviewerID string) error {
	return apperrors.BadRequest(CodeIneligibleReviewer, "Selected reviewer is not eligible for this paper.").
		WithDetail("reviewerId", reviewerID)
}

func errWorkloadExceeded(reviewerID string) error {
	return apperrors.BadRequest(CodeReviewerWorkloadExceeded, "Selected reviewer has reached the maximum workload.").
		WithDetail("reviewerId", reviewerID)
}

func errSaveFailed(err error) error {
	return apperrors.Internal(CodeAssignmentSaveFailed, "Assignment could not be saved. Please retry.", err)
}

func errLookupFailed(err error) error {
	return apperrors.Internal(CodeAssignmentLookupFailed, "Assignment could not be checked right now. Please retry.", err)
}
