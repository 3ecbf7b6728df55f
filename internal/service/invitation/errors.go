package invitation

import (
	apperrors "github.com/jwalitptl/conference-api/pkg/errors"
)

const (
	CodeNotFound        apperrors.ErrorCode = "invitation_not_found"
	CodeConflict        apperrors.ErrorCode = "invitation_conflict"
	CodeListUnavailable apperrors.ErrorCode = "invitation_list_unavailable"
	CodeUnavailable     apperrors.ErrorCode = "invitation_unavailable"
	CodeUpdateFailed    apperrors.ErrorCode = "invitation_update_failed"
	CodeInvalidStatus   apperrors.ErrorCode = "invalid_status"
	CodeInvalidAction   apperrors.ErrorCode = "invalid_action"
)

// Sentinels are compared with errors.Is and must not be modified.
var (
	ErrNotFound  = apperrors.NotFound(CodeNotFound, "Invitation not found.")
	ErrForbidden = apperrors.Forbidden(apperrors.ErrForbidden, "You do not have access to this invitation.")
	ErrConflict  = apperrors.Conflict(CodeConflict, "Invitation was already processed.")
)

func listUnavailable(err error) error {
	return apperrors.Internal(CodeListUnavailable, "Invitations are unavailable right now. Please retry.", err)
}

func unavailable(err error) error {
	return apperrors.Internal(CodeUnavailable, "Invitation is unavailable right now. Please retry.", err)
}
