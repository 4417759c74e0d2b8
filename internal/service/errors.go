package service

import "errors"

// Error kinds. Every error returned by the workflow unwraps to one of these.
var (
	ErrNotFound        = errors.New("not found")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidState    = errors.New("invalid state")
	ErrPolicyViolation = errors.New("policy violation")
	ErrValidation      = errors.New("validation failed")
	ErrConflict        = errors.New("conflict")
	ErrUnavailable     = errors.New("unavailable")
)

// domainError carries a user-facing message and the kind it belongs to.
type domainError struct {
	kind    error
	message string
}

func (e *domainError) Error() string {
	return e.message
}

func (e *domainError) Unwrap() error {
	return e.kind
}

func newError(kind error, message string) error {
	return &domainError{kind: kind, message: message}
}

var (
	ErrSubmissionNotFound   = newError(ErrNotFound, "submission not found")
	ErrUserNotFound         = newError(ErrNotFound, "user not found")
	ErrStudentNotFound      = newError(ErrNotFound, "student not found")
	ErrLecturerNotFound     = newError(ErrNotFound, "lecturer not found")
	ErrNotificationNotFound = newError(ErrNotFound, "notification not found")

	ErrRoleNotPermitted     = newError(ErrUnauthorized, "your role is not permitted to perform this action")
	ErrNotSubmissionOwner   = newError(ErrUnauthorized, "only the owning student can change this submission")
	ErrNotCurrentSupervisor = newError(ErrUnauthorized, "only the student's current supervisor can review this submission")
	ErrOutsideReviewScope   = newError(ErrUnauthorized, "submission is outside your review scope")
	ErrAccountNotApproved   = newError(ErrUnauthorized, "account is awaiting administrator approval")
	ErrAccountRejected      = newError(ErrUnauthorized, "account has been rejected")

	ErrSubmissionClosed      = newError(ErrInvalidState, "submission has already been finalized")
	ErrAccountAlreadyDecided = newError(ErrInvalidState, "account has already been approved or rejected")
	ErrArchiveRequiresClosed = newError(ErrInvalidState, "only finalized submissions can be archived")

	ErrOpenUndergradSubmission = newError(ErrPolicyViolation, "you already have an open Seminar or Project submission; multiple submissions are not allowed")

	ErrInvalidRegNumber      = newError(ErrValidation, "student registration number must be exactly 6 digits")
	ErrRegNumberTaken        = newError(ErrValidation, "registration number is already registered")
	ErrEmailTaken            = newError(ErrValidation, "email is already registered")
	ErrUnknownProposalType   = newError(ErrValidation, "proposal type must be one of Seminar, Project, Dissertation, Thesis")
	ErrInvalidDecision       = newError(ErrValidation, "decision must be approved or rejected")
	ErrInvalidSimilarityMode = newError(ErrValidation, "modes must be 'title' or 'title_plus'")
	ErrInvalidActivityRange  = newError(ErrValidation, "until must not be before since")

	ErrPolicyVersionConflict = newError(ErrConflict, "similarity policy was changed by someone else; reload and try again")

	ErrRendererUnavailable = newError(ErrUnavailable, "document rendering is not configured")
	ErrArchiveUnavailable  = newError(ErrUnavailable, "document archive storage is not configured")
)
