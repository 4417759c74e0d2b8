package repository

import "errors"

var (
	// ErrOptimisticLock indicates the row changed since it was read.
	ErrOptimisticLock = errors.New("record was modified concurrently")
	// ErrSubmissionNotOpen indicates a conditional update hit a finalised submission.
	ErrSubmissionNotOpen = errors.New("submission is not open")
	// ErrSubmissionActorMismatch indicates the acting user is not the owner or current supervisor.
	ErrSubmissionActorMismatch = errors.New("submission does not belong to actor")
	// ErrOpenSubmissionExists indicates the resubmission quota blocked an insert.
	ErrOpenSubmissionExists = errors.New("open submission already exists")
	// ErrAccountNotPending indicates an approval decision was already taken.
	ErrAccountNotPending = errors.New("account is not pending approval")
)
