package service

import (
	"strings"

	"github.com/noah-isme/proposal-review-api/internal/models"
)

// Actor is the authenticated caller of a workflow operation.
type Actor struct {
	ID   uint
	Role string
}

// Operation names an action guarded by Can.
type Operation string

const (
	OpCreateSubmission    Operation = "submission.create"
	OpEditSubmission      Operation = "submission.edit"
	OpViewSubmission      Operation = "submission.view"
	OpSetLecturerDecision Operation = "submission.lecturer_decision"
	OpFinalize            Operation = "submission.finalize"
	OpArchive             Operation = "submission.archive"
	OpExport              Operation = "submission.export"
	OpReviewAccounts      Operation = "account.review"
	OpAssignSupervisor    Operation = "assignment.create"
	OpManagePolicy        Operation = "policy.update"
	OpViewActivity        Operation = "activity.view"
)

// Relation describes how the actor relates to the record being acted on.
type Relation struct {
	Owner             bool
	Supervisor        bool
	CurrentSupervisor bool
}

// Can reports whether actor may perform op on a record with the given relation.
func Can(actor Actor, op Operation, rel Relation) bool {
	role := normalizeRole(actor.Role)
	switch op {
	case OpCreateSubmission:
		return role == models.RoleStudent
	case OpEditSubmission:
		return role == models.RoleStudent && rel.Owner
	case OpViewSubmission:
		switch role {
		case models.RoleAdmin:
			return true
		case models.RoleStudent:
			return rel.Owner
		case models.RoleLecturer:
			return rel.Supervisor
		}
		return false
	case OpSetLecturerDecision:
		return role == models.RoleLecturer && rel.CurrentSupervisor
	case OpFinalize, OpArchive, OpExport, OpReviewAccounts, OpAssignSupervisor, OpManagePolicy, OpViewActivity:
		return role == models.RoleAdmin
	default:
		return false
	}
}

func normalizeRole(role string) string {
	r := strings.ToLower(strings.TrimSpace(role))
	if r == "" {
		return "system"
	}
	return r
}
