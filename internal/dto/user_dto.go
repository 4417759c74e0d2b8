package dto

import (
	"time"

	"github.com/noah-isme/proposal-review-api/internal/models"
)

// Account status values derived from the approval columns.
const (
	AccountStatusPending  = "pending"
	AccountStatusApproved = "approved"
	AccountStatusRejected = "rejected"
)

// SignupRequest registers a student or lecturer account awaiting approval.
type SignupRequest struct {
	Name      string `json:"name" validate:"required,min=2,max=255"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Role      string `json:"role" validate:"required,oneof=student lecturer"`
	RegNumber string `json:"reg_number" validate:"omitempty,max=32"`
}

// UserListRequest filters the administrator user directory.
type UserListRequest struct {
	Role   string `validate:"omitempty,oneof=student lecturer admin"`
	Status string `validate:"omitempty,oneof=pending approved rejected"`
}

// UserSummary is the compact user representation embedded in other payloads.
type UserSummary struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	RegNumber string `json:"reg_number,omitempty"`
}

// UserResponse is the administrator view of an account.
type UserResponse struct {
	UserSummary
	IsApproved  bool          `json:"is_approved"`
	Status      string        `json:"status"`
	Supervisors []UserSummary `json:"supervisors,omitempty"`
	ApprovedAt  *time.Time    `json:"approved_at,omitempty"`
	RejectedAt  *time.Time    `json:"rejected_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// NewUserSummary converts a user model into its summary form.
func NewUserSummary(user models.User) UserSummary {
	summary := UserSummary{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}
	if user.RegNumber != nil {
		summary.RegNumber = *user.RegNumber
	}
	return summary
}

// NewUserSummaryPtr returns nil for a nil user.
func NewUserSummaryPtr(user *models.User) *UserSummary {
	if user == nil || user.ID == 0 {
		return nil
	}
	summary := NewUserSummary(*user)
	return &summary
}

// NewUserSummarySlice converts users preserving order.
func NewUserSummarySlice(users []models.User) []UserSummary {
	out := make([]UserSummary, 0, len(users))
	for _, user := range users {
		out = append(out, NewUserSummary(user))
	}
	return out
}

// NewUserResponse converts a user model for administrator endpoints.
func NewUserResponse(user models.User, supervisors []models.User) UserResponse {
	response := UserResponse{
		UserSummary: NewUserSummary(user),
		IsApproved:  user.IsApproved,
		Status:      AccountStatus(user),
		ApprovedAt:  user.ApprovedAt,
		RejectedAt:  user.RejectedAt,
		CreatedAt:   user.CreatedAt,
	}
	if user.Role == models.RoleStudent {
		response.Supervisors = NewUserSummarySlice(supervisors)
	}
	return response
}

// AccountStatus names the approval state of an account.
func AccountStatus(user models.User) string {
	switch {
	case user.IsRejected():
		return AccountStatusRejected
	case user.IsApproved:
		return AccountStatusApproved
	default:
		return AccountStatusPending
	}
}
