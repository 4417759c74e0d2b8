package models

import "time"

// Account roles recognised by the review workflow.
const (
	RoleStudent  = "student"
	RoleLecturer = "lecturer"
	RoleAdmin    = "admin"
)

// User is a directory entry for any account that can act on proposals.
// RegNumber holds the registration number for students and the staff number for lecturers.
type User struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Name       string     `gorm:"size:255;not null" json:"name"`
	Email      string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Role       string     `gorm:"size:32;index;not null" json:"role"`
	RegNumber  *string    `gorm:"size:32;uniqueIndex" json:"reg_number"`
	IsApproved bool       `gorm:"not null;default:false" json:"is_approved"`
	ApprovedAt *time.Time `json:"approved_at"`
	ApprovedBy *uint      `json:"approved_by"`
	RejectedAt *time.Time `json:"rejected_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// IsRejected reports whether an administrator declined the account.
func (u User) IsRejected() bool {
	return u.RejectedAt != nil
}

// IsPending reports whether the account still awaits an approval decision.
func (u User) IsPending() bool {
	return !u.IsApproved && u.RejectedAt == nil
}
