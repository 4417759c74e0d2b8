package dto

// SeedAccount is a pre-approved account created by the seeding tools.
type SeedAccount struct {
	Name      string `json:"name" validate:"required,min=2,max=255"`
	Email     string `json:"email" validate:"required,email,max=255"`
	Role      string `json:"role" validate:"required,oneof=student lecturer admin"`
	RegNumber string `json:"reg_number" validate:"omitempty,max=32"`
}

// SeedAssignment links two seeded or existing accounts by email.
type SeedAssignment struct {
	StudentEmail    string `json:"student_email" validate:"required,email"`
	SupervisorEmail string `json:"supervisor_email" validate:"required,email"`
}

// SeedRequest describes a directory bootstrap.
type SeedRequest struct {
	Accounts    []SeedAccount    `json:"accounts" validate:"dive"`
	Assignments []SeedAssignment `json:"assignments" validate:"dive"`
}

// SeedResult reports what a bootstrap changed.
type SeedResult struct {
	AccountsCreated    int `json:"accounts_created"`
	AccountsSkipped    int `json:"accounts_skipped"`
	AssignmentsCreated int `json:"assignments_created"`
}
