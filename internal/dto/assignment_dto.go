package dto

// AssignSupervisorRequest links a lecturer to a student.
type AssignSupervisorRequest struct {
	StudentID    uint `json:"student_id" validate:"required"`
	SupervisorID uint `json:"supervisor_id" validate:"required"`
}

// AssignmentResponse confirms an assignment call. Created is false when the pair already existed.
type AssignmentResponse struct {
	Student    UserSummary `json:"student"`
	Supervisor UserSummary `json:"supervisor"`
	Created    bool        `json:"created"`
	Message    string      `json:"message"`
}
