package models

import "time"

// SupervisorAssignment links a student to a lecturer. The primary key orders
// assignments, so the highest ID for a student is the current supervisor.
type SupervisorAssignment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	StudentID    uint      `gorm:"not null;uniqueIndex:idx_supervisor_assignment_pair" json:"student_id"`
	SupervisorID uint      `gorm:"not null;uniqueIndex:idx_supervisor_assignment_pair;index" json:"supervisor_id"`
	AssignedBy   uint      `gorm:"not null" json:"assigned_by"`
	CreatedAt    time.Time `json:"created_at"`
	Student      User      `gorm:"foreignKey:StudentID" json:"-"`
	Supervisor   User      `gorm:"foreignKey:SupervisorID" json:"-"`
}
