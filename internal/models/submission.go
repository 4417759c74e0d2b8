package models

import "time"

// Final decision values. Pending is the only open state.
const (
	DecisionPending  = "pending"
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// Decision stages recorded in the submission history.
const (
	DecisionStageLecturer = "lecturer"
	DecisionStageFinal    = "final"
)

// Submission is a research proposal and its review state.
type Submission struct {
	ID                 uint                 `gorm:"primaryKey" json:"id"`
	StudentID          uint                 `gorm:"not null;index" json:"student_id"`
	SupervisorID       *uint                `gorm:"index" json:"supervisor_id"`
	ProposalType       string               `gorm:"size:32;not null;index" json:"proposal_type"`
	ProposedTitle      string               `gorm:"size:500;not null" json:"proposed_title"`
	Background         string               `gorm:"type:text" json:"background"`
	Aim                string               `gorm:"type:text" json:"aim"`
	Objectives         string               `gorm:"type:text" json:"objectives"`
	Methods            string               `gorm:"type:text" json:"methods"`
	ExpectedResults    string               `gorm:"type:text" json:"expected_results"`
	LiteratureReview   string               `gorm:"type:text" json:"literature_review"`
	SimilarityScore    *float64             `json:"similarity_score"`
	SimilarityMode     string               `gorm:"size:16" json:"similarity_mode"`
	LecturerDecision   *string              `gorm:"size:16" json:"lecturer_decision"`
	LecturerDecisionBy *uint                `json:"lecturer_decision_by"`
	LecturerDecisionAt *time.Time           `json:"lecturer_decision_at"`
	FinalDecision      string               `gorm:"size:16;not null;default:pending;index" json:"final_decision"`
	FinalizedBy        *uint                `json:"finalized_by"`
	FinalizedAt        *time.Time           `json:"finalized_at"`
	ArchiveURL         string               `gorm:"size:512" json:"archive_url"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
	Student            User                 `gorm:"foreignKey:StudentID" json:"student"`
	Supervisor         *User                `gorm:"foreignKey:SupervisorID" json:"supervisor,omitempty"`
	History            []SubmissionDecision `gorm:"foreignKey:SubmissionID" json:"history,omitempty"`
}

// IsOpen reports whether the binding decision is still outstanding.
func (s Submission) IsOpen() bool {
	return s.FinalDecision == DecisionPending || s.FinalDecision == ""
}

// SubmissionDecision is an append-only record of an advisory or binding decision.
type SubmissionDecision struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	SubmissionID uint      `gorm:"not null;index" json:"submission_id"`
	Stage        string    `gorm:"size:16;not null" json:"stage"`
	Decision     string    `gorm:"size:16;not null" json:"decision"`
	DecidedBy    uint      `gorm:"not null" json:"decided_by"`
	DecidedAt    time.Time `gorm:"not null" json:"decided_at"`
}
