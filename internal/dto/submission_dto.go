package dto

import (
	"time"

	"github.com/noah-isme/proposal-review-api/internal/models"
	"github.com/noah-isme/proposal-review-api/internal/similarity"
)

// Lifecycle states reported to clients.
const (
	SubmissionStatusOpen   = "open"
	SubmissionStatusClosed = "closed"
)

// SubmissionCreateRequest is the payload a student sends to create a proposal.
type SubmissionCreateRequest struct {
	ProposalType     string `json:"proposal_type" validate:"required,oneof=Seminar Project Dissertation Thesis"`
	ProposedTitle    string `json:"proposed_title" validate:"required,min=3,max=500"`
	Background       string `json:"background" validate:"max=20000"`
	Aim              string `json:"aim" validate:"max=5000"`
	Objectives       string `json:"objectives" validate:"max=10000"`
	Methods          string `json:"methods" validate:"max=20000"`
	ExpectedResults  string `json:"expected_results" validate:"max=10000"`
	LiteratureReview string `json:"literature_review" validate:"max=40000"`
}

// SubmissionUpdateRequest overwrites the content of an open proposal. The type cannot change.
type SubmissionUpdateRequest struct {
	ProposedTitle    string `json:"proposed_title" validate:"required,min=3,max=500"`
	Background       string `json:"background" validate:"max=20000"`
	Aim              string `json:"aim" validate:"max=5000"`
	Objectives       string `json:"objectives" validate:"max=10000"`
	Methods          string `json:"methods" validate:"max=20000"`
	ExpectedResults  string `json:"expected_results" validate:"max=10000"`
	LiteratureReview string `json:"literature_review" validate:"max=40000"`
}

// DecisionRequest carries an advisory or binding decision.
type DecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected"`
}

// SubmissionListRequest filters submission listings. Scope is applied by role before filters.
type SubmissionListRequest struct {
	Page          int
	PageSize      int
	ProposalType  string `validate:"omitempty,oneof=Seminar Project Dissertation Thesis"`
	FinalDecision string `validate:"omitempty,oneof=pending approved rejected"`
	StudentID     uint
	SupervisorID  uint
}

// SectionView is one rendered proposal section with its similarity highlight.
type SectionView struct {
	Field     string          `json:"field"`
	Label     string          `json:"label"`
	Text      string          `json:"text"`
	Highlight similarity.Mask `json:"highlight"`
}

// DecisionView is an entry of the decision history.
type DecisionView struct {
	Stage     string    `json:"stage"`
	Decision  string    `json:"decision"`
	DecidedBy uint      `json:"decided_by"`
	DecidedAt time.Time `json:"decided_at"`
}

// SubmissionView is the single representation of a proposal shared by every role.
type SubmissionView struct {
	ID                 uint            `json:"id"`
	Student            UserSummary     `json:"student"`
	SupervisorSnapshot *UserSummary    `json:"supervisor_snapshot"`
	CurrentSupervisor  *UserSummary    `json:"current_supervisor"`
	ProposalType       string          `json:"proposal_type"`
	Tier               similarity.Tier `json:"tier"`
	ProposedTitle      string          `json:"proposed_title"`
	Sections           []SectionView   `json:"sections"`
	SimilarityScore    *float64        `json:"similarity_score"`
	SimilarityBand     similarity.Band `json:"similarity_band"`
	SimilarityMode     string          `json:"similarity_mode,omitempty"`
	LecturerDecision   *string         `json:"lecturer_decision"`
	LecturerDecisionAt *time.Time      `json:"lecturer_decision_at,omitempty"`
	FinalDecision      string          `json:"final_decision"`
	Status             string          `json:"status"`
	FinalizedAt        *time.Time      `json:"finalized_at,omitempty"`
	ArchiveURL         string          `json:"archive_url,omitempty"`
	History            []DecisionView  `json:"history"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// SubmissionListResponse wraps a paginated list of submissions.
type SubmissionListResponse struct {
	Items      []SubmissionView `json:"items"`
	Pagination PaginationMeta   `json:"pagination"`
}

// ContentOf extracts the similarity content of a submission.
func ContentOf(submission models.Submission) similarity.Content {
	return similarity.Content{
		Title:            submission.ProposedTitle,
		Background:       submission.Background,
		Aim:              submission.Aim,
		Objectives:       submission.Objectives,
		Methods:          submission.Methods,
		ExpectedResults:  submission.ExpectedResults,
		LiteratureReview: submission.LiteratureReview,
	}
}

// NewSubmissionView applies the banding and highlight rules to a submission.
// current is the supervisor resolved from the assignment registry, or nil when unassigned.
func NewSubmissionView(submission models.Submission, current *models.User) SubmissionView {
	tier, _ := similarity.TierOf(submission.ProposalType)
	content := ContentOf(submission)

	sections := make([]SectionView, 0, len(similarity.BodyFields))
	for _, field := range similarity.BodyFields {
		text := content.Value(field)
		sections = append(sections, SectionView{
			Field:     string(field),
			Label:     field.Label(),
			Text:      text,
			Highlight: similarity.HighlightMask(text, submission.SimilarityScore),
		})
	}

	status := SubmissionStatusClosed
	finalDecision := submission.FinalDecision
	if submission.IsOpen() {
		status = SubmissionStatusOpen
		finalDecision = models.DecisionPending
	}

	history := make([]DecisionView, 0, len(submission.History))
	for _, entry := range submission.History {
		history = append(history, DecisionView{
			Stage:     entry.Stage,
			Decision:  entry.Decision,
			DecidedBy: entry.DecidedBy,
			DecidedAt: entry.DecidedAt,
		})
	}

	return SubmissionView{
		ID:                 submission.ID,
		Student:            NewUserSummary(submission.Student),
		SupervisorSnapshot: NewUserSummaryPtr(submission.Supervisor),
		CurrentSupervisor:  NewUserSummaryPtr(current),
		ProposalType:       submission.ProposalType,
		Tier:               tier,
		ProposedTitle:      submission.ProposedTitle,
		Sections:           sections,
		SimilarityScore:    submission.SimilarityScore,
		SimilarityBand:     similarity.BandOf(submission.SimilarityScore),
		SimilarityMode:     submission.SimilarityMode,
		LecturerDecision:   submission.LecturerDecision,
		LecturerDecisionAt: submission.LecturerDecisionAt,
		FinalDecision:      finalDecision,
		Status:             status,
		FinalizedAt:        submission.FinalizedAt,
		ArchiveURL:         submission.ArchiveURL,
		History:            history,
		CreatedAt:          submission.CreatedAt,
		UpdatedAt:          submission.UpdatedAt,
	}
}

// AutoDecideRequest configures a bulk finalisation run. A nil threshold uses the configured default.
type AutoDecideRequest struct {
	Threshold *float64 `json:"threshold" validate:"omitempty,gte=0,lte=100"`
}

// AutoDecideResponse summarises a bulk finalisation run.
type AutoDecideResponse struct {
	Threshold float64 `json:"threshold"`
	Approved  int     `json:"approved"`
	Rejected  int     `json:"rejected"`
	Skipped   int     `json:"skipped"`
}
