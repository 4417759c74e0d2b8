package dto

import (
	"time"

	"github.com/noah-isme/proposal-review-api/internal/models"
)

// SimilarityPolicyResponse exposes the similarity settings.
type SimilarityPolicyResponse struct {
	UndergradMode            string    `json:"undergrad_mode"`
	PostgradMode             string    `json:"postgrad_mode"`
	AllowMultipleSubmissions bool      `json:"allow_multiple_submissions"`
	Version                  int       `json:"version"`
	UpdatedBy                *uint     `json:"updated_by,omitempty"`
	UpdatedAt                time.Time `json:"updated_at"`
}

// SimilarityPolicyUpdateRequest replaces the similarity settings.
// ExpectedVersion guards against overwriting a concurrent change when supplied.
type SimilarityPolicyUpdateRequest struct {
	UndergradMode            string `json:"undergrad_mode" validate:"required,oneof=title title_plus"`
	PostgradMode             string `json:"postgrad_mode" validate:"required,oneof=title title_plus"`
	AllowMultipleSubmissions *bool  `json:"allow_multiple_submissions"`
	ExpectedVersion          *int   `json:"expected_version" validate:"omitempty,min=1"`
}

// NewSimilarityPolicyResponse converts the policy row.
func NewSimilarityPolicyResponse(model models.SimilarityPolicy) SimilarityPolicyResponse {
	return SimilarityPolicyResponse{
		UndergradMode:            model.UndergradMode,
		PostgradMode:             model.PostgradMode,
		AllowMultipleSubmissions: model.AllowMultipleSubmissions,
		Version:                  model.Version,
		UpdatedBy:                model.UpdatedBy,
		UpdatedAt:                model.UpdatedAt,
	}
}
