package models

import "time"

// SimilarityPolicyID is the primary key of the singleton policy row.
const SimilarityPolicyID uint = 1

// SimilarityPolicy stores the administrator-controlled similarity settings.
type SimilarityPolicy struct {
	ID                       uint      `gorm:"primaryKey" json:"id"`
	UndergradMode            string    `gorm:"size:16;not null;default:title" json:"undergrad_mode"`
	PostgradMode             string    `gorm:"size:16;not null;default:title_plus" json:"postgrad_mode"`
	AllowMultipleSubmissions bool      `gorm:"not null;default:false" json:"allow_multiple_submissions"`
	Version                  int       `gorm:"not null;default:1" json:"version"`
	UpdatedBy                *uint     `json:"updated_by"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}
