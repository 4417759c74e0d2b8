package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/proposal-review-api/internal/models"
)

// Migrate creates or updates every table used by the review workflow.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.SupervisorAssignment{},
		&models.SimilarityPolicy{},
		&models.Submission{},
		&models.SubmissionDecision{},
		&models.ActivityLog{},
		&models.Notification{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}
