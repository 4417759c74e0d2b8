package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/proposal-review-api/internal/models"
	"github.com/noah-isme/proposal-review-api/internal/similarity"
)

// SimilarityPolicyRepository reads and writes the singleton policy row.
type SimilarityPolicyRepository interface {
	Get(ctx context.Context) (models.SimilarityPolicy, error)
	Update(ctx context.Context, policy *models.SimilarityPolicy, expectedVersion int) error
}

type similarityPolicyRepository struct {
	db *gorm.DB
}

// NewSimilarityPolicyRepository constructs the policy repository.
func NewSimilarityPolicyRepository(db *gorm.DB) SimilarityPolicyRepository {
	return &similarityPolicyRepository{db: db}
}

// Get loads the policy row, creating it with defaults on first use.
func (r *similarityPolicyRepository) Get(ctx context.Context) (models.SimilarityPolicy, error) {
	defaults := similarity.DefaultSettings()

	var policy models.SimilarityPolicy
	err := r.db.WithContext(ctx).
		Where(models.SimilarityPolicy{ID: models.SimilarityPolicyID}).
		Attrs(models.SimilarityPolicy{
			UndergradMode:            string(defaults.UndergradMode),
			PostgradMode:             string(defaults.PostgradMode),
			AllowMultipleSubmissions: defaults.AllowMultipleSubmissions,
			Version:                  1,
		}).
		FirstOrCreate(&policy).Error
	if err != nil {
		return models.SimilarityPolicy{}, err
	}
	return policy, nil
}

// Update writes the policy when its version still equals expectedVersion and bumps the version.
func (r *similarityPolicyRepository) Update(ctx context.Context, policy *models.SimilarityPolicy, expectedVersion int) error {
	result := r.db.WithContext(ctx).
		Model(&models.SimilarityPolicy{}).
		Where("id = ? AND version = ?", models.SimilarityPolicyID, expectedVersion).
		Updates(map[string]interface{}{
			"undergrad_mode":             policy.UndergradMode,
			"postgrad_mode":              policy.PostgradMode,
			"allow_multiple_submissions": policy.AllowMultipleSubmissions,
			"updated_by":                 policy.UpdatedBy,
			"version":                    expectedVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrOptimisticLock
	}

	return r.db.WithContext(ctx).First(policy, models.SimilarityPolicyID).Error
}
