package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/proposal-review-api/internal/models"
)

// UserFilter narrows user directory queries.
type UserFilter struct {
	Role   string
	Status string
}

// UserRepository persists directory entries and their approval state.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (models.User, error)
	GetByIDAndRole(ctx context.Context, id uint, role string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	RegNumberExists(ctx context.Context, regNumber string) (bool, error)
	List(ctx context.Context, filter UserFilter) ([]models.User, error)
	Approve(ctx context.Context, id, approvedBy uint, at time.Time) (models.User, error)
	Reject(ctx context.Context, id uint, at time.Time) (models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a GORM backed user repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) GetByIDAndRole(ctx context.Context, id uint, role string) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ? AND role = ?", id, role).First(&user).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("LOWER(email) = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (r *userRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("LOWER(email) = ?", strings.ToLower(email)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userRepository) RegNumberExists(ctx context.Context, regNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("reg_number = ?", regNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]models.User, error) {
	query := r.db.WithContext(ctx).Model(&models.User{})

	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}

	switch filter.Status {
	case "pending":
		query = query.Where("is_approved = ? AND rejected_at IS NULL", false)
	case "approved":
		query = query.Where("is_approved = ?", true)
	case "rejected":
		query = query.Where("rejected_at IS NOT NULL")
	}

	var users []models.User
	if err := query.Order("created_at ASC, id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) Approve(ctx context.Context, id, approvedBy uint, at time.Time) (models.User, error) {
	return r.decide(ctx, id, map[string]interface{}{
		"is_approved": true,
		"approved_at": at,
		"approved_by": approvedBy,
	})
}

func (r *userRepository) Reject(ctx context.Context, id uint, at time.Time) (models.User, error) {
	return r.decide(ctx, id, map[string]interface{}{
		"rejected_at": at,
	})
}

// decide applies an approval decision only while the account is still pending.
func (r *userRepository) decide(ctx context.Context, id uint, updates map[string]interface{}) (models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.User{}).
			Where("id = ? AND is_approved = ? AND rejected_at IS NULL", id, false).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}

		if err := tx.First(&user, id).Error; err != nil {
			return err
		}
		if result.RowsAffected == 0 {
			return ErrAccountNotPending
		}
		return nil
	})
	if err != nil {
		return models.User{}, err
	}
	return user, nil
}
