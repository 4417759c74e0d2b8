package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/proposal-review-api/internal/models"
)

// SubmissionFilter narrows submission listings.
type SubmissionFilter struct {
	Page          int
	PageSize      int
	StudentIDs    []uint
	ScopeStudents bool
	StudentID     *uint
	SupervisorID  *uint
	ProposalType  string
	FinalDecision string
}

// ContentUpdate carries the columns an owner may overwrite while a submission is open.
type ContentUpdate struct {
	ProposedTitle    string
	Background       string
	Aim              string
	Objectives       string
	Methods          string
	ExpectedResults  string
	LiteratureReview string
	SimilarityScore  *float64
	SimilarityMode   string
}

// SubmissionRepository persists proposals and guards their state transitions.
type SubmissionRepository interface {
	CreateWithQuota(ctx context.Context, submission *models.Submission, quotaTypes []string) error
	CountOpen(ctx context.Context, studentID uint, proposalTypes []string) (int64, error)
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, int64, error)
	ListCorpus(ctx context.Context, proposalType string, excludeID uint) ([]models.Submission, error)
	ListOpenWithoutLecturerDecision(ctx context.Context) ([]models.Submission, error)
	UpdateContent(ctx context.Context, id, studentID uint, update ContentUpdate) error
	SetLecturerDecision(ctx context.Context, id, lecturerID uint, decision string, at time.Time) error
	Finalize(ctx context.Context, id, adminID uint, decision string, at time.Time) error
	SetArchiveURL(ctx context.Context, id uint, url string) error
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository constructs the submission repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

// CreateWithQuota inserts the submission unless the student already owns an open
// submission of one of quotaTypes. An empty quotaTypes skips the check. The student's
// row is locked first so concurrent creates for one student serialize on the count.
func (r *submissionRepository) CreateWithQuota(ctx context.Context, submission *models.Submission, quotaTypes []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(quotaTypes) > 0 {
			var owner []models.User
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Select("id").
				Where("id = ?", submission.StudentID).
				Find(&owner).Error; err != nil {
				return err
			}

			open, err := countOpen(tx, submission.StudentID, quotaTypes)
			if err != nil {
				return err
			}
			if open > 0 {
				return ErrOpenSubmissionExists
			}
		}

		if submission.FinalDecision == "" {
			submission.FinalDecision = models.DecisionPending
		}
		return tx.Create(submission).Error
	})
}

// CountOpen counts the student's pending submissions of the given types.
func (r *submissionRepository) CountOpen(ctx context.Context, studentID uint, proposalTypes []string) (int64, error) {
	return countOpen(r.db.WithContext(ctx), studentID, proposalTypes)
}

func countOpen(db *gorm.DB, studentID uint, proposalTypes []string) (int64, error) {
	if len(proposalTypes) == 0 {
		return 0, nil
	}
	var open int64
	err := db.Model(&models.Submission{}).
		Where("student_id = ? AND final_decision = ? AND proposal_type IN ?", studentID, models.DecisionPending, proposalTypes).
		Count(&open).Error
	return open, err
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.preloaded(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{})

	if filter.ScopeStudents {
		if len(filter.StudentIDs) == 0 {
			return []models.Submission{}, 0, nil
		}
		query = query.Where("student_id IN ?", filter.StudentIDs)
	}
	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}
	if filter.SupervisorID != nil {
		query = query.Where("supervisor_id = ?", *filter.SupervisorID)
	}
	if filter.ProposalType != "" {
		query = query.Where("proposal_type = ?", filter.ProposalType)
	}
	if filter.FinalDecision != "" {
		query = query.Where("final_decision = ?", filter.FinalDecision)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var submissions []models.Submission
	if err := query.
		Scopes(paginate(filter.Page, filter.PageSize)).
		Preload("Student").
		Preload("Supervisor").
		Preload("History", orderHistory).
		Order("created_at DESC, id DESC").
		Find(&submissions).Error; err != nil {
		return nil, 0, err
	}

	return submissions, total, nil
}

// ListCorpus returns every other submission of the same type for similarity scoring.
func (r *submissionRepository) ListCorpus(ctx context.Context, proposalType string, excludeID uint) ([]models.Submission, error) {
	query := r.db.WithContext(ctx).Where("proposal_type = ?", proposalType)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var submissions []models.Submission
	if err := query.Order("id ASC").Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *submissionRepository) ListOpenWithoutLecturerDecision(ctx context.Context) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.db.WithContext(ctx).
		Preload("Student").
		Where("final_decision = ? AND lecturer_decision IS NULL", models.DecisionPending).
		Order("id ASC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

// UpdateContent overwrites the content of an open submission owned by studentID.
func (r *submissionRepository) UpdateContent(ctx context.Context, id, studentID uint, update ContentUpdate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Submission{}).
			Where("id = ? AND student_id = ? AND final_decision = ?", id, studentID, models.DecisionPending).
			Updates(map[string]interface{}{
				"proposed_title":    update.ProposedTitle,
				"background":        update.Background,
				"aim":               update.Aim,
				"objectives":        update.Objectives,
				"methods":           update.Methods,
				"expected_results":  update.ExpectedResults,
				"literature_review": update.LiteratureReview,
				"similarity_score":  update.SimilarityScore,
				"similarity_mode":   update.SimilarityMode,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return explainMiss(tx, id)
		}
		return nil
	})
}

// SetLecturerDecision records an advisory decision when the submission is open and
// lecturerID is the student's most recently assigned supervisor at write time.
func (r *submissionRepository) SetLecturerDecision(ctx context.Context, id, lecturerID uint, decision string, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Submission{}).
			Where("id = ? AND final_decision = ?", id, models.DecisionPending).
			Where(`? = (SELECT sa.supervisor_id FROM supervisor_assignments sa
				WHERE sa.student_id = submissions.student_id ORDER BY sa.id DESC LIMIT 1)`, lecturerID).
			Updates(map[string]interface{}{
				"lecturer_decision":    decision,
				"lecturer_decision_by": lecturerID,
				"lecturer_decision_at": at,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return explainMiss(tx, id)
		}

		return tx.Create(&models.SubmissionDecision{
			SubmissionID: id,
			Stage:        models.DecisionStageLecturer,
			Decision:     decision,
			DecidedBy:    lecturerID,
			DecidedAt:    at,
		}).Error
	})
}

// Finalize records the binding decision. Only one caller can move a submission out of pending.
func (r *submissionRepository) Finalize(ctx context.Context, id, adminID uint, decision string, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Submission{}).
			Where("id = ? AND final_decision = ?", id, models.DecisionPending).
			Updates(map[string]interface{}{
				"final_decision": decision,
				"finalized_by":   adminID,
				"finalized_at":   at,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return explainMiss(tx, id)
		}

		return tx.Create(&models.SubmissionDecision{
			SubmissionID: id,
			Stage:        models.DecisionStageFinal,
			Decision:     decision,
			DecidedBy:    adminID,
			DecidedAt:    at,
		}).Error
	})
}

func (r *submissionRepository) SetArchiveURL(ctx context.Context, id uint, url string) error {
	result := r.db.WithContext(ctx).Model(&models.Submission{}).Where("id = ?", id).Update("archive_url", url)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *submissionRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Student").
		Preload("Supervisor").
		Preload("History", orderHistory)
}

func orderHistory(tx *gorm.DB) *gorm.DB {
	return tx.Order("decided_at ASC, id ASC")
}

// explainMiss tells why a conditional update matched no rows.
func explainMiss(tx *gorm.DB, id uint) error {
	var submission models.Submission
	if err := tx.Select("id", "final_decision").First(&submission, id).Error; err != nil {
		return err
	}
	if !submission.IsOpen() {
		return ErrSubmissionNotOpen
	}
	return ErrSubmissionActorMismatch
}
