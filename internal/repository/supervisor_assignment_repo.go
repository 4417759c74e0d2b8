package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/proposal-review-api/internal/models"
)

// SupervisorAssignmentRepository stores the student to lecturer relation.
type SupervisorAssignmentRepository interface {
	Assign(ctx context.Context, assignment *models.SupervisorAssignment) (bool, error)
	ListSupervisors(ctx context.Context, studentID uint) ([]models.User, error)
	ListSupervisorsByStudent(ctx context.Context, studentIDs []uint) (map[uint][]models.User, error)
	ListSupervisees(ctx context.Context, supervisorID uint) ([]models.User, error)
	CurrentSupervisor(ctx context.Context, studentID uint) (*models.User, error)
}

type supervisorAssignmentRepository struct {
	db *gorm.DB
}

// NewSupervisorAssignmentRepository constructs the assignment repository.
func NewSupervisorAssignmentRepository(db *gorm.DB) SupervisorAssignmentRepository {
	return &supervisorAssignmentRepository{db: db}
}

// Assign inserts the pair unless it already exists and reports whether a row was written.
func (r *supervisorAssignmentRepository) Assign(ctx context.Context, assignment *models.SupervisorAssignment) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "supervisor_id"}},
			DoNothing: true,
		}).
		Create(assignment)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *supervisorAssignmentRepository) ListSupervisors(ctx context.Context, studentID uint) ([]models.User, error) {
	grouped, err := r.ListSupervisorsByStudent(ctx, []uint{studentID})
	if err != nil {
		return nil, err
	}
	supervisors := grouped[studentID]
	if supervisors == nil {
		supervisors = []models.User{}
	}
	return supervisors, nil
}

// ListSupervisorsByStudent returns every student's supervisors in assignment order.
func (r *supervisorAssignmentRepository) ListSupervisorsByStudent(ctx context.Context, studentIDs []uint) (map[uint][]models.User, error) {
	result := make(map[uint][]models.User, len(studentIDs))
	if len(studentIDs) == 0 {
		return result, nil
	}

	var assignments []models.SupervisorAssignment
	if err := r.db.WithContext(ctx).
		Preload("Supervisor").
		Where("student_id IN ?", studentIDs).
		Order("id ASC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}

	for _, assignment := range assignments {
		result[assignment.StudentID] = append(result[assignment.StudentID], assignment.Supervisor)
	}
	return result, nil
}

func (r *supervisorAssignmentRepository) ListSupervisees(ctx context.Context, supervisorID uint) ([]models.User, error) {
	var assignments []models.SupervisorAssignment
	if err := r.db.WithContext(ctx).
		Preload("Student").
		Where("supervisor_id = ?", supervisorID).
		Order("id ASC").
		Find(&assignments).Error; err != nil {
		return nil, err
	}

	students := make([]models.User, 0, len(assignments))
	for _, assignment := range assignments {
		students = append(students, assignment.Student)
	}
	return students, nil
}

// CurrentSupervisor returns the most recently assigned supervisor, or nil when unassigned.
func (r *supervisorAssignmentRepository) CurrentSupervisor(ctx context.Context, studentID uint) (*models.User, error) {
	var assignments []models.SupervisorAssignment
	if err := r.db.WithContext(ctx).
		Preload("Supervisor").
		Where("student_id = ?", studentID).
		Order("id DESC").
		Limit(1).
		Find(&assignments).Error; err != nil {
		return nil, err
	}
	if len(assignments) == 0 {
		return nil, nil
	}
	supervisor := assignments[0].Supervisor
	return &supervisor, nil
}
