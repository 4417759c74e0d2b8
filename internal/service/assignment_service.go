package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/proposal-review-api/internal/dto"
	"github.com/noah-isme/proposal-review-api/internal/models"
	"github.com/noah-isme/proposal-review-api/internal/repository"
)

// AssignmentService maintains the supervisor relation between students and lecturers.
type AssignmentService interface {
	Assign(ctx context.Context, actor Actor, payload dto.AssignSupervisorRequest) (dto.AssignmentResponse, error)
	ListSupervisorsOf(ctx context.Context, actor Actor, studentID uint) ([]dto.UserSummary, error)
	ListSuperviseesOf(ctx context.Context, actor Actor, supervisorID uint) ([]dto.UserSummary, error)
	CurrentSupervisor(ctx context.Context, actor Actor, studentID uint) (*dto.UserSummary, error)
}

type assignmentService struct {
	users       repository.UserRepository
	assignments repository.SupervisorAssignmentRepository
	validator   *validator.Validate
	activity    ActivityRecorder
	logger      zerolog.Logger
}

// NewAssignmentService constructs the assignment registry service.
func NewAssignmentService(users repository.UserRepository, assignments repository.SupervisorAssignmentRepository, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) AssignmentService {
	return &assignmentService{
		users:       users,
		assignments: assignments,
		validator:   validate,
		activity:    activity,
		logger:      logger.With().Str("component", "assignment_service").Logger(),
	}
}

func (s *assignmentService) Assign(ctx context.Context, actor Actor, payload dto.AssignSupervisorRequest) (dto.AssignmentResponse, error) {
	if !Can(actor, OpAssignSupervisor, Relation{}) {
		return dto.AssignmentResponse{}, ErrRoleNotPermitted
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	student, err := s.users.GetByIDAndRole(ctx, payload.StudentID, models.RoleStudent)
	if err != nil {
		return dto.AssignmentResponse{}, notFoundAs(err, ErrStudentNotFound)
	}
	lecturer, err := s.users.GetByIDAndRole(ctx, payload.SupervisorID, models.RoleLecturer)
	if err != nil {
		return dto.AssignmentResponse{}, notFoundAs(err, ErrLecturerNotFound)
	}

	created, err := s.assignments.Assign(ctx, &models.SupervisorAssignment{
		StudentID:    student.ID,
		SupervisorID: lecturer.ID,
		AssignedBy:   actor.ID,
	})
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	message := fmt.Sprintf("%s assigned to %s", lecturer.Name, student.Name)
	if !created {
		message = fmt.Sprintf("%s is already assigned to %s", lecturer.Name, student.Name)
	} else {
		recordActivity(ctx, s.activity, s.logger, ActivityEntry{
			Actor:      actor,
			Action:     ActionSupervisorAssigned,
			EntityType: EntityUser,
			EntityID:   &student.ID,
			Metadata:   map[string]interface{}{"supervisor_id": lecturer.ID},
		})
	}

	return dto.AssignmentResponse{
		Student:    dto.NewUserSummary(student),
		Supervisor: dto.NewUserSummary(lecturer),
		Created:    created,
		Message:    message,
	}, nil
}

// ListSupervisorsOf returns the student's supervisors in assignment order. An empty list means unassigned.
func (s *assignmentService) ListSupervisorsOf(ctx context.Context, actor Actor, studentID uint) ([]dto.UserSummary, error) {
	if err := s.authorizeStudentLookup(ctx, actor, studentID); err != nil {
		return nil, err
	}

	supervisors, err := s.assignments.ListSupervisors(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return dto.NewUserSummarySlice(supervisors), nil
}

func (s *assignmentService) ListSuperviseesOf(ctx context.Context, actor Actor, supervisorID uint) ([]dto.UserSummary, error) {
	role := normalizeRole(actor.Role)
	if role != models.RoleAdmin && !(role == models.RoleLecturer && actor.ID == supervisorID) {
		return nil, ErrRoleNotPermitted
	}
	if _, err := s.users.GetByIDAndRole(ctx, supervisorID, models.RoleLecturer); err != nil {
		return nil, notFoundAs(err, ErrLecturerNotFound)
	}

	students, err := s.assignments.ListSupervisees(ctx, supervisorID)
	if err != nil {
		return nil, err
	}
	return dto.NewUserSummarySlice(students), nil
}

func (s *assignmentService) CurrentSupervisor(ctx context.Context, actor Actor, studentID uint) (*dto.UserSummary, error) {
	if err := s.authorizeStudentLookup(ctx, actor, studentID); err != nil {
		return nil, err
	}

	current, err := s.assignments.CurrentSupervisor(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return dto.NewUserSummaryPtr(current), nil
}

// authorizeStudentLookup lets admins, the student, and any of the student's supervisors read the relation.
func (s *assignmentService) authorizeStudentLookup(ctx context.Context, actor Actor, studentID uint) error {
	if _, err := s.users.GetByIDAndRole(ctx, studentID, models.RoleStudent); err != nil {
		return notFoundAs(err, ErrStudentNotFound)
	}

	switch normalizeRole(actor.Role) {
	case models.RoleAdmin:
		return nil
	case models.RoleStudent:
		if actor.ID == studentID {
			return nil
		}
	case models.RoleLecturer:
		supervisors, err := s.assignments.ListSupervisors(ctx, studentID)
		if err != nil {
			return err
		}
		for _, supervisor := range supervisors {
			if supervisor.ID == actor.ID {
				return nil
			}
		}
	}
	return ErrRoleNotPermitted
}

func notFoundAs(err, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}
