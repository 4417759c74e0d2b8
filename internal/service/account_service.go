package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/proposal-review-api/internal/dto"
	"github.com/noah-isme/proposal-review-api/internal/models"
	"github.com/noah-isme/proposal-review-api/internal/repository"
)

var studentRegNumberPattern = regexp.MustCompile(`^[0-9]{6}$`)

// AccountService manages the account lifecycle and resolves identities for the API.
type AccountService interface {
	Signup(ctx context.Context, payload dto.SignupRequest) (dto.UserResponse, error)
	Resolve(ctx context.Context, userID uint) (Actor, error)
	ListPending(ctx context.Context, actor Actor) ([]dto.UserResponse, error)
	ListUsers(ctx context.Context, actor Actor, req dto.UserListRequest) ([]dto.UserResponse, error)
	Approve(ctx context.Context, actor Actor, userID uint) (dto.UserResponse, error)
	Reject(ctx context.Context, actor Actor, userID uint) (dto.UserResponse, error)
}

type accountService struct {
	users       repository.UserRepository
	assignments repository.SupervisorAssignmentRepository
	validator   *validator.Validate
	activity    ActivityRecorder
	notifier    Notifier
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAccountService constructs the account service.
func NewAccountService(users repository.UserRepository, assignments repository.SupervisorAssignmentRepository, validate *validator.Validate, activity ActivityRecorder, notifier Notifier, logger zerolog.Logger) AccountService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &accountService{
		users:       users,
		assignments: assignments,
		validator:   validate,
		activity:    activity,
		notifier:    notifier,
		logger:      logger.With().Str("component", "account_service").Logger(),
		now:         time.Now,
	}
}

func (s *accountService) Signup(ctx context.Context, payload dto.SignupRequest) (dto.UserResponse, error) {
	payload.Name = strings.TrimSpace(payload.Name)
	payload.Email = strings.ToLower(strings.TrimSpace(payload.Email))
	payload.Role = strings.ToLower(strings.TrimSpace(payload.Role))
	payload.RegNumber = strings.TrimSpace(payload.RegNumber)

	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	if payload.Role == models.RoleStudent && !studentRegNumberPattern.MatchString(payload.RegNumber) {
		return dto.UserResponse{}, ErrInvalidRegNumber
	}

	if payload.RegNumber != "" {
		taken, err := s.users.RegNumberExists(ctx, payload.RegNumber)
		if err != nil {
			return dto.UserResponse{}, err
		}
		if taken {
			return dto.UserResponse{}, ErrRegNumberTaken
		}
	}

	taken, err := s.users.EmailExists(ctx, payload.Email)
	if err != nil {
		return dto.UserResponse{}, err
	}
	if taken {
		return dto.UserResponse{}, ErrEmailTaken
	}

	user := models.User{
		Name:  payload.Name,
		Email: payload.Email,
		Role:  payload.Role,
	}
	if payload.RegNumber != "" {
		reg := payload.RegNumber
		user.RegNumber = &reg
	}

	if err := s.users.Create(ctx, &user); err != nil {
		return dto.UserResponse{}, err
	}

	s.logger.Info().Uint("user_id", user.ID).Str("role", user.Role).Msg("account registered, awaiting approval")

	return dto.NewUserResponse(user, nil), nil
}

// Resolve maps an authenticated user id to an actor. Unknown, pending and rejected accounts fail.
func (s *accountService) Resolve(ctx context.Context, userID uint) (Actor, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Actor{}, ErrUserNotFound
		}
		return Actor{}, err
	}

	switch {
	case user.IsRejected():
		return Actor{}, ErrAccountRejected
	case !user.IsApproved:
		return Actor{}, ErrAccountNotApproved
	}

	return Actor{ID: user.ID, Role: user.Role}, nil
}

func (s *accountService) ListPending(ctx context.Context, actor Actor) ([]dto.UserResponse, error) {
	return s.ListUsers(ctx, actor, dto.UserListRequest{Status: dto.AccountStatusPending})
}

func (s *accountService) ListUsers(ctx context.Context, actor Actor, req dto.UserListRequest) ([]dto.UserResponse, error) {
	if !Can(actor, OpReviewAccounts, Relation{}) {
		return nil, ErrRoleNotPermitted
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	users, err := s.users.List(ctx, repository.UserFilter{Role: req.Role, Status: req.Status})
	if err != nil {
		return nil, err
	}

	studentIDs := make([]uint, 0, len(users))
	for _, user := range users {
		if user.Role == models.RoleStudent {
			studentIDs = append(studentIDs, user.ID)
		}
	}

	supervisors, err := s.assignments.ListSupervisorsByStudent(ctx, studentIDs)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, dto.NewUserResponse(user, supervisors[user.ID]))
	}
	return responses, nil
}

func (s *accountService) Approve(ctx context.Context, actor Actor, userID uint) (dto.UserResponse, error) {
	if !Can(actor, OpReviewAccounts, Relation{}) {
		return dto.UserResponse{}, ErrRoleNotPermitted
	}

	user, err := s.users.Approve(ctx, userID, actor.ID, s.now())
	if err != nil {
		return dto.UserResponse{}, translateAccountError(err)
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     ActionAccountApproved,
		EntityType: EntityUser,
		EntityID:   &user.ID,
		Metadata:   map[string]interface{}{"role": user.Role, "email": user.Email},
	})
	s.notifier.Notify(ctx, user.ID, dto.NotificationAccountApproved, "Your account has been approved. You can now sign in.")

	return dto.NewUserResponse(user, nil), nil
}

func (s *accountService) Reject(ctx context.Context, actor Actor, userID uint) (dto.UserResponse, error) {
	if !Can(actor, OpReviewAccounts, Relation{}) {
		return dto.UserResponse{}, ErrRoleNotPermitted
	}

	user, err := s.users.Reject(ctx, userID, s.now())
	if err != nil {
		return dto.UserResponse{}, translateAccountError(err)
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     ActionAccountRejected,
		EntityType: EntityUser,
		EntityID:   &user.ID,
		Metadata:   map[string]interface{}{"role": user.Role},
	})

	return dto.NewUserResponse(user, nil), nil
}

func translateAccountError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrAccountNotPending):
		return ErrAccountAlreadyDecided
	default:
		return err
	}
}
