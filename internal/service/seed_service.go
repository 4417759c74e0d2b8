package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/proposal-review-api/internal/dto"
	"github.com/noah-isme/proposal-review-api/internal/models"
	"github.com/noah-isme/proposal-review-api/internal/repository"
)

var (
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
)

// SeedService bootstraps the account directory with pre-approved users and supervisor links.
type SeedService interface {
	SeedDirectory(ctx context.Context, token string, req dto.SeedRequest) (dto.SeedResult, error)
	Bootstrap(ctx context.Context, req dto.SeedRequest) (dto.SeedResult, error)
}

type seedService struct {
	users       repository.UserRepository
	assignments repository.SupervisorAssignmentRepository
	policies    repository.SimilarityPolicyRepository
	validator   *validator.Validate
	enabled     bool
	token       string
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSeedService constructs a seeding service. enabled and token guard the HTTP entry point only.
func NewSeedService(users repository.UserRepository, assignments repository.SupervisorAssignmentRepository, policies repository.SimilarityPolicyRepository, validate *validator.Validate, enabled bool, token string, logger zerolog.Logger) SeedService {
	return &seedService{
		users:       users,
		assignments: assignments,
		policies:    policies,
		validator:   validate,
		enabled:     enabled,
		token:       token,
		logger:      logger.With().Str("component", "seed_service").Logger(),
		now:         time.Now,
	}
}

func (s *seedService) SeedDirectory(ctx context.Context, token string, req dto.SeedRequest) (dto.SeedResult, error) {
	if !s.enabled {
		return dto.SeedResult{}, ErrSeedDisabled
	}
	if !s.validateToken(token) {
		return dto.SeedResult{}, ErrSeedUnauthorized
	}
	return s.Bootstrap(ctx, req)
}

// Bootstrap is idempotent: existing emails and assignment pairs are skipped.
func (s *seedService) Bootstrap(ctx context.Context, req dto.SeedRequest) (dto.SeedResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.SeedResult{}, err
	}
	if _, err := s.policies.Get(ctx); err != nil {
		return dto.SeedResult{}, fmt.Errorf("ensure similarity policy: %w", err)
	}

	var result dto.SeedResult
	now := s.now().UTC()

	for _, account := range req.Accounts {
		email := strings.ToLower(strings.TrimSpace(account.Email))
		if _, err := s.users.GetByEmail(ctx, email); err == nil {
			result.AccountsSkipped++
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return result, err
		}

		role := strings.ToLower(strings.TrimSpace(account.Role))
		if role == models.RoleStudent && !studentRegNumberPattern.MatchString(account.RegNumber) {
			return result, fmt.Errorf("%s: %w", email, ErrInvalidRegNumber)
		}

		user := models.User{
			Name:       strings.TrimSpace(account.Name),
			Email:      email,
			Role:       role,
			IsApproved: true,
			ApprovedAt: &now,
		}
		if reg := strings.TrimSpace(account.RegNumber); reg != "" {
			user.RegNumber = &reg
		}
		if err := s.users.Create(ctx, &user); err != nil {
			return result, err
		}
		result.AccountsCreated++
	}

	for _, link := range req.Assignments {
		student, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(link.StudentEmail)))
		if err != nil || student.Role != models.RoleStudent {
			return result, fmt.Errorf("%s: %w", link.StudentEmail, ErrStudentNotFound)
		}
		supervisor, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(link.SupervisorEmail)))
		if err != nil || supervisor.Role != models.RoleLecturer {
			return result, fmt.Errorf("%s: %w", link.SupervisorEmail, ErrLecturerNotFound)
		}

		created, err := s.assignments.Assign(ctx, &models.SupervisorAssignment{
			StudentID:    student.ID,
			SupervisorID: supervisor.ID,
		})
		if err != nil {
			return result, err
		}
		if created {
			result.AssignmentsCreated++
		}
	}

	s.logger.Info().
		Int("accounts_created", result.AccountsCreated).
		Int("accounts_skipped", result.AccountsSkipped).
		Int("assignments_created", result.AssignmentsCreated).
		Msg("directory seeded")

	return result, nil
}

func (s *seedService) validateToken(token string) bool {
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(token))) == 1
}
