package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/proposal-review-api/internal/dto"
	"github.com/noah-isme/proposal-review-api/internal/models"
	"github.com/noah-isme/proposal-review-api/internal/repository"
	"github.com/noah-isme/proposal-review-api/internal/similarity"
)

const dashboardRecentLimit = 5

// DashboardService produces the per-role landing page summary.
type DashboardService interface {
	GetDashboard(ctx context.Context, actor Actor) (dto.DashboardResponse, bool, error)
}

type dashboardService struct {
	users       repository.UserRepository
	assignments repository.SupervisorAssignmentRepository
	submissions repository.SubmissionRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewDashboardService builds the dashboard aggregator. cache may be nil.
func NewDashboardService(users repository.UserRepository, assignments repository.SupervisorAssignmentRepository, submissions repository.SubmissionRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) DashboardService {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &dashboardService{
		users:       users,
		assignments: assignments,
		submissions: submissions,
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "dashboard_service").Logger(),
		now:         time.Now,
	}
}

// GetDashboard returns the summary and whether it was served from cache.
func (s *dashboardService) GetDashboard(ctx context.Context, actor Actor) (dto.DashboardResponse, bool, error) {
	role := normalizeRole(actor.Role)
	cacheKey := fmt.Sprintf("dashboard:%s:%d", role, actor.ID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.DashboardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Uint("user_id", actor.ID).Msg("dashboard cache hit")
				return response, true, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
	}

	response := dto.DashboardResponse{Role: role, GeneratedAt: s.now().UTC()}
	filter := repository.SubmissionFilter{}

	switch role {
	case models.RoleStudent:
		supervisors, err := s.assignments.ListSupervisors(ctx, actor.ID)
		if err != nil {
			return dto.DashboardResponse{}, false, err
		}
		response.Supervisors = dto.NewUserSummarySlice(supervisors)
		filter.ScopeStudents = true
		filter.StudentIDs = []uint{actor.ID}
	case models.RoleLecturer:
		students, err := s.assignments.ListSupervisees(ctx, actor.ID)
		if err != nil {
			return dto.DashboardResponse{}, false, err
		}
		response.Supervisees = dto.NewUserSummarySlice(students)
		filter.ScopeStudents = true
		for _, student := range students {
			filter.StudentIDs = append(filter.StudentIDs, student.ID)
		}
	case models.RoleAdmin:
		pending, err := s.users.List(ctx, repository.UserFilter{Status: dto.AccountStatusPending})
		if err != nil {
			return dto.DashboardResponse{}, false, err
		}
		count := len(pending)
		response.PendingAccounts = &count
	default:
		return dto.DashboardResponse{}, false, ErrRoleNotPermitted
	}

	submissions, _, err := s.submissions.List(ctx, filter)
	if err != nil {
		return dto.DashboardResponse{}, false, err
	}
	response.Summary = summarize(submissions)

	recent := submissions
	if len(recent) > dashboardRecentLimit {
		recent = recent[:dashboardRecentLimit]
	}
	response.Recent, err = viewsOf(ctx, s.assignments, recent)
	if err != nil {
		return dto.DashboardResponse{}, false, err
	}

	if s.cache != nil {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
			}
		}
	}

	return response, false, nil
}

func summarize(submissions []models.Submission) dto.DashboardSummary {
	summary := dto.DashboardSummary{Total: len(submissions)}
	for _, submission := range submissions {
		switch {
		case submission.IsOpen():
			summary.Open++
			if submission.LecturerDecision == nil {
				summary.AwaitingLecturer++
			} else {
				summary.AwaitingFinal++
			}
		case submission.FinalDecision == models.DecisionApproved:
			summary.Approved++
		default:
			summary.Rejected++
		}

		if submission.SimilarityScore == nil {
			summary.Bands.Unscored++
			continue
		}
		switch similarity.BandOf(submission.SimilarityScore) {
		case similarity.BandHigh:
			summary.Bands.High++
		case similarity.BandMedium:
			summary.Bands.Medium++
		default:
			summary.Bands.Low++
		}
	}
	return summary
}
