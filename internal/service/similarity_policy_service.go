package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/proposal-review-api/internal/dto"
	"github.com/noah-isme/proposal-review-api/internal/models"
	"github.com/noah-isme/proposal-review-api/internal/repository"
	"github.com/noah-isme/proposal-review-api/internal/similarity"
)

const similarityPolicyCacheKey = "similarity:policy"

// SimilarityPolicyService reads and updates the similarity settings.
type SimilarityPolicyService interface {
	Current(ctx context.Context) (models.SimilarityPolicy, error)
	Get(ctx context.Context, actor Actor) (dto.SimilarityPolicyResponse, error)
	Update(ctx context.Context, actor Actor, payload dto.SimilarityPolicyUpdateRequest) (dto.SimilarityPolicyResponse, error)
}

type similarityPolicyService struct {
	repo      repository.SimilarityPolicyRepository
	cache     *redis.Client
	cacheTTL  time.Duration
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewSimilarityPolicyService constructs the policy service. cache may be nil.
func NewSimilarityPolicyService(repo repository.SimilarityPolicyRepository, cache *redis.Client, ttl time.Duration, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) SimilarityPolicyService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &similarityPolicyService{
		repo:      repo,
		cache:     cache,
		cacheTTL:  ttl,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "similarity_policy_service").Logger(),
	}
}

// Current returns the policy row, preferring the cached copy.
func (s *similarityPolicyService) Current(ctx context.Context) (models.SimilarityPolicy, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, similarityPolicyCacheKey).Result(); err == nil {
			var policy models.SimilarityPolicy
			if unmarshalErr := json.Unmarshal([]byte(cached), &policy); unmarshalErr == nil {
				return policy, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read similarity policy cache")
		}
	}

	policy, err := s.repo.Get(ctx)
	if err != nil {
		return models.SimilarityPolicy{}, err
	}

	s.store(ctx, policy)
	return policy, nil
}

func (s *similarityPolicyService) Get(ctx context.Context, actor Actor) (dto.SimilarityPolicyResponse, error) {
	if !Can(actor, OpManagePolicy, Relation{}) {
		return dto.SimilarityPolicyResponse{}, ErrRoleNotPermitted
	}

	policy, err := s.Current(ctx)
	if err != nil {
		return dto.SimilarityPolicyResponse{}, err
	}
	return dto.NewSimilarityPolicyResponse(policy), nil
}

func (s *similarityPolicyService) Update(ctx context.Context, actor Actor, payload dto.SimilarityPolicyUpdateRequest) (dto.SimilarityPolicyResponse, error) {
	if !Can(actor, OpManagePolicy, Relation{}) {
		return dto.SimilarityPolicyResponse{}, ErrRoleNotPermitted
	}
	if !similarity.Mode(payload.UndergradMode).Valid() || !similarity.Mode(payload.PostgradMode).Valid() {
		return dto.SimilarityPolicyResponse{}, ErrInvalidSimilarityMode
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.SimilarityPolicyResponse{}, err
	}

	current, err := s.repo.Get(ctx)
	if err != nil {
		return dto.SimilarityPolicyResponse{}, err
	}

	expected := current.Version
	if payload.ExpectedVersion != nil {
		expected = *payload.ExpectedVersion
	}

	next := current
	next.UndergradMode = payload.UndergradMode
	next.PostgradMode = payload.PostgradMode
	if payload.AllowMultipleSubmissions != nil {
		next.AllowMultipleSubmissions = *payload.AllowMultipleSubmissions
	}
	actorID := actor.ID
	next.UpdatedBy = &actorID

	if err := s.repo.Update(ctx, &next, expected); err != nil {
		if errors.Is(err, repository.ErrOptimisticLock) {
			return dto.SimilarityPolicyResponse{}, ErrPolicyVersionConflict
		}
		return dto.SimilarityPolicyResponse{}, err
	}

	s.invalidate(ctx)

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     ActionPolicyUpdated,
		EntityType: EntitySimilarityPolicy,
		EntityID:   &next.ID,
		Metadata: map[string]interface{}{
			"undergrad_mode":             next.UndergradMode,
			"postgrad_mode":              next.PostgradMode,
			"allow_multiple_submissions": next.AllowMultipleSubmissions,
			"version":                    next.Version,
		},
	})

	return dto.NewSimilarityPolicyResponse(next), nil
}

func (s *similarityPolicyService) store(ctx context.Context, policy models.SimilarityPolicy) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(policy)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, similarityPolicyCacheKey, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store similarity policy cache")
	}
}

func (s *similarityPolicyService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, similarityPolicyCacheKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate similarity policy cache")
	}
}

// settingsOf converts the stored row into the value consumed by the similarity rules.
func settingsOf(policy models.SimilarityPolicy) similarity.Settings {
	return similarity.Settings{
		UndergradMode:            similarity.Mode(policy.UndergradMode),
		PostgradMode:             similarity.Mode(policy.PostgradMode),
		AllowMultipleSubmissions: policy.AllowMultipleSubmissions,
	}
}
