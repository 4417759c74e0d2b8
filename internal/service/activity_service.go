package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/proposal-review-api/internal/dto"
	"github.com/noah-isme/proposal-review-api/internal/models"
	"github.com/noah-isme/proposal-review-api/internal/repository"
)

// Audited entity kinds.
const (
	EntityUser             = "user"
	EntitySubmission       = "submission"
	EntitySimilarityPolicy = "similarity_policy"
)

// Audit actions written by the workflow.
const (
	ActionAccountApproved     = "account.approved"
	ActionAccountRejected     = "account.rejected"
	ActionSupervisorAssigned  = "supervisor.assigned"
	ActionPolicyUpdated       = "similarity_policy.updated"
	ActionLecturerDecision    = "submission.lecturer_decision"
	ActionSubmissionFinalized = "submission.finalized"
	ActionAutoDecide          = "submission.auto_decided"
	ActionSubmissionArchived  = "submission.archived"
)

// auditedActions maps every action to the entity kind it must be recorded against.
var auditedActions = map[string]string{
	ActionAccountApproved:     EntityUser,
	ActionAccountRejected:     EntityUser,
	ActionSupervisorAssigned:  EntityUser,
	ActionPolicyUpdated:       EntitySimilarityPolicy,
	ActionLecturerDecision:    EntitySubmission,
	ActionSubmissionFinalized: EntitySubmission,
	ActionAutoDecide:          EntitySubmission,
	ActionSubmissionArchived:  EntitySubmission,
}

// ActivityEntry is one audit record as produced by a workflow operation.
type ActivityEntry struct {
	Actor      Actor
	Action     string
	EntityType string
	EntityID   *uint
	Metadata   map[string]interface{}
}

// ActivityRecorder is the write side used by the workflow services.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry) (dto.ActivityResponse, error)
}

// ActivityService adds the admin audit query to the recorder.
type ActivityService interface {
	ActivityRecorder
	List(ctx context.Context, actor Actor, req dto.ActivityListRequest) (dto.ActivityListResponse, error)
}

type activityService struct {
	repo   repository.ActivityLogRepository
	logger zerolog.Logger
}

// NewActivityService constructs the activity log service.
func NewActivityService(repo repository.ActivityLogRepository, logger zerolog.Logger) ActivityService {
	return &activityService{
		repo:   repo,
		logger: logger.With().Str("component", "activity_service").Logger(),
	}
}

// Record persists an audit entry. Unknown actions and mismatched entity kinds are rejected.
func (s *activityService) Record(ctx context.Context, entry ActivityEntry) (dto.ActivityResponse, error) {
	action := strings.ToLower(strings.TrimSpace(entry.Action))
	entity, known := auditedActions[action]
	if !known {
		return dto.ActivityResponse{}, fmt.Errorf("unknown activity action %q", entry.Action)
	}
	if got := strings.ToLower(strings.TrimSpace(entry.EntityType)); got != entity {
		return dto.ActivityResponse{}, fmt.Errorf("activity %s expects entity %s, got %q", action, entity, entry.EntityType)
	}

	row := models.ActivityLog{
		ActorID:    entry.Actor.ID,
		ActorRole:  normalizeRole(entry.Actor.Role),
		Action:     action,
		EntityType: entity,
		EntityID:   entry.EntityID,
		Metadata:   redactMetadata(entry.Metadata),
	}
	if err := s.repo.Create(ctx, &row); err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("failed to persist activity log")
		return dto.ActivityResponse{}, err
	}

	return dto.NewActivityResponse(row), nil
}

func (s *activityService) List(ctx context.Context, actor Actor, req dto.ActivityListRequest) (dto.ActivityListResponse, error) {
	if !Can(actor, OpViewActivity, Relation{}) {
		return dto.ActivityListResponse{}, ErrRoleNotPermitted
	}

	if req.Since != nil && req.Until != nil && req.Until.Before(*req.Since) {
		return dto.ActivityListResponse{}, ErrInvalidActivityRange
	}

	rows, total, err := s.repo.List(ctx, repository.ActivityLogFilter{
		Page:       req.Page,
		PageSize:   req.PageSize,
		ActorID:    optionalID(req.ActorID),
		Action:     strings.ToLower(strings.TrimSpace(req.Action)),
		EntityType: strings.ToLower(strings.TrimSpace(req.EntityType)),
		EntityID:   optionalID(req.EntityID),
		Since:      req.Since,
		Until:      req.Until,
	})
	if err != nil {
		return dto.ActivityListResponse{}, err
	}

	page := dto.ActivityListResponse{
		Items:      make([]dto.ActivityResponse, len(rows)),
		Pagination: dto.NewPaginationMeta(req.Page, req.PageSize, total),
	}
	for i, row := range rows {
		page.Items[i] = dto.NewActivityResponse(row)
	}
	return page, nil
}

// optionalID turns the zero id of an unset filter into nil.
func optionalID(id uint) *uint {
	if id == 0 {
		return nil
	}
	return &id
}

// recordActivity writes an audit entry and only logs failures.
func recordActivity(ctx context.Context, recorder ActivityRecorder, logger zerolog.Logger, entry ActivityEntry) {
	if recorder == nil {
		return
	}
	if _, err := recorder.Record(ctx, entry); err != nil {
		logger.Warn().Err(err).Str("action", entry.Action).Msg("failed to record activity")
	}
}

// Metadata keys that may carry contact details or credentials are masked before storage.
var redactedMetadataKeys = []string{"email", "token", "secret"}

func redactMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	out := make(datatypes.JSONMap, len(metadata))
	for key, value := range metadata {
		out[key] = value
		lower := strings.ToLower(key)
		for _, marker := range redactedMetadataKeys {
			if strings.Contains(lower, marker) {
				out[key] = "***"
				break
			}
		}
	}
	return out
}
