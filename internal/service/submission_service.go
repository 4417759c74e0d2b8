package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/proposal-review-api/internal/dto"
	"github.com/noah-isme/proposal-review-api/internal/models"
	"github.com/noah-isme/proposal-review-api/internal/observability"
	"github.com/noah-isme/proposal-review-api/internal/repository"
	"github.com/noah-isme/proposal-review-api/internal/similarity"
	"github.com/noah-isme/proposal-review-api/pkg/scoring"
)

const defaultHighSimilarityAlert = 70.0

// SubmissionService owns proposal creation, editing and role-scoped reads.
type SubmissionService interface {
	Create(ctx context.Context, actor Actor, payload dto.SubmissionCreateRequest) (dto.SubmissionView, error)
	Update(ctx context.Context, actor Actor, id uint, payload dto.SubmissionUpdateRequest) (dto.SubmissionView, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.SubmissionView, error)
	List(ctx context.Context, actor Actor, req dto.SubmissionListRequest) (dto.SubmissionListResponse, error)
}

// SubmissionOptions tunes alerting on submission intake.
type SubmissionOptions struct {
	HighSimilarityAlert float64
}

type submissionService struct {
	submissions repository.SubmissionRepository
	assignments repository.SupervisorAssignmentRepository
	policies    SimilarityPolicyService
	scorer      scoring.Scorer
	validator   *validator.Validate
	notifier    Notifier
	logger      zerolog.Logger
	tracer      trace.Tracer
	alertAt     float64
}

// NewSubmissionService constructs the submission service. A nil scorer leaves new submissions unscored.
func NewSubmissionService(submissions repository.SubmissionRepository, assignments repository.SupervisorAssignmentRepository, policies SimilarityPolicyService, scorer scoring.Scorer, validate *validator.Validate, notifier Notifier, logger zerolog.Logger, opts SubmissionOptions) SubmissionService {
	if scorer == nil {
		scorer = scoring.Disabled{}
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	alertAt := opts.HighSimilarityAlert
	if alertAt <= 0 {
		alertAt = defaultHighSimilarityAlert
	}

	return &submissionService{
		submissions: submissions,
		assignments: assignments,
		policies:    policies,
		scorer:      scorer,
		validator:   validate,
		notifier:    notifier,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/proposal-review-api/internal/service/submission"),
		alertAt:     alertAt,
	}
}

func (s *submissionService) Create(ctx context.Context, actor Actor, payload dto.SubmissionCreateRequest) (dto.SubmissionView, error) {
	if !Can(actor, OpCreateSubmission, Relation{}) {
		return dto.SubmissionView{}, ErrRoleNotPermitted
	}

	payload.ProposalType = strings.TrimSpace(payload.ProposalType)
	tier, known := similarity.TierOf(payload.ProposalType)
	if !known {
		return dto.SubmissionView{}, ErrUnknownProposalType
	}
	trimCreate(&payload)
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionView{}, err
	}

	ctx, span := s.tracer.Start(ctx, "submissions.create", trace.WithAttributes(
		attribute.Int64("student.id", int64(actor.ID)),
		attribute.String("proposal.type", payload.ProposalType),
	))
	defer span.End()

	policy, err := s.policies.Current(ctx)
	if err != nil {
		return dto.SubmissionView{}, err
	}
	settings := settingsOf(policy)

	var quotaTypes []string
	if tier == similarity.TierUndergraduate && !settings.AllowMultipleSubmissions {
		quotaTypes = similarity.UndergraduateTypes()
	}
	// Blocked creates must not reach the scorer; CreateWithQuota repeats the check under a lock.
	open, err := s.submissions.CountOpen(ctx, actor.ID, quotaTypes)
	if err != nil {
		return dto.SubmissionView{}, err
	}
	if open > 0 {
		return dto.SubmissionView{}, ErrOpenUndergradSubmission
	}

	current, err := s.assignments.CurrentSupervisor(ctx, actor.ID)
	if err != nil {
		return dto.SubmissionView{}, err
	}

	submission := models.Submission{
		StudentID:        actor.ID,
		ProposalType:     payload.ProposalType,
		ProposedTitle:    payload.ProposedTitle,
		Background:       payload.Background,
		Aim:              payload.Aim,
		Objectives:       payload.Objectives,
		Methods:          payload.Methods,
		ExpectedResults:  payload.ExpectedResults,
		LiteratureReview: payload.LiteratureReview,
		FinalDecision:    models.DecisionPending,
	}
	if current != nil {
		submission.SupervisorID = &current.ID
	}

	mode := settings.ModeFor(submission.ProposalType)
	submission.SimilarityMode = string(mode)
	submission.SimilarityScore = s.score(ctx, submission, settings)

	if err := s.submissions.CreateWithQuota(ctx, &submission, quotaTypes); err != nil {
		if errors.Is(err, repository.ErrOpenSubmissionExists) {
			return dto.SubmissionView{}, ErrOpenUndergradSubmission
		}
		span.RecordError(err)
		return dto.SubmissionView{}, err
	}

	observability.SubmissionsCreated().WithLabelValues(submission.ProposalType).Inc()
	if submission.SimilarityScore != nil {
		observability.SimilarityScores().WithLabelValues(submission.ProposalType).Observe(*submission.SimilarityScore)
	}

	stored, err := s.submissions.GetByID(ctx, submission.ID)
	if err != nil {
		return dto.SubmissionView{}, err
	}

	s.announce(ctx, stored)

	s.logger.Info().
		Uint("submission_id", stored.ID).
		Uint("student_id", stored.StudentID).
		Str("proposal_type", stored.ProposalType).
		Msg("submission created")

	return dto.NewSubmissionView(stored, current), nil
}

// Update overwrites the content of an open submission. The lecturer decision and quota are untouched.
func (s *submissionService) Update(ctx context.Context, actor Actor, id uint, payload dto.SubmissionUpdateRequest) (dto.SubmissionView, error) {
	trimUpdate(&payload)
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionView{}, err
	}

	existing, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return dto.SubmissionView{}, notFoundAs(err, ErrSubmissionNotFound)
	}
	if !Can(actor, OpEditSubmission, Relation{Owner: existing.StudentID == actor.ID}) {
		return dto.SubmissionView{}, ErrNotSubmissionOwner
	}
	if !existing.IsOpen() {
		return dto.SubmissionView{}, ErrSubmissionClosed
	}

	policy, err := s.policies.Current(ctx)
	if err != nil {
		return dto.SubmissionView{}, err
	}
	settings := settingsOf(policy)

	existing.ProposedTitle = payload.ProposedTitle
	existing.Background = payload.Background
	existing.Aim = payload.Aim
	existing.Objectives = payload.Objectives
	existing.Methods = payload.Methods
	existing.ExpectedResults = payload.ExpectedResults
	existing.LiteratureReview = payload.LiteratureReview

	mode := settings.ModeFor(existing.ProposalType)
	score := s.score(ctx, existing, settings)
	if score == nil && existing.SimilarityScore != nil {
		// A failed re-score keeps the last known result rather than clearing it.
		score = existing.SimilarityScore
		mode = similarity.Mode(existing.SimilarityMode)
	}

	err = s.submissions.UpdateContent(ctx, id, actor.ID, repository.ContentUpdate{
		ProposedTitle:    existing.ProposedTitle,
		Background:       existing.Background,
		Aim:              existing.Aim,
		Objectives:       existing.Objectives,
		Methods:          existing.Methods,
		ExpectedResults:  existing.ExpectedResults,
		LiteratureReview: existing.LiteratureReview,
		SimilarityScore:  score,
		SimilarityMode:   string(mode),
	})
	if err != nil {
		return dto.SubmissionView{}, translateSubmissionError(err, ErrNotSubmissionOwner)
	}

	return s.view(ctx, id)
}

func (s *submissionService) Get(ctx context.Context, actor Actor, id uint) (dto.SubmissionView, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return dto.SubmissionView{}, notFoundAs(err, ErrSubmissionNotFound)
	}

	rel, current, err := relationTo(ctx, s.assignments, actor, submission)
	if err != nil {
		return dto.SubmissionView{}, err
	}
	if !Can(actor, OpViewSubmission, rel) {
		return dto.SubmissionView{}, ErrOutsideReviewScope
	}

	return dto.NewSubmissionView(submission, current), nil
}

// List applies the caller's scope first: students see their own, lecturers their supervisees', admins everything.
func (s *submissionService) List(ctx context.Context, actor Actor, req dto.SubmissionListRequest) (dto.SubmissionListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.SubmissionListResponse{}, err
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	filter := repository.SubmissionFilter{
		Page:          page,
		PageSize:      pageSize,
		ProposalType:  req.ProposalType,
		FinalDecision: req.FinalDecision,
	}
	if req.StudentID > 0 {
		studentID := req.StudentID
		filter.StudentID = &studentID
	}
	if req.SupervisorID > 0 {
		supervisorID := req.SupervisorID
		filter.SupervisorID = &supervisorID
	}

	switch normalizeRole(actor.Role) {
	case models.RoleAdmin:
	case models.RoleStudent:
		filter.ScopeStudents = true
		filter.StudentIDs = []uint{actor.ID}
	case models.RoleLecturer:
		students, err := s.assignments.ListSupervisees(ctx, actor.ID)
		if err != nil {
			return dto.SubmissionListResponse{}, err
		}
		filter.ScopeStudents = true
		filter.StudentIDs = make([]uint, 0, len(students))
		for _, student := range students {
			filter.StudentIDs = append(filter.StudentIDs, student.ID)
		}
	default:
		return dto.SubmissionListResponse{}, ErrRoleNotPermitted
	}

	submissions, total, err := s.submissions.List(ctx, filter)
	if err != nil {
		return dto.SubmissionListResponse{}, err
	}

	items, err := viewsOf(ctx, s.assignments, submissions)
	if err != nil {
		return dto.SubmissionListResponse{}, err
	}

	return dto.SubmissionListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(page, pageSize, total),
	}, nil
}

// score asks the external scorer for a similarity score. Failures leave the submission unscored.
func (s *submissionService) score(ctx context.Context, submission models.Submission, settings similarity.Settings) *float64 {
	fields := similarity.ResolveFields(submission.ProposalType, settings)
	text := similarity.BuildText(dto.ContentOf(submission), fields)

	others, err := s.submissions.ListCorpus(ctx, submission.ProposalType, submission.ID)
	if err != nil {
		s.logger.Warn().Err(err).Str("proposal_type", submission.ProposalType).Msg("failed to load similarity corpus")
		return nil
	}

	corpus := make([]string, 0, len(others))
	for _, other := range others {
		if entry := similarity.BuildText(dto.ContentOf(other), fields); entry != "" {
			corpus = append(corpus, entry)
		}
	}

	value, err := s.scorer.Score(ctx, scoring.Request{
		ProposalType: submission.ProposalType,
		Mode:         string(settings.ModeFor(submission.ProposalType)),
		Text:         text,
		Corpus:       corpus,
	})
	if err != nil {
		if !errors.Is(err, scoring.ErrDisabled) {
			s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("similarity scoring failed")
		}
		return nil
	}

	clamped := similarity.Clamp(&value)
	return &clamped
}

func (s *submissionService) announce(ctx context.Context, submission models.Submission) {
	s.notifier.Notify(ctx, submission.StudentID, dto.NotificationSubmissionReceived,
		fmt.Sprintf("Your %s proposal \"%s\" was received", submission.ProposalType, submission.ProposedTitle))

	if submission.SupervisorID == nil {
		return
	}
	supervisorID := *submission.SupervisorID
	s.notifier.Notify(ctx, supervisorID, dto.NotificationSubmissionAssigned,
		fmt.Sprintf("%s submitted a %s proposal for review", submission.Student.Name, submission.ProposalType))

	if submission.SimilarityScore != nil && *submission.SimilarityScore >= s.alertAt {
		s.notifier.Notify(ctx, supervisorID, dto.NotificationHighSimilarity,
			fmt.Sprintf("Proposal \"%s\" scored %.2f%% similarity", submission.ProposedTitle, *submission.SimilarityScore))
	}
}

func (s *submissionService) view(ctx context.Context, id uint) (dto.SubmissionView, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return dto.SubmissionView{}, notFoundAs(err, ErrSubmissionNotFound)
	}
	current, err := s.assignments.CurrentSupervisor(ctx, submission.StudentID)
	if err != nil {
		return dto.SubmissionView{}, err
	}
	return dto.NewSubmissionView(submission, current), nil
}

// relationTo derives the actor's relation to a submission from the assignment registry.
// The returned user is the student's current supervisor, nil when unassigned.
func relationTo(ctx context.Context, assignments repository.SupervisorAssignmentRepository, actor Actor, submission models.Submission) (Relation, *models.User, error) {
	supervisors, err := assignments.ListSupervisors(ctx, submission.StudentID)
	if err != nil {
		return Relation{}, nil, err
	}

	rel := Relation{Owner: normalizeRole(actor.Role) == models.RoleStudent && submission.StudentID == actor.ID}
	var current *models.User
	if len(supervisors) > 0 {
		last := supervisors[len(supervisors)-1]
		current = &last
	}
	if normalizeRole(actor.Role) == models.RoleLecturer {
		for _, supervisor := range supervisors {
			if supervisor.ID == actor.ID {
				rel.Supervisor = true
			}
		}
		rel.CurrentSupervisor = current != nil && current.ID == actor.ID
	}
	return rel, current, nil
}

func viewsOf(ctx context.Context, assignments repository.SupervisorAssignmentRepository, submissions []models.Submission) ([]dto.SubmissionView, error) {
	studentIDs := make([]uint, 0, len(submissions))
	seen := make(map[uint]struct{}, len(submissions))
	for _, submission := range submissions {
		if _, ok := seen[submission.StudentID]; ok {
			continue
		}
		seen[submission.StudentID] = struct{}{}
		studentIDs = append(studentIDs, submission.StudentID)
	}

	grouped, err := assignments.ListSupervisorsByStudent(ctx, studentIDs)
	if err != nil {
		return nil, err
	}

	views := make([]dto.SubmissionView, 0, len(submissions))
	for _, submission := range submissions {
		var current *models.User
		if supervisors := grouped[submission.StudentID]; len(supervisors) > 0 {
			last := supervisors[len(supervisors)-1]
			current = &last
		}
		views = append(views, dto.NewSubmissionView(submission, current))
	}
	return views, nil
}

// translateSubmissionError maps repository guard failures onto workflow errors.
func translateSubmissionError(err, mismatch error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrSubmissionNotFound
	case errors.Is(err, repository.ErrSubmissionNotOpen):
		return ErrSubmissionClosed
	case errors.Is(err, repository.ErrSubmissionActorMismatch):
		return mismatch
	default:
		return err
	}
}

func trimCreate(payload *dto.SubmissionCreateRequest) {
	payload.ProposedTitle = strings.TrimSpace(payload.ProposedTitle)
	payload.Background = strings.TrimSpace(payload.Background)
	payload.Aim = strings.TrimSpace(payload.Aim)
	payload.Objectives = strings.TrimSpace(payload.Objectives)
	payload.Methods = strings.TrimSpace(payload.Methods)
	payload.ExpectedResults = strings.TrimSpace(payload.ExpectedResults)
	payload.LiteratureReview = strings.TrimSpace(payload.LiteratureReview)
}

func trimUpdate(payload *dto.SubmissionUpdateRequest) {
	payload.ProposedTitle = strings.TrimSpace(payload.ProposedTitle)
	payload.Background = strings.TrimSpace(payload.Background)
	payload.Aim = strings.TrimSpace(payload.Aim)
	payload.Objectives = strings.TrimSpace(payload.Objectives)
	payload.Methods = strings.TrimSpace(payload.Methods)
	payload.ExpectedResults = strings.TrimSpace(payload.ExpectedResults)
	payload.LiteratureReview = strings.TrimSpace(payload.LiteratureReview)
}
