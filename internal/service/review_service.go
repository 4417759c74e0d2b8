package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/proposal-review-api/internal/dto"
	"github.com/noah-isme/proposal-review-api/internal/models"
	"github.com/noah-isme/proposal-review-api/internal/observability"
	"github.com/noah-isme/proposal-review-api/internal/repository"
)

const defaultAutoDecideThreshold = 70.0

// ReviewService applies lecturer and administrator decisions to submissions.
type ReviewService interface {
	SetLecturerDecision(ctx context.Context, actor Actor, id uint, payload dto.DecisionRequest) (dto.SubmissionView, error)
	Finalize(ctx context.Context, actor Actor, id uint, payload dto.DecisionRequest) (dto.SubmissionView, error)
	AutoDecide(ctx context.Context, actor Actor, payload dto.AutoDecideRequest) (dto.AutoDecideResponse, error)
}

type reviewService struct {
	submissions repository.SubmissionRepository
	assignments repository.SupervisorAssignmentRepository
	validator   *validator.Validate
	activity    ActivityRecorder
	notifier    Notifier
	logger      zerolog.Logger
	tracer      trace.Tracer
	threshold   float64
	now         func() time.Time
}

// NewReviewService constructs the review workflow. threshold is the auto-decide default.
func NewReviewService(submissions repository.SubmissionRepository, assignments repository.SupervisorAssignmentRepository, validate *validator.Validate, activity ActivityRecorder, notifier Notifier, logger zerolog.Logger, threshold float64) ReviewService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if threshold <= 0 || threshold > 100 {
		threshold = defaultAutoDecideThreshold
	}

	return &reviewService{
		submissions: submissions,
		assignments: assignments,
		validator:   validate,
		activity:    activity,
		notifier:    notifier,
		logger:      logger.With().Str("component", "review_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/proposal-review-api/internal/service/review"),
		threshold:   threshold,
		now:         time.Now,
	}
}

// SetLecturerDecision records the advisory decision of the student's current supervisor.
// The submission stays open and the decision may be revised until it is finalized.
func (s *reviewService) SetLecturerDecision(ctx context.Context, actor Actor, id uint, payload dto.DecisionRequest) (dto.SubmissionView, error) {
	if normalizeRole(actor.Role) != models.RoleLecturer {
		return dto.SubmissionView{}, ErrRoleNotPermitted
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionView{}, ErrInvalidDecision
	}

	ctx, span := s.tracer.Start(ctx, "review.lecturer_decision", trace.WithAttributes(
		attribute.Int64("submission.id", int64(id)),
		attribute.String("decision", payload.Decision),
	))
	defer span.End()

	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return dto.SubmissionView{}, notFoundAs(err, ErrSubmissionNotFound)
	}

	rel, _, err := relationTo(ctx, s.assignments, actor, submission)
	if err != nil {
		return dto.SubmissionView{}, err
	}
	if !Can(actor, OpSetLecturerDecision, rel) {
		if rel.Supervisor {
			return dto.SubmissionView{}, ErrNotCurrentSupervisor
		}
		return dto.SubmissionView{}, ErrOutsideReviewScope
	}
	if !submission.IsOpen() {
		return dto.SubmissionView{}, ErrSubmissionClosed
	}

	if err := s.submissions.SetLecturerDecision(ctx, id, actor.ID, payload.Decision, s.now().UTC()); err != nil {
		span.RecordError(err)
		return dto.SubmissionView{}, translateSubmissionError(err, ErrNotCurrentSupervisor)
	}

	observability.ReviewTransitions().WithLabelValues(models.DecisionStageLecturer, payload.Decision).Inc()
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     ActionLecturerDecision,
		EntityType: EntitySubmission,
		EntityID:   &id,
		Metadata:   map[string]interface{}{"decision": payload.Decision},
	})

	updated, err := s.reload(ctx, id)
	if err != nil {
		return dto.SubmissionView{}, err
	}
	s.notifier.Notify(ctx, submission.StudentID, dto.NotificationLecturerDecision,
		fmt.Sprintf("Your supervisor marked \"%s\" as %s", submission.ProposedTitle, payload.Decision))

	return updated, nil
}

// Finalize records the binding decision and closes the submission. A closed submission cannot be finalized again.
func (s *reviewService) Finalize(ctx context.Context, actor Actor, id uint, payload dto.DecisionRequest) (dto.SubmissionView, error) {
	if !Can(actor, OpFinalize, Relation{}) {
		return dto.SubmissionView{}, ErrRoleNotPermitted
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionView{}, ErrInvalidDecision
	}

	ctx, span := s.tracer.Start(ctx, "review.finalize", trace.WithAttributes(
		attribute.Int64("submission.id", int64(id)),
		attribute.String("decision", payload.Decision),
	))
	defer span.End()

	if err := s.finalize(ctx, actor, id, payload.Decision, ActionSubmissionFinalized); err != nil {
		span.RecordError(err)
		return dto.SubmissionView{}, err
	}

	return s.reload(ctx, id)
}

// AutoDecide finalizes every open submission that has a score but no lecturer decision:
// scores below the threshold are approved and the rest rejected.
func (s *reviewService) AutoDecide(ctx context.Context, actor Actor, payload dto.AutoDecideRequest) (dto.AutoDecideResponse, error) {
	if !Can(actor, OpFinalize, Relation{}) {
		return dto.AutoDecideResponse{}, ErrRoleNotPermitted
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.AutoDecideResponse{}, err
	}

	threshold := s.threshold
	if payload.Threshold != nil {
		threshold = *payload.Threshold
	}

	ctx, span := s.tracer.Start(ctx, "review.auto_decide", trace.WithAttributes(
		attribute.Float64("threshold", threshold),
	))
	defer span.End()

	candidates, err := s.submissions.ListOpenWithoutLecturerDecision(ctx)
	if err != nil {
		span.RecordError(err)
		return dto.AutoDecideResponse{}, err
	}

	result := dto.AutoDecideResponse{Threshold: threshold}
	for _, submission := range candidates {
		if submission.SimilarityScore == nil {
			result.Skipped++
			continue
		}

		decision := models.DecisionRejected
		if *submission.SimilarityScore < threshold {
			decision = models.DecisionApproved
		}

		if err := s.finalize(ctx, actor, submission.ID, decision, ActionAutoDecide); err != nil {
			if errors.Is(err, ErrInvalidState) || errors.Is(err, ErrNotFound) {
				result.Skipped++
				continue
			}
			span.RecordError(err)
			return result, err
		}

		if decision == models.DecisionApproved {
			result.Approved++
		} else {
			result.Rejected++
		}
	}

	s.logger.Info().
		Float64("threshold", threshold).
		Int("approved", result.Approved).
		Int("rejected", result.Rejected).
		Int("skipped", result.Skipped).
		Msg("auto-decide completed")

	return result, nil
}

func (s *reviewService) finalize(ctx context.Context, actor Actor, id uint, decision, action string) error {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return notFoundAs(err, ErrSubmissionNotFound)
	}
	if !submission.IsOpen() {
		return ErrSubmissionClosed
	}

	if err := s.submissions.Finalize(ctx, id, actor.ID, decision, s.now().UTC()); err != nil {
		return translateSubmissionError(err, ErrSubmissionClosed)
	}

	observability.ReviewTransitions().WithLabelValues(models.DecisionStageFinal, decision).Inc()
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     action,
		EntityType: EntitySubmission,
		EntityID:   &id,
		Metadata:   map[string]interface{}{"decision": decision},
	})

	s.notifier.Notify(ctx, submission.StudentID, dto.NotificationFinalDecision,
		fmt.Sprintf("Your proposal \"%s\" was %s", submission.ProposedTitle, decision))
	return nil
}

func (s *reviewService) reload(ctx context.Context, id uint) (dto.SubmissionView, error) {
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
