package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/proposal-review-api/internal/dto"
	"github.com/noah-isme/proposal-review-api/internal/models"
)

func TestLecturerDecisionRequiresCurrentSupervisor(t *testing.T) {
	env := newWorkflowEnv(t)
	ctx := context.Background()
	submissions := env.submissionService(nil)
	review := env.reviewService()

	student := env.user(t, "ada", models.RoleStudent)
	former := env.user(t, "turing", models.RoleLecturer)
	current := env.user(t, "hopper", models.RoleLecturer)
	outsider := env.user(t, "knuth", models.RoleLecturer)
	env.assign(t, student, former)
	env.assign(t, student, current)

	created, err := submissions.Create(ctx, student, proposal("Thesis", "Scheduling under uncertainty"))
	require.NoError(t, err)

	approve := dto.DecisionRequest{Decision: models.DecisionApproved}

	_, err = review.SetLecturerDecision(ctx, outsider, created.ID, approve)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.ErrorIs(t, err, ErrOutsideReviewScope)

	_, err = review.SetLecturerDecision(ctx, former, created.ID, approve)
	require.ErrorIs(t, err, ErrNotCurrentSupervisor)

	_, err = review.SetLecturerDecision(ctx, student, created.ID, approve)
	require.ErrorIs(t, err, ErrUnauthorized)

	view, err := review.SetLecturerDecision(ctx, current, created.ID, approve)
	require.NoError(t, err)
	require.NotNil(t, view.LecturerDecision)
	require.Equal(t, models.DecisionApproved, *view.LecturerDecision)
	require.Equal(t, dto.SubmissionStatusOpen, view.Status)
	require.Equal(t, models.DecisionPending, view.FinalDecision)

	view, err = review.SetLecturerDecision(ctx, current, created.ID, dto.DecisionRequest{Decision: models.DecisionRejected})
	require.NoError(t, err)
	require.Equal(t, models.DecisionRejected, *view.LecturerDecision)
	require.Len(t, view.History, 2)

	require.Contains(t, env.notifier.kinds(student.ID), dto.NotificationLecturerDecision)
}

func TestLecturerDecisionValidatesPayload(t *testing.T) {
	env := newWorkflowEnv(t)
	lecturer := env.user(t, "turing", models.RoleLecturer)

	_, err := env.reviewService().SetLecturerDecision(context.Background(), lecturer, 1, dto.DecisionRequest{Decision: "maybe"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestFinalizeClosesSubmissionOnce(t *testing.T) {
	env := newWorkflowEnv(t)
	ctx := context.Background()
	submissions := env.submissionService(nil)
	review := env.reviewService()

	student := env.user(t, "ada", models.RoleStudent)
	lecturer := env.user(t, "turing", models.RoleLecturer)
	admin := env.user(t, "root", models.RoleAdmin)
	env.assign(t, student, lecturer)

	created, err := submissions.Create(ctx, student, proposal("Seminar", "Binding decisions"))
	require.NoError(t, err)

	_, err = review.Finalize(ctx, lecturer, created.ID, dto.DecisionRequest{Decision: models.DecisionApproved})
	require.ErrorIs(t, err, ErrUnauthorized)

	view, err := review.Finalize(ctx, admin, created.ID, dto.DecisionRequest{Decision: models.DecisionApproved})
	require.NoError(t, err)
	require.Equal(t, dto.SubmissionStatusClosed, view.Status)
	require.Equal(t, models.DecisionApproved, view.FinalDecision)
	require.NotNil(t, view.FinalizedAt)

	_, err = review.Finalize(ctx, admin, created.ID, dto.DecisionRequest{Decision: models.DecisionRejected})
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = review.SetLecturerDecision(ctx, lecturer, created.ID, dto.DecisionRequest{Decision: models.DecisionRejected})
	require.ErrorIs(t, err, ErrInvalidState)

	stored, err := submissions.Get(ctx, admin, created.ID)
	require.NoError(t, err)
	require.Equal(t, models.DecisionApproved, stored.FinalDecision)

	require.Equal(t, []string{dto.NotificationSubmissionReceived, dto.NotificationFinalDecision}, env.notifier.kinds(student.ID))
	require.Len(t, env.activity.entries, 1)
	require.Equal(t, ActionSubmissionFinalized, env.activity.entries[0].Action)
}

func TestFinalizeUnknownSubmission(t *testing.T) {
	env := newWorkflowEnv(t)
	admin := env.user(t, "root", models.RoleAdmin)

	_, err := env.reviewService().Finalize(context.Background(), admin, 404, dto.DecisionRequest{Decision: models.DecisionApproved})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAutoDecideUsesThreshold(t *testing.T) {
	env := newWorkflowEnv(t)
	ctx := context.Background()
	scorer := &fixedScorer{}
	submissions := env.submissionService(scorer)
	review := env.reviewService()

	admin := env.user(t, "root", models.RoleAdmin)
	lecturer := env.user(t, "turing", models.RoleLecturer)

	create := func(name string, score float64, fail bool) dto.SubmissionView {
		student := env.user(t, name, models.RoleStudent)
		env.assign(t, student, lecturer)
		scorer.value = score
		scorer.err = nil
		if fail {
			scorer.err = context.DeadlineExceeded
		}
		view, err := submissions.Create(ctx, student, proposal("Dissertation", name+" proposal"))
		require.NoError(t, err)
		return view
	}

	low := create("low", 30, false)
	high := create("high", 85, false)
	unscored := create("unscored", 0, true)
	advised := create("advised", 10, false)

	_, err := review.SetLecturerDecision(ctx, lecturer, advised.ID, dto.DecisionRequest{Decision: models.DecisionApproved})
	require.NoError(t, err)

	_, err = review.AutoDecide(ctx, lecturer, dto.AutoDecideRequest{})
	require.ErrorIs(t, err, ErrUnauthorized)

	result, err := review.AutoDecide(ctx, admin, dto.AutoDecideRequest{})
	require.NoError(t, err)
	require.Equal(t, 70.0, result.Threshold)
	require.Equal(t, 1, result.Approved)
	require.Equal(t, 1, result.Rejected)
	require.Equal(t, 1, result.Skipped)

	expect := map[uint]string{
		low.ID:      models.DecisionApproved,
		high.ID:     models.DecisionRejected,
		unscored.ID: models.DecisionPending,
		advised.ID:  models.DecisionPending,
	}
	for id, decision := range expect {
		view, err := submissions.Get(ctx, admin, id)
		require.NoError(t, err)
		require.Equal(t, decision, view.FinalDecision, "submission %d", id)
	}

	threshold := 101.0
	_, err = review.AutoDecide(ctx, admin, dto.AutoDecideRequest{Threshold: &threshold})
	require.Error(t, err)
}
