package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/proposal-review-api/internal/dto"
	"github.com/noah-isme/proposal-review-api/internal/models"
	"github.com/noah-isme/proposal-review-api/internal/similarity"
)

func proposal(proposalType, title string) dto.SubmissionCreateRequest {
	return dto.SubmissionCreateRequest{
		ProposalType:  proposalType,
		ProposedTitle: title,
		Background:    "Crop yields vary. Sensors are cheap! Can we predict harvests?",
		Aim:           "Predict maize yield from soil sensors.",
	}
}

func TestSubmissionCreateEnforcesUndergraduateQuota(t *testing.T) {
	env := newWorkflowEnv(t)
	svc := env.submissionService(nil)
	review := env.reviewService()
	ctx := context.Background()

	student := env.user(t, "ada", models.RoleStudent)
	admin := env.user(t, "root", models.RoleAdmin)

	seminar, err := svc.Create(ctx, student, proposal("Seminar", "Soil sensing for smallholder farms"))
	require.NoError(t, err)
	require.Equal(t, similarity.TierUndergraduate, seminar.Tier)
	require.Equal(t, dto.SubmissionStatusOpen, seminar.Status)

	_, err = svc.Create(ctx, student, proposal("Project", "Irrigation scheduling"))
	require.ErrorIs(t, err, ErrPolicyViolation)
	require.ErrorIs(t, err, ErrOpenUndergradSubmission)

	_, err = svc.Create(ctx, student, proposal("Dissertation", "Yield forecasting at scale"))
	require.NoError(t, err)

	_, err = review.Finalize(ctx, admin, seminar.ID, dto.DecisionRequest{Decision: models.DecisionRejected})
	require.NoError(t, err)

	_, err = svc.Create(ctx, student, proposal("Project", "Irrigation scheduling"))
	require.NoError(t, err)
}

func TestSubmissionCreateBlockedByQuotaSkipsScorer(t *testing.T) {
	env := newWorkflowEnv(t)
	scorer := &fixedScorer{value: 40}
	svc := env.submissionService(scorer)
	ctx := context.Background()
	student := env.user(t, "ada", models.RoleStudent)

	_, err := svc.Create(ctx, student, proposal("Seminar", "Soil sensing for smallholder farms"))
	require.NoError(t, err)
	require.Equal(t, 1, scorer.calls)

	_, err = svc.Create(ctx, student, proposal("Project", "Irrigation scheduling"))
	require.ErrorIs(t, err, ErrOpenUndergradSubmission)
	require.Equal(t, 1, scorer.calls)
}

func TestSubmissionCreateAllowsMultipleWhenPolicyPermits(t *testing.T) {
	env := newWorkflowEnv(t)
	ctx := context.Background()
	admin := env.user(t, "root", models.RoleAdmin)
	student := env.user(t, "ada", models.RoleStudent)

	allow := true
	_, err := env.policyService().Update(ctx, admin, dto.SimilarityPolicyUpdateRequest{
		UndergradMode:            "title",
		PostgradMode:             "title_plus",
		AllowMultipleSubmissions: &allow,
	})
	require.NoError(t, err)

	svc := env.submissionService(nil)
	_, err = svc.Create(ctx, student, proposal("Seminar", "First idea"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, student, proposal("Project", "Second idea"))
	require.NoError(t, err)
}

func TestSubmissionCreateRejectsUnknownTypeAndNonStudents(t *testing.T) {
	env := newWorkflowEnv(t)
	svc := env.submissionService(nil)
	ctx := context.Background()

	student := env.user(t, "ada", models.RoleStudent)
	lecturer := env.user(t, "turing", models.RoleLecturer)

	_, err := svc.Create(ctx, student, proposal("Essay", "Unknown kind"))
	require.ErrorIs(t, err, ErrValidation)
	require.ErrorIs(t, err, ErrUnknownProposalType)

	_, err = svc.Create(ctx, lecturer, proposal("Seminar", "Not mine to submit"))
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestSubmissionCreateSnapshotsSupervisorAndAlertsOnHighSimilarity(t *testing.T) {
	env := newWorkflowEnv(t)
	scorer := &fixedScorer{value: 82.5}
	svc := env.submissionService(scorer)
	ctx := context.Background()

	student := env.user(t, "ada", models.RoleStudent)
	lecturer := env.user(t, "turing", models.RoleLecturer)
	env.assign(t, student, lecturer)

	view, err := svc.Create(ctx, student, proposal("Thesis", "Graph neural networks for crops"))
	require.NoError(t, err)
	require.Equal(t, 1, scorer.calls)
	require.NotNil(t, view.SimilarityScore)
	require.InDelta(t, 82.5, *view.SimilarityScore, 0.001)
	require.Equal(t, similarity.BandHigh, view.SimilarityBand)
	require.NotNil(t, view.SupervisorSnapshot)
	require.Equal(t, lecturer.ID, view.SupervisorSnapshot.ID)
	require.Equal(t, lecturer.ID, view.CurrentSupervisor.ID)

	require.Equal(t, []string{dto.NotificationSubmissionReceived}, env.notifier.kinds(student.ID))
	require.Equal(t, []string{dto.NotificationSubmissionAssigned, dto.NotificationHighSimilarity}, env.notifier.kinds(lecturer.ID))
}

func TestSubmissionCreateLeavesScoreEmptyWhenScorerFails(t *testing.T) {
	env := newWorkflowEnv(t)
	svc := env.submissionService(&fixedScorer{err: errors.New("embedding service down")})

	view, err := svc.Create(context.Background(), env.user(t, "ada", models.RoleStudent), proposal("Seminar", "Unscored"))
	require.NoError(t, err)
	require.Nil(t, view.SimilarityScore)
	require.Equal(t, similarity.BandLow, view.SimilarityBand)
	require.Nil(t, view.SupervisorSnapshot)
}

func TestSubmissionUpdateRules(t *testing.T) {
	env := newWorkflowEnv(t)
	svc := env.submissionService(nil)
	ctx := context.Background()

	owner := env.user(t, "ada", models.RoleStudent)
	other := env.user(t, "grace", models.RoleStudent)
	admin := env.user(t, "root", models.RoleAdmin)

	created, err := svc.Create(ctx, owner, proposal("Seminar", "Draft title"))
	require.NoError(t, err)

	update := dto.SubmissionUpdateRequest{ProposedTitle: "  Refined title  ", Aim: "Sharper aim."}
	_, err = svc.Update(ctx, other, created.ID, update)
	require.ErrorIs(t, err, ErrUnauthorized)

	updated, err := svc.Update(ctx, owner, created.ID, update)
	require.NoError(t, err)
	require.Equal(t, "Refined title", updated.ProposedTitle)

	_, err = env.reviewService().Finalize(ctx, admin, created.ID, dto.DecisionRequest{Decision: models.DecisionApproved})
	require.NoError(t, err)

	_, err = svc.Update(ctx, owner, created.ID, update)
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.Update(ctx, owner, 9999, update)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSubmissionUpdateKeepsScoreWhenRescoreFails(t *testing.T) {
	env := newWorkflowEnv(t)
	scorer := &fixedScorer{value: 82}
	svc := env.submissionService(scorer)
	ctx := context.Background()
	owner := env.user(t, "ada", models.RoleStudent)

	created, err := svc.Create(ctx, owner, proposal("Thesis", "Graph neural networks for crops"))
	require.NoError(t, err)
	require.NotNil(t, created.SimilarityScore)

	scorer.err = errors.New("embedding service down")
	updated, err := svc.Update(ctx, owner, created.ID, dto.SubmissionUpdateRequest{ProposedTitle: "Graph networks for crop yield", Aim: "Rewritten aim."})
	require.NoError(t, err)
	require.Equal(t, "Graph networks for crop yield", updated.ProposedTitle)
	require.NotNil(t, updated.SimilarityScore)
	require.InDelta(t, 82, *updated.SimilarityScore, 0.001)
	require.Equal(t, similarity.BandHigh, updated.SimilarityBand)
	require.Equal(t, 2, scorer.calls)
}

func TestSubmissionVisibilityFollowsRegistry(t *testing.T) {
	env := newWorkflowEnv(t)
	svc := env.submissionService(nil)
	ctx := context.Background()

	student := env.user(t, "ada", models.RoleStudent)
	peer := env.user(t, "grace", models.RoleStudent)
	supervisor := env.user(t, "turing", models.RoleLecturer)
	outsider := env.user(t, "hopper", models.RoleLecturer)
	admin := env.user(t, "root", models.RoleAdmin)
	env.assign(t, student, supervisor)

	created, err := svc.Create(ctx, student, proposal("Dissertation", "Visible work"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, peer, proposal("Dissertation", "Someone else's work"))
	require.NoError(t, err)

	for _, actor := range []Actor{student, supervisor, admin} {
		_, err := svc.Get(ctx, actor, created.ID)
		require.NoError(t, err)
	}
	for _, actor := range []Actor{peer, outsider} {
		_, err := svc.Get(ctx, actor, created.ID)
		require.ErrorIs(t, err, ErrUnauthorized)
	}

	list, err := svc.List(ctx, supervisor, dto.SubmissionListRequest{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.Equal(t, created.ID, list.Items[0].ID)

	list, err = svc.List(ctx, outsider, dto.SubmissionListRequest{})
	require.NoError(t, err)
	require.Empty(t, list.Items)

	list, err = svc.List(ctx, admin, dto.SubmissionListRequest{PageSize: 500})
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	require.Equal(t, 100, list.Pagination.PageSize)
	require.Equal(t, int64(2), list.Pagination.TotalItems)
}
