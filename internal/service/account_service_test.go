package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/proposal-review-api/internal/dto"
	"github.com/noah-isme/proposal-review-api/internal/models"
)

func newAccountService(env *workflowEnv) AccountService {
	return NewAccountService(env.users, env.assignments, testValidator(), env.activityService(), env.notifier, testLogger())
}

func TestSignupValidation(t *testing.T) {
	env := newWorkflowEnv(t)
	svc := newAccountService(env)
	ctx := context.Background()

	user, err := svc.Signup(ctx, dto.SignupRequest{Name: "Ada", Email: " ADA@uni.test ", Role: "Student", RegNumber: "123456"})
	require.NoError(t, err)
	require.Equal(t, "ada@uni.test", user.Email)
	require.Equal(t, dto.AccountStatusPending, user.Status)

	_, err = svc.Signup(ctx, dto.SignupRequest{Name: "Grace", Email: "grace@uni.test", Role: "student", RegNumber: "12345"})
	require.ErrorIs(t, err, ErrInvalidRegNumber)

	_, err = svc.Signup(ctx, dto.SignupRequest{Name: "Grace", Email: "grace@uni.test", Role: "student", RegNumber: "123456"})
	require.ErrorIs(t, err, ErrRegNumberTaken)

	_, err = svc.Signup(ctx, dto.SignupRequest{Name: "Ada Again", Email: "ada@uni.test", Role: "lecturer"})
	require.ErrorIs(t, err, ErrEmailTaken)

	_, err = svc.Signup(ctx, dto.SignupRequest{Name: "Mallory", Email: "mallory@uni.test", Role: "admin"})
	var validationErrs validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrs)
}

func TestApprovalGatesIdentity(t *testing.T) {
	env := newWorkflowEnv(t)
	svc := newAccountService(env)
	ctx := context.Background()
	admin := env.user(t, "root", models.RoleAdmin)

	pending, err := svc.Signup(ctx, dto.SignupRequest{Name: "Turing", Email: "turing@uni.test", Role: "lecturer"})
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, pending.ID)
	require.ErrorIs(t, err, ErrAccountNotApproved)

	list, err := svc.ListPending(ctx, admin)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = svc.Approve(ctx, Actor{ID: pending.ID, Role: models.RoleLecturer}, pending.ID)
	require.ErrorIs(t, err, ErrUnauthorized)

	approved, err := svc.Approve(ctx, admin, pending.ID)
	require.NoError(t, err)
	require.Equal(t, dto.AccountStatusApproved, approved.Status)
	require.Contains(t, env.notifier.kinds(pending.ID), dto.NotificationAccountApproved)

	actor, err := svc.Resolve(ctx, pending.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoleLecturer, actor.Role)

	_, err = svc.Reject(ctx, admin, pending.ID)
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = svc.Resolve(ctx, 4040)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRejectedAccountCannotAct(t *testing.T) {
	env := newWorkflowEnv(t)
	svc := newAccountService(env)
	ctx := context.Background()
	admin := env.user(t, "root", models.RoleAdmin)

	user, err := svc.Signup(ctx, dto.SignupRequest{Name: "Eve", Email: "eve@uni.test", Role: "student", RegNumber: "654321"})
	require.NoError(t, err)

	rejected, err := svc.Reject(ctx, admin, user.ID)
	require.NoError(t, err)
	require.Equal(t, dto.AccountStatusRejected, rejected.Status)

	_, err = svc.Resolve(ctx, user.ID)
	require.ErrorIs(t, err, ErrAccountRejected)

	_, err = svc.Approve(ctx, admin, user.ID)
	require.ErrorIs(t, err, ErrAccountAlreadyDecided)
}
