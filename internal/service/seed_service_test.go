package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/proposal-review-api/internal/dto"
	"github.com/noah-isme/proposal-review-api/internal/models"
)

func directorySeed() dto.SeedRequest {
	return dto.SeedRequest{
		Accounts: []dto.SeedAccount{
			{Name: "Root", Email: "Root@Uni.test", Role: models.RoleAdmin},
			{Name: "Ada Lovelace", Email: "ada@uni.test", Role: models.RoleStudent, RegNumber: "123456"},
			{Name: "Alan Turing", Email: "turing@uni.test", Role: models.RoleLecturer, RegNumber: "STAFF-9"},
		},
		Assignments: []dto.SeedAssignment{
			{StudentEmail: "ada@uni.test", SupervisorEmail: "turing@uni.test"},
		},
	}
}

func TestSeedServiceTokenGuard(t *testing.T) {
	env := newWorkflowEnv(t)
	ctx := context.Background()

	disabled := NewSeedService(env.users, env.assignments, env.policies, testValidator(), false, "secret", testLogger())
	_, err := disabled.SeedDirectory(ctx, "secret", directorySeed())
	require.ErrorIs(t, err, ErrSeedDisabled)

	svc := NewSeedService(env.users, env.assignments, env.policies, testValidator(), true, "secret", testLogger())
	_, err = svc.SeedDirectory(ctx, "wrong", directorySeed())
	require.ErrorIs(t, err, ErrSeedUnauthorized)

	result, err := svc.SeedDirectory(ctx, "secret", directorySeed())
	require.NoError(t, err)
	require.Equal(t, 3, result.AccountsCreated)
	require.Equal(t, 1, result.AssignmentsCreated)
}

func TestSeedBootstrapIsIdempotent(t *testing.T) {
	env := newWorkflowEnv(t)
	ctx := context.Background()
	svc := NewSeedService(env.users, env.assignments, env.policies, testValidator(), false, "", testLogger())

	_, err := svc.Bootstrap(ctx, directorySeed())
	require.NoError(t, err)

	result, err := svc.Bootstrap(ctx, directorySeed())
	require.NoError(t, err)
	require.Equal(t, 0, result.AccountsCreated)
	require.Equal(t, 3, result.AccountsSkipped)
	require.Equal(t, 0, result.AssignmentsCreated)

	admin, err := env.users.GetByEmail(ctx, "root@uni.test")
	require.NoError(t, err)
	require.True(t, admin.IsApproved)

	student, err := env.users.GetByEmail(ctx, "ada@uni.test")
	require.NoError(t, err)
	current, err := env.assignments.CurrentSupervisor(ctx, student.ID)
	require.NoError(t, err)
	require.NotNil(t, current)
	require.Equal(t, "turing@uni.test", current.Email)

	var policies int64
	require.NoError(t, env.db.Model(&models.SimilarityPolicy{}).Count(&policies).Error)
	require.Equal(t, int64(1), policies)
}

func TestSeedBootstrapRejectsBadStudentRegNumber(t *testing.T) {
	env := newWorkflowEnv(t)
	svc := NewSeedService(env.users, env.assignments, env.policies, testValidator(), false, "", testLogger())

	_, err := svc.Bootstrap(context.Background(), dto.SeedRequest{Accounts: []dto.SeedAccount{
		{Name: "Ada", Email: "ada@uni.test", Role: models.RoleStudent, RegNumber: "12AB"},
	}})
	require.ErrorIs(t, err, ErrInvalidRegNumber)
}
