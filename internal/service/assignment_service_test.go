package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/proposal-review-api/internal/dto"
	"github.com/noah-isme/proposal-review-api/internal/models"
)

func newAssignmentService(env *workflowEnv) AssignmentService {
	return NewAssignmentService(env.users, env.assignments, testValidator(), env.activityService(), testLogger())
}

func TestAssignIsIdempotent(t *testing.T) {
	env := newWorkflowEnv(t)
	svc := newAssignmentService(env)
	ctx := context.Background()

	admin := env.user(t, "root", models.RoleAdmin)
	student := env.user(t, "ada", models.RoleStudent)
	lecturer := env.user(t, "turing", models.RoleLecturer)
	req := dto.AssignSupervisorRequest{StudentID: student.ID, SupervisorID: lecturer.ID}

	first, err := svc.Assign(ctx, admin, req)
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := svc.Assign(ctx, admin, req)
	require.NoError(t, err)
	require.False(t, second.Created)
	require.Contains(t, second.Message, "already assigned")

	supervisors, err := svc.ListSupervisorsOf(ctx, admin, student.ID)
	require.NoError(t, err)
	require.Len(t, supervisors, 1)
	require.Len(t, env.activity.entries, 1)
}

func TestAssignRejectsWrongRoles(t *testing.T) {
	env := newWorkflowEnv(t)
	svc := newAssignmentService(env)
	ctx := context.Background()

	admin := env.user(t, "root", models.RoleAdmin)
	student := env.user(t, "ada", models.RoleStudent)
	other := env.user(t, "grace", models.RoleStudent)
	lecturer := env.user(t, "turing", models.RoleLecturer)

	_, err := svc.Assign(ctx, lecturer, dto.AssignSupervisorRequest{StudentID: student.ID, SupervisorID: lecturer.ID})
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Assign(ctx, admin, dto.AssignSupervisorRequest{StudentID: student.ID, SupervisorID: other.ID})
	require.ErrorIs(t, err, ErrLecturerNotFound)

	_, err = svc.Assign(ctx, admin, dto.AssignSupervisorRequest{StudentID: lecturer.ID, SupervisorID: lecturer.ID})
	require.ErrorIs(t, err, ErrStudentNotFound)
}

func TestCurrentSupervisorIsLastAssigned(t *testing.T) {
	env := newWorkflowEnv(t)
	svc := newAssignmentService(env)
	ctx := context.Background()

	admin := env.user(t, "root", models.RoleAdmin)
	student := env.user(t, "ada", models.RoleStudent)
	first := env.user(t, "turing", models.RoleLecturer)
	second := env.user(t, "hopper", models.RoleLecturer)
	stranger := env.user(t, "knuth", models.RoleLecturer)

	current, err := svc.CurrentSupervisor(ctx, student, student.ID)
	require.NoError(t, err)
	require.Nil(t, current)

	for _, lecturer := range []Actor{first, second} {
		_, err := svc.Assign(ctx, admin, dto.AssignSupervisorRequest{StudentID: student.ID, SupervisorID: lecturer.ID})
		require.NoError(t, err)
	}

	current, err = svc.CurrentSupervisor(ctx, first, student.ID)
	require.NoError(t, err)
	require.Equal(t, second.ID, current.ID)

	supervisors, err := svc.ListSupervisorsOf(ctx, student, student.ID)
	require.NoError(t, err)
	require.Equal(t, []uint{first.ID, second.ID}, []uint{supervisors[0].ID, supervisors[1].ID})

	_, err = svc.ListSupervisorsOf(ctx, stranger, student.ID)
	require.ErrorIs(t, err, ErrUnauthorized)

	students, err := svc.ListSuperviseesOf(ctx, first, first.ID)
	require.NoError(t, err)
	require.Len(t, students, 1)

	_, err = svc.ListSuperviseesOf(ctx, first, second.ID)
	require.ErrorIs(t, err, ErrUnauthorized)
}
