package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/proposal-review-api/internal/dto"
	"github.com/noah-isme/proposal-review-api/internal/models"
)

func TestDocumentRenderPDFForViewers(t *testing.T) {
	env := newWorkflowEnv(t)
	ctx := context.Background()
	student := env.user(t, "ada", models.RoleStudent)
	supervisor := env.user(t, "turing", models.RoleLecturer)
	outsider := env.user(t, "hopper", models.RoleLecturer)
	env.assign(t, student, supervisor)

	created, err := env.submissionService(&fixedScorer{value: 82.5}).Create(ctx, student, proposal("Seminar", "Soil sensing"))
	require.NoError(t, err)

	renderer := &stubRenderer{}
	svc := NewDocumentService(env.submissions, env.assignments, renderer, nil, env.activityService(), testLogger())

	file, err := svc.RenderPDF(ctx, supervisor, created.ID)
	require.NoError(t, err)
	require.Equal(t, pdfContentType, file.ContentType)
	require.NotEmpty(t, file.Data)
	require.Contains(t, file.Filename, ".pdf")

	require.Len(t, renderer.docs, 1)
	doc := renderer.docs[0]
	require.Equal(t, "Soil sensing", doc.Title)
	require.NotEmpty(t, doc.Sections)

	var supervisorField string
	for _, field := range doc.Meta {
		if field.Label == "Supervisor" {
			supervisorField = field.Value
		}
	}
	require.Equal(t, "turing", supervisorField)

	_, err = svc.RenderPDF(ctx, outsider, created.ID)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.RenderPDF(ctx, supervisor, 9999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDocumentRenderRejectsNonPDFOutput(t *testing.T) {
	env := newWorkflowEnv(t)
	ctx := context.Background()
	student := env.user(t, "ada", models.RoleStudent)
	created, err := env.submissionService(nil).Create(ctx, student, proposal("Seminar", "Soil sensing"))
	require.NoError(t, err)

	svc := NewDocumentService(env.submissions, env.assignments, &stubRenderer{data: []byte("<html></html>")}, nil, nil, testLogger())
	_, err = svc.RenderPDF(ctx, student, created.ID)
	require.Error(t, err)

	svc = NewDocumentService(env.submissions, env.assignments, &stubRenderer{err: errors.New("chrome crashed")}, nil, nil, testLogger())
	_, err = svc.RenderPDF(ctx, student, created.ID)
	require.EqualError(t, err, "chrome crashed")

	svc = NewDocumentService(env.submissions, env.assignments, nil, nil, nil, testLogger())
	_, err = svc.RenderPDF(ctx, student, created.ID)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestDocumentArchiveRequiresClosedSubmission(t *testing.T) {
	env := newWorkflowEnv(t)
	ctx := context.Background()
	admin := env.user(t, "root", models.RoleAdmin)
	student := env.user(t, "ada", models.RoleStudent)

	created, err := env.submissionService(nil).Create(ctx, student, proposal("Project", "Irrigation scheduling"))
	require.NoError(t, err)

	uploader := &stubUploader{}
	svc := NewDocumentService(env.submissions, env.assignments, &stubRenderer{}, uploader, env.activityService(), testLogger())

	_, err = svc.Archive(ctx, student, created.ID)
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Archive(ctx, admin, created.ID)
	require.ErrorIs(t, err, ErrInvalidState)

	_, err = env.reviewService().Finalize(ctx, admin, created.ID, dto.DecisionRequest{Decision: models.DecisionApproved})
	require.NoError(t, err)

	archived, err := svc.Archive(ctx, admin, created.ID)
	require.NoError(t, err)
	require.Len(t, uploader.names, 1)
	require.Contains(t, uploader.names[0], "approved")
	require.Positive(t, uploader.sizes[0])
	require.Equal(t, "https://cdn.test/"+uploader.names[0], archived.ArchiveURL)

	stored, err := env.submissions.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, archived.ArchiveURL, stored.ArchiveURL)

	unconfigured := NewDocumentService(env.submissions, env.assignments, &stubRenderer{}, nil, nil, testLogger())
	_, err = unconfigured.Archive(ctx, admin, created.ID)
	require.ErrorIs(t, err, ErrUnavailable)
}
