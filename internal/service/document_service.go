package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/proposal-review-api/internal/dto"
	"github.com/noah-isme/proposal-review-api/internal/repository"
	"github.com/noah-isme/proposal-review-api/pkg/pdf"
)

const pdfContentType = "application/pdf"

// DocumentRenderer turns a printable proposal into PDF bytes.
type DocumentRenderer interface {
	Render(ctx context.Context, doc pdf.Document) ([]byte, error)
}

// FileUploader stores a generated artifact and returns its public URL.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// DocumentService renders proposals to PDF and archives finalized ones.
type DocumentService interface {
	RenderPDF(ctx context.Context, actor Actor, id uint) (dto.DocumentFile, error)
	Archive(ctx context.Context, actor Actor, id uint) (dto.SubmissionView, error)
}

type documentService struct {
	submissions repository.SubmissionRepository
	assignments repository.SupervisorAssignmentRepository
	renderer    DocumentRenderer
	uploader    FileUploader
	activity    ActivityRecorder
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewDocumentService constructs the document service. renderer and uploader may be nil when not configured.
func NewDocumentService(submissions repository.SubmissionRepository, assignments repository.SupervisorAssignmentRepository, renderer DocumentRenderer, uploader FileUploader, activity ActivityRecorder, logger zerolog.Logger) DocumentService {
	return &documentService{
		submissions: submissions,
		assignments: assignments,
		renderer:    renderer,
		uploader:    uploader,
		activity:    activity,
		logger:      logger.With().Str("component", "document_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/proposal-review-api/internal/service/document"),
	}
}

// RenderPDF prints a proposal for anyone allowed to view it. Open and closed submissions are both printable.
func (s *documentService) RenderPDF(ctx context.Context, actor Actor, id uint) (dto.DocumentFile, error) {
	ctx, span := s.tracer.Start(ctx, "documents.render", trace.WithAttributes(attribute.Int64("submission.id", int64(id))))
	defer span.End()

	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return dto.DocumentFile{}, notFoundAs(err, ErrSubmissionNotFound)
	}

	rel, current, err := relationTo(ctx, s.assignments, actor, submission)
	if err != nil {
		return dto.DocumentFile{}, err
	}
	if !Can(actor, OpViewSubmission, rel) {
		return dto.DocumentFile{}, ErrOutsideReviewScope
	}

	view := dto.NewSubmissionView(submission, current)
	data, err := s.render(ctx, view)
	if err != nil {
		span.RecordError(err)
		return dto.DocumentFile{}, err
	}

	return dto.DocumentFile{
		Filename:    pdf.Filename(view.ProposedTitle),
		ContentType: pdfContentType,
		Data:        data,
	}, nil
}

// Archive renders a finalized proposal and stores it in the document archive.
func (s *documentService) Archive(ctx context.Context, actor Actor, id uint) (dto.SubmissionView, error) {
	if !Can(actor, OpArchive, Relation{}) {
		return dto.SubmissionView{}, ErrRoleNotPermitted
	}
	if s.uploader == nil {
		return dto.SubmissionView{}, ErrArchiveUnavailable
	}

	ctx, span := s.tracer.Start(ctx, "documents.archive", trace.WithAttributes(attribute.Int64("submission.id", int64(id))))
	defer span.End()

	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return dto.SubmissionView{}, notFoundAs(err, ErrSubmissionNotFound)
	}
	if submission.IsOpen() {
		return dto.SubmissionView{}, ErrArchiveRequiresClosed
	}

	current, err := s.assignments.CurrentSupervisor(ctx, submission.StudentID)
	if err != nil {
		return dto.SubmissionView{}, err
	}

	view := dto.NewSubmissionView(submission, current)
	data, err := s.render(ctx, view)
	if err != nil {
		span.RecordError(err)
		return dto.SubmissionView{}, err
	}

	name := fmt.Sprintf("proposal-%d-%s.pdf", submission.ID, submission.FinalDecision)
	url, err := s.uploader.Upload(ctx, name, bytes.NewReader(data))
	if err != nil {
		span.RecordError(err)
		return dto.SubmissionView{}, err
	}
	if err := s.submissions.SetArchiveURL(ctx, id, url); err != nil {
		return dto.SubmissionView{}, notFoundAs(err, ErrSubmissionNotFound)
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     ActionSubmissionArchived,
		EntityType: EntitySubmission,
		EntityID:   &id,
		Metadata:   map[string]interface{}{"url": url},
	})

	view.ArchiveURL = url
	return view, nil
}

func (s *documentService) render(ctx context.Context, view dto.SubmissionView) ([]byte, error) {
	if s.renderer == nil {
		return nil, ErrRendererUnavailable
	}

	data, err := s.renderer.Render(ctx, documentOf(view))
	if err != nil {
		return nil, err
	}
	if detected := mimetype.Detect(data); !detected.Is(pdfContentType) {
		s.logger.Error().Str("detected", detected.String()).Uint("submission_id", view.ID).Msg("renderer returned non-pdf content")
		return nil, fmt.Errorf("renderer returned %s instead of pdf", detected.String())
	}
	return data, nil
}

// documentOf lays out a submission view for printing. Highlights come from the view so print and screen agree.
func documentOf(view dto.SubmissionView) pdf.Document {
	supervisor := "Unassigned"
	if view.CurrentSupervisor != nil {
		supervisor = view.CurrentSupervisor.Name
	}
	score := "Not scored"
	if view.SimilarityScore != nil {
		score = fmt.Sprintf("%.2f%% (%s)", *view.SimilarityScore, view.SimilarityBand)
	}
	lecturer := "Pending"
	if view.LecturerDecision != nil {
		lecturer = *view.LecturerDecision
	}

	meta := []pdf.MetaField{{Label: "Student", Value: view.Student.Name}}
	if view.Student.RegNumber != "" {
		meta = append(meta, pdf.MetaField{Label: "Registration number", Value: view.Student.RegNumber})
	}

	doc := pdf.Document{
		Title:    view.ProposedTitle,
		Subtitle: fmt.Sprintf("%s proposal (%s)", view.ProposalType, view.Tier),
		Meta: append(meta, []pdf.MetaField{
			{Label: "Supervisor", Value: supervisor},
			{Label: "Similarity", Value: score},
			{Label: "Lecturer decision", Value: lecturer},
			{Label: "Final decision", Value: view.FinalDecision},
			{Label: "Submitted", Value: view.CreatedAt.UTC().Format(time.RFC1123)},
		}...),
		Footer: fmt.Sprintf("Proposal #%d", view.ID),
	}

	for _, section := range view.Sections {
		segments := make([]pdf.Segment, 0, len(section.Highlight.Segments))
		for _, segment := range section.Highlight.Segments {
			segments = append(segments, pdf.Segment{Text: segment.Text, Flagged: segment.Flagged})
		}
		doc.Sections = append(doc.Sections, pdf.Section{Label: section.Label, Segments: segments})
	}
	return doc
}
