package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/proposal-review-api/internal/dto"
	"github.com/noah-isme/proposal-review-api/internal/repository"
	"github.com/noah-isme/proposal-review-api/internal/similarity"
)

const exportSheetName = "Submissions"

var exportHeaders = []string{
	"ID", "Student", "Reg. Number", "Proposal Type", "Tier", "Title",
	"Supervisor", "Similarity", "Band", "Lecturer Decision", "Final Decision", "Submitted At", "Finalized At",
}

// ExportService produces spreadsheet exports of the submission register.
type ExportService interface {
	ExportSubmissions(ctx context.Context, actor Actor, req dto.SubmissionListRequest) (*bytes.Buffer, string, error)
}

type exportService struct {
	submissions repository.SubmissionRepository
	assignments repository.SupervisorAssignmentRepository
	logger      zerolog.Logger
	now         func() time.Time
}

// NewExportService constructs the export service.
func NewExportService(submissions repository.SubmissionRepository, assignments repository.SupervisorAssignmentRepository, logger zerolog.Logger) ExportService {
	return &exportService{
		submissions: submissions,
		assignments: assignments,
		logger:      logger.With().Str("component", "export_service").Logger(),
		now:         time.Now,
	}
}

// ExportSubmissions writes every submission matching the filters to an XLSX workbook.
func (s *exportService) ExportSubmissions(ctx context.Context, actor Actor, req dto.SubmissionListRequest) (*bytes.Buffer, string, error) {
	if !Can(actor, OpExport, Relation{}) {
		return nil, "", ErrRoleNotPermitted
	}

	filter := repository.SubmissionFilter{
		ProposalType:  req.ProposalType,
		FinalDecision: req.FinalDecision,
	}
	if req.StudentID > 0 {
		filter.StudentID = &req.StudentID
	}
	if req.SupervisorID > 0 {
		filter.SupervisorID = &req.SupervisorID
	}

	submissions, _, err := s.submissions.List(ctx, filter)
	if err != nil {
		return nil, "", err
	}
	views, err := viewsOf(ctx, s.assignments, submissions)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(exportSheetName)
	if err != nil {
		return nil, "", err
	}
	f.SetActiveSheet(idx)
	_ = f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	highStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#F8CBAD"}, Pattern: 1},
	})

	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(exportSheetName, cell, header)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(exportHeaders), 1)
	_ = f.SetCellStyle(exportSheetName, "A1", lastHeader, headerStyle)
	_ = f.SetColWidth(exportSheetName, "A", "A", 8)
	_ = f.SetColWidth(exportSheetName, "B", "E", 16)
	_ = f.SetColWidth(exportSheetName, "F", "F", 48)
	_ = f.SetColWidth(exportSheetName, "G", "M", 18)

	for i, view := range views {
		row := i + 2
		values := exportRow(view)
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(exportSheetName, cell, value)
		}
		if view.SimilarityBand == similarity.BandHigh {
			from, _ := excelize.CoordinatesToCellName(1, row)
			to, _ := excelize.CoordinatesToCellName(len(exportHeaders), row)
			_ = f.SetCellStyle(exportSheetName, from, to, highStyle)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error().Err(err).Msg("failed to write submissions workbook")
		return nil, "", fmt.Errorf("generate workbook: %w", err)
	}

	s.logger.Info().Uint("actor_id", actor.ID).Int("rows", len(views)).Msg("submissions exported")

	filename := fmt.Sprintf("submissions_%s.xlsx", s.now().UTC().Format("20060102-150405"))
	return buf, filename, nil
}

func exportRow(view dto.SubmissionView) []interface{} {
	supervisor := ""
	if view.CurrentSupervisor != nil {
		supervisor = view.CurrentSupervisor.Name
	}
	var score interface{} = ""
	if view.SimilarityScore != nil {
		score = *view.SimilarityScore
	}
	lecturer := ""
	if view.LecturerDecision != nil {
		lecturer = *view.LecturerDecision
	}
	finalizedAt := ""
	if view.FinalizedAt != nil {
		finalizedAt = view.FinalizedAt.UTC().Format(time.RFC3339)
	}

	return []interface{}{
		view.ID,
		view.Student.Name,
		view.Student.RegNumber,
		view.ProposalType,
		string(view.Tier),
		view.ProposedTitle,
		supervisor,
		score,
		string(view.SimilarityBand),
		lecturer,
		view.FinalDecision,
		view.CreatedAt.UTC().Format(time.RFC3339),
		finalizedAt,
	}
}
