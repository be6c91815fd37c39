package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/noah-isme/tutoring-orchestrator/internal/catalog"
	"github.com/noah-isme/tutoring-orchestrator/internal/models"
	appErrors "github.com/noah-isme/tutoring-orchestrator/pkg/errors"
	"github.com/noah-isme/tutoring-orchestrator/pkg/export"
)

// Hour report formats.
const (
	ReportFormatJSON = "json"
	ReportFormatCSV  = "csv"
	ReportFormatPDF  = "pdf"
)

type hourEntryLister interface {
	List(ctx context.Context, filter models.HourEntryFilter) ([]models.HourEntry, error)
}

type tableRenderer interface {
	Render(table export.Table) ([]byte, error)
}

// HourReport is a rendered hour log.
type HourReport struct {
	Filename    string
	ContentType string
	Data        []byte
}

// HourReportService lists tutors' hour entries and renders them for download.
type HourReportService struct {
	repo   hourEntryLister
	csv    tableRenderer
	pdf    tableRenderer
	blocks *catalog.Blocks
}

// NewHourReportService constructs the service.
func NewHourReportService(repo hourEntryLister, csv, pdf tableRenderer, blocks *catalog.Blocks) *HourReportService {
	return &HourReportService{repo: repo, csv: csv, pdf: pdf, blocks: blocks}
}

// List returns the tutor's entries.
func (s *HourReportService) List(ctx context.Context, filter models.HourEntryFilter) ([]models.HourEntry, error) {
	if filter.TutorUID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tutor uid is required")
	}
	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Store(err, "failed to list hour entries")
	}
	return entries, nil
}

// Render lists the entries and renders them as csv or pdf.
func (s *HourReportService) Render(ctx context.Context, filter models.HourEntryFilter, format string) (*HourReport, error) {
	entries, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	table := s.table(filter.TutorUID, entries)
	base := fmt.Sprintf("hours-%s", filter.TutorUID)

	switch strings.ToLower(format) {
	case ReportFormatCSV:
		data, err := s.csv.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &HourReport{Filename: base + ".csv", ContentType: "text/csv", Data: data}, nil
	case ReportFormatPDF:
		data, err := s.pdf.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &HourReport{Filename: base + ".pdf", ContentType: "application/pdf", Data: data}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", format))
	}
}

func (s *HourReportService) table(tutorUID string, entries []models.HourEntry) export.Table {
	table := export.Table{
		Headers: []string{"Date", "Cycle Day", "Block", "Class", "Subject", "Student", "Type"},
		Rows:    make([][]string, 0, len(entries)),
		Footer:  fmt.Sprintf("Total entries: %d", len(entries)),
	}
	title := tutorUID
	for _, e := range entries {
		if e.TutorName != "" {
			title = e.TutorName
		}
		table.Rows = append(table.Rows, []string{
			e.Slot.Date,
			e.Slot.CycleDay,
			s.blocks.Name(e.Slot.Block),
			e.Class,
			e.Subject,
			e.StudentName,
			string(e.Type),
		})
	}
	table.Title = "Tutoring hours: " + title
	return table
}
