package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Sebxs22/Proyecto-de-Grado/internal/dto"
	appErrors "github.com/Sebxs22/Proyecto-de-Grado/pkg/errors"
	"github.com/Sebxs22/Proyecto-de-Grado/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

var (
	rosterHeaders = []string{"Student", "Subject", "Term", "Status", "Probability", "Tier", "Color", "Sessions", "Explanation"}
	rosterWidths  = []float64{3, 2.5, 1.2, 1.2, 1, 2, 0.8, 0.8, 5}
)

type tutorDashboardSource interface {
	Tutor(ctx context.Context, tutorID string, intervene bool) (*dto.TutorDashboard, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult is a rendered roster ready to download.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders the tutor risk roster.
type ExportService struct {
	dashboards tutorDashboardSource
	csv        csvRenderer
	pdf        pdfRenderer
	logger     *zap.Logger
	now        func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(dashboards tutorDashboardSource, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{dashboards: dashboards, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// TutorRoster renders the tutor's dashboard rows as CSV or PDF. It never
// triggers interventions.
func (s *ExportService) TutorRoster(ctx context.Context, tutorID, format string) (*ExportResult, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	dashboard, err := s.dashboards.Tutor(ctx, tutorID, false)
	if err != nil {
		return nil, err
	}
	dataset := rosterDataset(dashboard)

	var payload []byte
	contentType := "text/csv"
	switch format {
	case ExportFormatPDF:
		contentType = "application/pdf"
		payload, err = s.pdf.Render(dataset, "Tutoring risk roster")
	default:
		payload, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}

	s.logger.Info("roster exported", zap.String("tutor_id", tutorID), zap.String("format", format), zap.Int("rows", len(dataset.Rows)))
	return &ExportResult{
		Filename:    fmt.Sprintf("roster_%s_%s.%s", sanitizeFilename(tutorID), s.now().UTC().Format("20060102_150405"), format),
		ContentType: contentType,
		Payload:     payload,
	}, nil
}

func rosterDataset(dashboard *dto.TutorDashboard) export.Dataset {
	dataset := export.Dataset{Headers: rosterHeaders, Widths: rosterWidths, Rows: make([]map[string]string, 0, len(dashboard.Rows))}
	for _, row := range dashboard.Rows {
		record := map[string]string{
			"Student": row.Enrollment.StudentName,
			"Subject": row.Enrollment.SubjectName,
			"Term":    row.Enrollment.TermName,
			"Status":  string(row.Enrollment.Status),
		}
		if row.Assessment == nil {
			record["Explanation"] = row.Error
		} else {
			record["Probability"] = strconv.FormatFloat(row.Assessment.Probability, 'f', 1, 64)
			record["Tier"] = string(row.Assessment.Tier)
			record["Color"] = row.Assessment.Color
			record["Sessions"] = strconv.Itoa(row.Assessment.CompletedSessions)
			record["Explanation"] = row.Assessment.Explanation
		}
		dataset.Rows = append(dataset.Rows, record)
	}
	return dataset
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
