package service

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/campushq/student-records-api/internal/models"
	appErrors "github.com/campushq/student-records-api/pkg/errors"
	"github.com/campushq/student-records-api/pkg/export"
)

type studentLister interface {
	ListActive(ctx context.Context) ([]models.Student, error)
}

// ExportFormat names a supported roster export encoding.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// ExportResult carries rendered export bytes and response metadata.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders the active roster for download. Exports run
// synchronously; there is no job queue.
type ExportService struct {
	students studentLister
	csv      *export.CSVExporter
	pdf      *export.PDFExporter
	logger   *zap.Logger
}

// NewExportService constructs the export service.
func NewExportService(students studentLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		students: students,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// Roster renders the active student roster in the requested format.
func (s *ExportService) Roster(ctx context.Context, format string) (*ExportResult, error) {
	students, err := s.students.ListActive(ctx)
	if err != nil {
		return nil, storeError(err, "failed to load students for export")
	}

	data := rosterDataset(students)
	stamp := time.Now().UTC().Format("20060102")

	switch format {
	case ExportFormatCSV:
		content, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{Content: content, ContentType: "text/csv", Filename: "students-" + stamp + ".csv"}, nil
	case ExportFormatPDF:
		content, err := s.pdf.Render(data, "Student Roster")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{Content: content, ContentType: "application/pdf", Filename: "students-" + stamp + ".pdf"}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "unsupported export format: "+format)
	}
}

func rosterDataset(students []models.Student) export.Dataset {
	data := export.Dataset{
		Headers: []string{"ID", "First Name", "Last Name", "Email", "Phone", "Date of Birth", "Gender", "Course", "Year", "GPA"},
	}
	for _, st := range students {
		phone := ""
		if st.Phone != nil {
			phone = *st.Phone
		}
		data.Rows = append(data.Rows, []string{
			strconv.FormatInt(st.ID, 10),
			st.FirstName,
			st.LastName,
			st.Email,
			phone,
			st.DateOfBirth.Format("2006-01-02"),
			st.Gender,
			st.Course,
			strconv.Itoa(st.Year),
			strconv.FormatFloat(st.GPA, 'f', 2, 64),
		})
	}
	return data
}
