package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-engine/internal/models"
	appErrors "github.com/noah-isme/timetable-engine/pkg/errors"
	"github.com/noah-isme/timetable-engine/pkg/export"
)

// Supported export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

var dayNames = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

var timetableHeaders = []string{"Day", "Periods", "Section", "Subject", "Faculty", "Room", "Kind"}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered timetable ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders finished timetables as CSV or PDF.
type ExportService struct {
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back to the
// default CSV and PDF exporters.
func NewExportService(logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter("Day")
	}
	return &ExportService{csv: csv, pdf: pdf, logger: logger}
}

// Render builds the timetable dataset for a job and encodes it in format.
func (s *ExportService) Render(job *models.TimetableJob, rows []models.TimetableAssignment, format string) (*ExportFile, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}

	dataset := BuildTimetableDataset(job.Problem, rows)
	var (
		payload     []byte
		contentType string
		err         error
	)
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, exportTitle(job))
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	if err != nil {
		s.logger.Sugar().Warnw("timetable export failed", "job_id", job.ID, "format", format, "error", err)
		return nil, err
	}
	return &ExportFile{
		Filename:    buildFilename(job, format),
		ContentType: contentType,
		Data:        payload,
	}, nil
}

// BuildTimetableDataset resolves identifiers to display labels from the stored
// problem and orders rows by day, start period and section.
func BuildTimetableDataset(problem models.TimetableProblem, rows []models.TimetableAssignment) export.Dataset {
	sections := make(map[string]string)
	subjects := make(map[string]string)
	faculty := make(map[string]string)
	for _, c := range problem.Courses {
		if c.SectionName != "" {
			sections[c.SectionID] = c.SectionName
		}
		if c.SubjectCode != "" {
			subjects[c.SubjectID] = c.SubjectCode
		}
		if c.FacultyCode != "" {
			faculty[c.FacultyID] = c.FacultyCode
		}
	}
	rooms := make(map[string]string)
	for _, r := range problem.Rooms {
		if r.Name != "" {
			rooms[r.ID] = r.Name
		}
	}

	ordered := make([]models.TimetableAssignment, len(rows))
	copy(ordered, rows)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.DayOfWeek != b.DayOfWeek {
			return a.DayOfWeek < b.DayOfWeek
		}
		if a.StartPeriod != b.StartPeriod {
			return a.StartPeriod < b.StartPeriod
		}
		return labelOr(sections, a.SectionID) < labelOr(sections, b.SectionID)
	})

	dataRows := make([]map[string]string, 0, len(ordered))
	for _, row := range ordered {
		dataRows = append(dataRows, map[string]string{
			"Day":     dayName(row.DayOfWeek),
			"Periods": periodRange(row.StartPeriod, row.EndPeriod),
			"Section": labelOr(sections, row.SectionID),
			"Subject": labelOr(subjects, row.SubjectID),
			"Faculty": labelOr(faculty, row.FacultyID),
			"Room":    labelOr(rooms, row.RoomID),
			"Kind":    row.Kind,
		})
	}
	return export.Dataset{Headers: timetableHeaders, Rows: dataRows}
}

func labelOr(labels map[string]string, id string) string {
	if label, ok := labels[id]; ok {
		return label
	}
	return id
}

func dayName(day int) string {
	if day >= 0 && day < len(dayNames) {
		return dayNames[day]
	}
	return fmt.Sprintf("Day %d", day+1)
}

func periodRange(start, end int) string {
	if start == end {
		return fmt.Sprintf("%d", start)
	}
	return fmt.Sprintf("%d-%d", start, end)
}

func exportTitle(job *models.TimetableJob) string {
	if job.TermID != nil && *job.TermID != "" {
		return fmt.Sprintf("Timetable %s", *job.TermID)
	}
	return fmt.Sprintf("Timetable %s", job.ID)
}

func buildFilename(job *models.TimetableJob, format string) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	subject := job.ID
	if job.TermID != nil && *job.TermID != "" {
		subject = *job.TermID
	}
	return fmt.Sprintf("timetable_%s_%s.%s", sanitizeFilename(subject), timestamp, format)
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
