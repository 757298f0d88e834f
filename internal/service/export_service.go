package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-scheduler/internal/coordinator"
	"github.com/noah-isme/campus-scheduler/internal/models"
	"github.com/noah-isme/campus-scheduler/pkg/export"
	"github.com/noah-isme/campus-scheduler/pkg/storage"
)

type utilizationProvider interface {
	UtilizationSummary() coordinator.UtilizationSummary
}

type conflictProvider interface {
	CheckResourceConflicts(ctx context.Context, department, timetableID string) (bool, []coordinator.Conflict, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService renders admin.reports.* datasets (resource utilization,
// cross-department conflicts) into CSV/PDF files and hands back a
// signed, time-limited download URL.
type ExportService struct {
	utilization utilizationProvider
	conflicts   conflictProvider
	storage     fileStorage
	csv         csvRenderer
	pdf         pdfRenderer
	signer      *storage.SignedURLSigner
	logger      *zap.Logger
	cfg         ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(utilization utilizationProvider, conflicts conflictProvider, storage fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		utilization: utilization,
		conflicts:   conflicts,
		storage:     storage,
		csv:         csv,
		pdf:         pdf,
		signer:      signer,
		logger:      logger,
		cfg:         cfg,
	}
}

// Generate builds the dataset named by job.Type, renders it in
// job.Params.Format, stores the file, and returns a signed download URL.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/admin/reports/download/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	deptPart := sanitizeFilename(job.Params.Department)
	name := fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), deptPart, timestamp, job.Params.Format)
	return name
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "all"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ReportTypeUtilization:
		return s.buildUtilizationDataset(), "Resource Utilization Report", nil
	case models.ReportTypeConflicts:
		return s.buildConflictsDataset(ctx, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) buildUtilizationDataset() export.Dataset {
	summary := s.utilization.UtilizationSummary()
	rows := make([]map[string]string, 0, len(summary.ResourceUtilizationPercent))
	for classroomID, pct := range summary.ResourceUtilizationPercent {
		rows = append(rows, map[string]string{
			"Classroom ID": classroomID,
			"Utilization (%)": fmt.Sprintf("%.2f", pct),
		})
	}
	for dept, count := range summary.DepartmentSlotCounts {
		rows = append(rows, map[string]string{
			"Classroom ID":    fmt.Sprintf("department: %s", dept),
			"Utilization (%)": fmt.Sprintf("%d slots", count),
		})
	}
	return export.Dataset{
		Headers: []string{"Classroom ID", "Utilization (%)"},
		Rows:    rows,
	}
}

func (s *ExportService) buildConflictsDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	_, conflicts, err := s.conflicts.CheckResourceConflicts(ctx, params.Department, params.Extras["timetable_id"])
	if err != nil {
		return export.Dataset{}, "", err
	}
	rows := make([]map[string]string, 0, len(conflicts))
	for _, c := range conflicts {
		rows = append(rows, map[string]string{
			"Classroom ID":         c.ClassroomID,
			"Day":                  fmt.Sprintf("%d", c.Day),
			"Slot":                 fmt.Sprintf("%d", c.Slot),
			"Requesting Department": c.RequestingDepartment,
			"Occupying Department":  c.OccupyingDepartment,
		})
	}
	dataset := export.Dataset{
		Headers: []string{"Classroom ID", "Day", "Slot", "Requesting Department", "Occupying Department"},
		Rows:    rows,
	}
	title := fmt.Sprintf("Conflict Report %s", params.Department)
	return dataset, title, nil
}
