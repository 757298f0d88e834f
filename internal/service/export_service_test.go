package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-scheduler/internal/coordinator"
	"github.com/noah-isme/campus-scheduler/internal/models"
	"github.com/noah-isme/campus-scheduler/pkg/export"
	"github.com/noah-isme/campus-scheduler/pkg/storage"
)

type utilizationStub struct{}

func (utilizationStub) UtilizationSummary() coordinator.UtilizationSummary {
	return coordinator.UtilizationSummary{
		TotalGlobalSlots:           3,
		DepartmentsWithTimetables:  2,
		SharedResourceCount:        1,
		DepartmentSlotCounts:       map[string]int{"Computer Science": 3},
		ResourceUtilizationPercent: map[string]float64{"shared1": 6.0},
	}
}

type conflictStub struct{}

func (conflictStub) CheckResourceConflicts(ctx context.Context, department, timetableID string) (bool, []coordinator.Conflict, error) {
	return false, []coordinator.Conflict{
		{SlotID: "slot1", ClassroomID: "r1", Day: 0, Slot: 2, RequestingDepartment: department, OccupyingDepartment: "Engineering"},
	}, nil
}

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	cfg := ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}
	svc := NewExportService(utilizationStub{}, conflictStub{}, store, signer, cfg, zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter())
	return svc, store
}

func TestExportServiceGenerateUtilizationCSV(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-1",
		Type:      models.ReportTypeUtilization,
		Params:    models.ReportJobParams{Format: models.ReportFormatCSV},
		CreatedBy: "admin",
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.NotEmpty(t, result.RelativePath)
	require.Contains(t, result.URL, "/admin/reports/download/")

	path := store.Path(result.RelativePath)
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestExportServiceGenerateConflictsPDF(t *testing.T) {
	svc, store := newExportServiceForTest(t)
	job := &models.ReportJob{
		ID:        "job-2",
		Type:      models.ReportTypeConflicts,
		Params:    models.ReportJobParams{Department: "Computer Science", Format: models.ReportFormatPDF},
		CreatedBy: "admin",
	}
	result, err := svc.Generate(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, models.ReportFormatPDF, result.Format)

	path := filepath.Clean(store.Path(result.RelativePath))
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}
