package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-scheduler/internal/models"
	"github.com/noah-isme/campus-scheduler/internal/repository"
	"github.com/noah-isme/campus-scheduler/pkg/jobs"
)

type reportRepoStub struct {
	jobs map[string]*models.ReportJob
}

func newReportRepoStub() *reportRepoStub {
	return &reportRepoStub{jobs: map[string]*models.ReportJob{}}
}

func (r *reportRepoStub) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	r.jobs[job.ID] = job
	return nil
}

func (r *reportRepoStub) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return job, nil
}

func (r *reportRepoStub) Update(ctx context.Context, id string, params repository.UpdateReportJobParams) error {
	job, ok := r.jobs[id]
	if !ok {
		return errors.New("not found")
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (r *reportRepoStub) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	var out []models.ReportJob
	for _, j := range r.jobs {
		if j.Status == models.ReportStatusQueued {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (r *reportRepoStub) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	return nil, nil
}

type syncDispatcher struct {
	worker *ReportWorker
}

func (d *syncDispatcher) Enqueue(job jobs.Job) error {
	return d.worker.Handle(context.Background(), job)
}

func TestReportServiceCreateJobRunsSynchronouslyAndResolvesDownload(t *testing.T) {
	repo := newReportRepoStub()
	exportSvc, _ := newExportServiceForTest(t)
	worker := NewReportWorker(repo, exportSvc, 3, zap.NewNop())
	dispatcher := &syncDispatcher{worker: worker}
	svc := NewReportService(repo, dispatcher, exportSvc, zap.NewNop(), ReportServiceConfig{})

	handle, err := svc.CreateJob(context.Background(), ReportRequest{
		Type:   models.ReportTypeUtilization,
		Format: models.ReportFormatCSV,
	}, "admin-1")
	require.NoError(t, err)

	status, err := svc.GetStatus(context.Background(), handle.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFinished, status.Status)
	require.NotNil(t, status.ResultURL)

	token := extractToken(*status.ResultURL)
	download, err := svc.ResolveDownload(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, models.ReportFormatCSV, download.Format)
}

func TestReportServiceCreateJobRejectsConflictsWithoutTimetableID(t *testing.T) {
	repo := newReportRepoStub()
	exportSvc, _ := newExportServiceForTest(t)
	worker := NewReportWorker(repo, exportSvc, 3, zap.NewNop())
	svc := NewReportService(repo, &syncDispatcher{worker: worker}, exportSvc, zap.NewNop(), ReportServiceConfig{})

	_, err := svc.CreateJob(context.Background(), ReportRequest{
		Type:   models.ReportTypeConflicts,
		Format: models.ReportFormatPDF,
	}, "admin-1")
	require.Error(t, err)
}
