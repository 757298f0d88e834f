package service

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-scheduler/internal/coordinator"
	"github.com/noah-isme/campus-scheduler/internal/models"
)

type stubCoordinatorOps struct {
	loadErr       error
	conflicts     []coordinator.Conflict
	shared        []coordinator.SharedResource
	syncReport    *coordinator.SyncReport
	consistentOK  bool
	consistentErr []string
	utilization   coordinator.UtilizationSummary
	reserved      []string
	released      []string
}

func (s *stubCoordinatorOps) Load(ctx context.Context) error { return s.loadErr }

func (s *stubCoordinatorOps) CheckResourceConflicts(ctx context.Context, department, timetableID string) (bool, []coordinator.Conflict, error) {
	return len(s.conflicts) == 0, s.conflicts, nil
}

func (s *stubCoordinatorOps) Reserve(ctx context.Context, db *sqlx.DB, department, timetableID string, slotIDs []string) error {
	s.reserved = append(s.reserved, slotIDs...)
	return nil
}

func (s *stubCoordinatorOps) Release(ctx context.Context, db *sqlx.DB, department, timetableID string) error {
	s.released = append(s.released, timetableID)
	return nil
}

func (s *stubCoordinatorOps) AvailableSharedResources(day, startSlot, endSlot int, roomType models.RoomType) []coordinator.SharedResource {
	return s.shared
}

func (s *stubCoordinatorOps) Synchronize(ctx context.Context, db *sqlx.DB, departments []string) (*coordinator.SyncReport, error) {
	return s.syncReport, nil
}

func (s *stubCoordinatorOps) ValidateConsistency(ctx context.Context) (bool, []string, error) {
	return s.consistentOK, s.consistentErr, nil
}

func (s *stubCoordinatorOps) UtilizationSummary() coordinator.UtilizationSummary {
	return s.utilization
}

type stubSlotLister struct {
	slots []models.ScheduledSlot
}

func (s *stubSlotLister) ListGlobal(ctx context.Context) ([]models.ScheduledSlot, error) {
	return s.slots, nil
}

type stubDepartmentRegistry struct {
	settings []models.CoordinatorSetting
}

func (s *stubDepartmentRegistry) List(ctx context.Context) ([]models.CoordinatorSetting, error) {
	return s.settings, nil
}

type stubTimetableCounter struct {
	total   int
	all     []models.DeptTimetable
	latest  map[string]*models.DeptTimetable
}

func (s *stubTimetableCounter) List(ctx context.Context, filter models.DeptTimetableFilter) ([]models.DeptTimetable, int, error) {
	if filter.Status == "" {
		return s.all, s.total, nil
	}
	var out []models.DeptTimetable
	for _, t := range s.all {
		if string(t.Status) == filter.Status {
			out = append(out, t)
		}
	}
	return out, len(out), nil
}

func (s *stubTimetableCounter) LatestCompletedByDepartment(ctx context.Context, department string) (*models.DeptTimetable, error) {
	return s.latest[department], nil
}

func TestAdminServiceDashboardComposesCounts(t *testing.T) {
	coord := &stubCoordinatorOps{utilization: coordinator.UtilizationSummary{TotalGlobalSlots: 5}}
	timetables := &stubTimetableCounter{
		total: 3,
		all: []models.DeptTimetable{
			{ID: "t1", Status: models.DeptTimetableCompleted},
			{ID: "t2", Status: models.DeptTimetableFailed},
			{ID: "t3", Status: models.DeptTimetableDraft},
		},
	}
	departments := &stubDepartmentRegistry{settings: []models.CoordinatorSetting{{Department: "Computer Science", Priority: 1}}}
	svc := NewAdminService(nil, coord, &stubSlotLister{}, departments, timetables, nil, zap.NewNop(), AdminServiceConfig{})

	view, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, view.DepartmentsConfigured)
	assert.Equal(t, 3, view.TimetablesTotal)
	assert.Equal(t, 1, view.TimetablesCompleted)
	assert.Equal(t, 1, view.TimetablesFailed)
	assert.Equal(t, 5, view.Utilization.TotalGlobalSlots)
}

func TestAdminServiceDetectConflictsDefaultsToConfiguredDepartments(t *testing.T) {
	coord := &stubCoordinatorOps{conflicts: []coordinator.Conflict{
		{ClassroomID: "r1", Day: 0, Slot: 2, RequestingDepartment: "Computer Science", OccupyingDepartment: "Engineering"},
	}}
	departments := &stubDepartmentRegistry{settings: []models.CoordinatorSetting{{Department: "Computer Science"}}}
	timetables := &stubTimetableCounter{latest: map[string]*models.DeptTimetable{
		"Computer Science": {ID: "t1", Owner: "u1"},
	}}
	svc := NewAdminService(nil, coord, &stubSlotLister{}, departments, timetables, nil, zap.NewNop(), AdminServiceConfig{})

	conflicts, err := svc.DetectConflicts(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "Engineering", conflicts[0].OccupyingDepartment)
}

func TestAdminServiceSynchronizeRequiresTwoDepartments(t *testing.T) {
	svc := NewAdminService(nil, &stubCoordinatorOps{}, &stubSlotLister{}, &stubDepartmentRegistry{}, &stubTimetableCounter{}, nil, zap.NewNop(), AdminServiceConfig{})
	_, err := svc.Synchronize(context.Background(), []string{"Computer Science"})
	require.Error(t, err)
}

func TestAdminServiceSharedResourcesSearchesEveryDayWhenUnspecified(t *testing.T) {
	coord := &stubCoordinatorOps{shared: []coordinator.SharedResource{{ClassroomID: "shared1", RoomID: "SH1"}}}
	svc := NewAdminService(nil, coord, &stubSlotLister{}, &stubDepartmentRegistry{}, &stubTimetableCounter{}, nil, zap.NewNop(), AdminServiceConfig{})

	results, err := svc.SharedResources(context.Background(), SharedResourceQuery{StartSlot: 0, EndSlot: 3})
	require.NoError(t, err)
	assert.Len(t, results, models.DaysPerWeek)
}

func TestAdminServiceReserveAndReleaseSlotsValidateInput(t *testing.T) {
	coord := &stubCoordinatorOps{}
	svc := NewAdminService(nil, coord, &stubSlotLister{}, &stubDepartmentRegistry{}, &stubTimetableCounter{}, nil, zap.NewNop(), AdminServiceConfig{})

	require.Error(t, svc.ReserveSlots(context.Background(), "", "t1", []string{"s1"}))
	require.NoError(t, svc.ReserveSlots(context.Background(), "Computer Science", "t1", []string{"s1"}))
	assert.Equal(t, []string{"s1"}, coord.reserved)

	require.Error(t, svc.ReleaseSlots(context.Background(), "Computer Science", ""))
	require.NoError(t, svc.ReleaseSlots(context.Background(), "Computer Science", "t1"))
	assert.Equal(t, []string{"t1"}, coord.released)
}

func TestAdminServiceBulkRegenerateSkipsDepartmentsWithNoPriorTimetable(t *testing.T) {
	timetables := &stubTimetableCounter{latest: map[string]*models.DeptTimetable{}}
	svc := NewAdminService(nil, &stubCoordinatorOps{}, &stubSlotLister{}, &stubDepartmentRegistry{}, timetables, nil, zap.NewNop(), AdminServiceConfig{BulkRegenerateWorkers: 2})

	results, err := svc.BulkRegenerate(context.Background(), []string{"Computer Science", "Engineering"}, false)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.False(t, r.Success)
	}
}
