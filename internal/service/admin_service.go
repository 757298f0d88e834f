package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-scheduler/internal/coordinator"
	"github.com/noah-isme/campus-scheduler/internal/models"
	appErrors "github.com/noah-isme/campus-scheduler/pkg/errors"
	"github.com/noah-isme/campus-scheduler/pkg/jobs"
)

// dashboardCache is a read-through cache for the composed dashboard view,
// which costs four round trips to assemble. Backed by Redis in
// production; nil disables caching entirely.
type dashboardCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

const dashboardCacheKey = "admin:dashboard:v1"

type globalCoordinatorOps interface {
	Load(ctx context.Context) error
	CheckResourceConflicts(ctx context.Context, department, timetableID string) (bool, []coordinator.Conflict, error)
	Reserve(ctx context.Context, db *sqlx.DB, department, timetableID string, slotIDs []string) error
	Release(ctx context.Context, db *sqlx.DB, department, timetableID string) error
	AvailableSharedResources(day, startSlot, endSlot int, roomType models.RoomType) []coordinator.SharedResource
	Synchronize(ctx context.Context, db *sqlx.DB, departments []string) (*coordinator.SyncReport, error)
	ValidateConsistency(ctx context.Context) (bool, []string, error)
	UtilizationSummary() coordinator.UtilizationSummary
}

type globalSlotLister interface {
	ListGlobal(ctx context.Context) ([]models.ScheduledSlot, error)
}

type departmentRegistry interface {
	List(ctx context.Context) ([]models.CoordinatorSetting, error)
}

type timetableCounter interface {
	List(ctx context.Context, filter models.DeptTimetableFilter) ([]models.DeptTimetable, int, error)
	LatestCompletedByDepartment(ctx context.Context, department string) (*models.DeptTimetable, error)
}

// AdminServiceConfig tunes admin-namespace behaviour.
type AdminServiceConfig struct {
	BulkRegenerateWorkers int
}

// AdminService implements the admin.* RPC namespace: dashboard and
// department roster queries, coordinator lifecycle operations
// (initialize, reserve/release, synchronize, validate), shared-resource
// discovery, and fan-out bulk regeneration across departments.
type AdminService struct {
	db          *sqlx.DB
	coordinator globalCoordinatorOps
	slots       globalSlotLister
	departments departmentRegistry
	timetables  timetableCounter
	generator   *DeptTimetableService
	logger      *zap.Logger
	cfg         AdminServiceConfig
	cache       dashboardCache
	cacheTTL    time.Duration
}

// WithDashboardCache attaches a Redis-backed read-through cache to
// Dashboard. Optional: a nil cache (the default) disables caching.
func (s *AdminService) WithDashboardCache(cache dashboardCache, ttl time.Duration) *AdminService {
	s.cache = cache
	s.cacheTTL = ttl
	return s
}

// NewAdminService constructs the admin service.
func NewAdminService(db *sqlx.DB, coord globalCoordinatorOps, slots globalSlotLister, departments departmentRegistry, timetables timetableCounter, generator *DeptTimetableService, logger *zap.Logger, cfg AdminServiceConfig) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BulkRegenerateWorkers <= 0 {
		cfg.BulkRegenerateWorkers = 4
	}
	return &AdminService{
		db:          db,
		coordinator: coord,
		slots:       slots,
		departments: departments,
		timetables:  timetables,
		generator:   generator,
		logger:      logger,
		cfg:         cfg,
	}
}

// DashboardView is the admin.dashboard response.
type DashboardView struct {
	DepartmentsConfigured int                    `json:"departments_configured"`
	TimetablesTotal       int                     `json:"timetables_total"`
	TimetablesCompleted   int                    `json:"timetables_completed"`
	TimetablesFailed      int                    `json:"timetables_failed"`
	Utilization           coordinator.UtilizationSummary `json:"utilization"`
}

// Dashboard implements admin.dashboard: an at-a-glance composition of
// department roster size, generation run counts, and global occupancy.
func (s *AdminService) Dashboard(ctx context.Context) (*DashboardView, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, dashboardCacheKey); err == nil && cached != "" {
			var view DashboardView
			if jsonErr := json.Unmarshal([]byte(cached), &view); jsonErr == nil {
				return &view, nil
			}
		}
	}
	depts, err := s.departments.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list departments")
	}
	_, total, err := s.timetables.List(ctx, models.DeptTimetableFilter{PageSize: 1})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count timetables")
	}
	_, completedTotal, err := s.timetables.List(ctx, models.DeptTimetableFilter{Status: string(models.DeptTimetableCompleted), PageSize: 1})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count completed timetables")
	}
	_, failedTotal, err := s.timetables.List(ctx, models.DeptTimetableFilter{Status: string(models.DeptTimetableFailed), PageSize: 1})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count failed timetables")
	}
	view := &DashboardView{
		DepartmentsConfigured: len(depts),
		TimetablesTotal:       total,
		TimetablesCompleted:   completedTotal,
		TimetablesFailed:      failedTotal,
		Utilization:           s.coordinator.UtilizationSummary(),
	}
	if s.cache != nil {
		if encoded, err := json.Marshal(view); err == nil {
			if err := s.cache.Set(ctx, dashboardCacheKey, string(encoded), s.cacheTTL); err != nil {
				s.logger.Sugar().Warnw("failed to populate dashboard cache", "error", err)
			}
		}
	}
	return view, nil
}

// Departments implements admin.departments.list.
func (s *AdminService) Departments(ctx context.Context) ([]models.CoordinatorSetting, error) {
	depts, err := s.departments.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list departments")
	}
	return depts, nil
}

// InitializeScheduler implements admin.scheduler.initialize: rebuild
// the coordinator's in-memory index from storage.
func (s *AdminService) InitializeScheduler(ctx context.Context) error {
	if err := s.coordinator.Load(ctx); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to initialize global coordinator")
	}
	return nil
}

// DetectConflicts implements admin.conflicts.detect: for every named
// department (or every configured department when none are given),
// check its latest completed timetable against the global index.
func (s *AdminService) DetectConflicts(ctx context.Context, departments []string) ([]coordinator.Conflict, error) {
	if len(departments) == 0 {
		configured, err := s.departments.List(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list departments")
		}
		for _, d := range configured {
			departments = append(departments, d.Department)
		}
	}

	var all []coordinator.Conflict
	for _, dept := range departments {
		latest, err := s.timetables.LatestCompletedByDepartment(ctx, dept)
		if err != nil || latest == nil {
			continue
		}
		_, conflicts, err := s.coordinator.CheckResourceConflicts(ctx, dept, latest.ID)
		if err != nil {
			s.logger.Warn("conflict detection failed for department", zap.String("department", dept), zap.Error(err))
			continue
		}
		all = append(all, conflicts...)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].ClassroomID != all[j].ClassroomID {
			return all[i].ClassroomID < all[j].ClassroomID
		}
		if all[i].Day != all[j].Day {
			return all[i].Day < all[j].Day
		}
		return all[i].Slot < all[j].Slot
	})
	return all, nil
}

// Synchronize implements admin.departments.synchronize.
func (s *AdminService) Synchronize(ctx context.Context, departments []string) (*coordinator.SyncReport, error) {
	if len(departments) < 2 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "synchronize requires at least two departments")
	}
	report, err := s.coordinator.Synchronize(ctx, s.db, departments)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to synchronize departments")
	}
	return report, nil
}

// GlobalSlots implements admin.slots.global.list.
func (s *AdminService) GlobalSlots(ctx context.Context) ([]models.ScheduledSlot, error) {
	slots, err := s.slots.ListGlobal(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list global slots")
	}
	return slots, nil
}

// ReserveSlots implements admin.slots.reserve.
func (s *AdminService) ReserveSlots(ctx context.Context, department, timetableID string, slotIDs []string) error {
	if department == "" || timetableID == "" || len(slotIDs) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "department, timetable_id and slot_ids are required")
	}
	if err := s.coordinator.Reserve(ctx, s.db, department, timetableID, slotIDs); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reserve slots")
	}
	return nil
}

// ReleaseSlots implements admin.slots.release.
func (s *AdminService) ReleaseSlots(ctx context.Context, department, timetableID string) error {
	if department == "" || timetableID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "department and timetable_id are required")
	}
	if err := s.coordinator.Release(ctx, s.db, department, timetableID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release slots")
	}
	return nil
}

// SharedResourceQuery is the payload for admin.resources.shared.list.
// Day is optional: when nil, every day of the week is searched and each
// result is tagged with the day it is free on.
type SharedResourceQuery struct {
	Day       *int
	StartSlot int
	EndSlot   int
	RoomType  models.RoomType
}

// SharedResourceView is one (day, resource) match.
type SharedResourceView struct {
	coordinator.SharedResource
	Day int `json:"day"`
}

// SharedResources implements admin.resources.shared.list.
func (s *AdminService) SharedResources(ctx context.Context, q SharedResourceQuery) ([]SharedResourceView, error) {
	endSlot := q.EndSlot
	if endSlot <= q.StartSlot {
		endSlot = models.SlotsPerDay
	}
	days := []int{}
	if q.Day != nil {
		days = append(days, *q.Day)
	} else {
		for d := 0; d < models.DaysPerWeek; d++ {
			days = append(days, d)
		}
	}

	var out []SharedResourceView
	for _, day := range days {
		for _, r := range s.coordinator.AvailableSharedResources(day, q.StartSlot, endSlot, q.RoomType) {
			out = append(out, SharedResourceView{SharedResource: r, Day: day})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].RoomID < out[j].RoomID
	})
	return out, nil
}

// ValidateGlobalConsistency implements admin.validate.
func (s *AdminService) ValidateGlobalConsistency(ctx context.Context) (bool, []string, error) {
	ok, errs, err := s.coordinator.ValidateConsistency(ctx)
	if err != nil {
		return false, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate global consistency")
	}
	return ok, errs, nil
}

// BulkRegenerateOutcome is one department's result from a bulk run.
type BulkRegenerateOutcome struct {
	Department string             `json:"department"`
	Success    bool               `json:"success"`
	Message    string             `json:"message,omitempty"`
	Stats      *models.SolverStats `json:"stats,omitempty"`
}

// BulkRegenerate implements admin.timetables.bulk_regenerate: fan out
// one generation run per department onto a bounded worker queue
// (repurposing the teacher's async-report job queue as the executor),
// blocking until every department finishes. Each department is
// regenerated from its latest completed timetable, reusing that
// timetable's name and owner, whether or not force is set. A department
// with no completed timetable is not regenerated and is reported as
// failed, with or without force; force changes only the failure message.
func (s *AdminService) BulkRegenerate(ctx context.Context, departments []string, force bool) ([]BulkRegenerateOutcome, error) {
	if len(departments) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "departments is required")
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	results := make([]BulkRegenerateOutcome, 0, len(departments))
	record := func(outcome BulkRegenerateOutcome) {
		mu.Lock()
		results = append(results, outcome)
		mu.Unlock()
	}

	queue := jobs.NewQueue("bulk-regenerate", func(jobCtx context.Context, job jobs.Job) error {
		defer wg.Done()
		department, _ := job.Payload.(string)
		record(s.regenerateDepartment(jobCtx, department, force))
		return nil
	}, jobs.QueueConfig{Workers: s.cfg.BulkRegenerateWorkers, Logger: s.logger})

	queueCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	queue.Start(queueCtx)
	defer queue.Stop()

	for _, department := range departments {
		wg.Add(1)
		if err := queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: "regenerate", Payload: department}); err != nil {
			wg.Done()
			record(BulkRegenerateOutcome{Department: department, Success: false, Message: err.Error()})
		}
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Department < results[j].Department })
	return results, nil
}

func (s *AdminService) regenerateDepartment(ctx context.Context, department string, force bool) BulkRegenerateOutcome {
	if department == "" {
		return BulkRegenerateOutcome{Department: department, Success: false, Message: "department is required"}
	}
	latest, err := s.timetables.LatestCompletedByDepartment(ctx, department)
	if err != nil || latest == nil {
		if !force {
			return BulkRegenerateOutcome{Department: department, Success: false, Message: "no prior completed timetable to regenerate"}
		}
		return BulkRegenerateOutcome{Department: department, Success: false, Message: "force regeneration requires an owning dept_head; none on record"}
	}

	result, err := s.generator.Generate(ctx, department, latest.Owner, GenerateTimetableRequest{TimetableName: latest.Name})
	if err != nil {
		return BulkRegenerateOutcome{Department: department, Success: false, Message: err.Error()}
	}
	return BulkRegenerateOutcome{
		Department: department,
		Success:    result.Stats.Success,
		Message:    fmt.Sprintf("timetable %s: %s", result.Timetable.ID, result.Timetable.Status),
		Stats:      &result.Stats,
	}
}
