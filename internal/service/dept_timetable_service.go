package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-scheduler/internal/coordinator"
	"github.com/noah-isme/campus-scheduler/internal/models"
	"github.com/noah-isme/campus-scheduler/internal/timetable"
	appErrors "github.com/noah-isme/campus-scheduler/pkg/errors"
)

type deptTimetableRepository interface {
	List(ctx context.Context, filter models.DeptTimetableFilter) ([]models.DeptTimetable, int, error)
	FindByID(ctx context.Context, id string) (*models.DeptTimetable, error)
	Create(ctx context.Context, timetable *models.DeptTimetable) error
	TransitionToGenerating(ctx context.Context, id string) (bool, error)
}

type scheduledSlotDetailRepository interface {
	ListByTimetable(ctx context.Context, timetableID string) ([]models.ScheduledSlot, error)
}

type snapshotLoader interface {
	Load(ctx context.Context, department, owner string) (*timetable.Snapshot, error)
}

type reservationChecker interface {
	IsReserved(ctx context.Context, classroomID string, day, slot int) (bool, string, error)
	CheckResourceConflicts(ctx context.Context, department, timetableID string) (bool, []coordinator.Conflict, error)
}

type timetableMaterializer interface {
	Commit(ctx context.Context, timetableID, department string, result *timetable.Result) error
	Fail(ctx context.Context, timetableID string, stats models.SolverStats) error
}

// GenerateTimetableRequest is the payload for dept.timetables.step7.
type GenerateTimetableRequest struct {
	TimetableName string `json:"timetable_name" validate:"required"`
}

// GenerateTimetableResult is returned by Generate: the solver stats plus
// any conflicts the global coordinator detected against the freshly
// materialized slots.
type GenerateTimetableResult struct {
	Timetable models.DeptTimetable `json:"timetable"`
	Stats     models.SolverStats   `json:"stats"`
	Conflicts []coordinator.Conflict `json:"conflicts,omitempty"`
}

// DeptTimetableConfig governs generation behaviour.
type DeptTimetableConfig struct {
	SolveBudget time.Duration
}

// DeptTimetableService orchestrates dept.timetables.* operations: it
// wires the data loader, CP model builder, solver driver and
// materializer from internal/timetable together with the global
// coordinator's conflict check.
type DeptTimetableService struct {
	timetables deptTimetableRepository
	slots      scheduledSlotDetailRepository
	loader     snapshotLoader
	materializer timetableMaterializer
	coordinator  reservationChecker
	validator  *validator.Validate
	logger     *zap.Logger
	budget     time.Duration
}

func NewDeptTimetableService(
	timetables deptTimetableRepository,
	slots scheduledSlotDetailRepository,
	loader snapshotLoader,
	materializer timetableMaterializer,
	coord reservationChecker,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg DeptTimetableConfig,
) *DeptTimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SolveBudget <= 0 {
		cfg.SolveBudget = 300 * time.Second
	}
	return &DeptTimetableService{
		timetables:   timetables,
		slots:        slots,
		loader:       loader,
		materializer: materializer,
		coordinator:  coord,
		validator:    validate,
		logger:       logger,
		budget:       cfg.SolveBudget,
	}
}

// List returns a department's timetable generation runs.
func (s *DeptTimetableService) List(ctx context.Context, filter models.DeptTimetableFilter) ([]models.DeptTimetable, *models.Pagination, error) {
	items, total, err := s.timetables.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	return items, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Generate implements dept.timetables.step7: validate the department's
// scheduling data, create a new timetable row, run the solver, and
// persist the result. On success it also runs the coordinator's
// resource-conflict check against the newly materialized slots.
func (s *DeptTimetableService) Generate(ctx context.Context, department, owner string, req GenerateTimetableRequest) (*GenerateTimetableResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable generation payload")
	}

	snap, err := s.loader.Load(ctx, department, owner)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scheduling data")
	}
	if errs := timetable.PreflightCheck(snap); len(errs) > 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("department not ready for generation: %v", errs))
	}

	record := &models.DeptTimetable{
		Name:       req.TimetableName,
		Department: department,
		Owner:      owner,
		Status:     models.DeptTimetableDraft,
	}
	if err := s.timetables.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable")
	}

	started, err := s.timetables.TransitionToGenerating(ctx, record.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start generation")
	}
	if !started {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a generation is already in progress for this timetable")
	}

	model, err := timetable.BuildModel(snap)
	if err != nil {
		_ = s.materializer.Fail(ctx, record.ID, models.SolverStats{StatusName: "MODEL_ERROR"})
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build scheduling model")
	}

	var result *timetable.Result
	if checker, ok := s.coordinator.(timetable.GlobalReservationChecker); ok {
		result, err = timetable.SolveWithCoordinator(ctx, model, s.budget, checker)
	} else {
		result, err = timetable.Solve(ctx, model, s.budget)
	}
	if err != nil {
		_ = s.materializer.Fail(ctx, record.ID, models.SolverStats{StatusName: "SOLVER_ERROR"})
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "solver invocation failed")
	}

	if !result.Success {
		if err := s.materializer.Fail(ctx, record.ID, result.Stats); err != nil {
			s.logger.Error("failed to mark timetable failed", zap.String("timetable_id", record.ID), zap.Error(err))
		}
		record.Status = models.DeptTimetableFailed
		return &GenerateTimetableResult{Timetable: *record, Stats: result.Stats}, nil
	}

	if err := timetable.ValidateSolution(snap, model, result.Placements); err != nil {
		_ = s.materializer.Fail(ctx, record.ID, result.Stats)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "solver produced an infeasible solution")
	}

	if err := s.materializer.Commit(ctx, record.ID, department, result); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist generated timetable")
	}
	record.Status = models.DeptTimetableCompleted

	var conflicts []coordinator.Conflict
	if s.coordinator != nil {
		if _, detected, err := s.coordinator.CheckResourceConflicts(ctx, department, record.ID); err == nil {
			conflicts = detected
		}
	}

	return &GenerateTimetableResult{Timetable: *record, Stats: result.Stats, Conflicts: conflicts}, nil
}

// Results implements dept.timetables.results: the materialized slots for
// one timetable.
func (s *DeptTimetableService) Results(ctx context.Context, department, timetableID string) (*models.DeptTimetable, []models.ScheduledSlot, error) {
	record, err := s.timetables.FindByID(ctx, timetableID)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
	}
	if record.Department != department {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
	}
	slots, err := s.slots.ListByTimetable(ctx, timetableID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list scheduled slots")
	}
	return record, slots, nil
}
