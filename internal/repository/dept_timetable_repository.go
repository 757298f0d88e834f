package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/campus-scheduler/internal/models"
)

// DeptTimetableRepository persists department timetable generation runs.
type DeptTimetableRepository struct {
	db *sqlx.DB
}

// NewDeptTimetableRepository constructs the repository.
func NewDeptTimetableRepository(db *sqlx.DB) *DeptTimetableRepository {
	return &DeptTimetableRepository{db: db}
}

func (r *DeptTimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// DB exposes the underlying *sqlx.DB for callers that need to open their
// own transaction spanning this repository and others (the materializer).
func (r *DeptTimetableRepository) DB() *sqlx.DB {
	return r.db
}

// List returns timetables matching filters with pagination metadata.
func (r *DeptTimetableRepository) List(ctx context.Context, filter models.DeptTimetableFilter) ([]models.DeptTimetable, int, error) {
	base := "FROM dept_timetables WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.Owner != "" {
		conditions = append(conditions, fmt.Sprintf("owner = $%d", len(args)+1))
		args = append(args, filter.Owner)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, name, department, owner, status, generation_log, solver_stats, created_at, updated_at %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, base, size, offset)
	var timetables []models.DeptTimetable
	if err := r.db.SelectContext(ctx, &timetables, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list dept timetables: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count dept timetables: %w", err)
	}
	return timetables, total, nil
}

// FindByID loads a timetable by its identifier.
func (r *DeptTimetableRepository) FindByID(ctx context.Context, id string) (*models.DeptTimetable, error) {
	const query = `SELECT id, name, department, owner, status, generation_log, solver_stats, created_at, updated_at FROM dept_timetables WHERE id = $1`
	var timetable models.DeptTimetable
	if err := r.db.GetContext(ctx, &timetable, query, id); err != nil {
		return nil, err
	}
	return &timetable, nil
}

// LatestCompletedByDepartment returns the most recently updated completed
// timetable for a department, used by the coordinator's synchronize
// operation and by the admin service's bulk regeneration.
func (r *DeptTimetableRepository) LatestCompletedByDepartment(ctx context.Context, department string) (*models.DeptTimetable, error) {
	const query = `SELECT id, name, department, owner, status, generation_log, solver_stats, created_at, updated_at
FROM dept_timetables WHERE department = $1 AND status = $2 ORDER BY updated_at DESC LIMIT 1`
	var timetable models.DeptTimetable
	if err := r.db.GetContext(ctx, &timetable, query, department, models.DeptTimetableCompleted); err != nil {
		return nil, err
	}
	return &timetable, nil
}

// ListAllCompleted returns the latest completed timetable per department,
// across every department, used to rebuild the coordinator's registry.
func (r *DeptTimetableRepository) ListAllCompleted(ctx context.Context) ([]models.DeptTimetable, error) {
	const query = `SELECT DISTINCT ON (department) id, name, department, owner, status, generation_log, solver_stats, created_at, updated_at
FROM dept_timetables WHERE status = $1 ORDER BY department, updated_at DESC`
	var timetables []models.DeptTimetable
	if err := r.db.SelectContext(ctx, &timetables, query, models.DeptTimetableCompleted); err != nil {
		return nil, fmt.Errorf("list completed dept timetables: %w", err)
	}
	return timetables, nil
}

// Create persists a new timetable in draft status.
func (r *DeptTimetableRepository) Create(ctx context.Context, timetable *models.DeptTimetable) error {
	if timetable.ID == "" {
		timetable.ID = uuid.NewString()
	}
	if timetable.Status == "" {
		timetable.Status = models.DeptTimetableDraft
	}
	now := time.Now().UTC()
	if timetable.CreatedAt.IsZero() {
		timetable.CreatedAt = now
	}
	timetable.UpdatedAt = now

	const query = `INSERT INTO dept_timetables (id, name, department, owner, status, generation_log, solver_stats, created_at, updated_at)
VALUES (:id, :name, :department, :owner, :status, :generation_log, :solver_stats, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, timetable); err != nil {
		return fmt.Errorf("create dept timetable: %w", err)
	}
	return nil
}

// TransitionToGenerating flips status to generating, but only if the
// current status is not already generating -- enforcing the "at most one
// generation active per timetable" contract.
func (r *DeptTimetableRepository) TransitionToGenerating(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE dept_timetables SET status = $1, updated_at = $2 WHERE id = $3 AND status <> $1`
	result, err := r.db.ExecContext(ctx, query, models.DeptTimetableGenerating, time.Now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("transition dept timetable to generating: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("dept timetable transition rows affected: %w", err)
	}
	return affected > 0, nil
}

// CompleteGeneration is called within the materializer's transaction: sets
// status=completed and writes solver_stats.
func (r *DeptTimetableRepository) CompleteGeneration(ctx context.Context, exec sqlx.ExtContext, id string, stats types.JSONText) error {
	target := r.exec(exec)
	const query = `UPDATE dept_timetables SET status = $1, solver_stats = $2, generation_log = NULL, updated_at = $3 WHERE id = $4`
	if _, err := target.ExecContext(ctx, query, models.DeptTimetableCompleted, stats, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("complete dept timetable generation: %w", err)
	}
	return nil
}

// FailGeneration sets status=failed and writes the generation log,
// leaving any previous slots untouched.
func (r *DeptTimetableRepository) FailGeneration(ctx context.Context, id, log string, stats types.JSONText) error {
	const query = `UPDATE dept_timetables SET status = $1, generation_log = $2, solver_stats = $3, updated_at = $4 WHERE id = $5`
	if _, err := r.db.ExecContext(ctx, query, models.DeptTimetableFailed, log, stats, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("fail dept timetable generation: %w", err)
	}
	return nil
}

// Delete removes a timetable record.
func (r *DeptTimetableRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM dept_timetables WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete dept timetable: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("dept timetable delete rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
