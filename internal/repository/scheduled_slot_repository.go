package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-scheduler/internal/models"
)

// ScheduledSlotRepository manages the materialized slots of a timetable.
type ScheduledSlotRepository struct {
	db *sqlx.DB
}

// NewScheduledSlotRepository builds the repository.
func NewScheduledSlotRepository(db *sqlx.DB) *ScheduledSlotRepository {
	return &ScheduledSlotRepository{db: db}
}

func (r *ScheduledSlotRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// DeleteByTimetable removes every slot belonging to a timetable, the first
// half of the materializer's atomic delete+insert.
func (r *ScheduledSlotRepository) DeleteByTimetable(ctx context.Context, exec sqlx.ExtContext, timetableID string) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM scheduled_slots WHERE dept_timetable_id = $1`, timetableID); err != nil {
		return fmt.Errorf("delete scheduled slots: %w", err)
	}
	return nil
}

// InsertBatch inserts the newly solved slots for a timetable.
func (r *ScheduledSlotRepository) InsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.ScheduledSlot) error {
	if len(slots) == 0 {
		return nil
	}
	target := r.exec(exec)

	const query = `
INSERT INTO scheduled_slots (id, dept_timetable_id, assignment_id, classroom_id, day_of_week, start_time, end_time, department, is_global_slot)
VALUES (:id, :dept_timetable_id, :assignment_id, :classroom_id, :day_of_week, :start_time, :end_time, :department, :is_global_slot)`

	for i := range slots {
		if slots[i].ID == "" {
			slots[i].ID = uuid.NewString()
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, slots[i]); err != nil {
			return fmt.Errorf("insert scheduled slot: %w", err)
		}
	}
	return nil
}

// ListByTimetable returns slots ordered by day/time for a timetable.
func (r *ScheduledSlotRepository) ListByTimetable(ctx context.Context, timetableID string) ([]models.ScheduledSlot, error) {
	const query = `SELECT id, dept_timetable_id, assignment_id, classroom_id, day_of_week, start_time, end_time, department, is_global_slot
FROM scheduled_slots WHERE dept_timetable_id = $1 ORDER BY day_of_week ASC, start_time ASC`
	var slots []models.ScheduledSlot
	if err := r.db.SelectContext(ctx, &slots, query, timetableID); err != nil {
		return nil, fmt.Errorf("list scheduled slots: %w", err)
	}
	return slots, nil
}

// ListGlobal returns every slot flagged is_global_slot=true, used to
// rebuild the coordinator's in-memory reservation index G.
func (r *ScheduledSlotRepository) ListGlobal(ctx context.Context) ([]models.ScheduledSlot, error) {
	const query = `SELECT id, dept_timetable_id, assignment_id, classroom_id, day_of_week, start_time, end_time, department, is_global_slot
FROM scheduled_slots WHERE is_global_slot = TRUE`
	var slots []models.ScheduledSlot
	if err := r.db.SelectContext(ctx, &slots, query); err != nil {
		return nil, fmt.Errorf("list global scheduled slots: %w", err)
	}
	return slots, nil
}

// SetGlobalFlag marks or clears is_global_slot on the named slots.
func (r *ScheduledSlotRepository) SetGlobalFlag(ctx context.Context, exec sqlx.ExtContext, slotIDs []string, flag bool) error {
	if len(slotIDs) == 0 {
		return nil
	}
	target := r.exec(exec)
	query, args, err := sqlx.In(`UPDATE scheduled_slots SET is_global_slot = ? WHERE id IN (?)`, flag, slotIDs)
	if err != nil {
		return fmt.Errorf("build set global flag query: %w", err)
	}
	query = sqlx.Rebind(sqlx.BindType("postgres"), query)
	if _, err := target.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set global flag: %w", err)
	}
	return nil
}

// FindByID fetches a slot by id.
func (r *ScheduledSlotRepository) FindByID(ctx context.Context, id string) (*models.ScheduledSlot, error) {
	const query = `SELECT id, dept_timetable_id, assignment_id, classroom_id, day_of_week, start_time, end_time, department, is_global_slot FROM scheduled_slots WHERE id = $1`
	var slot models.ScheduledSlot
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// Delete removes a single slot, used by attempt-reschedule.
func (r *ScheduledSlotRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM scheduled_slots WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete scheduled slot: %w", err)
	}
	return nil
}

// Insert persists a single slot, used by attempt-reschedule to place the
// rescheduled session.
func (r *ScheduledSlotRepository) Insert(ctx context.Context, exec sqlx.ExtContext, slot *models.ScheduledSlot) error {
	target := r.exec(exec)
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	const query = `INSERT INTO scheduled_slots (id, dept_timetable_id, assignment_id, classroom_id, day_of_week, start_time, end_time, department, is_global_slot)
VALUES (:id, :dept_timetable_id, :assignment_id, :classroom_id, :day_of_week, :start_time, :end_time, :department, :is_global_slot)`
	if _, err := sqlx.NamedExecContext(ctx, target, query, slot); err != nil {
		return fmt.Errorf("insert rescheduled slot: %w", err)
	}
	return nil
}
