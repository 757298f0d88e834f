package timetable

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/campus-scheduler/internal/models"
)

type slotWriter interface {
	DeleteByTimetable(ctx context.Context, exec sqlx.ExtContext, timetableID string) error
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.ScheduledSlot) error
}

type timetableWriter interface {
	CompleteGeneration(ctx context.Context, exec sqlx.ExtContext, id string, stats types.JSONText) error
	FailGeneration(ctx context.Context, id, log string, stats types.JSONText) error
}

// Materializer persists a solved (or failed) generation run: on success,
// it deletes any prior slots for the timetable, inserts the new set and
// marks the timetable completed, all within one transaction; on failure
// it marks the timetable failed and leaves any previous slots untouched.
type Materializer struct {
	db        *sqlx.DB
	slots     slotWriter
	timetables timetableWriter
}

func NewMaterializer(db *sqlx.DB, slots slotWriter, timetables timetableWriter) *Materializer {
	return &Materializer{db: db, slots: slots, timetables: timetables}
}

// Commit writes a successful solve to storage.
func (m *Materializer) Commit(ctx context.Context, timetableID, department string, result *Result) error {
	statsBytes, err := json.Marshal(result.Stats)
	if err != nil {
		return fmt.Errorf("encode solver stats: %w", err)
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin materialize transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = m.slots.DeleteByTimetable(ctx, tx, timetableID); err != nil {
		return fmt.Errorf("delete prior slots: %w", err)
	}

	rows := make([]models.ScheduledSlot, 0, len(result.Placements))
	for _, p := range result.Placements {
		start := models.SlotToTime(p.Slot)
		rows = append(rows, models.ScheduledSlot{
			DeptTimetableID: timetableID,
			AssignmentID:    p.AssignmentID,
			ClassroomID:     p.ClassroomID,
			DayOfWeek:       p.Day,
			StartTime:       start,
			EndTime:         start + time.Duration(p.Duration)*time.Minute,
			Department:      department,
		})
	}
	if err = m.slots.InsertBatch(ctx, tx, rows); err != nil {
		return fmt.Errorf("insert scheduled slots: %w", err)
	}

	if err = m.timetables.CompleteGeneration(ctx, tx, timetableID, types.JSONText(statsBytes)); err != nil {
		return fmt.Errorf("complete timetable generation: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit materialize transaction: %w", err)
	}
	return nil
}

// Fail marks a generation run failed without touching any previously
// materialized slots, per the failure semantics in §4.E/§4.F.
func (m *Materializer) Fail(ctx context.Context, timetableID string, stats models.SolverStats) error {
	statsBytes, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode solver stats: %w", err)
	}
	if err := m.timetables.FailGeneration(ctx, timetableID, stats.StatusName, types.JSONText(statsBytes)); err != nil {
		return fmt.Errorf("mark timetable failed: %w", err)
	}
	return nil
}
