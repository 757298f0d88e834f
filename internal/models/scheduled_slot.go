package models

import "time"

// ScheduledSlot is one materialized placement of an assignment into a
// classroom at a specific (day, start_time). Slots belong to their
// DeptTimetable and are deleted whenever it is regenerated.
// Invariant: EndTime = StartTime + assignment.course.DurationMinutes.
type ScheduledSlot struct {
	ID             string        `db:"id" json:"id"`
	DeptTimetableID string       `db:"dept_timetable_id" json:"dept_timetable_id"`
	AssignmentID   string        `db:"assignment_id" json:"assignment_id"`
	ClassroomID    string        `db:"classroom_id" json:"classroom_id"`
	DayOfWeek      int           `db:"day_of_week" json:"day_of_week"`
	StartTime      time.Duration `db:"start_time" json:"start_time"`
	EndTime        time.Duration `db:"end_time" json:"end_time"`
	Department     string        `db:"department" json:"department"`
	IsGlobalSlot   bool          `db:"is_global_slot" json:"is_global_slot"`
}

// ScheduledSlotDetail enriches a slot with its assignment/classroom, as
// returned by timetables.results.
type ScheduledSlotDetail struct {
	ScheduledSlot
	Assignment AssignmentDetail `json:"assignment"`
	Classroom  Classroom        `json:"classroom"`
}

// Cell identifies a reservable (classroom, day, slot) resource instance
// within the weekly grid.
type Cell struct {
	ClassroomID string
	Day         int
	Slot        int
}
