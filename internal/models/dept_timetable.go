package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// DeptTimetableStatus tracks the generation lifecycle of a department's
// timetable: draft -> generating -> {completed, failed}; any subsequent
// regeneration transitions back to generating.
type DeptTimetableStatus string

const (
	DeptTimetableDraft      DeptTimetableStatus = "draft"
	DeptTimetableGenerating DeptTimetableStatus = "generating"
	DeptTimetableCompleted  DeptTimetableStatus = "completed"
	DeptTimetableFailed     DeptTimetableStatus = "failed"
)

// DeptTimetable is a department's named timetable generation run.
type DeptTimetable struct {
	ID             string               `db:"id" json:"id"`
	Name           string               `db:"name" json:"name"`
	Department     string               `db:"department" json:"department"`
	Owner          string               `db:"owner" json:"owner"`
	Status         DeptTimetableStatus  `db:"status" json:"status"`
	GenerationLog  *string              `db:"generation_log" json:"generation_log,omitempty"`
	SolverStats    types.JSONText       `db:"solver_stats" json:"solver_stats,omitempty"`
	CreatedAt      time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time            `db:"updated_at" json:"updated_at"`
}

// SolverStats records the outcome of one solver driver invocation.
type SolverStats struct {
	StatusName      string  `json:"status_name"`
	Success         bool    `json:"success"`
	ObjectiveValue  *float64 `json:"objective_value,omitempty"`
	ElapsedSeconds  float64 `json:"elapsed_seconds"`
	Branches        int     `json:"branches"`
	Conflicts       int     `json:"conflicts"`
	VariableCount   int     `json:"variable_count"`
	ConstraintCount int     `json:"constraint_count"`
}

// DeptTimetableFilter captures filtering options for listing timetables.
type DeptTimetableFilter struct {
	Department string
	Owner      string
	Status     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
