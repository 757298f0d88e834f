package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

const (
	DefaultMaxHoursPerDay = 8
	MinMaxHoursPerDay     = 1
	MaxMaxHoursPerDay     = 12
)

// Teacher represents an instructor record scoped to a (department, owner) pair.
type Teacher struct {
	ID               string         `db:"id" json:"id"`
	Name             string         `db:"name" json:"name"`
	Department       string         `db:"department" json:"department"`
	Owner            string         `db:"owner" json:"owner"`
	MaxHoursPerDay   int            `db:"max_hours_per_day" json:"max_hours_per_day"`
	Availability     types.JSONText `db:"availability" json:"availability,omitempty"`
	DaysOff          types.JSONText `db:"days_off" json:"days_off,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Department string
	Owner      string
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}

// Availability is the parsed 5xS matrix, cell [d][s]=false forbids
// scheduling the teacher at day d, slot s.
type Availability [DaysPerWeek][SlotsPerDay]bool

// TeacherAt reports whether a teacher with the given parsed availability
// and days-off set may be scheduled at (day, slot). A nil availability
// means "available everywhere not excluded by days_off".
func TeacherAt(availability *Availability, daysOff map[int]bool, day, slot int) bool {
	if daysOff[day] {
		return false
	}
	if availability == nil {
		return true
	}
	return availability[day][slot]
}

// MaxSessionsPerDay converts a teacher's hour cap into a slot-count cap:
// floor(h*60/55).
func MaxSessionsPerDay(maxHoursPerDay int) int {
	return (maxHoursPerDay * 60) / SlotMinutes
}
