package models

import "time"

// CourseType enumerates the two course delivery categories.
type CourseType string

const (
	CourseTypeLecture CourseType = "lecture"
	CourseTypeLab      CourseType = "lab"
)

const (
	DefaultDurationMinutes = 55
	MinDurationMinutes     = 30
	MaxDurationMinutes     = 180
	DefaultSessionsPerWeek = 1
	MinSessionsPerWeek     = 1
	MaxSessionsPerWeek     = 7
)

// Course represents an academic course offered by a department.
type Course struct {
	ID               string     `db:"id" json:"id"`
	Name             string     `db:"name" json:"name"`
	CourseType       CourseType `db:"course_type" json:"course_type"`
	DurationMinutes  int        `db:"duration_minutes" json:"duration_minutes"`
	SessionsPerWeek  int        `db:"sessions_per_week" json:"sessions_per_week"`
	RoomType         RoomType   `db:"room_type" json:"room_type"`
	Department       string     `db:"department" json:"department"`
	Owner            string     `db:"owner" json:"owner"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// CourseFilter captures filtering options for listing courses.
type CourseFilter struct {
	Department string
	Owner      string
	CourseType string
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
