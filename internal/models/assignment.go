package models

import "time"

// Assignment declares that a given teacher will deliver a given course to
// a given section. Invariant: Course, Section and Teacher all belong to
// the same (Department, Owner). GroupID, when shared by more than one
// assignment, co-schedules all of them onto the same (day, slot) cells.
type Assignment struct {
	ID         string    `db:"id" json:"id"`
	CourseID   string    `db:"course_id" json:"course_id"`
	SectionID  string    `db:"section_id" json:"section_id"`
	TeacherID  string    `db:"teacher_id" json:"teacher_id"`
	GroupID    *string   `db:"group_id" json:"group_id,omitempty"`
	Department string    `db:"department" json:"department"`
	Owner      string    `db:"owner" json:"owner"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AssignmentDetail enriches an assignment with its related entities, as
// produced by the data loader when building a snapshot.
type AssignmentDetail struct {
	Assignment
	Course  Course  `json:"course"`
	Section Section `json:"section"`
	Teacher Teacher `json:"teacher"`
}

// AssignmentFilter captures filtering options for listing assignments.
type AssignmentFilter struct {
	Department string
	Owner      string
	SectionID  string
	TeacherID  string
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
