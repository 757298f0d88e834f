package models

import "time"

// Section represents a group of students that courses are scheduled for.
// Invariant: (Code, Department, Owner) is unique.
type Section struct {
	ID         string    `db:"id" json:"id"`
	Code       string    `db:"code" json:"code"`
	Department string    `db:"department" json:"department"`
	Owner      string    `db:"owner" json:"owner"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// SectionFilter captures filtering options for listing sections.
type SectionFilter struct {
	Department string
	Owner      string
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
