package models

import "time"

// DefaultUnknownDepartmentPriority is the priority assigned to a
// department with no explicit entry in the priority vector. Lower numeric
// priority wins a synchronize conflict.
const DefaultUnknownDepartmentPriority = 999

// DefaultDepartmentPriorities mirrors the example vector from the
// originating prototype; it seeds CoordinatorSetting rows on first boot
// and is overridable per department via admin.priorities.set.
var DefaultDepartmentPriorities = map[string]int{
	"Computer Science": 1,
	"Engineering":       2,
	"Mathematics":       3,
	"Physics":           4,
}

// CoordinatorSetting persists one department's entry in the
// admin-configurable priority vector used by synchronize, resolving the
// spec's "priority source" open question as a coordinator-scoped setting
// rather than a hard-coded table.
type CoordinatorSetting struct {
	Department string    `db:"department" json:"department"`
	Priority   int       `db:"priority" json:"priority"`
	UpdatedBy  *string   `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}
