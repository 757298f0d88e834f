package timetable

import "fmt"

// PreflightCheck is the validation gate (§4.G): before a model is built,
// the department/owner scope must already have at least one of each of
// assignments, teachers, classrooms and courses. Missing categories are
// reported together rather than failing fast on the first one, so a
// caller can surface all of them to the department head at once.
func PreflightCheck(snap *Snapshot) []string {
	var errs []string
	if len(snap.Assignments) == 0 {
		errs = append(errs, "no assignments defined for this department")
	}
	if len(snap.Teachers) == 0 {
		errs = append(errs, "no teachers defined for this department")
	}
	if len(snap.Classrooms) == 0 {
		errs = append(errs, "no classrooms available to this department")
	}
	if len(snap.Courses) == 0 {
		errs = append(errs, "no courses defined for this department")
	}
	return errs
}

// ValidateSolution re-checks a finished placement set against H1, H2,
// H3, H5 and H6, independent of however the solver produced it. It is
// the last line of defense before materialization: a solver bug should
// fail here rather than silently persist an infeasible timetable.
func ValidateSolution(snap *Snapshot, m *Model, placements []Placement) error {
	sessionsByAssignment := make(map[string]int)
	groupOfAssignment := make(map[string]string)
	for _, s := range m.Sessions {
		sessionsByAssignment[s.AssignmentID]++
		if s.GroupID != "" {
			groupOfAssignment[s.AssignmentID] = s.GroupID
		}
	}

	placedByAssignment := make(map[string]int)
	roomCell := make(map[string]map[cell]bool)
	teacherCell := make(map[string]map[cell]bool)
	teacherDayCount := make(map[string]map[int]int)
	groupCell := make(map[string]cell)

	for _, p := range placements {
		placedByAssignment[p.AssignmentID]++
		c := cell{Day: p.Day, Slot: p.Slot}

		if roomCell[p.ClassroomID] == nil {
			roomCell[p.ClassroomID] = make(map[cell]bool)
		}
		if roomCell[p.ClassroomID][c] {
			return fmt.Errorf("H3 violated: classroom %s double-booked at day %d slot %d", p.ClassroomID, p.Day, p.Slot)
		}
		roomCell[p.ClassroomID][c] = true

		if teacherCell[p.TeacherID] == nil {
			teacherCell[p.TeacherID] = make(map[cell]bool)
		}
		if teacherCell[p.TeacherID][c] {
			return fmt.Errorf("H2 violated: teacher %s double-booked at day %d slot %d", p.TeacherID, p.Day, p.Slot)
		}
		teacherCell[p.TeacherID][c] = true

		if teacherDayCount[p.TeacherID] == nil {
			teacherDayCount[p.TeacherID] = make(map[int]int)
		}
		teacherDayCount[p.TeacherID][p.Day]++

		if groupID, ok := groupOfAssignment[p.AssignmentID]; ok {
			if fixed, seen := groupCell[groupID]; seen {
				if fixed != c {
					return fmt.Errorf("H6 violated: group %s split across cells", groupID)
				}
			} else {
				groupCell[groupID] = c
			}
		}
	}

	for assignmentID, want := range sessionsByAssignment {
		if placedByAssignment[assignmentID] != want {
			return fmt.Errorf("H1 violated: assignment %s placed %d/%d sessions", assignmentID, placedByAssignment[assignmentID], want)
		}
	}

	for teacherID, byDay := range teacherDayCount {
		max := m.teacherMaxPerDay[teacherID]
		for day, count := range byDay {
			if count > max {
				return fmt.Errorf("H5 violated: teacher %s exceeds daily cap on day %d (%d > %d)", teacherID, day, count, max)
			}
		}
	}

	return nil
}
