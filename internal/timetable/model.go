package timetable

import (
	"fmt"
	"sort"

	"github.com/noah-isme/campus-scheduler/internal/models"
)

// session is one (assignment, occurrence) pair the model must place into
// exactly one (classroom, day, slot) cell — the unit the solver branches
// on. A course with sessions_per_week=k expands into k sessions.
type session struct {
	AssignmentID string
	TeacherID    string
	GroupID      string // empty when the assignment has no group
	RoomType     models.RoomType
	Duration     int // minutes
	// Candidates lists every classroom ID whose room_type is compatible
	// with RoomType, sorted for deterministic branch order.
	Candidates []string
	// Forbidden[d][s] is true when a forbidden_time_pairs rule fixes this
	// assignment's x[a,*,d,s] variables to 0.
	Forbidden [models.DaysPerWeek][models.SlotsPerDay]bool
}

// Model is the compiled decision space for one snapshot: the session list
// plus the per-teacher availability the solver must respect. It never
// mutates the Snapshot it was built from.
type Model struct {
	Sessions []session

	teacherAvail  map[string]*models.Availability
	teacherDaysOff map[string]map[int]bool
	teacherMaxPerDay map[string]int

	lunchWindows       []models.LunchWindowData
	maxLecturesPerDay  map[string]int // keyed by department-wide rule, applies to every teacher
	gapPreferences     []models.GapPreferenceData

	VariableCount   int
	ConstraintCount int
}

// BuildModel compiles a snapshot into the CP-style decision model
// described by the hard constraints H1-H7 and soft objective O1-O4.
// H8 (single-slot sessions, no contiguous multi-slot blocks) is implicit
// in the session representation itself.
func BuildModel(snap *Snapshot) (*Model, error) {
	m := &Model{
		teacherAvail:     make(map[string]*models.Availability),
		teacherDaysOff:   make(map[string]map[int]bool),
		teacherMaxPerDay: make(map[string]int),
	}

	for _, t := range snap.Teachers {
		avail, daysOff, err := snap.Availability(t)
		if err != nil {
			return nil, err
		}
		m.teacherAvail[t.ID] = avail
		m.teacherDaysOff[t.ID] = daysOff
		maxPerDay := t.MaxHoursPerDay
		if maxPerDay <= 0 {
			maxPerDay = models.DefaultMaxHoursPerDay
		}
		m.teacherMaxPerDay[t.ID] = models.MaxSessionsPerDay(maxPerDay)
	}

	forbidden := make(map[string][models.DaysPerWeek][models.SlotsPerDay]bool)
	for _, r := range snap.Rules {
		switch {
		case r.LunchWindow != nil:
			m.lunchWindows = append(m.lunchWindows, *r.LunchWindow)
		case r.GapPreference != nil:
			m.gapPreferences = append(m.gapPreferences, *r.GapPreference)
		case r.MaxLecturesPerDay != nil:
			if m.maxLecturesPerDay == nil {
				m.maxLecturesPerDay = make(map[string]int)
			}
			m.maxLecturesPerDay[r.ID] = r.MaxLecturesPerDay.Max
		case r.ForbiddenTimePairs != nil:
			for _, p := range r.ForbiddenTimePairs.Pairs {
				if p.Day < 0 || p.Day >= models.DaysPerWeek || p.Slot < 0 || p.Slot >= models.SlotsPerDay {
					continue
				}
				grid := forbidden[p.AssignmentID]
				grid[p.Day][p.Slot] = true
				forbidden[p.AssignmentID] = grid
			}
		}
	}

	classroomsByType := make(map[models.RoomType][]string)
	for _, c := range snap.Classrooms {
		classroomsByType[c.RoomType] = append(classroomsByType[c.RoomType], c.ID)
	}

	// H6 only binds a group shared by more than one assignment.
	groupSizes := map[string]int{}
	for _, a := range snap.Assignments {
		if a.GroupID != nil {
			groupSizes[*a.GroupID]++
		}
	}

	for _, a := range snap.Assignments {
		course, ok := snap.Courses[a.CourseID]
		if !ok {
			return nil, fmt.Errorf("assignment %s: course %s not in snapshot", a.ID, a.CourseID)
		}
		if _, ok := snap.Teachers[a.TeacherID]; !ok {
			return nil, fmt.Errorf("assignment %s: teacher %s not in snapshot", a.ID, a.TeacherID)
		}
		if _, ok := snap.Sections[a.SectionID]; !ok {
			return nil, fmt.Errorf("assignment %s: section %s not in snapshot", a.ID, a.SectionID)
		}

		candidates := compatibleClassrooms(course.RoomType, classroomsByType, snap.Classrooms)
		groupID := ""
		if a.GroupID != nil && groupSizes[*a.GroupID] > 1 {
			groupID = *a.GroupID
		}
		duration := course.DurationMinutes
		if duration <= 0 {
			duration = models.DefaultDurationMinutes
		}

		sessionsPerWeek := course.SessionsPerWeek
		if sessionsPerWeek <= 0 {
			sessionsPerWeek = models.DefaultSessionsPerWeek
		}
		for i := 0; i < sessionsPerWeek; i++ {
			sess := session{
				AssignmentID: a.ID,
				TeacherID:    a.TeacherID,
				GroupID:      groupID,
				RoomType:     course.RoomType,
				Duration:     duration,
				Candidates:   candidates,
			}
			sess.Forbidden = forbidden[a.ID]
			m.Sessions = append(m.Sessions, sess)
			m.VariableCount += len(candidates) * models.DaysPerWeek * models.SlotsPerDay
		}
	}

	// Stable ordering: most-constrained sessions (fewest candidate rooms)
	// first, matching the classic most-constrained-variable heuristic;
	// ties broken by assignment ID for determinism.
	sort.SliceStable(m.Sessions, func(i, j int) bool {
		if len(m.Sessions[i].Candidates) != len(m.Sessions[j].Candidates) {
			return len(m.Sessions[i].Candidates) < len(m.Sessions[j].Candidates)
		}
		return m.Sessions[i].AssignmentID < m.Sessions[j].AssignmentID
	})

	m.ConstraintCount = constraintCount(snap, m)
	return m, nil
}

func compatibleClassrooms(courseRoomType models.RoomType, byType map[models.RoomType][]string, all map[string]models.Classroom) []string {
	var out []string
	for id, c := range all {
		if models.RoomTypeCompatible(courseRoomType, c.RoomType) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// constraintCount is a rough tally for SolverStats.ConstraintCount: one
// H1 constraint per assignment, one H2/H3 constraint per (teacher or
// room, day, slot), one H5 per (teacher, day), one H6 per (group, day,
// slot), one H7 per forbidden cell.
func constraintCount(snap *Snapshot, m *Model) int {
	count := len(snap.Assignments) // H1
	count += len(snap.Teachers) * models.DaysPerWeek * models.SlotsPerDay   // H2
	count += len(snap.Classrooms) * models.DaysPerWeek * models.SlotsPerDay // H3
	count += len(snap.Teachers) * models.DaysPerWeek                       // H5
	groups := map[string]bool{}
	for _, a := range snap.Assignments {
		if a.GroupID != nil {
			groups[*a.GroupID] = true
		}
	}
	count += len(groups) * models.DaysPerWeek * models.SlotsPerDay // H6
	for _, s := range m.Sessions {
		for d := 0; d < models.DaysPerWeek; d++ {
			for sl := 0; sl < models.SlotsPerDay; sl++ {
				if s.Forbidden[d][sl] {
					count++
				}
			}
		}
	}
	return count
}
