package timetable

import (
	"context"
	"time"

	"github.com/noah-isme/campus-scheduler/internal/models"
)

// GlobalReservationChecker lets the solver avoid placing a session onto a
// classroom cell another department already holds through the global
// coordinator. A nil checker means "nothing is globally reserved yet",
// the state at first boot.
type GlobalReservationChecker interface {
	IsReserved(ctx context.Context, classroomID string, day, slot int) (bool, string, error)
}

// Placement is one solved x[a,r,d,s]=1 assignment.
type Placement struct {
	AssignmentID string
	TeacherID    string
	ClassroomID  string
	Day          int
	Slot         int
	Duration     int
}

// Result is the solver driver's return contract: success iff every
// session in the model found a feasible cell within the time budget.
type Result struct {
	Success    bool
	Placements []Placement
	Stats      models.SolverStats
}

// cell identifies one (day, slot) pair in the weekly grid.
type cell struct {
	Day  int
	Slot int
}

// state tracks occupancy while the solver runs. It mirrors the teacher's
// own scheduler's day-load-balanced greedy assignment followed by a
// local-search gap repair, generalized from a single class's weekly grid
// to one department's full assignment set.
type state struct {
	ctx            context.Context
	checker        GlobalReservationChecker
	roomBusy       map[string]map[cell]string // classroomID -> cell -> assignmentID
	teacherBusy    map[string]map[cell]bool
	teacherDayLoad map[string][models.DaysPerWeek]int
	groupCell      map[string]cell
	placements     []Placement
	unplaced       []session
	branches       int
	conflicts      int
}

func newState(ctx context.Context, checker GlobalReservationChecker) *state {
	return &state{
		ctx:            ctx,
		checker:        checker,
		roomBusy:       make(map[string]map[cell]string),
		teacherBusy:    make(map[string]map[cell]bool),
		teacherDayLoad: make(map[string][models.DaysPerWeek]int),
		groupCell:      make(map[string]cell),
	}
}

// Solve runs the greedy assignment + gap repair heuristic against the
// compiled model and returns within the given wall-clock budget. A
// zero budget defaults to 300s per the driver contract.
func Solve(ctx context.Context, m *Model, budget time.Duration) (*Result, error) {
	return SolveWithCoordinator(ctx, m, budget, nil)
}

// SolveWithCoordinator is Solve, additionally consulting a global
// reservation checker so shared classrooms already claimed by another
// department are never double-booked.
func SolveWithCoordinator(ctx context.Context, m *Model, budget time.Duration, checker GlobalReservationChecker) (*Result, error) {
	if budget <= 0 {
		budget = 300 * time.Second
	}
	deadline := time.Now().Add(budget)
	start := time.Now()

	st := newState(ctx, checker)
	for _, s := range m.Sessions {
		if time.Now().After(deadline) {
			break
		}
		st.assign(s, m)
	}

	st.repairGaps(12, deadline)

	elapsed := time.Since(start).Seconds()
	success := len(st.unplaced) == 0
	statusName := "OPTIMAL"
	if !success {
		statusName = "UNKNOWN"
	}

	objective := scorePenalty(m, st.placements)
	stats := models.SolverStats{
		StatusName:      statusName,
		Success:         success,
		ObjectiveValue:  &objective,
		ElapsedSeconds:  elapsed,
		Branches:        st.branches,
		Conflicts:       st.conflicts + len(st.unplaced),
		VariableCount:   m.VariableCount,
		ConstraintCount: m.ConstraintCount,
	}

	return &Result{Success: success, Placements: st.placements, Stats: stats}, nil
}

// assign places one session, preferring the day with the lightest
// current load for the session's teacher, matching the teacher's own
// day-load-balanced greedy pass.
func (st *state) assign(s session, m *Model) {
	if len(s.Candidates) == 0 {
		st.unplaced = append(st.unplaced, s)
		st.conflicts++
		return
	}

	avail := m.teacherAvail[s.TeacherID]
	daysOff := m.teacherDaysOff[s.TeacherID]
	maxPerDay := m.teacherMaxPerDay[s.TeacherID]

	for _, d := range st.dayOrder(s.TeacherID) {
		if daysOff[d] {
			continue
		}
		if st.teacherDayLoad[s.TeacherID][d] >= maxPerDay {
			continue
		}
		if s.GroupID != "" {
			if fixed, ok := st.groupCell[s.GroupID]; ok && fixed.Day != d {
				continue
			}
		}
		for sl := 0; sl < models.SlotsPerDay; sl++ {
			st.branches++
			if s.Forbidden[d][sl] {
				continue
			}
			if !models.TeacherAt(avail, daysOff, d, sl) {
				continue
			}
			if s.GroupID != "" {
				if fixed, ok := st.groupCell[s.GroupID]; ok && fixed.Slot != sl {
					continue
				}
			}
			c := cell{Day: d, Slot: sl}
			if st.teacherBusy[s.TeacherID][c] {
				continue
			}
			room, ok := st.pickRoom(s.Candidates, c)
			if !ok {
				continue
			}
			st.place(s, room, d, sl)
			return
		}
	}

	st.unplaced = append(st.unplaced, s)
	st.conflicts++
}

// dayOrder returns the five weekdays sorted by the teacher's current
// load, ascending, so new sessions spread across the week rather than
// piling onto day 0.
func (st *state) dayOrder(teacherID string) [models.DaysPerWeek]int {
	load := st.teacherDayLoad[teacherID]
	order := [models.DaysPerWeek]int{0, 1, 2, 3, 4}
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && load[order[j]] < load[order[j-1]]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
	return order
}

func (st *state) pickRoom(candidates []string, c cell) (string, bool) {
	for _, room := range candidates {
		if st.roomBusy[room][c] != "" {
			continue
		}
		if st.checker != nil {
			reserved, _, err := st.checker.IsReserved(st.ctx, room, c.Day, c.Slot)
			if err == nil && reserved {
				continue
			}
		}
		return room, true
	}
	return "", false
}

func (st *state) place(s session, room string, day, slot int) {
	c := cell{Day: day, Slot: slot}
	if st.roomBusy[room] == nil {
		st.roomBusy[room] = make(map[cell]string)
	}
	st.roomBusy[room][c] = s.AssignmentID
	if st.teacherBusy[s.TeacherID] == nil {
		st.teacherBusy[s.TeacherID] = make(map[cell]bool)
	}
	st.teacherBusy[s.TeacherID][c] = true
	load := st.teacherDayLoad[s.TeacherID]
	load[day]++
	st.teacherDayLoad[s.TeacherID] = load
	if s.GroupID != "" {
		st.groupCell[s.GroupID] = c
	}
	st.placements = append(st.placements, Placement{
		AssignmentID: s.AssignmentID,
		TeacherID:    s.TeacherID,
		ClassroomID:  room,
		Day:          day,
		Slot:         slot,
		Duration:     s.Duration,
	})
}

// repairGaps runs a bounded local search: it repeatedly looks for a
// teacher gap (busy, idle, busy across three consecutive slots) and
// tries to slide the later session into the idle slot, exactly as the
// teacher's own scheduler's repairGaps pass does over its weekly grid.
// Returns the number of successful moves.
func (st *state) repairGaps(maxIterations int, deadline time.Time) int {
	moved := 0
	for iter := 0; iter < maxIterations; iter++ {
		if time.Now().After(deadline) {
			break
		}
		if !st.repairOnePass() {
			break
		}
		moved++
	}
	return moved
}

func (st *state) repairOnePass() bool {
	for idx := range st.placements {
		p := &st.placements[idx]
		if p.Slot+2 >= models.SlotsPerDay {
			continue
		}
		gapCell := cell{Day: p.Day, Slot: p.Slot + 1}
		farCell := cell{Day: p.Day, Slot: p.Slot + 2}
		if !st.teacherBusy[p.TeacherID][farCell] || st.teacherBusy[p.TeacherID][gapCell] {
			continue
		}
		// Only move the later of the two busy slots (the one at +2) into
		// the gap, never the earlier one — keeps the move local and
		// avoids oscillating the same pair back and forth.
		for j := range st.placements {
			if j == idx {
				continue
			}
			other := &st.placements[j]
			if other.TeacherID != p.TeacherID || other.Day != p.Day || other.Slot != p.Slot+2 {
				continue
			}
			if st.roomBusy[other.ClassroomID][gapCell] != "" {
				continue
			}
			st.moveSlot(other, gapCell)
			return true
		}
	}
	return false
}

func (st *state) moveSlot(p *Placement, to cell) {
	from := cell{Day: p.Day, Slot: p.Slot}
	delete(st.roomBusy[p.ClassroomID], from)
	delete(st.teacherBusy[p.TeacherID], from)
	st.roomBusy[p.ClassroomID][to] = p.AssignmentID
	st.teacherBusy[p.TeacherID][to] = true
	p.Slot = to.Slot
}

// scorePenalty sums the O1-O4 soft objective terms over a finished
// placement set.
func scorePenalty(m *Model, placements []Placement) float64 {
	penalty := 0.0
	dailyLectureCount := make(map[string][models.DaysPerWeek]int) // per-teacher day lecture count, for O4

	for _, p := range placements {
		if p.Slot == 0 || p.Slot == models.SlotsPerDay-1 {
			penalty += 5 // O1
		}
		for _, lw := range m.lunchWindows {
			if p.Slot >= lw.StartSlot && p.Slot <= lw.EndSlot {
				weight := lw.Weight
				if weight == 0 {
					weight = models.DefaultLunchWindowWeight
				}
				penalty += float64(weight) // O2
			}
		}
		count := dailyLectureCount[p.TeacherID]
		count[p.Day]++
		dailyLectureCount[p.TeacherID] = count
	}

	penalty += float64(countTeacherGaps(placements)) * 10 // O3

	if len(m.maxLecturesPerDay) > 0 {
		maxPerDay := 0
		for _, v := range m.maxLecturesPerDay {
			if maxPerDay == 0 || v < maxPerDay {
				maxPerDay = v
			}
		}
		for _, days := range dailyLectureCount {
			for d := 0; d < models.DaysPerWeek; d++ {
				if excess := days[d] - maxPerDay; excess > 0 {
					penalty += float64(excess) * 10 // O4, max_lectures_per_day
				}
			}
		}
	}
	for _, gp := range m.gapPreferences {
		weight := gp.Weight
		if weight == 0 {
			weight = 10
		}
		penalty += float64(countTeacherGaps(placements)) * float64(weight) / 10 // O4, gap_preference scales the base gap count
	}

	return penalty
}

func countTeacherGaps(placements []Placement) int {
	busy := make(map[string]map[cell]bool)
	for _, p := range placements {
		if busy[p.TeacherID] == nil {
			busy[p.TeacherID] = make(map[cell]bool)
		}
		busy[p.TeacherID][cell{Day: p.Day, Slot: p.Slot}] = true
	}
	gaps := 0
	for _, grid := range busy {
		for d := 0; d < models.DaysPerWeek; d++ {
			for s := 0; s <= models.SlotsPerDay-3; s++ {
				if grid[cell{Day: d, Slot: s}] && grid[cell{Day: d, Slot: s + 2}] && !grid[cell{Day: d, Slot: s + 1}] {
					gaps++
				}
			}
		}
	}
	return gaps
}
