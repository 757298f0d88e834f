// Package coordinator implements the cross-department global scheduling
// coordinator (§4.F): an in-memory index of globally reserved
// (classroom, day, slot) cells, rebuilt from storage on demand, used to
// detect and resolve conflicts between department timetables and to
// serve the shared-classroom catalog. It is always constructed and
// injected as an owned value with its own mutex, never reached through
// a package-level variable, so two Coordinators in the same process
// (e.g. in tests) never see each other's state.
package coordinator

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-scheduler/internal/models"
)

type slotRepository interface {
	ListGlobal(ctx context.Context) ([]models.ScheduledSlot, error)
	ListByTimetable(ctx context.Context, timetableID string) ([]models.ScheduledSlot, error)
	SetGlobalFlag(ctx context.Context, exec sqlx.ExtContext, slotIDs []string, flag bool) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
	Insert(ctx context.Context, exec sqlx.ExtContext, slot *models.ScheduledSlot) error
}

type timetableRepository interface {
	ListAllCompleted(ctx context.Context) ([]models.DeptTimetable, error)
	LatestCompletedByDepartment(ctx context.Context, department string) (*models.DeptTimetable, error)
}

type classroomRepository interface {
	ListShared(ctx context.Context) ([]models.Classroom, error)
}

type assignmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
}

type teacherRepository interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type priorityRepository interface {
	List(ctx context.Context) ([]models.CoordinatorSetting, error)
}

// cell identifies one reservable (classroom, day, slot) instance.
type cell struct {
	ClassroomID string
	Day         int
	Slot        int
}

// Conflict describes one cell contested between a requesting and an
// occupying department.
type Conflict struct {
	SlotID                string
	ClassroomID            string
	Day                    int
	Slot                   int
	RequestingDepartment   string
	OccupyingDepartment    string
}

// SyncReport is returned by Synchronize.
type SyncReport struct {
	ConflictsResolved       int
	DepartmentsSynchronized []string
	Errors                  []string
}

// SharedResource is one shared classroom available for a query window.
type SharedResource struct {
	ClassroomID string
	RoomID      string
	RoomType    models.RoomType
	Capacity    int
}

// Coordinator is an owned, mutex-guarded instance of the global
// scheduling coordinator. Reserve and Release hold the write lock for
// their whole duration. Load reads storage without the lock and takes
// the write lock only to swap in the rebuilt index. Synchronize takes no
// lock of its own: the reschedules and the final Load it runs each lock
// separately, so a Synchronize run is not serialized against concurrent
// Reserve or Release calls. Reads take the read lock and may proceed
// concurrently.
type Coordinator struct {
	mu sync.RWMutex

	slots       slotRepository
	timetables  timetableRepository
	classrooms  classroomRepository
	assignments assignmentRepository
	teachers    teacherRepository
	priorities  priorityRepository

	global          map[cell]string // classroom,day,slot -> department
	slotIDByCell    map[cell]string
	departmentTimetables map[string][]models.DeptTimetable
	sharedResources map[string]SharedResource
}

func New(slots slotRepository, timetables timetableRepository, classrooms classroomRepository, assignments assignmentRepository, teachers teacherRepository, priorities priorityRepository) *Coordinator {
	return &Coordinator{
		slots:       slots,
		timetables:  timetables,
		classrooms:  classrooms,
		assignments: assignments,
		teachers:    teachers,
		priorities:  priorities,
	}
}

// Load rebuilds the in-memory index G from storage: global slots,
// completed-timetable registry, and the shared-resource catalog. It is
// idempotent and safe to call repeatedly (e.g. after an external write
// the coordinator wasn't the source of).
func (c *Coordinator) Load(ctx context.Context) error {
	global, err := c.slots.ListGlobal(ctx)
	if err != nil {
		return fmt.Errorf("load global slots: %w", err)
	}
	completed, err := c.timetables.ListAllCompleted(ctx)
	if err != nil {
		return fmt.Errorf("load completed timetables: %w", err)
	}
	shared, err := c.classrooms.ListShared(ctx)
	if err != nil {
		return fmt.Errorf("load shared classrooms: %w", err)
	}

	g := make(map[cell]string, len(global))
	slotIDByCell := make(map[cell]string, len(global))
	for _, s := range global {
		key := cell{ClassroomID: s.ClassroomID, Day: s.DayOfWeek, Slot: models.TimeToSlot(s.StartTime)}
		g[key] = s.Department
		slotIDByCell[key] = s.ID
	}

	byDept := make(map[string][]models.DeptTimetable)
	for _, t := range completed {
		byDept[t.Department] = append(byDept[t.Department], t)
	}

	resources := make(map[string]SharedResource, len(shared))
	for _, r := range shared {
		resources[r.ID] = SharedResource{ClassroomID: r.ID, RoomID: r.RoomID, RoomType: r.RoomType, Capacity: r.Capacity}
	}

	c.mu.Lock()
	c.global = g
	c.slotIDByCell = slotIDByCell
	c.departmentTimetables = byDept
	c.sharedResources = resources
	c.mu.Unlock()
	return nil
}

// IsReserved reports whether (classroomID, day, slot) is globally held,
// and by whom. It implements timetable.GlobalReservationChecker so the
// solver can consult the coordinator without this package depending on
// the solver's types.
func (c *Coordinator) IsReserved(ctx context.Context, classroomID string, day, slot int) (bool, string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	dept, ok := c.global[cell{ClassroomID: classroomID, Day: day, Slot: slot}]
	return ok, dept, nil
}

// CheckResourceConflicts reports, for every scheduled slot in timetableID,
// whether it lands on a cell G maps to a different department.
func (c *Coordinator) CheckResourceConflicts(ctx context.Context, department, timetableID string) (bool, []Conflict, error) {
	slots, err := c.slots.ListByTimetable(ctx, timetableID)
	if err != nil {
		return false, nil, fmt.Errorf("list timetable slots: %w", err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var conflicts []Conflict
	for _, s := range slots {
		key := cell{ClassroomID: s.ClassroomID, Day: s.DayOfWeek, Slot: models.TimeToSlot(s.StartTime)}
		occupying, ok := c.global[key]
		if !ok || occupying == department {
			continue
		}
		conflicts = append(conflicts, Conflict{
			SlotID:               s.ID,
			ClassroomID:          s.ClassroomID,
			Day:                  s.DayOfWeek,
			Slot:                 key.Slot,
			RequestingDepartment: department,
			OccupyingDepartment:  occupying,
		})
	}
	return len(conflicts) == 0, conflicts, nil
}

// Reserve atomically marks slotIDs as global for department, then folds
// their cells into G.
func (c *Coordinator) Reserve(ctx context.Context, db *sqlx.DB, department, timetableID string, slotIDs []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reserve transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = c.slots.SetGlobalFlag(ctx, tx, slotIDs, true); err != nil {
		return fmt.Errorf("set global flag: %w", err)
	}
	reserved, err := c.slots.ListByTimetable(ctx, timetableID)
	if err != nil {
		return fmt.Errorf("list timetable slots: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit reserve transaction: %w", err)
	}

	wanted := make(map[string]bool, len(slotIDs))
	for _, id := range slotIDs {
		wanted[id] = true
	}
	for _, s := range reserved {
		if !wanted[s.ID] || !s.IsGlobalSlot {
			continue
		}
		key := cell{ClassroomID: s.ClassroomID, Day: s.DayOfWeek, Slot: models.TimeToSlot(s.StartTime)}
		c.global[key] = department
		c.slotIDByCell[key] = s.ID
	}
	return nil
}

// Release atomically clears is_global_slot on every slot of timetableID,
// then removes each cell from G, but only if it still maps to
// department — a cell reassigned by a later Reserve must survive.
func (c *Coordinator) Release(ctx context.Context, db *sqlx.DB, department, timetableID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	slots, err := c.slots.ListByTimetable(ctx, timetableID)
	if err != nil {
		return fmt.Errorf("list timetable slots: %w", err)
	}
	var toRelease []string
	for _, s := range slots {
		if s.IsGlobalSlot {
			toRelease = append(toRelease, s.ID)
		}
	}
	if len(toRelease) == 0 {
		return nil
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin release transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = c.slots.SetGlobalFlag(ctx, tx, toRelease, false); err != nil {
		return fmt.Errorf("clear global flag: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit release transaction: %w", err)
	}

	for _, s := range slots {
		key := cell{ClassroomID: s.ClassroomID, Day: s.DayOfWeek, Slot: models.TimeToSlot(s.StartTime)}
		if c.global[key] == department {
			delete(c.global, key)
			delete(c.slotIDByCell, key)
		}
	}
	return nil
}

// AvailableSharedResources returns the shared-classroom catalog filtered
// to resources free across every slot in [startSlot, endSlot) on day,
// optionally restricted to roomType.
func (c *Coordinator) AvailableSharedResources(day, startSlot, endSlot int, roomType models.RoomType) []SharedResource {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []SharedResource
	for id, r := range c.sharedResources {
		if roomType != "" && r.RoomType != roomType {
			continue
		}
		free := true
		for s := startSlot; s < endSlot; s++ {
			if _, reserved := c.global[cell{ClassroomID: id, Day: day, Slot: s}]; reserved {
				free = false
				break
			}
		}
		if free {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out
}

// UtilizationSummary reports the global scheduling state's occupancy:
// total reserved cells, how many belong to each department, and what
// share of the 50-cell week each shared classroom is booked for.
// Grounded on the prototype's get_global_schedule_summary.
func (c *Coordinator) UtilizationSummary() UtilizationSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	const totalCells = models.DaysPerWeek * models.SlotsPerDay

	summary := UtilizationSummary{
		TotalGlobalSlots:           len(c.global),
		DepartmentsWithTimetables:  len(c.departmentTimetables),
		SharedResourceCount:        len(c.sharedResources),
		DepartmentSlotCounts:       map[string]int{},
		ResourceUtilizationPercent: map[string]float64{},
	}
	for _, dept := range c.global {
		summary.DepartmentSlotCounts[dept]++
	}
	for id := range c.sharedResources {
		used := 0
		for key := range c.global {
			if key.ClassroomID == id {
				used++
			}
		}
		pct := 0.0
		if totalCells > 0 {
			pct = math.Round(float64(used)/float64(totalCells)*10000) / 100
		}
		summary.ResourceUtilizationPercent[id] = pct
	}
	return summary
}

// UtilizationSummary is the per-request view returned by
// UtilizationSummary and rendered by admin.reports.utilization.
type UtilizationSummary struct {
	TotalGlobalSlots           int
	DepartmentsWithTimetables  int
	SharedResourceCount        int
	DepartmentSlotCounts       map[string]int
	ResourceUtilizationPercent map[string]float64
}

// priorityOf resolves a department's place in the admin-configurable
// total order, defaulting unknown departments to the bottom.
func (c *Coordinator) priorityOf(ctx context.Context, department string) int {
	settings, err := c.priorities.List(ctx)
	if err != nil {
		if p, ok := models.DefaultDepartmentPriorities[department]; ok {
			return p
		}
		return models.DefaultUnknownDepartmentPriority
	}
	for _, s := range settings {
		if s.Department == department {
			return s.Priority
		}
	}
	if p, ok := models.DefaultDepartmentPriorities[department]; ok {
		return p
	}
	return models.DefaultUnknownDepartmentPriority
}

// Synchronize detects inter-department conflicts across the given
// departments' latest completed timetables and resolves each by
// priority: the lowest-priority-number department keeps the cell; every
// loser's slot is fed to AttemptReschedule, and deleted if that fails.
// Losers within one conflict are processed in ascending priority order,
// ties broken by department name, matching the spec's determinism
// contract.
func (c *Coordinator) Synchronize(ctx context.Context, db *sqlx.DB, departments []string) (*SyncReport, error) {
	report := &SyncReport{DepartmentsSynchronized: departments}

	type deptSlot struct {
		Department string
		Slot       models.ScheduledSlot
	}
	usage := make(map[cell][]deptSlot)

	for _, dept := range departments {
		timetable, err := c.timetables.LatestCompletedByDepartment(ctx, dept)
		if err != nil || timetable == nil {
			continue
		}
		slots, err := c.slots.ListByTimetable(ctx, timetable.ID)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("department %s: %v", dept, err))
			continue
		}
		for _, s := range slots {
			key := cell{ClassroomID: s.ClassroomID, Day: s.DayOfWeek, Slot: models.TimeToSlot(s.StartTime)}
			usage[key] = append(usage[key], deptSlot{Department: dept, Slot: s})
		}
	}

	for _, contenders := range usage {
		if len(contenders) < 2 {
			continue
		}
		sort.Slice(contenders, func(i, j int) bool {
			pi, pj := c.priorityOf(ctx, contenders[i].Department), c.priorityOf(ctx, contenders[j].Department)
			if pi != pj {
				return pi < pj
			}
			return contenders[i].Department < contenders[j].Department
		})

		for _, loser := range contenders[1:] {
			if _, err := c.AttemptReschedule(ctx, db, loser.Slot); err != nil {
				if delErr := c.deleteSlot(ctx, db, loser.Slot.ID); delErr != nil {
					report.Errors = append(report.Errors, fmt.Sprintf("slot %s: %v", loser.Slot.ID, delErr))
					continue
				}
			}
			report.ConflictsResolved++
		}
	}

	if err := c.Load(ctx); err != nil {
		report.Errors = append(report.Errors, fmt.Sprintf("reload after synchronize: %v", err))
	}
	return report, nil
}

func (c *Coordinator) deleteSlot(ctx context.Context, db *sqlx.DB, slotID string) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := c.slots.Delete(ctx, tx, slotID); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// AttemptReschedule walks day/slot in grid order looking for the first
// cell not present in G that the slot's teacher is available for, moves
// the slot there, and returns the new slot. Returns an error if no cell
// is found.
func (c *Coordinator) AttemptReschedule(ctx context.Context, db *sqlx.DB, slot models.ScheduledSlot) (*models.ScheduledSlot, error) {
	assignment, err := c.assignments.FindByID(ctx, slot.AssignmentID)
	if err != nil {
		return nil, fmt.Errorf("load assignment: %w", err)
	}
	teacher, err := c.teachers.FindByID(ctx, assignment.TeacherID)
	if err != nil {
		return nil, fmt.Errorf("load teacher: %w", err)
	}

	daysOff := map[int]bool{}
	if len(teacher.DaysOff) > 0 {
		var days []int
		if err := teacher.DaysOff.Unmarshal(&days); err == nil {
			for _, d := range days {
				daysOff[d] = true
			}
		}
	}
	var avail *models.Availability
	if len(teacher.Availability) > 0 {
		var a models.Availability
		if err := teacher.Availability.Unmarshal(&a); err == nil {
			avail = &a
		}
	}

	c.mu.RLock()
	var target *cell
	for d := 0; d < models.DaysPerWeek && target == nil; d++ {
		if daysOff[d] {
			continue
		}
		for s := 0; s < models.SlotsPerDay; s++ {
			if !models.TeacherAt(avail, daysOff, d, s) {
				continue
			}
			key := cell{ClassroomID: slot.ClassroomID, Day: d, Slot: s}
			if _, reserved := c.global[key]; reserved {
				continue
			}
			found := key
			target = &found
			break
		}
	}
	c.mu.RUnlock()

	if target == nil {
		return nil, fmt.Errorf("no available cell found for slot %s", slot.ID)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin reschedule transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = c.slots.Delete(ctx, tx, slot.ID); err != nil {
		return nil, fmt.Errorf("delete old slot: %w", err)
	}
	newSlot := models.ScheduledSlot{
		DeptTimetableID: slot.DeptTimetableID,
		AssignmentID:    slot.AssignmentID,
		ClassroomID:     slot.ClassroomID,
		DayOfWeek:       target.Day,
		StartTime:       models.SlotToTime(target.Slot),
		EndTime:         models.SlotToTime(target.Slot) + (slot.EndTime - slot.StartTime),
		Department:      slot.Department,
		IsGlobalSlot:    slot.IsGlobalSlot,
	}
	if err = c.slots.Insert(ctx, tx, &newSlot); err != nil {
		return nil, fmt.Errorf("insert rescheduled slot: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reschedule transaction: %w", err)
	}

	if newSlot.IsGlobalSlot {
		c.mu.Lock()
		delete(c.global, cell{ClassroomID: slot.ClassroomID, Day: slot.DayOfWeek, Slot: models.TimeToSlot(slot.StartTime)})
		c.global[*target] = slot.Department
		c.mu.Unlock()
	}
	return &newSlot, nil
}

// ValidateConsistency checks that G matches the is_global_slot=true cells
// in storage in both directions, and that storage never has more than
// one is_global_slot row per cell.
func (c *Coordinator) ValidateConsistency(ctx context.Context) (bool, []string, error) {
	stored, err := c.slots.ListGlobal(ctx)
	if err != nil {
		return false, nil, fmt.Errorf("list global slots: %w", err)
	}

	storedKeys := make(map[cell]int, len(stored))
	for _, s := range stored {
		key := cell{ClassroomID: s.ClassroomID, Day: s.DayOfWeek, Slot: models.TimeToSlot(s.StartTime)}
		storedKeys[key]++
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs []string
	for key := range c.global {
		if storedKeys[key] == 0 {
			errs = append(errs, fmt.Sprintf("orphaned in memory: classroom=%s day=%d slot=%d", key.ClassroomID, key.Day, key.Slot))
		}
	}
	for key := range storedKeys {
		if _, ok := c.global[key]; !ok {
			errs = append(errs, fmt.Sprintf("orphaned in storage: classroom=%s day=%d slot=%d", key.ClassroomID, key.Day, key.Slot))
		}
	}
	for key, count := range storedKeys {
		if count > 1 {
			errs = append(errs, fmt.Sprintf("double-booked: classroom=%s day=%d slot=%d (%d rows)", key.ClassroomID, key.Day, key.Slot, count))
		}
	}
	sort.Strings(errs)
	return len(errs) == 0, errs, nil
}
