package coordinator

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-scheduler/internal/models"
)

type mockSlotRepo struct {
	global     []models.ScheduledSlot
	byTimetable map[string][]models.ScheduledSlot
}

func (m *mockSlotRepo) ListGlobal(ctx context.Context) ([]models.ScheduledSlot, error) {
	return m.global, nil
}

func (m *mockSlotRepo) ListByTimetable(ctx context.Context, timetableID string) ([]models.ScheduledSlot, error) {
	return m.byTimetable[timetableID], nil
}

func (m *mockSlotRepo) SetGlobalFlag(ctx context.Context, exec sqlx.ExtContext, slotIDs []string, flag bool) error {
	return nil
}

func (m *mockSlotRepo) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	return nil
}

func (m *mockSlotRepo) Insert(ctx context.Context, exec sqlx.ExtContext, slot *models.ScheduledSlot) error {
	return nil
}

type mockTimetableRepo struct {
	completed []models.DeptTimetable
	latest    map[string]*models.DeptTimetable
}

func (m *mockTimetableRepo) ListAllCompleted(ctx context.Context) ([]models.DeptTimetable, error) {
	return m.completed, nil
}

func (m *mockTimetableRepo) LatestCompletedByDepartment(ctx context.Context, department string) (*models.DeptTimetable, error) {
	return m.latest[department], nil
}

type mockClassroomRepo struct {
	shared []models.Classroom
}

func (m *mockClassroomRepo) ListShared(ctx context.Context) ([]models.Classroom, error) {
	return m.shared, nil
}

type mockPriorityRepo struct {
	settings []models.CoordinatorSetting
}

func (m *mockPriorityRepo) List(ctx context.Context) ([]models.CoordinatorSetting, error) {
	return m.settings, nil
}

func TestCoordinatorLoadBuildsIndexFromGlobalSlots(t *testing.T) {
	slots := &mockSlotRepo{global: []models.ScheduledSlot{
		{ID: "slot1", ClassroomID: "r1", DayOfWeek: 0, StartTime: models.SlotToTime(2), Department: "Computer Science", IsGlobalSlot: true},
	}}
	c := New(slots, &mockTimetableRepo{}, &mockClassroomRepo{}, nil, nil, &mockPriorityRepo{})

	require.NoError(t, c.Load(context.Background()))

	reserved, dept, err := c.IsReserved(context.Background(), "r1", 0, 2)
	require.NoError(t, err)
	assert.True(t, reserved)
	assert.Equal(t, "Computer Science", dept)

	reserved, _, err = c.IsReserved(context.Background(), "r1", 0, 3)
	require.NoError(t, err)
	assert.False(t, reserved)
}

func TestCheckResourceConflictsDetectsForeignDepartment(t *testing.T) {
	slots := &mockSlotRepo{
		global: []models.ScheduledSlot{
			{ID: "slot1", ClassroomID: "r1", DayOfWeek: 0, StartTime: models.SlotToTime(2), Department: "Engineering", IsGlobalSlot: true},
		},
		byTimetable: map[string][]models.ScheduledSlot{
			"t1": {{ID: "slot2", ClassroomID: "r1", DayOfWeek: 0, StartTime: models.SlotToTime(2)}},
		},
	}
	c := New(slots, &mockTimetableRepo{}, &mockClassroomRepo{}, nil, nil, &mockPriorityRepo{})
	require.NoError(t, c.Load(context.Background()))

	noConflicts, conflicts, err := c.CheckResourceConflicts(context.Background(), "Computer Science", "t1")
	require.NoError(t, err)
	assert.False(t, noConflicts)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "Engineering", conflicts[0].OccupyingDepartment)
}

func TestAvailableSharedResourcesExcludesReservedCells(t *testing.T) {
	slots := &mockSlotRepo{global: []models.ScheduledSlot{
		{ID: "slot1", ClassroomID: "shared1", DayOfWeek: 1, StartTime: models.SlotToTime(3), Department: "Mathematics", IsGlobalSlot: true},
	}}
	classrooms := &mockClassroomRepo{shared: []models.Classroom{
		{ID: "shared1", RoomID: "SH1", RoomType: models.RoomTypeConference, Capacity: 100},
		{ID: "shared2", RoomID: "SH2", RoomType: models.RoomTypeConference, Capacity: 50},
	}}
	c := New(slots, &mockTimetableRepo{}, classrooms, nil, nil, &mockPriorityRepo{})
	require.NoError(t, c.Load(context.Background()))

	available := c.AvailableSharedResources(1, 2, 5, models.RoomTypeConference)
	require.Len(t, available, 1)
	assert.Equal(t, "SH2", available[0].RoomID)
}

func TestPriorityOfFallsBackToDefaultForUnknownDepartment(t *testing.T) {
	c := New(&mockSlotRepo{}, &mockTimetableRepo{}, &mockClassroomRepo{}, nil, nil, &mockPriorityRepo{})
	assert.Equal(t, models.DefaultUnknownDepartmentPriority, c.priorityOf(context.Background(), "Unknown Dept"))
	assert.Equal(t, 1, c.priorityOf(context.Background(), "Computer Science"))
}

func TestPriorityOfPrefersAdminConfiguredSetting(t *testing.T) {
	priorities := &mockPriorityRepo{settings: []models.CoordinatorSetting{{Department: "Computer Science", Priority: 9}}}
	c := New(&mockSlotRepo{}, &mockTimetableRepo{}, &mockClassroomRepo{}, nil, nil, priorities)
	assert.Equal(t, 9, c.priorityOf(context.Background(), "Computer Science"))
}

func TestValidateConsistencyDetectsOrphanInMemory(t *testing.T) {
	slots := &mockSlotRepo{global: []models.ScheduledSlot{
		{ID: "slot1", ClassroomID: "r1", DayOfWeek: 0, StartTime: models.SlotToTime(0), IsGlobalSlot: true},
	}}
	c := New(slots, &mockTimetableRepo{}, &mockClassroomRepo{}, nil, nil, &mockPriorityRepo{})
	// Load with a different slot set than the one ValidateConsistency rereads.
	require.NoError(t, c.Load(context.Background()))
	slots.global = nil
	ok, errs, err := c.ValidateConsistency(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotEmpty(t, errs)
}

func TestSynchronizeIsDeterministicForNoTimetables(t *testing.T) {
	c := New(&mockSlotRepo{}, &mockTimetableRepo{latest: map[string]*models.DeptTimetable{}}, &mockClassroomRepo{}, nil, nil, &mockPriorityRepo{})
	report, err := c.Synchronize(context.Background(), nil, []string{"Computer Science", "Engineering"})
	require.NoError(t, err)
	assert.Equal(t, 0, report.ConflictsResolved)
}
