package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-scheduler/internal/coordinator"
	"github.com/noah-isme/campus-scheduler/internal/models"
	"github.com/noah-isme/campus-scheduler/internal/timetable"
)

type mockDeptTimetableRepo struct {
	created    []models.DeptTimetable
	findResult *models.DeptTimetable
	canStart   bool
}

func (m *mockDeptTimetableRepo) List(ctx context.Context, filter models.DeptTimetableFilter) ([]models.DeptTimetable, int, error) {
	return nil, 0, nil
}

func (m *mockDeptTimetableRepo) FindByID(ctx context.Context, id string) (*models.DeptTimetable, error) {
	return m.findResult, nil
}

func (m *mockDeptTimetableRepo) Create(ctx context.Context, t *models.DeptTimetable) error {
	t.ID = "tt1"
	m.created = append(m.created, *t)
	return nil
}

func (m *mockDeptTimetableRepo) TransitionToGenerating(ctx context.Context, id string) (bool, error) {
	return m.canStart, nil
}

type mockSlotDetailRepo struct {
	slots []models.ScheduledSlot
}

func (m *mockSlotDetailRepo) ListByTimetable(ctx context.Context, timetableID string) ([]models.ScheduledSlot, error) {
	return m.slots, nil
}

type mockSnapshotLoader struct {
	snap *timetable.Snapshot
	err  error
}

func (m *mockSnapshotLoader) Load(ctx context.Context, department, owner string) (*timetable.Snapshot, error) {
	return m.snap, m.err
}

type mockMaterializer struct {
	committed bool
	failed    bool
}

func (m *mockMaterializer) Commit(ctx context.Context, timetableID, department string, result *timetable.Result) error {
	m.committed = true
	return nil
}

func (m *mockMaterializer) Fail(ctx context.Context, timetableID string, stats models.SolverStats) error {
	m.failed = true
	return nil
}

func testSnapshot() *timetable.Snapshot {
	groupID := "g1"
	return &timetable.Snapshot{
		Department: "Computer Science",
		Owner:      "u1",
		Teachers:   map[string]models.Teacher{"t1": {ID: "t1", MaxHoursPerDay: models.DefaultMaxHoursPerDay}},
		Courses:    map[string]models.Course{"c1": {ID: "c1", DurationMinutes: 55, SessionsPerWeek: 1, RoomType: models.RoomTypeLecture}},
		Sections:   map[string]models.Section{"s1": {ID: "s1"}},
		Classrooms: map[string]models.Classroom{"r1": {ID: "r1", RoomType: models.RoomTypeLecture}},
		Assignments: []models.Assignment{
			{ID: "a1", CourseID: "c1", SectionID: "s1", TeacherID: "t1", GroupID: &groupID},
		},
		AssignmentIndex: map[string]int{"a1": 0},
	}
}

func TestDeptTimetableServiceGenerateSucceeds(t *testing.T) {
	timetables := &mockDeptTimetableRepo{canStart: true}
	materializer := &mockMaterializer{}
	svc := NewDeptTimetableService(
		timetables,
		&mockSlotDetailRepo{},
		&mockSnapshotLoader{snap: testSnapshot()},
		materializer,
		nil,
		validator.New(),
		zap.NewNop(),
		DeptTimetableConfig{},
	)

	result, err := svc.Generate(context.Background(), "Computer Science", "u1", GenerateTimetableRequest{TimetableName: "Fall 2026"})
	require.NoError(t, err)
	assert.Equal(t, models.DeptTimetableCompleted, result.Timetable.Status)
	assert.True(t, result.Stats.Success)
	assert.True(t, materializer.committed)
}

func TestDeptTimetableServiceGenerateRejectsConcurrentRun(t *testing.T) {
	timetables := &mockDeptTimetableRepo{canStart: false}
	svc := NewDeptTimetableService(
		timetables,
		&mockSlotDetailRepo{},
		&mockSnapshotLoader{snap: testSnapshot()},
		&mockMaterializer{},
		nil,
		validator.New(),
		zap.NewNop(),
		DeptTimetableConfig{},
	)

	_, err := svc.Generate(context.Background(), "Computer Science", "u1", GenerateTimetableRequest{TimetableName: "Fall 2026"})
	require.Error(t, err)
}

func TestDeptTimetableServiceGenerateRejectsEmptyDepartment(t *testing.T) {
	timetables := &mockDeptTimetableRepo{canStart: true}
	svc := NewDeptTimetableService(
		timetables,
		&mockSlotDetailRepo{},
		&mockSnapshotLoader{snap: &timetable.Snapshot{}},
		&mockMaterializer{},
		nil,
		validator.New(),
		zap.NewNop(),
		DeptTimetableConfig{},
	)

	_, err := svc.Generate(context.Background(), "Computer Science", "u1", GenerateTimetableRequest{TimetableName: "Fall 2026"})
	require.Error(t, err)
}

var _ = coordinator.Conflict{}
