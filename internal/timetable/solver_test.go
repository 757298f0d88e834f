package timetable

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-scheduler/internal/models"
)

func buildTestSnapshot(t *testing.T) *Snapshot {
	t.Helper()
	groupID := "g1"
	return &Snapshot{
		Department: "Computer Science",
		Owner:      "u1",
		Teachers: map[string]models.Teacher{
			"t1": {ID: "t1", Name: "Ada", MaxHoursPerDay: models.DefaultMaxHoursPerDay},
			"t2": {ID: "t2", Name: "Grace", MaxHoursPerDay: models.DefaultMaxHoursPerDay},
		},
		Courses: map[string]models.Course{
			"c1": {ID: "c1", Name: "Algorithms", CourseType: models.CourseTypeLecture, DurationMinutes: 55, SessionsPerWeek: 2, RoomType: models.RoomTypeLecture},
			"c2": {ID: "c2", Name: "Databases Lab", CourseType: models.CourseTypeLab, DurationMinutes: 55, SessionsPerWeek: 1, RoomType: models.RoomTypeLab},
		},
		Sections: map[string]models.Section{
			"s1": {ID: "s1", Code: "CS101"},
		},
		Classrooms: map[string]models.Classroom{
			"r1": {ID: "r1", RoomID: "R1", RoomType: models.RoomTypeLecture, Capacity: 40},
			"r2": {ID: "r2", RoomID: "R2", RoomType: models.RoomTypeLab, Capacity: 20},
		},
		Assignments: []models.Assignment{
			{ID: "a1", CourseID: "c1", SectionID: "s1", TeacherID: "t1", GroupID: &groupID},
			{ID: "a2", CourseID: "c2", SectionID: "s1", TeacherID: "t2"},
		},
		AssignmentIndex: map[string]int{"a1": 0, "a2": 1},
	}
}

func TestBuildModelAssignsCandidatesAndSessionCounts(t *testing.T) {
	snap := buildTestSnapshot(t)
	m, err := BuildModel(snap)
	require.NoError(t, err)

	var a1Sessions, a2Sessions int
	for _, s := range m.Sessions {
		switch s.AssignmentID {
		case "a1":
			a1Sessions++
			assert.Contains(t, s.Candidates, "r1")
			assert.NotContains(t, s.Candidates, "r2")
		case "a2":
			a2Sessions++
			assert.Contains(t, s.Candidates, "r2")
		}
	}
	assert.Equal(t, 2, a1Sessions)
	assert.Equal(t, 1, a2Sessions)
}

func TestSolveProducesFeasibleScheduleAndValidates(t *testing.T) {
	snap := buildTestSnapshot(t)
	m, err := BuildModel(snap)
	require.NoError(t, err)

	result, err := Solve(context.Background(), m, 2*time.Second)
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Len(t, result.Placements, 3) // 2 sessions for a1 + 1 for a2
	assert.True(t, result.Stats.Success)
	assert.Equal(t, "OPTIMAL", result.Stats.StatusName)

	require.NoError(t, ValidateSolution(snap, m, result.Placements))
}

func TestSolveFailsWhenNoCompatibleClassroom(t *testing.T) {
	snap := buildTestSnapshot(t)
	delete(snap.Classrooms, "r2")
	m, err := BuildModel(snap)
	require.NoError(t, err)

	result, err := Solve(context.Background(), m, time.Second)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "UNKNOWN", result.Stats.StatusName)
}

func TestForbiddenTimePairsExcludeCell(t *testing.T) {
	snap := buildTestSnapshot(t)
	pairs := models.ForbiddenTimePairsData{Pairs: []models.ForbiddenTimePair{{AssignmentID: "a2", Day: 0, Slot: 0}}}
	snap.Rules = append(snap.Rules, models.ParsedRule{ID: "rule1", Type: models.RuleTypeForbiddenTimePairs, ForbiddenTimePairs: &pairs})

	m, err := BuildModel(snap)
	require.NoError(t, err)

	for _, s := range m.Sessions {
		if s.AssignmentID == "a2" {
			assert.True(t, s.Forbidden[0][0])
		}
	}
}

func TestPreflightCheckReportsMissingCategories(t *testing.T) {
	snap := &Snapshot{}
	errs := PreflightCheck(snap)
	assert.Len(t, errs, 4)
}
