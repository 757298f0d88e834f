package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-scheduler/internal/models"
)

type mockAssignmentRepo struct {
	existing map[string]bool
	created  []models.Assignment
}

func (m *mockAssignmentRepo) List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, int, error) {
	return nil, 0, nil
}

func (m *mockAssignmentRepo) Exists(ctx context.Context, courseID, sectionID, teacherID string) (bool, error) {
	return m.existing[courseID+sectionID+teacherID], nil
}

func (m *mockAssignmentRepo) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = "generated"
	}
	m.created = append(m.created, *assignment)
	return nil
}

type mockCourseLookup struct{ courses map[string]*models.Course }

func (m *mockCourseLookup) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type mockSectionLookup struct{ sections map[string]*models.Section }

func (m *mockSectionLookup) FindByID(ctx context.Context, id string) (*models.Section, error) {
	if s, ok := m.sections[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

type mockTeacherLookup struct{ teachers map[string]*models.Teacher }

func (m *mockTeacherLookup) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if t, ok := m.teachers[id]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func TestAssignmentServiceCreateBatch(t *testing.T) {
	repo := &mockAssignmentRepo{}
	courses := &mockCourseLookup{courses: map[string]*models.Course{
		"c1": {ID: "c1", Name: "Algorithms", Department: "Computer Science", Owner: "u1"},
	}}
	sections := &mockSectionLookup{sections: map[string]*models.Section{
		"s1": {ID: "s1", Code: "CS101", Department: "Computer Science", Owner: "u1"},
	}}
	teachers := &mockTeacherLookup{teachers: map[string]*models.Teacher{
		"t1": {ID: "t1", Name: "Ada", Department: "Computer Science", Owner: "u1"},
	}}
	svc := NewAssignmentService(repo, courses, sections, teachers, validator.New(), zap.NewNop())

	result, err := svc.CreateBatch(context.Background(), "Computer Science", "u1", CreateAssignmentsRequest{
		Assignments: []AssignmentItem{{CourseID: "c1", SectionID: "s1", TeacherID: "t1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.CreatedCount)
	assert.Empty(t, result.Errors)
}

func TestAssignmentServiceCreateBatchMissingCourse(t *testing.T) {
	repo := &mockAssignmentRepo{}
	courses := &mockCourseLookup{courses: map[string]*models.Course{}}
	sections := &mockSectionLookup{sections: map[string]*models.Section{
		"s1": {ID: "s1", Code: "CS101", Department: "Computer Science", Owner: "u1"},
	}}
	teachers := &mockTeacherLookup{teachers: map[string]*models.Teacher{
		"t1": {ID: "t1", Name: "Ada", Department: "Computer Science", Owner: "u1"},
	}}
	svc := NewAssignmentService(repo, courses, sections, teachers, validator.New(), zap.NewNop())

	result, err := svc.CreateBatch(context.Background(), "Computer Science", "u1", CreateAssignmentsRequest{
		Assignments: []AssignmentItem{{CourseID: "missing", SectionID: "s1", TeacherID: "t1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.CreatedCount)
	assert.Len(t, result.Errors, 1)
}

func TestAssignmentServiceCreateBatchRejectsCrossDepartment(t *testing.T) {
	repo := &mockAssignmentRepo{}
	courses := &mockCourseLookup{courses: map[string]*models.Course{
		"c1": {ID: "c1", Name: "Algorithms", Department: "Engineering", Owner: "u1"},
	}}
	sections := &mockSectionLookup{sections: map[string]*models.Section{
		"s1": {ID: "s1", Code: "CS101", Department: "Computer Science", Owner: "u1"},
	}}
	teachers := &mockTeacherLookup{teachers: map[string]*models.Teacher{
		"t1": {ID: "t1", Name: "Ada", Department: "Computer Science", Owner: "u1"},
	}}
	svc := NewAssignmentService(repo, courses, sections, teachers, validator.New(), zap.NewNop())

	result, err := svc.CreateBatch(context.Background(), "Computer Science", "u1", CreateAssignmentsRequest{
		Assignments: []AssignmentItem{{CourseID: "c1", SectionID: "s1", TeacherID: "t1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.CreatedCount)
	assert.Len(t, result.Errors, 1)
}
