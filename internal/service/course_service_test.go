package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-scheduler/internal/models"
)

type mockCourseRepo struct {
	listResult []models.Course
	listTotal  int
	nameIndex  map[string]bool
	created    []models.Course
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	return m.listResult, m.listTotal, nil
}

func (m *mockCourseRepo) ExistsByName(ctx context.Context, name, department, owner, excludeID string) (bool, error) {
	return m.nameIndex[name], nil
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = "generated"
	}
	m.created = append(m.created, *course)
	return nil
}

func TestCourseServiceCreateBatchAppliesDefaults(t *testing.T) {
	repo := &mockCourseRepo{}
	svc := NewCourseService(repo, validator.New(), zap.NewNop())

	result, err := svc.CreateBatch(context.Background(), "Computer Science", "u1", CreateCoursesRequest{
		Courses: []CourseItem{{Name: "Algorithms", CourseType: models.CourseTypeLecture, RoomType: models.RoomTypeLecture}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.CreatedCount)
	assert.Equal(t, models.DefaultDurationMinutes, repo.created[0].DurationMinutes)
	assert.Equal(t, models.DefaultSessionsPerWeek, repo.created[0].SessionsPerWeek)
}

func TestCourseServiceCreateBatchSkipsDuplicates(t *testing.T) {
	repo := &mockCourseRepo{nameIndex: map[string]bool{"Algorithms": true}}
	svc := NewCourseService(repo, validator.New(), zap.NewNop())

	result, err := svc.CreateBatch(context.Background(), "Computer Science", "u1", CreateCoursesRequest{
		Courses: []CourseItem{{Name: "Algorithms", CourseType: models.CourseTypeLecture, RoomType: models.RoomTypeLecture}},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.CreatedCount)
	assert.Len(t, result.Errors, 1)
}
