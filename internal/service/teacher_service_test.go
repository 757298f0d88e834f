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

type mockTeacherRepo struct {
	listResult []models.Teacher
	listTotal  int
	listErr    error
	nameIndex  map[string]bool
	created    []models.Teacher
}

func (m *mockTeacherRepo) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	return m.listResult, m.listTotal, nil
}

func (m *mockTeacherRepo) ExistsByName(ctx context.Context, name, department, owner, excludeID string) (bool, error) {
	return m.nameIndex[name], nil
}

func (m *mockTeacherRepo) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = "generated"
	}
	m.created = append(m.created, *teacher)
	return nil
}

func TestTeacherServiceCreateBatch(t *testing.T) {
	repo := &mockTeacherRepo{nameIndex: map[string]bool{"Existing": true}}
	svc := NewTeacherService(repo, validator.New(), zap.NewNop())

	result, err := svc.CreateBatch(context.Background(), "Computer Science", "u1", CreateTeachersRequest{
		Teachers: []TeacherItem{
			{Name: "New Teacher"},
			{Name: "Existing"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.CreatedCount)
	assert.Len(t, result.Errors, 1)
	assert.Len(t, repo.created, 1)
	assert.Equal(t, models.DefaultMaxHoursPerDay, repo.created[0].MaxHoursPerDay)
}

func TestTeacherServiceList(t *testing.T) {
	repo := &mockTeacherRepo{listResult: []models.Teacher{{ID: "t1", Name: "A"}}, listTotal: 1}
	svc := NewTeacherService(repo, validator.New(), zap.NewNop())

	teachers, pagination, err := svc.List(context.Background(), models.TeacherFilter{})
	require.NoError(t, err)
	assert.Len(t, teachers, 1)
	assert.Equal(t, 1, pagination.TotalCount)
}
