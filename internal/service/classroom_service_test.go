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

type mockClassroomRepo struct {
	listResult  []models.Classroom
	listTotal   int
	roomIDIndex map[string]bool
	created     []models.Classroom
}

func (m *mockClassroomRepo) List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, int, error) {
	return m.listResult, m.listTotal, nil
}

func (m *mockClassroomRepo) ListShared(ctx context.Context) ([]models.Classroom, error) {
	return nil, nil
}

func (m *mockClassroomRepo) ExistsByRoomID(ctx context.Context, roomID, excludeID string) (bool, error) {
	return m.roomIDIndex[roomID], nil
}

func (m *mockClassroomRepo) Create(ctx context.Context, classroom *models.Classroom) error {
	if classroom.ID == "" {
		classroom.ID = "generated"
	}
	m.created = append(m.created, *classroom)
	return nil
}

func TestClassroomServiceCreateBatch(t *testing.T) {
	repo := &mockClassroomRepo{roomIDIndex: map[string]bool{"R101": true}}
	svc := NewClassroomService(repo, validator.New(), zap.NewNop())

	result, err := svc.CreateBatch(context.Background(), "Computer Science", "u1", CreateClassroomsRequest{
		Classrooms: []ClassroomItem{
			{RoomID: "R101", RoomType: models.RoomTypeLecture, Capacity: 40},
			{RoomID: "R202", RoomType: models.RoomTypeLab, Capacity: 20},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.CreatedCount)
	assert.Len(t, result.Errors, 1)
	assert.Equal(t, "R202", repo.created[0].RoomID)
}
