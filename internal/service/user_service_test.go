package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-scheduler/internal/models"
)

type mockUserRepo struct {
	users       map[string]*models.User
	findByIDErr error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	if user, ok := m.users[id]; ok {
		copy := *user
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func TestUserServiceMe(t *testing.T) {
	dept := "Engineering"
	repo := &mockUserRepo{users: map[string]*models.User{
		"1": {ID: "1", Email: "a@example.com", Name: "A", Role: models.RoleDeptHead, Department: &dept},
	}}
	svc := NewUserService(repo, zap.NewNop())

	info, err := svc.Me(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", info.Email)
	assert.Equal(t, "Engineering", *info.Department)
}

func TestUserServiceMeNotFound(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{}}
	svc := NewUserService(repo, zap.NewNop())

	_, err := svc.Me(context.Background(), "missing")
	require.Error(t, err)
}
