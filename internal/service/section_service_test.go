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

type mockSectionRepo struct {
	listResult []models.Section
	listTotal  int
	codeIndex  map[string]bool
	created    []models.Section
}

func (m *mockSectionRepo) List(ctx context.Context, filter models.SectionFilter) ([]models.Section, int, error) {
	return m.listResult, m.listTotal, nil
}

func (m *mockSectionRepo) ExistsByCode(ctx context.Context, code, department, owner, excludeID string) (bool, error) {
	return m.codeIndex[code], nil
}

func (m *mockSectionRepo) Create(ctx context.Context, section *models.Section) error {
	if section.ID == "" {
		section.ID = "generated"
	}
	m.created = append(m.created, *section)
	return nil
}

func TestSectionServiceCreateBatchSkipsDuplicates(t *testing.T) {
	repo := &mockSectionRepo{codeIndex: map[string]bool{"CS101": true}}
	svc := NewSectionService(repo, validator.New(), zap.NewNop())

	result, err := svc.CreateBatch(context.Background(), "Computer Science", "u1", CreateSectionsRequest{
		Sections: []SectionItem{{Code: "CS101"}, {Code: "CS102"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.CreatedCount)
	assert.Len(t, result.Errors, 1)
	assert.Len(t, repo.created, 1)
	assert.Equal(t, "CS102", repo.created[0].Code)
}

func TestSectionServiceCreateBatchValidation(t *testing.T) {
	repo := &mockSectionRepo{}
	svc := NewSectionService(repo, validator.New(), zap.NewNop())

	_, err := svc.CreateBatch(context.Background(), "Computer Science", "u1", CreateSectionsRequest{
		Sections: []SectionItem{{Code: ""}},
	})
	require.Error(t, err)
}
