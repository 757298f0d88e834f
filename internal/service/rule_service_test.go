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

type mockRuleRepo struct {
	created []models.Rule
}

func (m *mockRuleRepo) List(ctx context.Context, filter models.RuleFilter) ([]models.Rule, int, error) {
	return nil, 0, nil
}

func (m *mockRuleRepo) Create(ctx context.Context, rule *models.Rule) error {
	if rule.ID == "" {
		rule.ID = "generated"
	}
	m.created = append(m.created, *rule)
	return nil
}

func TestRuleServiceCreateBatch(t *testing.T) {
	repo := &mockRuleRepo{}
	svc := NewRuleService(repo, validator.New(), zap.NewNop())

	result, err := svc.CreateBatch(context.Background(), "Computer Science", "u1", CreateRulesRequest{
		Rules: []RuleItem{
			{Name: "Lunch", Type: models.RuleTypeLunchWindow, RuleData: []byte(`{"start_slot":4,"end_slot":5}`)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.CreatedCount)
	assert.Empty(t, result.Errors)
}

func TestRuleServiceCreateBatchRejectsMalformedPayload(t *testing.T) {
	repo := &mockRuleRepo{}
	svc := NewRuleService(repo, validator.New(), zap.NewNop())

	result, err := svc.CreateBatch(context.Background(), "Computer Science", "u1", CreateRulesRequest{
		Rules: []RuleItem{
			{Name: "Bad window", Type: models.RuleTypeLunchWindow, RuleData: []byte(`{"start_slot":9,"end_slot":1}`)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.CreatedCount)
	assert.Len(t, result.Errors, 1)
}
