package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-scheduler/internal/models"
	appErrors "github.com/noah-isme/campus-scheduler/pkg/errors"
)

type ruleListRepository interface {
	List(ctx context.Context, filter models.RuleFilter) ([]models.Rule, int, error)
	Create(ctx context.Context, rule *models.Rule) error
}

// RuleItem is one entry of a dept.rules.step6 bulk-create payload. RuleData
// is passed through verbatim as the rule's stored payload; its shape is
// validated against Type before the rule is created.
type RuleItem struct {
	Name     string          `json:"name" validate:"required"`
	Type     models.RuleType `json:"rule_type" validate:"required"`
	RuleData json.RawMessage `json:"rule_data" validate:"required"`
}

// CreateRulesRequest is the dept.rules.step6 payload.
type CreateRulesRequest struct {
	Rules []RuleItem `json:"rules" validate:"required,dive"`
}

// CreateRulesResult reports the partial-success outcome of a bulk create.
type CreateRulesResult struct {
	CreatedCount int           `json:"created_count"`
	Errors       []string      `json:"errors"`
	Rules        []models.Rule `json:"rules"`
}

// RuleService backs the dept.rules.* RPCs.
type RuleService struct {
	repo      ruleListRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRuleService constructs a RuleService.
func NewRuleService(repo ruleListRepository, validate *validator.Validate, logger *zap.Logger) *RuleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RuleService{repo: repo, validator: validate, logger: logger}
}

// List returns rules plus pagination data.
func (s *RuleService) List(ctx context.Context, filter models.RuleFilter) ([]models.Rule, *models.Pagination, error) {
	rules, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rules")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return rules, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// CreateBatch implements dept.rules.step6. Rules are not deduplicated by
// content, only reported as failed when RuleData doesn't parse against the
// declared Type -- the original never dedups rules by name across a
// request either, it relies on the step1-6 repository uniqueness checks
// already covering named entities.
func (s *RuleService) CreateBatch(ctx context.Context, department, owner string, req CreateRulesRequest) (*CreateRulesResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rules payload")
	}

	result := &CreateRulesResult{}
	for _, item := range req.Rules {
		candidate := models.Rule{Name: item.Name, Type: item.Type, RuleData: types.JSONText(item.RuleData)}
		if _, err := models.ParseRule(candidate); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to create rule %s: %v", item.Name, err))
			continue
		}

		rule := &models.Rule{
			Name:       item.Name,
			Type:       item.Type,
			RuleData:   types.JSONText(item.RuleData),
			Department: department,
			Owner:      owner,
		}
		if err := s.repo.Create(ctx, rule); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to create rule %s: %v", item.Name, err))
			continue
		}
		result.CreatedCount++
		result.Rules = append(result.Rules, *rule)
	}
	return result, nil
}
