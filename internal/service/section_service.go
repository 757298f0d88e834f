package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-scheduler/internal/models"
	appErrors "github.com/noah-isme/campus-scheduler/pkg/errors"
)

type sectionRepository interface {
	List(ctx context.Context, filter models.SectionFilter) ([]models.Section, int, error)
	ExistsByCode(ctx context.Context, code, department, owner, excludeID string) (bool, error)
	Create(ctx context.Context, section *models.Section) error
}

// SectionItem is one entry of a dept.sections.step1 bulk-create payload.
type SectionItem struct {
	Code string `json:"code" validate:"required"`
}

// CreateSectionsRequest is the dept.sections.step1 payload.
type CreateSectionsRequest struct {
	Sections []SectionItem `json:"sections" validate:"required,dive"`
}

// CreateSectionsResult reports the partial-success outcome of a bulk create:
// duplicates are skipped and recorded in Errors rather than aborting the
// whole batch.
type CreateSectionsResult struct {
	CreatedCount int              `json:"created_count"`
	Errors       []string         `json:"errors"`
	Sections     []models.Section `json:"sections"`
}

// SectionService backs the dept.sections.* RPCs.
type SectionService struct {
	repo      sectionRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSectionService constructs SectionService.
func NewSectionService(repo sectionRepository, validate *validator.Validate, logger *zap.Logger) *SectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SectionService{repo: repo, validator: validate, logger: logger}
}

// List returns sections scoped to (department, owner), with pagination.
func (s *SectionService) List(ctx context.Context, filter models.SectionFilter) ([]models.Section, *models.Pagination, error) {
	sections, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return sections, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// CreateBatch implements dept.sections.step1: existing (code, department,
// owner) combinations are skipped and reported in Errors, everything else
// is created.
func (s *SectionService) CreateBatch(ctx context.Context, department, owner string, req CreateSectionsRequest) (*CreateSectionsResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sections payload")
	}

	result := &CreateSectionsResult{}
	for _, item := range req.Sections {
		exists, err := s.repo.ExistsByCode(ctx, item.Code, department, owner, "")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check section code")
		}
		if exists {
			result.Errors = append(result.Errors, fmt.Sprintf("section %s already exists", item.Code))
			continue
		}

		section := &models.Section{Code: item.Code, Department: department, Owner: owner}
		if err := s.repo.Create(ctx, section); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to create section %s: %v", item.Code, err))
			continue
		}
		result.CreatedCount++
		result.Sections = append(result.Sections, *section)
	}
	return result, nil
}
