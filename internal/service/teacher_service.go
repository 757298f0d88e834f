package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-scheduler/internal/models"
	appErrors "github.com/noah-isme/campus-scheduler/pkg/errors"
)

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	ExistsByName(ctx context.Context, name, department, owner, excludeID string) (bool, error)
	Create(ctx context.Context, teacher *models.Teacher) error
}

// TeacherItem is one entry of a dept.teachers.step2 bulk-create payload.
type TeacherItem struct {
	Name           string `json:"name" validate:"required"`
	MaxHoursPerDay int    `json:"max_hours_per_day" validate:"omitempty,min=1,max=12"`
	Availability   []byte `json:"availability,omitempty"`
	DaysOff        []byte `json:"days_off,omitempty"`
}

// CreateTeachersRequest is the dept.teachers.step2 payload.
type CreateTeachersRequest struct {
	Teachers []TeacherItem `json:"teachers" validate:"required,dive"`
}

// CreateTeachersResult reports the partial-success outcome of a bulk create.
type CreateTeachersResult struct {
	CreatedCount int              `json:"created_count"`
	Errors       []string         `json:"errors"`
	Teachers     []models.Teacher `json:"teachers"`
}

// TeacherService backs the dept.teachers.* RPCs.
type TeacherService struct {
	repo      teacherRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(repo teacherRepository, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, validator: validate, logger: logger}
}

// List returns teachers plus pagination data.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return teachers, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// CreateBatch implements dept.teachers.step2: existing (name, department,
// owner) combinations are skipped and reported in Errors.
func (s *TeacherService) CreateBatch(ctx context.Context, department, owner string, req CreateTeachersRequest) (*CreateTeachersResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teachers payload")
	}

	result := &CreateTeachersResult{}
	for _, item := range req.Teachers {
		exists, err := s.repo.ExistsByName(ctx, item.Name, department, owner, "")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher name")
		}
		if exists {
			result.Errors = append(result.Errors, fmt.Sprintf("teacher %s already exists", item.Name))
			continue
		}

		maxHours := item.MaxHoursPerDay
		if maxHours == 0 {
			maxHours = models.DefaultMaxHoursPerDay
		}
		teacher := &models.Teacher{
			Name:           item.Name,
			Department:     department,
			Owner:          owner,
			MaxHoursPerDay: maxHours,
			Availability:   item.Availability,
			DaysOff:        item.DaysOff,
		}
		if err := s.repo.Create(ctx, teacher); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to create teacher %s: %v", item.Name, err))
			continue
		}
		result.CreatedCount++
		result.Teachers = append(result.Teachers, *teacher)
	}
	return result, nil
}
