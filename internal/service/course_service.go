package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-scheduler/internal/models"
	appErrors "github.com/noah-isme/campus-scheduler/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	ExistsByName(ctx context.Context, name, department, owner, excludeID string) (bool, error)
	Create(ctx context.Context, course *models.Course) error
}

// CourseItem is one entry of a dept.courses.step3 bulk-create payload.
type CourseItem struct {
	Name            string           `json:"name" validate:"required"`
	CourseType      models.CourseType `json:"course_type" validate:"required,oneof=lecture lab"`
	DurationMinutes int              `json:"duration_minutes" validate:"omitempty,min=30,max=180"`
	SessionsPerWeek int              `json:"sessions_per_week" validate:"omitempty,min=1,max=7"`
	RoomType        models.RoomType  `json:"room_type" validate:"required"`
}

// CreateCoursesRequest is the dept.courses.step3 payload.
type CreateCoursesRequest struct {
	Courses []CourseItem `json:"courses" validate:"required,dive"`
}

// CreateCoursesResult reports the partial-success outcome of a bulk create.
type CreateCoursesResult struct {
	CreatedCount int             `json:"created_count"`
	Errors       []string        `json:"errors"`
	Courses      []models.Course `json:"courses"`
}

// CourseService backs the dept.courses.* RPCs.
type CourseService struct {
	repo      courseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs a CourseService.
func NewCourseService(repo courseRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, validator: validate, logger: logger}
}

// List returns courses plus pagination data.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return courses, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// CreateBatch implements dept.courses.step3: existing (name, department,
// owner) combinations are skipped and reported in Errors.
func (s *CourseService) CreateBatch(ctx context.Context, department, owner string, req CreateCoursesRequest) (*CreateCoursesResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid courses payload")
	}

	result := &CreateCoursesResult{}
	for _, item := range req.Courses {
		exists, err := s.repo.ExistsByName(ctx, item.Name, department, owner, "")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check course name")
		}
		if exists {
			result.Errors = append(result.Errors, fmt.Sprintf("course %s already exists", item.Name))
			continue
		}

		duration := item.DurationMinutes
		if duration == 0 {
			duration = models.DefaultDurationMinutes
		}
		sessions := item.SessionsPerWeek
		if sessions == 0 {
			sessions = models.DefaultSessionsPerWeek
		}
		course := &models.Course{
			Name:            item.Name,
			CourseType:      item.CourseType,
			DurationMinutes: duration,
			SessionsPerWeek: sessions,
			RoomType:        item.RoomType,
			Department:      department,
			Owner:           owner,
		}
		if err := s.repo.Create(ctx, course); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to create course %s: %v", item.Name, err))
			continue
		}
		result.CreatedCount++
		result.Courses = append(result.Courses, *course)
	}
	return result, nil
}
