package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-scheduler/internal/models"
	appErrors "github.com/noah-isme/campus-scheduler/pkg/errors"
)

type classroomRepository interface {
	List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, int, error)
	ListShared(ctx context.Context) ([]models.Classroom, error)
	ExistsByRoomID(ctx context.Context, roomID, excludeID string) (bool, error)
	Create(ctx context.Context, classroom *models.Classroom) error
}

// ClassroomItem is one entry of a dept.classrooms.step4 bulk-create payload.
type ClassroomItem struct {
	RoomID   string          `json:"room_id" validate:"required"`
	RoomType models.RoomType `json:"room_type" validate:"required"`
	Capacity int             `json:"capacity" validate:"required,min=1,max=500"`
	IsShared bool            `json:"is_shared"`
}

// CreateClassroomsRequest is the dept.classrooms.step4 payload.
type CreateClassroomsRequest struct {
	Classrooms []ClassroomItem `json:"classrooms" validate:"required,dive"`
}

// CreateClassroomsResult reports the partial-success outcome of a bulk create.
type CreateClassroomsResult struct {
	CreatedCount int               `json:"created_count"`
	Errors       []string          `json:"errors"`
	Classrooms   []models.Classroom `json:"classrooms"`
}

// ClassroomService backs the dept.classrooms.* RPCs.
type ClassroomService struct {
	repo      classroomRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassroomService constructs a ClassroomService.
func NewClassroomService(repo classroomRepository, validate *validator.Validate, logger *zap.Logger) *ClassroomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassroomService{repo: repo, validator: validate, logger: logger}
}

// List returns classrooms usable by the caller's department (own rooms plus
// shared resources), with pagination.
func (s *ClassroomService) List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, *models.Pagination, error) {
	classrooms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classrooms")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return classrooms, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// CreateBatch implements dept.classrooms.step4: existing room_id values are
// skipped and reported in Errors. room_id uniqueness is global, not scoped
// to department, since shared classrooms are visible across departments.
func (s *ClassroomService) CreateBatch(ctx context.Context, department, owner string, req CreateClassroomsRequest) (*CreateClassroomsResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classrooms payload")
	}

	result := &CreateClassroomsResult{}
	for _, item := range req.Classrooms {
		exists, err := s.repo.ExistsByRoomID(ctx, item.RoomID, "")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check classroom room_id")
		}
		if exists {
			result.Errors = append(result.Errors, fmt.Sprintf("classroom %s already exists", item.RoomID))
			continue
		}

		classroom := &models.Classroom{
			RoomID:     item.RoomID,
			RoomType:   item.RoomType,
			Capacity:   item.Capacity,
			Department: department,
			Owner:      owner,
			IsShared:   item.IsShared,
		}
		if err := s.repo.Create(ctx, classroom); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to create classroom %s: %v", item.RoomID, err))
			continue
		}
		result.CreatedCount++
		result.Classrooms = append(result.Classrooms, *classroom)
	}
	return result, nil
}
