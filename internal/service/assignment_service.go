package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-scheduler/internal/models"
	appErrors "github.com/noah-isme/campus-scheduler/pkg/errors"
)

type assignmentRepository interface {
	List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, int, error)
	Exists(ctx context.Context, courseID, sectionID, teacherID string) (bool, error)
	Create(ctx context.Context, assignment *models.Assignment) error
}

type assignmentCourseLookup interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type assignmentSectionLookup interface {
	FindByID(ctx context.Context, id string) (*models.Section, error)
}

type assignmentTeacherLookup interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// AssignmentItem is one entry of a dept.assignments.step5 bulk-create payload.
type AssignmentItem struct {
	CourseID  string  `json:"course_id" validate:"required"`
	SectionID string  `json:"section_id" validate:"required"`
	TeacherID string  `json:"teacher_id" validate:"required"`
	GroupID   *string `json:"group_id,omitempty"`
}

// CreateAssignmentsRequest is the dept.assignments.step5 payload.
type CreateAssignmentsRequest struct {
	Assignments []AssignmentItem `json:"assignments" validate:"required,dive"`
}

// CreateAssignmentsResult reports the partial-success outcome of a bulk create.
type CreateAssignmentsResult struct {
	CreatedCount int                 `json:"created_count"`
	Errors       []string            `json:"errors"`
	Assignments  []models.Assignment `json:"assignments"`
}

// AssignmentService backs the dept.assignments.* RPCs.
type AssignmentService struct {
	repo      assignmentRepository
	courses   assignmentCourseLookup
	sections  assignmentSectionLookup
	teachers  assignmentTeacherLookup
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAssignmentService constructs an AssignmentService.
func NewAssignmentService(repo assignmentRepository, courses assignmentCourseLookup, sections assignmentSectionLookup, teachers assignmentTeacherLookup, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{repo: repo, courses: courses, sections: sections, teachers: teachers, validator: validate, logger: logger}
}

// List returns assignments plus pagination data.
func (s *AssignmentService) List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, *models.Pagination, error) {
	assignments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return assignments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// CreateBatch implements dept.assignments.step5: each item's course,
// section and teacher must exist in the caller's (department, owner)
// scope and the (course, section, teacher) tuple must be unique; anything
// else is skipped and reported in Errors.
func (s *AssignmentService) CreateBatch(ctx context.Context, department, owner string, req CreateAssignmentsRequest) (*CreateAssignmentsResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignments payload")
	}

	result := &CreateAssignmentsResult{}
	for _, item := range req.Assignments {
		course, err := s.courses.FindByID(ctx, item.CourseID)
		if err != nil {
			if err == sql.ErrNoRows {
				result.Errors = append(result.Errors, fmt.Sprintf("course with id %s not found", item.CourseID))
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}
		if course.Department != department || course.Owner != owner {
			result.Errors = append(result.Errors, fmt.Sprintf("course with id %s not found", item.CourseID))
			continue
		}

		section, err := s.sections.FindByID(ctx, item.SectionID)
		if err != nil {
			if err == sql.ErrNoRows {
				result.Errors = append(result.Errors, fmt.Sprintf("section with id %s not found", item.SectionID))
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
		}
		if section.Department != department || section.Owner != owner {
			result.Errors = append(result.Errors, fmt.Sprintf("section with id %s not found", item.SectionID))
			continue
		}

		teacher, err := s.teachers.FindByID(ctx, item.TeacherID)
		if err != nil {
			if err == sql.ErrNoRows {
				result.Errors = append(result.Errors, fmt.Sprintf("teacher with id %s not found", item.TeacherID))
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
		}
		if teacher.Department != department || teacher.Owner != owner {
			result.Errors = append(result.Errors, fmt.Sprintf("teacher with id %s not found", item.TeacherID))
			continue
		}

		exists, err := s.repo.Exists(ctx, item.CourseID, item.SectionID, item.TeacherID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
		}
		if exists {
			result.Errors = append(result.Errors, fmt.Sprintf("assignment for course %s, section %s, teacher %s already exists", course.Name, section.Code, teacher.Name))
			continue
		}

		assignment := &models.Assignment{
			CourseID:   item.CourseID,
			SectionID:  item.SectionID,
			TeacherID:  item.TeacherID,
			GroupID:    item.GroupID,
			Department: department,
			Owner:      owner,
		}
		if err := s.repo.Create(ctx, assignment); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to create assignment: %v", err))
			continue
		}
		result.CreatedCount++
		result.Assignments = append(result.Assignments, *assignment)
	}
	return result, nil
}
