package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-scheduler/internal/models"
)

// AssignmentRepository persists course/section/teacher assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// List returns assignments matching filters with pagination metadata.
func (r *AssignmentRepository) List(ctx context.Context, filter models.AssignmentFilter) ([]models.AssignmentDetail, int, error) {
	base := `FROM assignments a
JOIN courses c ON c.id = a.course_id
JOIN sections s ON s.id = a.section_id
JOIN teachers t ON t.id = a.teacher_id
WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("a.department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.Owner != "" {
		conditions = append(conditions, fmt.Sprintf("a.owner = $%d", len(args)+1))
		args = append(args, filter.Owner)
	}
	if filter.SectionID != "" {
		conditions = append(conditions, fmt.Sprintf("a.section_id = $%d", len(args)+1))
		args = append(args, filter.SectionID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("a.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT a.id, a.course_id, a.section_id, a.teacher_id, a.group_id, a.department, a.owner, a.created_at,
       c.id "course.id", c.name "course.name", c.course_type "course.course_type", c.duration_minutes "course.duration_minutes", c.sessions_per_week "course.sessions_per_week", c.room_type "course.room_type",
       s.id "section.id", s.code "section.code",
       t.id "teacher.id", t.name "teacher.name", t.max_hours_per_day "teacher.max_hours_per_day"
%s ORDER BY a.created_at DESC LIMIT %d OFFSET %d`, base, size, offset)
	var assignments []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list assignments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count assignments: %w", err)
	}
	return assignments, total, nil
}

// ListAll returns every assignment for a (department, owner) pair, used
// when building a generation snapshot.
func (r *AssignmentRepository) ListAll(ctx context.Context, department, owner string) ([]models.Assignment, error) {
	const query = `SELECT id, course_id, section_id, teacher_id, group_id, department, owner, created_at FROM assignments WHERE department = $1 AND owner = $2`
	var assignments []models.Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, department, owner); err != nil {
		return nil, fmt.Errorf("list all assignments: %w", err)
	}
	return assignments, nil
}

// FindByID fetches an assignment by id.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	const query = `SELECT id, course_id, section_id, teacher_id, group_id, department, owner, created_at FROM assignments WHERE id = $1`
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// Exists checks if the course-section-teacher tuple already exists.
func (r *AssignmentRepository) Exists(ctx context.Context, courseID, sectionID, teacherID string) (bool, error) {
	const query = `SELECT 1 FROM assignments WHERE course_id = $1 AND section_id = $2 AND teacher_id = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, courseID, sectionID, teacherID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check assignment: %w", err)
	}
	return true, nil
}

// Create inserts a new assignment.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = now
	}
	const query = `INSERT INTO assignments (id, course_id, section_id, teacher_id, group_id, department, owner, created_at)
		VALUES (:id, :course_id, :section_id, :teacher_id, :group_id, :department, :owner, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// CountByDepartment returns the number of assignments in a department/owner scope.
func (r *AssignmentRepository) CountByDepartment(ctx context.Context, department, owner string) (int, error) {
	const query = `SELECT COUNT(*) FROM assignments WHERE department = $1 AND owner = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, department, owner); err != nil {
		return 0, fmt.Errorf("count assignments: %w", err)
	}
	return count, nil
}
