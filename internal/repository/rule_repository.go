package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-scheduler/internal/models"
)

const ruleColumns = `id, name, rule_type, rule_data, department, owner, created_at`

// RuleRepository persists soft-scheduling rules.
type RuleRepository struct {
	db *sqlx.DB
}

// NewRuleRepository constructs the repository.
func NewRuleRepository(db *sqlx.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

// List returns rules matching filters with pagination metadata.
func (r *RuleRepository) List(ctx context.Context, filter models.RuleFilter) ([]models.Rule, int, error) {
	base := "FROM rules WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)+1))
		args = append(args, filter.Department)
	}
	if filter.Owner != "" {
		conditions = append(conditions, fmt.Sprintf("owner = $%d", len(args)+1))
		args = append(args, filter.Owner)
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("rule_type = $%d", len(args)+1))
		args = append(args, filter.Type)
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", ruleColumns, base, size, offset)
	var rules []models.Rule
	if err := r.db.SelectContext(ctx, &rules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list rules: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count rules: %w", err)
	}
	return rules, total, nil
}

// ListAll returns every rule for a (department, owner) pair, used when
// building a generation snapshot.
func (r *RuleRepository) ListAll(ctx context.Context, department, owner string) ([]models.Rule, error) {
	query := fmt.Sprintf(`SELECT %s FROM rules WHERE department = $1 AND owner = $2`, ruleColumns)
	var rules []models.Rule
	if err := r.db.SelectContext(ctx, &rules, query, department, owner); err != nil {
		return nil, fmt.Errorf("list all rules: %w", err)
	}
	return rules, nil
}

// Create persists a new rule.
func (r *RuleRepository) Create(ctx context.Context, rule *models.Rule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}
	query := fmt.Sprintf(`INSERT INTO rules (%s) VALUES (:id, :name, :rule_type, :rule_data, :department, :owner, :created_at)`, ruleColumns)
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("create rule: %w", err)
	}
	return nil
}

