package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-scheduler/internal/models"
)

// CoordinatorSettingsRepository persists the admin-configurable department
// priority vector used by the global coordinator's synchronize operation.
type CoordinatorSettingsRepository struct {
	db *sqlx.DB
}

// NewCoordinatorSettingsRepository constructs the repository.
func NewCoordinatorSettingsRepository(db *sqlx.DB) *CoordinatorSettingsRepository {
	return &CoordinatorSettingsRepository{db: db}
}

// List returns every configured department priority.
func (r *CoordinatorSettingsRepository) List(ctx context.Context) ([]models.CoordinatorSetting, error) {
	const query = `SELECT department, priority, updated_by, updated_at FROM coordinator_settings ORDER BY priority ASC, department ASC`
	var settings []models.CoordinatorSetting
	if err := r.db.SelectContext(ctx, &settings, query); err != nil {
		return nil, fmt.Errorf("list coordinator settings: %w", err)
	}
	return settings, nil
}

// Upsert inserts or updates a department's priority.
func (r *CoordinatorSettingsRepository) Upsert(ctx context.Context, setting *models.CoordinatorSetting) error {
	const query = `INSERT INTO coordinator_settings (department, priority, updated_by, updated_at)
VALUES (:department, :priority, :updated_by, :updated_at)
ON CONFLICT (department)
DO UPDATE SET priority = EXCLUDED.priority, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`
	setting.UpdatedAt = time.Now().UTC()
	if _, err := r.db.NamedExecContext(ctx, query, setting); err != nil {
		return fmt.Errorf("upsert coordinator setting: %w", err)
	}
	return nil
}

// SeedDefaults inserts the default priority vector for departments that
// have no entry yet, run once at bootstrap.
func (r *CoordinatorSettingsRepository) SeedDefaults(ctx context.Context) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed coordinator settings tx: %w", err)
	}
	defer tx.Rollback()

	const query = `INSERT INTO coordinator_settings (department, priority, updated_at)
VALUES (:department, :priority, :updated_at) ON CONFLICT (department) DO NOTHING`
	now := time.Now().UTC()
	for department, priority := range models.DefaultDepartmentPriorities {
		setting := models.CoordinatorSetting{Department: department, Priority: priority, UpdatedAt: now}
		if _, err := tx.NamedExecContext(ctx, query, setting); err != nil {
			return fmt.Errorf("seed coordinator setting %q: %w", department, err)
		}
	}
	return tx.Commit()
}
