package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/brightpath-app/scheduling-api/internal/models"
)

// EvaluatorModelRepository persists versioned evaluator model snapshots.
// Exactly one row carries is_active at a time; activation deactivates the rest
// inside one transaction so a failed retraining run can never strand the
// system without an active model.
type EvaluatorModelRepository struct {
	db *sqlx.DB
}

// NewEvaluatorModelRepository constructs repository.
func NewEvaluatorModelRepository(db *sqlx.DB) *EvaluatorModelRepository {
	return &EvaluatorModelRepository{db: db}
}

func (r *EvaluatorModelRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// CreateVersioned inserts a new inactive model with the next version number.
func (r *EvaluatorModelRepository) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, model *models.EvaluatorModel) error {
	if model == nil {
		return fmt.Errorf("model payload is nil")
	}
	if model.ID == "" {
		model.ID = uuid.NewString()
	}
	if len(model.Weights) == 0 {
		model.Weights = types.JSONText(`{}`)
	}
	if len(model.GeneratorParams) == 0 {
		model.GeneratorParams = types.JSONText(`{}`)
	}
	if len(model.FeatureImportance) == 0 {
		model.FeatureImportance = types.JSONText(`{}`)
	}
	if len(model.Metrics) == 0 {
		model.Metrics = types.JSONText(`{}`)
	}
	if model.TrainedAt.IsZero() {
		model.TrainedAt = time.Now().UTC()
	}
	model.IsActive = false

	target := r.exec(exec)

	const nextVersionQuery = `SELECT COALESCE(MAX(version), 0) + 1 FROM evaluator_models`
	if err := sqlx.GetContext(ctx, target, &model.Version, nextVersionQuery); err != nil {
		return fmt.Errorf("compute next evaluator model version: %w", err)
	}

	const insertQuery = `
INSERT INTO evaluator_models (id, version, weights, generator_params, feature_importance, metrics, sample_count, is_active, trained_at)
VALUES (:id, :version, :weights, :generator_params, :feature_importance, :metrics, :sample_count, :is_active, :trained_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, model); err != nil {
		return fmt.Errorf("insert evaluator model: %w", err)
	}
	return nil
}

// Activate flips the given model active and everything else inactive, in the
// caller's transaction.
func (r *EvaluatorModelRepository) Activate(ctx context.Context, exec sqlx.ExtContext, id string) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `UPDATE evaluator_models SET is_active = FALSE WHERE is_active = TRUE`); err != nil {
		return fmt.Errorf("deactivate evaluator models: %w", err)
	}
	result, err := target.ExecContext(ctx, `UPDATE evaluator_models SET is_active = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("activate evaluator model: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("evaluator model rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("evaluator model %s: %w", id, sql.ErrNoRows)
	}
	return nil
}

// FindActive returns the currently active model.
func (r *EvaluatorModelRepository) FindActive(ctx context.Context) (*models.EvaluatorModel, error) {
	const query = `
SELECT id, version, weights, generator_params, feature_importance, metrics, sample_count, is_active, trained_at
FROM evaluator_models WHERE is_active = TRUE`
	var model models.EvaluatorModel
	if err := r.db.GetContext(ctx, &model, query); err != nil {
		return nil, err
	}
	return &model, nil
}

// List returns all versions newest first.
func (r *EvaluatorModelRepository) List(ctx context.Context) ([]models.EvaluatorModel, error) {
	const query = `
SELECT id, version, weights, generator_params, feature_importance, metrics, sample_count, is_active, trained_at
FROM evaluator_models ORDER BY version DESC`
	var list []models.EvaluatorModel
	if err := r.db.SelectContext(ctx, &list, query); err != nil {
		return nil, fmt.Errorf("list evaluator models: %w", err)
	}
	return list, nil
}
