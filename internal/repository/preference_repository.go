package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/brightpath-app/scheduling-api/internal/models"
)

// PreferenceRepository persists questionnaire-derived family preferences.
// Submissions are append-only: a new submission supersedes the previous one.
type PreferenceRepository struct {
	db *sqlx.DB
}

// NewPreferenceRepository constructs repository.
func NewPreferenceRepository(db *sqlx.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

func (r *PreferenceRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// CreateSuperseding inserts the new submission and links the previous latest
// row to it via superseded_by, both inside the caller's transaction when given.
func (r *PreferenceRepository) CreateSuperseding(ctx context.Context, exec sqlx.ExtContext, prefs *models.FamilyPreferences) error {
	if prefs == nil {
		return fmt.Errorf("preferences payload is nil")
	}
	if prefs.FamilyID == "" {
		return fmt.Errorf("family_id is required")
	}
	if prefs.ID == "" {
		prefs.ID = uuid.NewString()
	}
	if prefs.CreatedAt.IsZero() {
		prefs.CreatedAt = time.Now().UTC()
	}

	target := r.exec(exec)

	const insertQuery = `
INSERT INTO family_preferences (id, family_id, flexibility_level, planning_approach, cluster_scores, low_confidence, created_at)
VALUES (:id, :family_id, :flexibility_level, :planning_approach, :cluster_scores, :low_confidence, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, prefs); err != nil {
		return fmt.Errorf("insert family preferences: %w", err)
	}

	const supersedeQuery = `
UPDATE family_preferences SET superseded_by = $1
WHERE family_id = $2 AND id <> $1 AND superseded_by IS NULL`
	if _, err := target.ExecContext(ctx, supersedeQuery, prefs.ID, prefs.FamilyID); err != nil {
		return fmt.Errorf("supersede previous preferences: %w", err)
	}
	return nil
}

// FindLatest returns the current (non-superseded) submission for a family.
func (r *PreferenceRepository) FindLatest(ctx context.Context, familyID string) (*models.FamilyPreferences, error) {
	const query = `
SELECT id, family_id, flexibility_level, planning_approach, cluster_scores, low_confidence, superseded_by, created_at
FROM family_preferences WHERE family_id = $1 AND superseded_by IS NULL
ORDER BY created_at DESC LIMIT 1`
	var prefs models.FamilyPreferences
	if err := r.db.GetContext(ctx, &prefs, query, familyID); err != nil {
		return nil, err
	}
	return &prefs, nil
}
