package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/brightpath-app/scheduling-api/internal/models"
)

// ChildRepository persists child profiles.
type ChildRepository struct {
	db *sqlx.DB
}

// NewChildRepository constructs repository.
func NewChildRepository(db *sqlx.DB) *ChildRepository {
	return &ChildRepository{db: db}
}

// Create inserts a new child profile.
func (r *ChildRepository) Create(ctx context.Context, child *models.ChildProfile) error {
	if child == nil {
		return fmt.Errorf("child payload is nil")
	}
	if child.FamilyID == "" {
		return fmt.Errorf("family_id is required")
	}
	if child.ID == "" {
		child.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if child.CreatedAt.IsZero() {
		child.CreatedAt = now
	}
	child.UpdatedAt = now

	const query = `
INSERT INTO children (id, family_id, name, age, learning_windows, hours_start, hours_end, created_at, updated_at)
VALUES (:id, :family_id, :name, :age, :learning_windows, :hours_start, :hours_end, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, child); err != nil {
		return fmt.Errorf("insert child: %w", err)
	}
	return nil
}

// FindByID loads a child profile by identifier.
func (r *ChildRepository) FindByID(ctx context.Context, id string) (*models.ChildProfile, error) {
	const query = `
SELECT id, family_id, name, age, learning_windows, hours_start, hours_end, created_at, updated_at
FROM children WHERE id = $1`
	var child models.ChildProfile
	if err := r.db.GetContext(ctx, &child, query, id); err != nil {
		return nil, err
	}
	return &child, nil
}

// Update persists profile edits.
func (r *ChildRepository) Update(ctx context.Context, child *models.ChildProfile) error {
	if child == nil || child.ID == "" {
		return fmt.Errorf("child id is required")
	}
	child.UpdatedAt = time.Now().UTC()
	const query = `
UPDATE children SET name = :name, age = :age, learning_windows = :learning_windows,
hours_start = :hours_start, hours_end = :hours_end, updated_at = :updated_at
WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, child)
	if err != nil {
		return fmt.Errorf("update child: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("child rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("child %s not found", child.ID)
	}
	return nil
}
