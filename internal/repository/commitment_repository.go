package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/brightpath-app/scheduling-api/internal/models"
)

// CommitmentRepository persists family-wide and child-scoped commitments.
type CommitmentRepository struct {
	db *sqlx.DB
}

// NewCommitmentRepository constructs repository.
func NewCommitmentRepository(db *sqlx.DB) *CommitmentRepository {
	return &CommitmentRepository{db: db}
}

// Create inserts a commitment.
func (r *CommitmentRepository) Create(ctx context.Context, commitment *models.Commitment) error {
	if commitment == nil {
		return fmt.Errorf("commitment payload is nil")
	}
	if commitment.FamilyID == "" || commitment.Name == "" {
		return fmt.Errorf("family_id and name are required")
	}
	if commitment.ID == "" {
		commitment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if commitment.CreatedAt.IsZero() {
		commitment.CreatedAt = now
	}
	commitment.UpdatedAt = now

	const query = `
INSERT INTO commitments (id, family_id, child_id, name, recurrence, days, start_minute, end_minute, date, created_at, updated_at)
VALUES (:id, :family_id, :child_id, :name, :recurrence, :days, :start_minute, :end_minute, :date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, commitment); err != nil {
		return fmt.Errorf("insert commitment: %w", err)
	}
	return nil
}

// ListForChild returns the child's own commitments plus the family-wide ones.
func (r *CommitmentRepository) ListForChild(ctx context.Context, familyID, childID string) ([]models.Commitment, error) {
	const query = `
SELECT id, family_id, child_id, name, recurrence, days, start_minute, end_minute, date, created_at, updated_at
FROM commitments WHERE family_id = $1 AND (child_id IS NULL OR child_id = $2)
ORDER BY start_minute ASC`
	var commitments []models.Commitment
	if err := r.db.SelectContext(ctx, &commitments, query, familyID, childID); err != nil {
		return nil, fmt.Errorf("list commitments: %w", err)
	}
	return commitments, nil
}

// Delete removes a commitment.
func (r *CommitmentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM commitments WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete commitment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("commitment rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
