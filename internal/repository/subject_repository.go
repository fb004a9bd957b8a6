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

// SubjectRepository persists the subjects owned by a child.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// Create inserts a subject.
func (r *SubjectRepository) Create(ctx context.Context, subject *models.Subject) error {
	if subject == nil {
		return fmt.Errorf("subject payload is nil")
	}
	if subject.ChildID == "" || subject.Name == "" {
		return fmt.Errorf("child_id and name are required")
	}
	if subject.ID == "" {
		subject.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if subject.CreatedAt.IsZero() {
		subject.CreatedAt = now
	}
	subject.UpdatedAt = now

	const query = `
INSERT INTO subjects (id, child_id, name, is_core, session_minutes, frequency, involvement, fixed_day, fixed_start, interest_level, created_at, updated_at)
VALUES (:id, :child_id, :name, :is_core, :session_minutes, :frequency, :involvement, :fixed_day, :fixed_start, :interest_level, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, subject); err != nil {
		return fmt.Errorf("insert subject: %w", err)
	}
	return nil
}

// ListByChild returns all subjects for a child ordered by core flag then name.
func (r *SubjectRepository) ListByChild(ctx context.Context, childID string) ([]models.Subject, error) {
	const query = `
SELECT id, child_id, name, is_core, session_minutes, frequency, involvement, fixed_day, fixed_start, interest_level, created_at, updated_at
FROM subjects WHERE child_id = $1 ORDER BY is_core DESC, name ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, childID); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// FindByID loads a subject by identifier.
func (r *SubjectRepository) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	const query = `
SELECT id, child_id, name, is_core, session_minutes, frequency, involvement, fixed_day, fixed_start, interest_level, created_at, updated_at
FROM subjects WHERE id = $1`
	var subject models.Subject
	if err := r.db.GetContext(ctx, &subject, query, id); err != nil {
		return nil, err
	}
	return &subject, nil
}

// Delete removes a subject.
func (r *SubjectRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM subjects WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("subject rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
