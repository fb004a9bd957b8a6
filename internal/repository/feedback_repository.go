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

// FeedbackRepository persists feedback submissions. Rows are append-only;
// only the asynchronously computed score field is ever updated.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository constructs repository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Create inserts one submission.
func (r *FeedbackRepository) Create(ctx context.Context, feedback *models.Feedback) error {
	if feedback == nil {
		return fmt.Errorf("feedback payload is nil")
	}
	if feedback.ScheduleID == "" {
		return fmt.Errorf("schedule_id is required")
	}
	if feedback.StarRating < 1 || feedback.StarRating > 5 {
		return fmt.Errorf("star_rating must be between 1 and 5")
	}
	if feedback.ID == "" {
		feedback.ID = uuid.NewString()
	}
	if len(feedback.SubRatings) == 0 {
		feedback.SubRatings = types.JSONText(`{}`)
	}
	if feedback.CreatedAt.IsZero() {
		feedback.CreatedAt = time.Now().UTC()
	}

	const query = `
INSERT INTO feedback (id, schedule_id, star_rating, sub_ratings, comments, time_shifted, reordered, removed, created_at)
VALUES (:id, :schedule_id, :star_rating, :sub_ratings, :comments, :time_shifted, :reordered, :removed, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, feedback); err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

// UpdateScore stores the evaluator score computed by the background job.
func (r *FeedbackRepository) UpdateScore(ctx context.Context, id string, score float64) error {
	const query = `UPDATE feedback SET score = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, score, id)
	if err != nil {
		return fmt.Errorf("update feedback score: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("feedback rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindByID loads one submission.
func (r *FeedbackRepository) FindByID(ctx context.Context, id string) (*models.Feedback, error) {
	const query = `
SELECT id, schedule_id, star_rating, sub_ratings, comments, time_shifted, reordered, removed, score, created_at
FROM feedback WHERE id = $1`
	var feedback models.Feedback
	if err := r.db.GetContext(ctx, &feedback, query, id); err != nil {
		return nil, err
	}
	return &feedback, nil
}

// ListAll returns the full accumulated history for retraining, oldest first.
func (r *FeedbackRepository) ListAll(ctx context.Context) ([]models.Feedback, error) {
	const query = `
SELECT id, schedule_id, star_rating, sub_ratings, comments, time_shifted, reordered, removed, score, created_at
FROM feedback ORDER BY created_at ASC`
	var feedback []models.Feedback
	if err := r.db.SelectContext(ctx, &feedback, query); err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return feedback, nil
}
