package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"github.com/brightpath-app/scheduling-api/internal/models"
)

const pgUniqueViolation = "23505"

// ScheduleRepository persists generated schedules and their items. A partial
// unique index on (child_id, week_start) WHERE is_active enforces the
// single-active-schedule invariant at the database level; the repository
// surfaces the violation so the losing regeneration attempt fails cleanly.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// SupersedeActive flips the currently active schedule for (child, week) to
// inactive and returns how many rows changed (0 on first generation, 1 on
// regeneration).
func (r *ScheduleRepository) SupersedeActive(ctx context.Context, exec sqlx.ExtContext, childID string, weekStart time.Time) (int64, error) {
	target := r.exec(exec)
	const query = `UPDATE schedules SET is_active = FALSE, updated_at = $1 WHERE child_id = $2 AND week_start = $3 AND is_active = TRUE`
	result, err := target.ExecContext(ctx, query, time.Now().UTC(), childID, weekStart)
	if err != nil {
		return 0, fmt.Errorf("supersede active schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("superseded rows affected: %w", err)
	}
	return affected, nil
}

// CreateVersioned inserts a schedule as active, assigning the next version for
// the child-week tuple.
func (r *ScheduleRepository) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error {
	if schedule == nil {
		return fmt.Errorf("schedule payload is nil")
	}
	if schedule.ChildID == "" || schedule.WeekStart.IsZero() {
		return fmt.Errorf("child_id and week_start are required")
	}
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	if len(schedule.Meta) == 0 {
		schedule.Meta = types.JSONText(`{}`)
	}
	schedule.IsActive = true
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now

	target := r.exec(exec)

	const nextVersionQuery = `SELECT COALESCE(MAX(version), 0) + 1 FROM schedules WHERE child_id = $1 AND week_start = $2`
	if err := sqlx.GetContext(ctx, target, &schedule.Version, nextVersionQuery, schedule.ChildID, schedule.WeekStart); err != nil {
		return fmt.Errorf("compute next schedule version: %w", err)
	}

	const insertQuery = `
INSERT INTO schedules (id, child_id, week_start, version, is_active, generation_method, params_version, meta, created_at, updated_at)
VALUES (:id, :child_id, :week_start, :version, :is_active, :generation_method, :params_version, :meta, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, schedule); err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return nil
}

// InsertItems batch-inserts the schedule's items inside the caller's transaction.
func (r *ScheduleRepository) InsertItems(ctx context.Context, exec sqlx.ExtContext, items []models.ScheduleItem) error {
	if len(items) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()
	const query = `
INSERT INTO schedule_items (id, schedule_id, day, item_type, start_minute, end_minute, label, subject_id, commitment_id, completed, created_at)
VALUES (:id, :schedule_id, :day, :item_type, :start_minute, :end_minute, :label, :subject_id, :commitment_id, :completed, :created_at)`
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		if items[i].CreatedAt.IsZero() {
			items[i].CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, items[i]); err != nil {
			return fmt.Errorf("insert schedule item: %w", err)
		}
	}
	return nil
}

// FindActive returns the single active schedule for (child, week).
func (r *ScheduleRepository) FindActive(ctx context.Context, childID string, weekStart time.Time) (*models.Schedule, error) {
	const query = `
SELECT id, child_id, week_start, version, is_active, generation_method, params_version, meta, created_at, updated_at
FROM schedules WHERE child_id = $1 AND week_start = $2 AND is_active = TRUE`
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, childID, weekStart); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// FindByID loads a schedule by identifier, active or historic.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	const query = `
SELECT id, child_id, week_start, version, is_active, generation_method, params_version, meta, created_at, updated_at
FROM schedules WHERE id = $1`
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// ListItems returns the non-superseded items of a schedule in week order.
func (r *ScheduleRepository) ListItems(ctx context.Context, scheduleID string) ([]models.ScheduleItem, error) {
	const query = `
SELECT id, schedule_id, day, item_type, start_minute, end_minute, label, subject_id, commitment_id, completed, completed_at, superseded_by, created_at
FROM schedule_items WHERE schedule_id = $1 AND superseded_by IS NULL
ORDER BY day ASC, start_minute ASC`
	var items []models.ScheduleItem
	if err := r.db.SelectContext(ctx, &items, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list schedule items: %w", err)
	}
	return items, nil
}

// FindItem loads one schedule item.
func (r *ScheduleRepository) FindItem(ctx context.Context, id string) (*models.ScheduleItem, error) {
	const query = `
SELECT id, schedule_id, day, item_type, start_minute, end_minute, label, subject_id, commitment_id, completed, completed_at, superseded_by, created_at
FROM schedule_items WHERE id = $1`
	var item models.ScheduleItem
	if err := r.db.GetContext(ctx, &item, query, id); err != nil {
		return nil, err
	}
	return &item, nil
}

// MarkItemCompleted records completion on the item row.
func (r *ScheduleRepository) MarkItemCompleted(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE schedule_items SET completed = TRUE, completed_at = $1 WHERE id = $2 AND superseded_by IS NULL`
	result, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("complete schedule item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("schedule item rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SupersedeItem links the old item to its replacement inside the caller's
// transaction. Old rows stay in place for audit history.
func (r *ScheduleRepository) SupersedeItem(ctx context.Context, exec sqlx.ExtContext, oldID, newID string) error {
	target := r.exec(exec)
	const query = `UPDATE schedule_items SET superseded_by = $1 WHERE id = $2 AND superseded_by IS NULL`
	result, err := target.ExecContext(ctx, query, newID, oldID)
	if err != nil {
		return fmt.Errorf("supersede schedule item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("schedule item rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// IsUniqueViolation reports whether err is the Postgres duplicate-key error,
// i.e. a lost race on the single-active-schedule index.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgUniqueViolation
	}
	return false
}
