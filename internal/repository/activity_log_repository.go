package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/brightpath-app/scheduling-api/internal/models"
)

// ActivityLogRepository appends schedule-item outcome records. The table is
// append-only; there are deliberately no update or delete methods.
type ActivityLogRepository struct {
	db *sqlx.DB
}

// NewActivityLogRepository constructs repository.
func NewActivityLogRepository(db *sqlx.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

func (r *ActivityLogRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Append records one outcome event.
func (r *ActivityLogRepository) Append(ctx context.Context, exec sqlx.ExtContext, entry *models.ActivityLog) error {
	if entry == nil {
		return fmt.Errorf("activity log payload is nil")
	}
	if entry.ScheduleItemID == "" || entry.ScheduleID == "" {
		return fmt.Errorf("schedule_item_id and schedule_id are required")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}

	const query = `
INSERT INTO activity_logs (id, schedule_item_id, schedule_id, event, scheduled_start, scheduled_end, actual_start, actual_end, actual_duration, occurred_at)
VALUES (:id, :schedule_item_id, :schedule_id, :event, :scheduled_start, :scheduled_end, :actual_start, :actual_end, :actual_duration, :occurred_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, entry); err != nil {
		return fmt.Errorf("insert activity log: %w", err)
	}
	return nil
}

// ListBySchedule returns the outcome history for one schedule in event order.
func (r *ActivityLogRepository) ListBySchedule(ctx context.Context, scheduleID string) ([]models.ActivityLog, error) {
	const query = `
SELECT id, schedule_item_id, schedule_id, event, scheduled_start, scheduled_end, actual_start, actual_end, actual_duration, occurred_at
FROM activity_logs WHERE schedule_id = $1 ORDER BY occurred_at ASC`
	var logs []models.ActivityLog
	if err := r.db.SelectContext(ctx, &logs, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list activity logs: %w", err)
	}
	return logs, nil
}
