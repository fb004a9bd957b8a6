package models

import "time"

// ActivityEvent enumerates recorded schedule-item outcomes.
type ActivityEvent string

const (
	ActivityCompleted   ActivityEvent = "completed"
	ActivityRescheduled ActivityEvent = "rescheduled"
	ActivitySkipped     ActivityEvent = "skipped"
)

// ActivityLog records the scheduled vs. actual outcome of a schedule item.
// Rows are append-only; they are never updated or deleted.
type ActivityLog struct {
	ID               string        `db:"id" json:"id"`
	ScheduleItemID   string        `db:"schedule_item_id" json:"schedule_item_id"`
	ScheduleID       string        `db:"schedule_id" json:"schedule_id"`
	Event            ActivityEvent `db:"event" json:"event"`
	ScheduledStart   int           `db:"scheduled_start" json:"scheduled_start"`
	ScheduledEnd     int           `db:"scheduled_end" json:"scheduled_end"`
	ActualStart      *int          `db:"actual_start" json:"actual_start,omitempty"`
	ActualEnd        *int          `db:"actual_end" json:"actual_end,omitempty"`
	ActualDurationMn *int          `db:"actual_duration" json:"actual_duration,omitempty"`
	OccurredAt       time.Time     `db:"occurred_at" json:"occurred_at"`
}
