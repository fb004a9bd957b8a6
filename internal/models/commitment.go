package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// CommitmentRecurrence enumerates supported recurrence rules.
type CommitmentRecurrence string

const (
	RecurrenceDaily   CommitmentRecurrence = "daily"
	RecurrenceWeekly  CommitmentRecurrence = "weekly"
	RecurrenceMonthly CommitmentRecurrence = "monthly"
	RecurrenceOneTime CommitmentRecurrence = "one_time"
)

// Commitment is an externally fixed, non-negotiable block the generator routes
// around. ChildID is nil for family-wide commitments. Days holds ISO weekday
// indexes (1=Monday) as a JSON array for weekly/daily recurrences; Date is set
// for one-time commitments.
type Commitment struct {
	ID          string               `db:"id" json:"id"`
	FamilyID    string               `db:"family_id" json:"family_id"`
	ChildID     *string              `db:"child_id" json:"child_id,omitempty"`
	Name        string               `db:"name" json:"name"`
	Recurrence  CommitmentRecurrence `db:"recurrence" json:"recurrence"`
	Days        types.JSONText       `db:"days" json:"days"`
	StartMinute int                  `db:"start_minute" json:"start_minute"`
	EndMinute   int                  `db:"end_minute" json:"end_minute"`
	Date        *time.Time           `db:"date" json:"date,omitempty"`
	CreatedAt   time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time            `db:"updated_at" json:"updated_at"`
}
