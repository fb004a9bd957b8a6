package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// ScheduleItemType tags the variant of a schedule item.
type ScheduleItemType string

const (
	ItemTypeSubject    ScheduleItemType = "subject"
	ItemTypeCommitment ScheduleItemType = "commitment"
	ItemTypeBreak      ScheduleItemType = "break"
)

// Schedule is one generated week for one child. Regeneration never overwrites:
// the old row is flipped inactive and a new row inserted with the next version,
// so feedback analysis keeps the full history. A partial unique index guards
// at most one active row per (child_id, week_start).
type Schedule struct {
	ID               string         `db:"id" json:"id"`
	ChildID          string         `db:"child_id" json:"child_id"`
	WeekStart        time.Time      `db:"week_start" json:"week_start"`
	Version          int            `db:"version" json:"version"`
	IsActive         bool           `db:"is_active" json:"is_active"`
	GenerationMethod string         `db:"generation_method" json:"generation_method"`
	ParamsVersion    int            `db:"params_version" json:"params_version"`
	Meta             types.JSONText `db:"meta" json:"meta"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// ScheduleItem is one block inside a schedule day. Start/End are minutes from
// midnight with a half-open [start,end) interval. Reschedules supersede the old
// item instead of mutating it, preserving audit history.
type ScheduleItem struct {
	ID           string           `db:"id" json:"id"`
	ScheduleID   string           `db:"schedule_id" json:"schedule_id"`
	Day          int              `db:"day" json:"day"`
	ItemType     ScheduleItemType `db:"item_type" json:"item_type"`
	StartMinute  int              `db:"start_minute" json:"start_minute"`
	EndMinute    int              `db:"end_minute" json:"end_minute"`
	Label        string           `db:"label" json:"label"`
	SubjectID    *string          `db:"subject_id" json:"subject_id,omitempty"`
	CommitmentID *string          `db:"commitment_id" json:"commitment_id,omitempty"`
	Completed    bool             `db:"completed" json:"completed"`
	CompletedAt  *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
	SupersededBy *string          `db:"superseded_by" json:"superseded_by,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}

// Overlaps reports whether two items on the same day intersect in time.
func (i ScheduleItem) Overlaps(other ScheduleItem) bool {
	if i.Day != other.Day {
		return false
	}
	return i.StartMinute < other.EndMinute && other.StartMinute < i.EndMinute
}

// UnscheduledSubject reports a subject the generator could not fully place.
type UnscheduledSubject struct {
	SubjectID         string `json:"subject_id"`
	Name              string `json:"name"`
	RemainingSessions int    `json:"remaining_sessions"`
	RemainingMinutes  int    `json:"remaining_minutes"`
}

// ScheduleMeta is the document stored in the schedules meta column.
type ScheduleMeta struct {
	UnscheduledSubjects []UnscheduledSubject `json:"unscheduled_subjects,omitempty"`
	BlockMinutes        int                  `json:"block_minutes"`
	BreaksFrequency     int                  `json:"breaks_frequency"`
	DayStartHour        int                  `json:"day_start_hour"`
	LowConfidence       []string             `json:"low_confidence,omitempty"`
}
