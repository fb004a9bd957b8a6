package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// FlexibilityLevel is the ordinal planning-flexibility scale from the questionnaire.
type FlexibilityLevel string

const (
	FlexibilityVeryFlexible       FlexibilityLevel = "very_flexible"
	FlexibilityMostlyFlexible     FlexibilityLevel = "mostly_flexible"
	FlexibilityBalanced           FlexibilityLevel = "balanced"
	FlexibilityMostlyStructured   FlexibilityLevel = "mostly_structured"
	FlexibilityStrictlyStructured FlexibilityLevel = "strictly_structured"
)

// FamilyPreferences is one questionnaire submission. Submissions are append-only:
// a re-submission creates a new row and links the old one via superseded_by.
type FamilyPreferences struct {
	ID               string           `db:"id" json:"id"`
	FamilyID         string           `db:"family_id" json:"family_id"`
	FlexibilityLevel FlexibilityLevel `db:"flexibility_level" json:"flexibility_level"`
	PlanningApproach string           `db:"planning_approach" json:"planning_approach"`
	ClusterScores    types.JSONText   `db:"cluster_scores" json:"cluster_scores"`
	LowConfidence    types.JSONText   `db:"low_confidence" json:"low_confidence"`
	SupersededBy     *string          `db:"superseded_by" json:"superseded_by,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
}

// DayPart enumerates best-learning-time windows for a child.
type DayPart string

const (
	DayPartEarlyMorning DayPart = "early_morning"
	DayPartMorning      DayPart = "morning"
	DayPartMidday       DayPart = "midday"
	DayPartAfternoon    DayPart = "afternoon"
)

// ChildProfile holds the scheduling-relevant attributes of one child.
// HoursStart/HoursEnd are minutes from midnight bounding the homeschooling day.
type ChildProfile struct {
	ID               string         `db:"id" json:"id"`
	FamilyID         string         `db:"family_id" json:"family_id"`
	Name             string         `db:"name" json:"name"`
	Age              int            `db:"age" json:"age"`
	LearningWindows  types.JSONText `db:"learning_windows" json:"learning_windows"`
	HoursStartMinute int            `db:"hours_start" json:"hours_start"`
	HoursEndMinute   int            `db:"hours_end" json:"hours_end"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}
