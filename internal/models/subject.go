package models

import "time"

// SubjectFrequency categorises how often a subject should appear in a week.
type SubjectFrequency string

const (
	FrequencyDaily      SubjectFrequency = "daily"
	FrequencyTwoToThree SubjectFrequency = "2-3_per_week"
	FrequencyWeekly     SubjectFrequency = "weekly"
	FrequencyOccasional SubjectFrequency = "occasional"
)

// WeeklySessions converts a frequency category into a session quota per week.
func (f SubjectFrequency) WeeklySessions() int {
	switch f {
	case FrequencyDaily:
		return 5
	case FrequencyTwoToThree:
		return 3
	case FrequencyWeekly, FrequencyOccasional:
		return 1
	default:
		return 1
	}
}

// InvolvementLevel is the required parent-involvement level for a subject.
type InvolvementLevel string

const (
	InvolvementIndependent InvolvementLevel = "independent"
	InvolvementCheckIns    InvolvementLevel = "check_ins"
	InvolvementFull        InvolvementLevel = "full"
)

// Subject is the atomic unit the generator places into the week.
// FixedDay/FixedStartMinute are set when the subject must happen at a fixed time
// (e.g. an online class); the constraint collector turns those into fixed blocks.
type Subject struct {
	ID               string           `db:"id" json:"id"`
	ChildID          string           `db:"child_id" json:"child_id"`
	Name             string           `db:"name" json:"name"`
	IsCore           bool             `db:"is_core" json:"is_core"`
	SessionMinutes   int              `db:"session_minutes" json:"session_minutes"`
	Frequency        SubjectFrequency `db:"frequency" json:"frequency"`
	Involvement      InvolvementLevel `db:"involvement" json:"involvement"`
	FixedDay         *int             `db:"fixed_day" json:"fixed_day,omitempty"`
	FixedStartMinute *int             `db:"fixed_start" json:"fixed_start,omitempty"`
	InterestLevel    int              `db:"interest_level" json:"interest_level"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}
