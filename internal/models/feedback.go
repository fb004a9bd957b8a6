package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Feedback is one submission against a schedule. Multiple submissions per
// schedule are allowed and all are retained for training-data integrity.
type Feedback struct {
	ID          string         `db:"id" json:"id"`
	ScheduleID  string         `db:"schedule_id" json:"schedule_id"`
	StarRating  int            `db:"star_rating" json:"star_rating"`
	SubRatings  types.JSONText `db:"sub_ratings" json:"sub_ratings"`
	Comments    string         `db:"comments" json:"comments"`
	TimeShifted bool           `db:"time_shifted" json:"time_shifted"`
	Reordered   bool           `db:"reordered" json:"reordered"`
	Removed     bool           `db:"removed" json:"removed"`
	Score       *float64       `db:"score" json:"score,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}
