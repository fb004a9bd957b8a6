package dto

import "github.com/brightpath-app/scheduling-api/internal/models"

// GenerateScheduleRequest asks for a (re)generated week for a child.
// WeekStart must be a Monday in YYYY-MM-DD form.
type GenerateScheduleRequest struct {
	WeekStart string `json:"weekStart" validate:"required"`
}

// GenerateScheduleResponse returns the persisted schedule with its items and
// any subjects that could not be fully placed.
type GenerateScheduleResponse struct {
	Schedule            models.Schedule             `json:"schedule"`
	Items               []models.ScheduleItem       `json:"items"`
	UnscheduledSubjects []models.UnscheduledSubject `json:"unscheduledSubjects,omitempty"`
}

// ActiveScheduleResponse is the read-side payload for the user-facing week view.
type ActiveScheduleResponse struct {
	Schedule models.Schedule       `json:"schedule"`
	Items    []models.ScheduleItem `json:"items"`
}

// CompleteItemRequest marks a schedule item done.
type CompleteItemRequest struct {
	ActualDurationMinutes *int `json:"actualDurationMinutes" validate:"omitempty,min=1"`
}

// RescheduleItemRequest moves a schedule item to a new slot. The original item
// is superseded, not mutated, and the move is recorded in the activity log.
type RescheduleItemRequest struct {
	Day   int    `json:"day" validate:"required,min=1,max=5"`
	Start string `json:"start" validate:"required"`
	End   string `json:"end" validate:"required"`
}
