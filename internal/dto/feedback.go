package dto

// SubmitFeedbackRequest carries one feedback submission for a schedule.
type SubmitFeedbackRequest struct {
	StarRating int            `json:"starRating" validate:"required,min=1,max=5"`
	SubRatings map[string]int `json:"subRatings" validate:"omitempty,dive,min=1,max=5"`
	Comments   string         `json:"comments"`
}

// ExportScheduleResponse returns a signed download token for a rendered export.
type ExportScheduleResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
	Format    string `json:"format"`
}
