package dto

// QuestionnaireRequest carries raw questionnaire answers keyed by question id.
// Ratings are 1-5 Likert values; categorical answers ride in Categories.
type QuestionnaireRequest struct {
	Ratings    map[string]int    `json:"ratings" validate:"required"`
	Categories map[string]string `json:"categories"`
}

// FeatureVector is the normalized output of preference derivation. Cluster
// scores are 0-1 where higher always means more of the named trait.
type FeatureVector struct {
	StructureScore      float64  `json:"structure_score"`
	RotationScore       float64  `json:"rotation_score"`
	TimeManagementScore float64  `json:"time_management_score"`
	LongTermScore       float64  `json:"long_term_score"`
	PrioritizationScore float64  `json:"prioritization_score"`
	Age                 int      `json:"age"`
	AttentionSpan       int      `json:"attention_span_minutes"`
	LowConfidence       []string `json:"low_confidence,omitempty"`
}

// CreateChildRequest registers a child profile at onboarding.
type CreateChildRequest struct {
	Name            string   `json:"name" validate:"required"`
	Age             int      `json:"age" validate:"required,min=3,max=18"`
	LearningWindows []string `json:"learningWindows" validate:"omitempty,dive,oneof=early_morning morning midday afternoon"`
	HoursStart      string   `json:"hoursStart" validate:"required"`
	HoursEnd        string   `json:"hoursEnd" validate:"required"`
}

// CreateSubjectRequest adds a subject under a child.
type CreateSubjectRequest struct {
	Name           string `json:"name" validate:"required"`
	IsCore         bool   `json:"isCore"`
	SessionMinutes int    `json:"sessionMinutes" validate:"required,min=10,max=180"`
	Frequency      string `json:"frequency" validate:"required,oneof=daily 2-3_per_week weekly occasional"`
	Involvement    string `json:"involvement" validate:"omitempty,oneof=independent check_ins full"`
	FixedDay       *int   `json:"fixedDay" validate:"omitempty,min=1,max=5"`
	FixedStart     string `json:"fixedStart"`
	InterestLevel  int    `json:"interestLevel" validate:"omitempty,min=1,max=5"`
}

// CreateCommitmentRequest adds a family-wide or child-scoped commitment.
type CreateCommitmentRequest struct {
	ChildID    *string `json:"childId"`
	Name       string  `json:"name" validate:"required"`
	Recurrence string  `json:"recurrence" validate:"required,oneof=daily weekly monthly one_time"`
	Days       []int   `json:"days" validate:"omitempty,dive,min=1,max=7"`
	Start      string  `json:"start" validate:"required"`
	End        string  `json:"end" validate:"required"`
	Date       string  `json:"date"`
}
