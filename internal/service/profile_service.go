package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/brightpath-app/scheduling-api/internal/dto"
	"github.com/brightpath-app/scheduling-api/internal/models"
	appErrors "github.com/brightpath-app/scheduling-api/pkg/errors"
)

type childStore interface {
	Create(ctx context.Context, child *models.ChildProfile) error
	FindByID(ctx context.Context, id string) (*models.ChildProfile, error)
	Update(ctx context.Context, child *models.ChildProfile) error
}

type subjectStore interface {
	Create(ctx context.Context, subject *models.Subject) error
	ListByChild(ctx context.Context, childID string) ([]models.Subject, error)
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	Delete(ctx context.Context, id string) error
}

type commitmentStore interface {
	Create(ctx context.Context, commitment *models.Commitment) error
	ListForChild(ctx context.Context, familyID, childID string) ([]models.Commitment, error)
	Delete(ctx context.Context, id string) error
}

// ProfileService manages the onboarding records the scheduler consumes:
// children, their subjects and the family's commitments.
type ProfileService struct {
	children    childStore
	subjects    subjectStore
	commitments commitmentStore
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewProfileService wires profile dependencies.
func NewProfileService(children childStore, subjects subjectStore, commitments commitmentStore, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{children: children, subjects: subjects, commitments: commitments, validator: validate, logger: logger}
}

// CreateChild registers a child profile.
func (s *ProfileService) CreateChild(ctx context.Context, familyID string, req dto.CreateChildRequest) (*models.ChildProfile, error) {
	if familyID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "family id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid child payload")
	}
	hoursStart, err := parseClock(req.HoursStart)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid hoursStart")
	}
	hoursEnd, err := parseClock(req.HoursEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid hoursEnd")
	}
	if hoursEnd <= hoursStart {
		return nil, appErrors.Clone(appErrors.ErrValidation, "hoursEnd must be after hoursStart")
	}
	windows, err := json.Marshal(req.LearningWindows)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode learning windows")
	}

	child := &models.ChildProfile{
		FamilyID:         familyID,
		Name:             req.Name,
		Age:              req.Age,
		LearningWindows:  types.JSONText(windows),
		HoursStartMinute: hoursStart,
		HoursEndMinute:   hoursEnd,
	}
	if err := s.children.Create(ctx, child); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create child")
	}
	return child, nil
}

// GetChild loads one child profile.
func (s *ProfileService) GetChild(ctx context.Context, id string) (*models.ChildProfile, error) {
	child, err := s.children.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "child not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load child")
	}
	return child, nil
}

// UpdateChild applies a profile edit.
func (s *ProfileService) UpdateChild(ctx context.Context, id string, req dto.CreateChildRequest) (*models.ChildProfile, error) {
	child, err := s.GetChild(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid child payload")
	}
	hoursStart, err := parseClock(req.HoursStart)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid hoursStart")
	}
	hoursEnd, err := parseClock(req.HoursEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid hoursEnd")
	}
	if hoursEnd <= hoursStart {
		return nil, appErrors.Clone(appErrors.ErrValidation, "hoursEnd must be after hoursStart")
	}
	windows, err := json.Marshal(req.LearningWindows)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode learning windows")
	}

	child.Name = req.Name
	child.Age = req.Age
	child.LearningWindows = types.JSONText(windows)
	child.HoursStartMinute = hoursStart
	child.HoursEndMinute = hoursEnd
	if err := s.children.Update(ctx, child); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "child not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update child")
	}
	return child, nil
}

// CreateSubject adds a subject under a child.
func (s *ProfileService) CreateSubject(ctx context.Context, childID string, req dto.CreateSubjectRequest) (*models.Subject, error) {
	if _, err := s.GetChild(ctx, childID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}

	subject := &models.Subject{
		ChildID:        childID,
		Name:           req.Name,
		IsCore:         req.IsCore,
		SessionMinutes: req.SessionMinutes,
		Frequency:      models.SubjectFrequency(req.Frequency),
		Involvement:    models.InvolvementLevel(req.Involvement),
		FixedDay:       req.FixedDay,
		InterestLevel:  req.InterestLevel,
	}
	if subject.Involvement == "" {
		subject.Involvement = models.InvolvementIndependent
	}
	if subject.InterestLevel == 0 {
		subject.InterestLevel = 3
	}
	if req.FixedStart != "" {
		start, err := parseClock(req.FixedStart)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fixedStart")
		}
		subject.FixedStartMinute = &start
	}
	if (subject.FixedDay == nil) != (subject.FixedStartMinute == nil) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "fixedDay and fixedStart must be set together")
	}

	if err := s.subjects.Create(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}
	return subject, nil
}

// ListSubjects returns a child's subjects, core first.
func (s *ProfileService) ListSubjects(ctx context.Context, childID string) ([]models.Subject, error) {
	subjects, err := s.subjects.ListByChild(ctx, childID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	return subjects, nil
}

// DeleteSubject removes a subject.
func (s *ProfileService) DeleteSubject(ctx context.Context, id string) error {
	if err := s.subjects.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	return nil
}

// CreateCommitment adds a family-wide or child-scoped commitment.
func (s *ProfileService) CreateCommitment(ctx context.Context, familyID string, req dto.CreateCommitmentRequest) (*models.Commitment, error) {
	if familyID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "family id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid commitment payload")
	}
	start, err := parseClock(req.Start)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start time")
	}
	end, err := parseClock(req.End)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end time")
	}
	if end <= start {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end must be after start")
	}
	days, err := json.Marshal(req.Days)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode weekday set")
	}

	commitment := &models.Commitment{
		FamilyID:    familyID,
		ChildID:     req.ChildID,
		Name:        req.Name,
		Recurrence:  models.CommitmentRecurrence(req.Recurrence),
		Days:        types.JSONText(days),
		StartMinute: start,
		EndMinute:   end,
	}
	switch commitment.Recurrence {
	case models.RecurrenceWeekly, models.RecurrenceMonthly:
		if len(req.Days) == 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "days is required for weekly and monthly commitments")
		}
	case models.RecurrenceOneTime:
		if req.Date == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "date is required for one-time commitments")
		}
		date, err := parseWeekDate(req.Date)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date")
		}
		commitment.Date = &date
	}

	if err := s.commitments.Create(ctx, commitment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create commitment")
	}
	return commitment, nil
}

// ListCommitments returns the commitments relevant to one child.
func (s *ProfileService) ListCommitments(ctx context.Context, familyID, childID string) ([]models.Commitment, error) {
	commitments, err := s.commitments.ListForChild(ctx, familyID, childID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list commitments")
	}
	return commitments, nil
}

// DeleteCommitment removes a commitment.
func (s *ProfileService) DeleteCommitment(ctx context.Context, id string) error {
	if err := s.commitments.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "commitment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete commitment")
	}
	return nil
}
