package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/brightpath-app/scheduling-api/internal/dto"
	"github.com/brightpath-app/scheduling-api/internal/models"
	appErrors "github.com/brightpath-app/scheduling-api/pkg/errors"
)

type scheduleItemStore interface {
	FindItem(ctx context.Context, id string) (*models.ScheduleItem, error)
	MarkItemCompleted(ctx context.Context, id string, at time.Time) error
	SupersedeItem(ctx context.Context, exec sqlx.ExtContext, oldID, newID string) error
	InsertItems(ctx context.Context, exec sqlx.ExtContext, items []models.ScheduleItem) error
	ListItems(ctx context.Context, scheduleID string) ([]models.ScheduleItem, error)
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
}

type activityAppender interface {
	Append(ctx context.Context, exec sqlx.ExtContext, entry *models.ActivityLog) error
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.ActivityLog, error)
}

// ActivityService records schedule-item outcomes: completions, reschedules and
// skips. Items are never mutated in place; reschedules supersede the old item
// and every outcome lands in the append-only activity log.
type ActivityService struct {
	schedules scheduleItemStore
	activity  activityAppender
	cache     scheduleCache
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger
}

// NewActivityService wires activity dependencies.
func NewActivityService(schedules scheduleItemStore, activity activityAppender, cache scheduleCache, tx txProvider, validate *validator.Validate, logger *zap.Logger) *ActivityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{schedules: schedules, activity: activity, cache: cache, tx: tx, validator: validate, logger: logger}
}

// Complete marks an item done and appends the outcome to the activity log.
func (s *ActivityService) Complete(ctx context.Context, itemID string, req dto.CompleteItemRequest) (*models.ScheduleItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid completion payload")
	}
	item, err := s.loadItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.Completed {
		return nil, appErrors.Clone(appErrors.ErrConflict, "item is already completed")
	}

	now := time.Now().UTC()
	if err := s.schedules.MarkItemCompleted(ctx, itemID, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete item")
	}

	duration := item.EndMinute - item.StartMinute
	if req.ActualDurationMinutes != nil {
		duration = *req.ActualDurationMinutes
	}
	entry := &models.ActivityLog{
		ScheduleItemID:   item.ID,
		ScheduleID:       item.ScheduleID,
		Event:            models.ActivityCompleted,
		ScheduledStart:   item.StartMinute,
		ScheduledEnd:     item.EndMinute,
		ActualDurationMn: &duration,
		OccurredAt:       now,
	}
	if err := s.activity.Append(ctx, nil, entry); err != nil {
		// completion already persisted; the missing log entry is recoverable
		s.logger.Error("failed to append completion to activity log",
			zap.String("itemId", item.ID), zap.Error(err))
	}

	item.Completed = true
	item.CompletedAt = &now
	return item, nil
}

// Reschedule moves an item to a new slot. The original is superseded in the
// same transaction as the replacement insert, and the move is rejected when it
// would overlap any other live item of the schedule.
func (s *ActivityService) Reschedule(ctx context.Context, itemID string, req dto.RescheduleItemRequest) (*models.ScheduleItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reschedule payload")
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

	item, err := s.loadItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	replacement := models.ScheduleItem{
		ID:           uuid.NewString(),
		ScheduleID:   item.ScheduleID,
		Day:          req.Day,
		ItemType:     item.ItemType,
		StartMinute:  start,
		EndMinute:    end,
		Label:        item.Label,
		SubjectID:    item.SubjectID,
		CommitmentID: item.CommitmentID,
	}

	siblings, err := s.schedules.ListItems(ctx, item.ScheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule items")
	}
	for _, other := range siblings {
		if other.ID == item.ID {
			continue
		}
		if replacement.Overlaps(other) {
			return nil, appErrors.Clone(appErrors.ErrConstraintConflict,
				"new slot overlaps "+other.Label+" ("+formatClock(other.StartMinute)+"-"+formatClock(other.EndMinute)+")")
		}
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.schedules.InsertItems(ctx, tx, []models.ScheduleItem{replacement}); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to insert replacement item")
		return nil, err
	}
	if err = s.schedules.SupersedeItem(ctx, tx, item.ID, replacement.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrConflict, "item was already rescheduled")
			return nil, err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to supersede item")
		return nil, err
	}
	actualStart := start
	actualEnd := end
	entry := &models.ActivityLog{
		ScheduleItemID: item.ID,
		ScheduleID:     item.ScheduleID,
		Event:          models.ActivityRescheduled,
		ScheduledStart: item.StartMinute,
		ScheduledEnd:   item.EndMinute,
		ActualStart:    &actualStart,
		ActualEnd:      &actualEnd,
	}
	if err = s.activity.Append(ctx, tx, entry); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append to activity log")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit reschedule")
		return nil, err
	}

	s.invalidateWeek(ctx, item.ScheduleID)
	return &replacement, nil
}

// Skip records an item as skipped without moving or completing it.
func (s *ActivityService) Skip(ctx context.Context, itemID string) error {
	item, err := s.loadItem(ctx, itemID)
	if err != nil {
		return err
	}
	entry := &models.ActivityLog{
		ScheduleItemID: item.ID,
		ScheduleID:     item.ScheduleID,
		Event:          models.ActivitySkipped,
		ScheduledStart: item.StartMinute,
		ScheduledEnd:   item.EndMinute,
	}
	if err := s.activity.Append(ctx, nil, entry); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append to activity log")
	}
	return nil
}

// History returns the outcome log of one schedule.
func (s *ActivityService) History(ctx context.Context, scheduleID string) ([]models.ActivityLog, error) {
	logs, err := s.activity.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activity history")
	}
	return logs, nil
}

func (s *ActivityService) loadItem(ctx context.Context, itemID string) (*models.ScheduleItem, error) {
	if itemID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "item id is required")
	}
	item, err := s.schedules.FindItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule item not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule item")
	}
	if item.SupersededBy != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "item was superseded by a reschedule")
	}
	return item, nil
}

func (s *ActivityService) invalidateWeek(ctx context.Context, scheduleID string) {
	if s.cache == nil {
		return
	}
	schedule, err := s.schedules.FindByID(ctx, scheduleID)
	if err != nil {
		s.logger.Warn("failed to load schedule for cache invalidation", zap.Error(err))
		return
	}
	week := schedule.WeekStart.Format("2006-01-02")
	if err := s.cache.Invalidate(ctx, schedule.ChildID, week); err != nil {
		s.logger.Warn("failed to invalidate schedule cache", zap.Error(err))
	}
}
