package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-app/scheduling-api/internal/dto"
	"github.com/brightpath-app/scheduling-api/internal/models"
	appErrors "github.com/brightpath-app/scheduling-api/pkg/errors"
)

type scheduleItemStoreStub struct {
	items        map[string]*models.ScheduleItem
	schedule     *models.Schedule
	inserted     []models.ScheduleItem
	superseded   map[string]string
	completedIDs []string
	completeErr  error
	supersedeErr error
}

func newScheduleItemStoreStub(items ...*models.ScheduleItem) *scheduleItemStoreStub {
	stub := &scheduleItemStoreStub{items: map[string]*models.ScheduleItem{}, superseded: map[string]string{}}
	for _, item := range items {
		stub.items[item.ID] = item
	}
	return stub
}

func (s *scheduleItemStoreStub) FindItem(ctx context.Context, id string) (*models.ScheduleItem, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *item
	return &copied, nil
}

func (s *scheduleItemStoreStub) MarkItemCompleted(ctx context.Context, id string, at time.Time) error {
	if s.completeErr != nil {
		return s.completeErr
	}
	s.completedIDs = append(s.completedIDs, id)
	return nil
}

func (s *scheduleItemStoreStub) SupersedeItem(ctx context.Context, exec sqlx.ExtContext, oldID, newID string) error {
	if s.supersedeErr != nil {
		return s.supersedeErr
	}
	s.superseded[oldID] = newID
	return nil
}

func (s *scheduleItemStoreStub) InsertItems(ctx context.Context, exec sqlx.ExtContext, items []models.ScheduleItem) error {
	s.inserted = append(s.inserted, items...)
	return nil
}

func (s *scheduleItemStoreStub) ListItems(ctx context.Context, scheduleID string) ([]models.ScheduleItem, error) {
	var out []models.ScheduleItem
	for _, item := range s.items {
		if item.ScheduleID == scheduleID {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (s *scheduleItemStoreStub) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	if s.schedule == nil {
		return nil, sql.ErrNoRows
	}
	return s.schedule, nil
}

type activityAppenderStub struct {
	entries []models.ActivityLog
	err     error
}

func (s *activityAppenderStub) Append(ctx context.Context, exec sqlx.ExtContext, entry *models.ActivityLog) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *activityAppenderStub) ListBySchedule(ctx context.Context, scheduleID string) ([]models.ActivityLog, error) {
	return s.entries, s.err
}

func mockTxProvider(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func mathItem() *models.ScheduleItem {
	subjectID := "math"
	return &models.ScheduleItem{
		ID:          "item-1",
		ScheduleID:  "sched-1",
		Day:         1,
		ItemType:    models.ItemTypeSubject,
		StartMinute: 9 * 60,
		EndMinute:   9*60 + 45,
		Label:       "Math",
		SubjectID:   &subjectID,
	}
}

func TestCompleteMarksItemAndLogs(t *testing.T) {
	store := newScheduleItemStoreStub(mathItem())
	activity := &activityAppenderStub{}
	service := NewActivityService(store, activity, nil, nil, nil, nil)

	duration := 40
	item, err := service.Complete(context.Background(), "item-1", dto.CompleteItemRequest{ActualDurationMinutes: &duration})
	require.NoError(t, err)
	assert.True(t, item.Completed)
	require.NotNil(t, item.CompletedAt)
	assert.Equal(t, []string{"item-1"}, store.completedIDs)

	require.Len(t, activity.entries, 1)
	entry := activity.entries[0]
	assert.Equal(t, models.ActivityCompleted, entry.Event)
	assert.Equal(t, 9*60, entry.ScheduledStart)
	require.NotNil(t, entry.ActualDurationMn)
	assert.Equal(t, 40, *entry.ActualDurationMn)
}

func TestCompleteRejectsAlreadyCompleted(t *testing.T) {
	item := mathItem()
	item.Completed = true
	service := NewActivityService(newScheduleItemStoreStub(item), &activityAppenderStub{}, nil, nil, nil, nil)

	_, err := service.Complete(context.Background(), "item-1", dto.CompleteItemRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCompleteUnknownItem(t *testing.T) {
	service := NewActivityService(newScheduleItemStoreStub(), &activityAppenderStub{}, nil, nil, nil, nil)
	_, err := service.Complete(context.Background(), "missing", dto.CompleteItemRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRescheduleSupersedesOriginal(t *testing.T) {
	db, mock := mockTxProvider(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	store := newScheduleItemStoreStub(mathItem())
	store.schedule = &models.Schedule{ID: "sched-1", ChildID: "child-1", WeekStart: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)}
	activity := &activityAppenderStub{}
	service := NewActivityService(store, activity, nil, db, nil, nil)

	moved, err := service.Reschedule(context.Background(), "item-1", dto.RescheduleItemRequest{Day: 2, Start: "10:00", End: "10:45"})
	require.NoError(t, err)
	assert.NotEqual(t, "item-1", moved.ID)
	assert.Equal(t, 2, moved.Day)
	assert.Equal(t, 10*60, moved.StartMinute)
	assert.Equal(t, "Math", moved.Label)

	assert.Equal(t, moved.ID, store.superseded["item-1"])
	require.Len(t, store.inserted, 1)
	require.Len(t, activity.entries, 1)
	assert.Equal(t, models.ActivityRescheduled, activity.entries[0].Event)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRescheduleRejectsOverlap(t *testing.T) {
	other := &models.ScheduleItem{
		ID: "item-2", ScheduleID: "sched-1", Day: 2, ItemType: models.ItemTypeBreak,
		StartMinute: 10 * 60, EndMinute: 10*60 + 15, Label: "Break",
	}
	store := newScheduleItemStoreStub(mathItem(), other)
	service := NewActivityService(store, &activityAppenderStub{}, nil, nil, nil, nil)

	_, err := service.Reschedule(context.Background(), "item-1", dto.RescheduleItemRequest{Day: 2, Start: "10:00", End: "10:45"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConstraintConflict.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "Break")
}

func TestRescheduleRejectsSupersededItem(t *testing.T) {
	item := mathItem()
	replacedBy := "item-9"
	item.SupersededBy = &replacedBy
	service := NewActivityService(newScheduleItemStoreStub(item), &activityAppenderStub{}, nil, nil, nil, nil)

	_, err := service.Reschedule(context.Background(), "item-1", dto.RescheduleItemRequest{Day: 1, Start: "10:00", End: "10:30"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRescheduleLostRace(t *testing.T) {
	db, mock := mockTxProvider(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	store := newScheduleItemStoreStub(mathItem())
	store.supersedeErr = sql.ErrNoRows
	service := NewActivityService(store, &activityAppenderStub{}, nil, db, nil, nil)

	_, err := service.Reschedule(context.Background(), "item-1", dto.RescheduleItemRequest{Day: 2, Start: "10:00", End: "10:45"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRescheduleRejectsInvertedSlot(t *testing.T) {
	service := NewActivityService(newScheduleItemStoreStub(mathItem()), &activityAppenderStub{}, nil, nil, nil, nil)
	_, err := service.Reschedule(context.Background(), "item-1", dto.RescheduleItemRequest{Day: 1, Start: "11:00", End: "10:00"})
	assert.Error(t, err)
}

func TestSkipAppendsLogOnly(t *testing.T) {
	store := newScheduleItemStoreStub(mathItem())
	activity := &activityAppenderStub{}
	service := NewActivityService(store, activity, nil, nil, nil, nil)

	require.NoError(t, service.Skip(context.Background(), "item-1"))
	require.Len(t, activity.entries, 1)
	assert.Equal(t, models.ActivitySkipped, activity.entries[0].Event)
	assert.Empty(t, store.completedIDs)
	assert.Empty(t, store.superseded)
}
