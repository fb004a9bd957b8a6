package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-app/scheduling-api/internal/dto"
	"github.com/brightpath-app/scheduling-api/internal/models"
	appErrors "github.com/brightpath-app/scheduling-api/pkg/errors"
	"github.com/brightpath-app/scheduling-api/pkg/jobs"
)

type feedbackStoreStub struct {
	records   map[string]*models.Feedback
	order     []string
	scores    map[string]float64
	createErr error
	listErr   error
}

func newFeedbackStoreStub() *feedbackStoreStub {
	return &feedbackStoreStub{records: map[string]*models.Feedback{}, scores: map[string]float64{}}
}

func (s *feedbackStoreStub) Create(ctx context.Context, feedback *models.Feedback) error {
	if s.createErr != nil {
		return s.createErr
	}
	feedback.ID = fmt.Sprintf("fb-%d", len(s.order)+1)
	s.records[feedback.ID] = feedback
	s.order = append(s.order, feedback.ID)
	return nil
}

func (s *feedbackStoreStub) UpdateScore(ctx context.Context, id string, score float64) error {
	if _, ok := s.records[id]; !ok {
		return sql.ErrNoRows
	}
	s.scores[id] = score
	return nil
}

func (s *feedbackStoreStub) FindByID(ctx context.Context, id string) (*models.Feedback, error) {
	record, ok := s.records[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return record, nil
}

func (s *feedbackStoreStub) ListAll(ctx context.Context) ([]models.Feedback, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]models.Feedback, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.records[id])
	}
	return out, nil
}

type scheduleReaderStub struct {
	schedule *models.Schedule
	items    []models.ScheduleItem
	itemsErr error
}

func (s *scheduleReaderStub) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	if s.schedule == nil {
		return nil, sql.ErrNoRows
	}
	return s.schedule, nil
}

func (s *scheduleReaderStub) ListItems(ctx context.Context, scheduleID string) ([]models.ScheduleItem, error) {
	if s.itemsErr != nil {
		return nil, s.itemsErr
	}
	return s.items, nil
}

type feedbackScorerStub struct {
	score    float64
	scoreErr error
	trained  [][]TrainingSample
	trainErr error
}

func (s *feedbackScorerStub) Score(ctx context.Context, items []models.ScheduleItem, feedback *models.Feedback) (float64, error) {
	return s.score, s.scoreErr
}

func (s *feedbackScorerStub) Train(ctx context.Context, samples []TrainingSample, params models.GeneratorParams) (*models.EvaluatorModel, error) {
	if s.trainErr != nil {
		return nil, s.trainErr
	}
	s.trained = append(s.trained, samples)
	return &models.EvaluatorModel{ID: "model-1", Version: len(s.trained), IsActive: true}, nil
}

func newFeedbackTestService(store *feedbackStoreStub, schedules *scheduleReaderStub, activity *activityAppenderStub, scorer *feedbackScorerStub, cfg RetrainingConfig) *FeedbackService {
	return NewFeedbackService(store, schedules, activity, scorer, jobs.QueueConfig{}, nil, nil, nil, cfg)
}

func feedbackSchedule() *models.Schedule {
	return &models.Schedule{ID: "sched-1", ChildID: "child-1", WeekStart: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), Version: 1, IsActive: true}
}

func TestIngestPersistsFeedback(t *testing.T) {
	store := newFeedbackStoreStub()
	service := newFeedbackTestService(store, &scheduleReaderStub{schedule: feedbackSchedule()}, &activityAppenderStub{}, &feedbackScorerStub{}, RetrainingConfig{})

	record, err := service.Ingest(context.Background(), "sched-1", dto.SubmitFeedbackRequest{
		StarRating: 4,
		SubRatings: map[string]int{"pacing": 5},
		Comments:   "good week",
	})
	require.NoError(t, err)
	assert.Equal(t, "fb-1", record.ID)
	assert.Equal(t, 4, record.StarRating)
	assert.False(t, record.TimeShifted)
	assert.Len(t, store.records, 1)
}

func TestIngestDerivesAdjustmentFlags(t *testing.T) {
	shifted := 10 * 60
	activity := &activityAppenderStub{entries: []models.ActivityLog{
		{Event: models.ActivityRescheduled, ScheduledStart: 9 * 60, ActualStart: &shifted},
		{Event: models.ActivitySkipped},
	}}
	store := newFeedbackStoreStub()
	service := newFeedbackTestService(store, &scheduleReaderStub{schedule: feedbackSchedule()}, activity, &feedbackScorerStub{}, RetrainingConfig{})

	record, err := service.Ingest(context.Background(), "sched-1", dto.SubmitFeedbackRequest{StarRating: 3})
	require.NoError(t, err)
	assert.True(t, record.TimeShifted)
	assert.True(t, record.Reordered)
	assert.True(t, record.Removed)
}

func TestIngestRejectsInvalidStars(t *testing.T) {
	service := newFeedbackTestService(newFeedbackStoreStub(), &scheduleReaderStub{schedule: feedbackSchedule()}, &activityAppenderStub{}, &feedbackScorerStub{}, RetrainingConfig{})
	_, err := service.Ingest(context.Background(), "sched-1", dto.SubmitFeedbackRequest{StarRating: 6})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestIngestUnknownSchedule(t *testing.T) {
	service := newFeedbackTestService(newFeedbackStoreStub(), &scheduleReaderStub{}, &activityAppenderStub{}, &feedbackScorerStub{}, RetrainingConfig{})
	_, err := service.Ingest(context.Background(), "missing", dto.SubmitFeedbackRequest{StarRating: 3})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestIngestAllowsRepeatSubmissions(t *testing.T) {
	store := newFeedbackStoreStub()
	service := newFeedbackTestService(store, &scheduleReaderStub{schedule: feedbackSchedule()}, &activityAppenderStub{}, &feedbackScorerStub{}, RetrainingConfig{})

	_, err := service.Ingest(context.Background(), "sched-1", dto.SubmitFeedbackRequest{StarRating: 2})
	require.NoError(t, err)
	_, err = service.Ingest(context.Background(), "sched-1", dto.SubmitFeedbackRequest{StarRating: 5})
	require.NoError(t, err)
	assert.Len(t, store.records, 2)
}

func TestScoringJobStoresScore(t *testing.T) {
	store := newFeedbackStoreStub()
	record := &models.Feedback{ScheduleID: "sched-1", StarRating: 5}
	require.NoError(t, store.Create(context.Background(), record))

	service := newFeedbackTestService(store, &scheduleReaderStub{schedule: feedbackSchedule(), items: testScheduleItems()}, &activityAppenderStub{}, &feedbackScorerStub{score: 0.82}, RetrainingConfig{})

	err := service.handleScoringJob(context.Background(), jobs.Job{ID: "job-1", Type: jobTypeScoreFeedback, Payload: record.ID})
	require.NoError(t, err)
	assert.Equal(t, 0.82, store.scores[record.ID])
}

func TestScoringJobRejectsBadPayload(t *testing.T) {
	service := newFeedbackTestService(newFeedbackStoreStub(), &scheduleReaderStub{}, &activityAppenderStub{}, &feedbackScorerStub{}, RetrainingConfig{})
	err := service.handleScoringJob(context.Background(), jobs.Job{ID: "job-1", Payload: 42})
	assert.Error(t, err)
}

func TestRetrainRequiresMinimumHistory(t *testing.T) {
	store := newFeedbackStoreStub()
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Create(context.Background(), &models.Feedback{ScheduleID: "sched-1", StarRating: 4}))
	}
	scorer := &feedbackScorerStub{}
	service := newFeedbackTestService(store, &scheduleReaderStub{schedule: feedbackSchedule(), items: testScheduleItems()}, &activityAppenderStub{}, scorer, RetrainingConfig{MinSamples: 10})

	err := service.Retrain(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRetrainingFailed.Code, appErrors.FromError(err).Code)
	assert.Empty(t, scorer.trained, "no model may be trained on insufficient history")
}

func TestRetrainBuildsSamplesFromHistory(t *testing.T) {
	store := newFeedbackStoreStub()
	for i := 0; i < 12; i++ {
		require.NoError(t, store.Create(context.Background(), &models.Feedback{ScheduleID: "sched-1", StarRating: (i % 5) + 1}))
	}
	scorer := &feedbackScorerStub{}
	service := newFeedbackTestService(store, &scheduleReaderStub{schedule: feedbackSchedule(), items: testScheduleItems()}, &activityAppenderStub{}, scorer, RetrainingConfig{MinSamples: 10})

	require.NoError(t, service.Retrain(context.Background()))
	require.Len(t, scorer.trained, 1)
	samples := scorer.trained[0]
	assert.Len(t, samples, 12)
	for _, sample := range samples {
		assert.GreaterOrEqual(t, sample.Target, 0.0)
		assert.LessOrEqual(t, sample.Target, 1.0)
	}
}

func TestRetrainKeepsActiveModelOnTrainingFailure(t *testing.T) {
	store := newFeedbackStoreStub()
	for i := 0; i < 12; i++ {
		require.NoError(t, store.Create(context.Background(), &models.Feedback{ScheduleID: "sched-1", StarRating: 4}))
	}
	scorer := &feedbackScorerStub{trainErr: appErrors.Clone(appErrors.ErrRetrainingFailed, "fit failed")}
	service := newFeedbackTestService(store, &scheduleReaderStub{schedule: feedbackSchedule(), items: testScheduleItems()}, &activityAppenderStub{}, scorer, RetrainingConfig{MinSamples: 10})

	err := service.Retrain(context.Background())
	require.Error(t, err)
	assert.Empty(t, scorer.trained)
}

func TestRetrainSkipsUnloadableSchedules(t *testing.T) {
	store := newFeedbackStoreStub()
	for i := 0; i < 12; i++ {
		require.NoError(t, store.Create(context.Background(), &models.Feedback{ScheduleID: "sched-1", StarRating: 4}))
	}
	schedules := &scheduleReaderStub{schedule: feedbackSchedule(), itemsErr: sql.ErrNoRows}
	service := newFeedbackTestService(store, schedules, &activityAppenderStub{}, &feedbackScorerStub{}, RetrainingConfig{MinSamples: 10})

	err := service.Retrain(context.Background())
	require.Error(t, err, "every sample filtered out must abort the run")
}
