package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/brightpath-app/scheduling-api/internal/dto"
	"github.com/brightpath-app/scheduling-api/internal/models"
	appErrors "github.com/brightpath-app/scheduling-api/pkg/errors"
	"github.com/brightpath-app/scheduling-api/pkg/jobs"
)

const jobTypeScoreFeedback = "score_feedback"

type feedbackStore interface {
	Create(ctx context.Context, feedback *models.Feedback) error
	UpdateScore(ctx context.Context, id string, score float64) error
	FindByID(ctx context.Context, id string) (*models.Feedback, error)
	ListAll(ctx context.Context) ([]models.Feedback, error)
}

type scheduleReader interface {
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	ListItems(ctx context.Context, scheduleID string) ([]models.ScheduleItem, error)
}

type activityReader interface {
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.ActivityLog, error)
}

type feedbackScorer interface {
	Score(ctx context.Context, items []models.ScheduleItem, feedback *models.Feedback) (float64, error)
	Train(ctx context.Context, samples []TrainingSample, params models.GeneratorParams) (*models.EvaluatorModel, error)
}

type retrainingObserver interface {
	ObserveRetraining(duration time.Duration, err error)
	ObserveFeedbackIngested()
}

// RetrainingConfig tunes the periodic retraining loop.
type RetrainingConfig struct {
	Enabled    bool
	Interval   time.Duration
	Timeout    time.Duration
	MinSamples int
}

// FeedbackService persists feedback, scores it asynchronously and drives the
// periodic retraining loop. Ingestion is fire-and-forget for the caller;
// retraining runs in the background with its own failure isolation so a bad
// run never blocks generation or ingestion, and never unseats the active model.
type FeedbackService struct {
	feedback  feedbackStore
	schedules scheduleReader
	activity  activityReader
	evaluator feedbackScorer
	queue     *jobs.Queue
	metrics   retrainingObserver
	validator *validator.Validate
	logger    *zap.Logger
	cfg       RetrainingConfig
}

// NewFeedbackService wires feedback dependencies. The scoring queue is owned
// by the service; call Start before ingesting and Stop on shutdown.
func NewFeedbackService(
	feedback feedbackStore,
	schedules scheduleReader,
	activity activityReader,
	evaluator feedbackScorer,
	queueCfg jobs.QueueConfig,
	metrics retrainingObserver,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg RetrainingConfig,
) *FeedbackService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 7 * 24 * time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = 10
	}
	if queueCfg.Logger == nil {
		queueCfg.Logger = logger
	}

	s := &FeedbackService{
		feedback:  feedback,
		schedules: schedules,
		activity:  activity,
		evaluator: evaluator,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
	s.queue = jobs.NewQueue("feedback-scoring", s.handleScoringJob, queueCfg)
	return s
}

// Start launches the scoring workers and, when enabled, the retraining ticker.
func (s *FeedbackService) Start(ctx context.Context) {
	s.queue.Start(ctx)
	if s.cfg.Enabled {
		go s.retrainLoop(ctx)
	}
}

// Stop drains the scoring workers.
func (s *FeedbackService) Stop() {
	s.queue.Stop()
}

// Ingest persists one feedback submission and enqueues async scoring. The
// adjustment flags are derived from the schedule's activity history rather
// than trusted from the client.
func (s *FeedbackService) Ingest(ctx context.Context, scheduleID string, req dto.SubmitFeedbackRequest) (*models.Feedback, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feedback payload")
	}
	if _, err := s.schedules.FindByID(ctx, scheduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	subRatings, err := json.Marshal(req.SubRatings)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode sub-ratings")
	}

	record := &models.Feedback{
		ScheduleID: scheduleID,
		StarRating: req.StarRating,
		SubRatings: types.JSONText(subRatings),
		Comments:   req.Comments,
	}
	s.applyAdjustmentFlags(ctx, record)

	if err := s.feedback.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist feedback")
	}
	if s.metrics != nil {
		s.metrics.ObserveFeedbackIngested()
	}

	if err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: jobTypeScoreFeedback, Payload: record.ID}); err != nil {
		// scoring is best-effort; the retraining pass recomputes scores anyway
		s.logger.Warn("failed to enqueue feedback scoring", zap.String("feedbackId", record.ID), zap.Error(err))
	}
	return record, nil
}

// applyAdjustmentFlags inspects the activity log for reschedules and skips.
func (s *FeedbackService) applyAdjustmentFlags(ctx context.Context, record *models.Feedback) {
	if s.activity == nil {
		return
	}
	logs, err := s.activity.ListBySchedule(ctx, record.ScheduleID)
	if err != nil {
		s.logger.Warn("failed to load activity history for adjustment flags", zap.Error(err))
		return
	}
	for _, entry := range logs {
		switch entry.Event {
		case models.ActivityRescheduled:
			record.TimeShifted = true
			if entry.ActualStart != nil && *entry.ActualStart != entry.ScheduledStart {
				record.Reordered = true
			}
		case models.ActivitySkipped:
			record.Removed = true
		}
	}
}

func (s *FeedbackService) handleScoringJob(ctx context.Context, job jobs.Job) error {
	feedbackID, ok := job.Payload.(string)
	if !ok {
		return fmt.Errorf("scoring job %s has unexpected payload %T", job.ID, job.Payload)
	}
	record, err := s.feedback.FindByID(ctx, feedbackID)
	if err != nil {
		return fmt.Errorf("load feedback %s: %w", feedbackID, err)
	}
	items, err := s.schedules.ListItems(ctx, record.ScheduleID)
	if err != nil {
		return fmt.Errorf("load schedule items for feedback %s: %w", feedbackID, err)
	}
	score, err := s.evaluator.Score(ctx, items, record)
	if err != nil {
		return fmt.Errorf("score feedback %s: %w", feedbackID, err)
	}
	if err := s.feedback.UpdateScore(ctx, feedbackID, score); err != nil {
		return fmt.Errorf("store score for feedback %s: %w", feedbackID, err)
	}
	return nil
}

func (s *FeedbackService) retrainLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Retrain(ctx); err != nil {
				s.logger.Error("scheduled retraining failed", zap.Error(err))
			}
		}
	}
}

// Retrain refits the evaluator over the full feedback history. Insufficient
// history aborts the run; the previously active model stays in place on any
// failure. The run carries its own timeout so a large history cannot wedge
// the loop.
func (s *FeedbackService) Retrain(ctx context.Context) error {
	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	err := s.retrain(ctx)
	if s.metrics != nil {
		s.metrics.ObserveRetraining(time.Since(started), err)
	}
	return err
}

func (s *FeedbackService) retrain(ctx context.Context) error {
	history, err := s.feedback.ListAll(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrRetrainingFailed.Code, appErrors.ErrRetrainingFailed.Status, "failed to load feedback history")
	}
	if len(history) < s.cfg.MinSamples {
		return appErrors.Clone(appErrors.ErrRetrainingFailed,
			fmt.Sprintf("insufficient feedback history: %d of %d required samples", len(history), s.cfg.MinSamples))
	}

	samples := make([]TrainingSample, 0, len(history))
	for i := range history {
		if err := ctx.Err(); err != nil {
			return appErrors.Wrap(err, appErrors.ErrRetrainingFailed.Code, appErrors.ErrRetrainingFailed.Status, "retraining cancelled")
		}
		record := &history[i]
		items, err := s.schedules.ListItems(ctx, record.ScheduleID)
		if err != nil {
			s.logger.Warn("skipping feedback with unloadable schedule",
				zap.String("feedbackId", record.ID), zap.Error(err))
			continue
		}
		samples = append(samples, TrainingSample{
			Features: ExtractFeatures(items, record),
			Target:   float64(record.StarRating-1) / 4.0,
		})
	}
	if len(samples) < s.cfg.MinSamples {
		return appErrors.Clone(appErrors.ErrRetrainingFailed,
			fmt.Sprintf("insufficient usable samples after filtering: %d of %d", len(samples), s.cfg.MinSamples))
	}

	model, err := s.evaluator.Train(ctx, samples, models.DefaultGeneratorParams())
	if err != nil {
		return err
	}
	s.logger.Info("retraining completed",
		zap.Int("modelVersion", model.Version),
		zap.Int("samples", len(samples)))
	return nil
}
