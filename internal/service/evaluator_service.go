package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/brightpath-app/scheduling-api/internal/models"
	appErrors "github.com/brightpath-app/scheduling-api/pkg/errors"
)

// ridge regularisation keeps single-feature fits stable on tiny histories
const ridgeLambda = 0.1

const (
	featureAvgBlock = iota
	featureBlocksPerDay
	featureAvgStart
	featureStars
	featureLikert
	featureTimeShifted
	featureReordered
	featureRemoved
	featureCount
)

var featureNames = [featureCount]string{
	"avg_block",
	"blocks_per_day",
	"avg_start",
	"stars",
	"likert",
	"time_shifted",
	"reordered",
	"removed",
}

// TrainingSample is one (schedule, feedback) pair reduced to features and the
// satisfaction target in [0,1].
type TrainingSample struct {
	Features [featureCount]float64
	Target   float64
}

type evaluatorModelStore interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, model *models.EvaluatorModel) error
	Activate(ctx context.Context, exec sqlx.ExtContext, id string) error
	FindActive(ctx context.Context) (*models.EvaluatorModel, error)
	List(ctx context.Context) ([]models.EvaluatorModel, error)
}

// EvaluatorService scores schedule+feedback pairs and refits the reward model
// over the accumulated history.
type EvaluatorService struct {
	store  evaluatorModelStore
	tx     txProvider
	logger *zap.Logger
}

// NewEvaluatorService wires evaluator dependencies.
func NewEvaluatorService(store evaluatorModelStore, tx txProvider, logger *zap.Logger) *EvaluatorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvaluatorService{store: store, tx: tx, logger: logger}
}

// ExtractFeatures reduces a schedule's items and one feedback record to the
// evaluator's fixed-length feature vector. All features are normalized to
// [0,1] so the linear model's weights stay comparable.
func ExtractFeatures(items []models.ScheduleItem, feedback *models.Feedback) [featureCount]float64 {
	var features [featureCount]float64

	subjectBlocks := 0
	totalMinutes := 0
	totalStart := 0
	days := make(map[int]bool)
	for _, item := range items {
		if item.ItemType != models.ItemTypeSubject {
			continue
		}
		subjectBlocks++
		totalMinutes += item.EndMinute - item.StartMinute
		totalStart += item.StartMinute
		days[item.Day] = true
	}
	if subjectBlocks > 0 {
		features[featureAvgBlock] = float64(totalMinutes) / float64(subjectBlocks) / 90.0
		features[featureAvgStart] = float64(totalStart) / float64(subjectBlocks) / float64(minutesPerDay)
	}
	if len(days) > 0 {
		// 8 blocks per day is a practical ceiling for normalisation
		features[featureBlocksPerDay] = math.Min(float64(subjectBlocks)/float64(len(days))/8.0, 1)
	}

	if feedback != nil {
		features[featureStars] = float64(feedback.StarRating-1) / 4.0
		features[featureLikert] = likertMean(feedback.SubRatings)
		if feedback.TimeShifted {
			features[featureTimeShifted] = 1
		}
		if feedback.Reordered {
			features[featureReordered] = 1
		}
		if feedback.Removed {
			features[featureRemoved] = 1
		}
	}
	return features
}

// Score evaluates one schedule+feedback pair with the active model's weights,
// clamped to [0,1]. With no trained model a neutral star-driven fallback is
// used so early feedback still gets a usable score.
func (s *EvaluatorService) Score(ctx context.Context, items []models.ScheduleItem, feedback *models.Feedback) (float64, error) {
	features := ExtractFeatures(items, feedback)

	weights := fallbackWeights()
	model, err := s.store.FindActive(ctx)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active evaluator model")
		}
	} else if err := json.Unmarshal(model.Weights, &weights); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode evaluator weights")
	}

	return scoreWith(weights, features), nil
}

// Train refits the linear model over the full history, persists it as a new
// version and activates it atomically. The previous version stays in place for
// rollback; a failed run changes nothing.
func (s *EvaluatorService) Train(ctx context.Context, samples []TrainingSample, params models.GeneratorParams) (*models.EvaluatorModel, error) {
	if len(samples) == 0 {
		return nil, appErrors.Clone(appErrors.ErrRetrainingFailed, "no training samples")
	}

	weights := fitWeights(samples)
	mae := meanAbsoluteError(weights, samples)

	weightsBytes, err := json.Marshal(weights)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRetrainingFailed.Code, appErrors.ErrRetrainingFailed.Status, "failed to encode weights")
	}
	paramsBytes, err := json.Marshal(params)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRetrainingFailed.Code, appErrors.ErrRetrainingFailed.Status, "failed to encode generator params")
	}
	importanceBytes, err := json.Marshal(featureImportance(weights))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRetrainingFailed.Code, appErrors.ErrRetrainingFailed.Status, "failed to encode feature importance")
	}
	metricsBytes, err := json.Marshal(models.EvaluatorMetrics{MAE: mae, SampleCount: len(samples)})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRetrainingFailed.Code, appErrors.ErrRetrainingFailed.Status, "failed to encode metrics")
	}

	model := &models.EvaluatorModel{
		Weights:           types.JSONText(weightsBytes),
		GeneratorParams:   types.JSONText(paramsBytes),
		FeatureImportance: types.JSONText(importanceBytes),
		Metrics:           types.JSONText(metricsBytes),
		SampleCount:       len(samples),
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRetrainingFailed.Code, appErrors.ErrRetrainingFailed.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.store.CreateVersioned(ctx, tx, model); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrRetrainingFailed.Code, appErrors.ErrRetrainingFailed.Status, "failed to persist evaluator model")
		return nil, err
	}
	if err = s.store.Activate(ctx, tx, model.ID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrRetrainingFailed.Code, appErrors.ErrRetrainingFailed.Status, "failed to activate evaluator model")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrRetrainingFailed.Code, appErrors.ErrRetrainingFailed.Status, "failed to commit evaluator model")
		return nil, err
	}
	model.IsActive = true

	s.logger.Info("evaluator model trained",
		zap.Int("version", model.Version),
		zap.Int("samples", len(samples)),
		zap.Float64("mae", mae))
	return model, nil
}

// Activate flips an existing model version active, superseding the current
// one. This is the manual rollback path; the version itself is immutable.
func (s *EvaluatorService) Activate(ctx context.Context, id string) error {
	if id == "" {
		return appErrors.Clone(appErrors.ErrValidation, "model id is required")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.store.Activate(ctx, tx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.Clone(appErrors.ErrNotFound, "evaluator model not found")
			return err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate evaluator model")
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit model activation")
		return err
	}

	s.logger.Info("evaluator model activated", zap.String("modelId", id))
	return nil
}

// Models lists all model versions, newest first.
func (s *EvaluatorService) Models(ctx context.Context) ([]models.EvaluatorModel, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list evaluator models")
	}
	return list, nil
}

func scoreWith(w models.EvaluatorWeights, f [featureCount]float64) float64 {
	score := w.Bias +
		w.AvgBlock*f[featureAvgBlock] +
		w.BlocksPerDay*f[featureBlocksPerDay] +
		w.AvgStart*f[featureAvgStart] +
		w.Stars*f[featureStars] +
		w.Likert*f[featureLikert] +
		w.TimeShifted*f[featureTimeShifted] +
		w.Reordered*f[featureReordered] +
		w.Removed*f[featureRemoved]
	return clamp01(score)
}

// fitWeights runs an independent ridge fit per feature against the target.
// The stars weight is clamped non-negative afterwards: scoring must never
// decrease when the star rating alone goes up.
func fitWeights(samples []TrainingSample) models.EvaluatorWeights {
	n := float64(len(samples))

	var targetSum float64
	for _, sample := range samples {
		targetSum += sample.Target
	}
	targetMean := targetSum / n

	var raw [featureCount]float64
	for j := 0; j < featureCount; j++ {
		var featureSum float64
		for _, sample := range samples {
			featureSum += sample.Features[j]
		}
		featureMean := featureSum / n

		var cov, variance float64
		for _, sample := range samples {
			d := sample.Features[j] - featureMean
			cov += d * (sample.Target - targetMean)
			variance += d * d
		}
		raw[j] = cov / (variance + ridgeLambda)
	}

	if raw[featureStars] < 0 {
		raw[featureStars] = 0
	}

	weights := models.EvaluatorWeights{
		AvgBlock:     raw[featureAvgBlock],
		BlocksPerDay: raw[featureBlocksPerDay],
		AvgStart:     raw[featureAvgStart],
		Stars:        raw[featureStars],
		Likert:       raw[featureLikert],
		TimeShifted:  raw[featureTimeShifted],
		Reordered:    raw[featureReordered],
		Removed:      raw[featureRemoved],
	}

	// bias centres predictions on the mean target at mean features
	var predictedAtMean float64
	for j := 0; j < featureCount; j++ {
		var featureSum float64
		for _, sample := range samples {
			featureSum += sample.Features[j]
		}
		predictedAtMean += raw[j] * featureSum / n
	}
	weights.Bias = targetMean - predictedAtMean
	return weights
}

func meanAbsoluteError(w models.EvaluatorWeights, samples []TrainingSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	var total float64
	for _, sample := range samples {
		total += math.Abs(scoreWith(w, sample.Features) - sample.Target)
	}
	return total / float64(len(samples))
}

func featureImportance(w models.EvaluatorWeights) map[string]float64 {
	raw := [featureCount]float64{
		w.AvgBlock, w.BlocksPerDay, w.AvgStart, w.Stars,
		w.Likert, w.TimeShifted, w.Reordered, w.Removed,
	}
	var total float64
	for _, v := range raw {
		total += math.Abs(v)
	}
	importance := make(map[string]float64, featureCount)
	for j, name := range featureNames {
		if total > 0 {
			importance[name] = math.Abs(raw[j]) / total
		} else {
			importance[name] = 0
		}
	}
	return importance
}

// fallbackWeights drive scoring before the first training run: stars dominate,
// manual adjustments subtract a little.
func fallbackWeights() models.EvaluatorWeights {
	return models.EvaluatorWeights{
		Bias:        0.1,
		Stars:       0.7,
		Likert:      0.2,
		TimeShifted: -0.05,
		Reordered:   -0.05,
		Removed:     -0.1,
	}
}

func likertMean(raw types.JSONText) float64 {
	if len(raw) == 0 {
		return 0.5
	}
	var ratings map[string]int
	if err := json.Unmarshal(raw, &ratings); err != nil || len(ratings) == 0 {
		return 0.5
	}
	var total float64
	for _, v := range ratings {
		if v < 1 {
			v = 1
		}
		if v > 5 {
			v = 5
		}
		total += float64(v-1) / 4.0
	}
	return total / float64(len(ratings))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
