package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// EvaluatorModel is one versioned snapshot of the reward model plus the
// generator parameter set it tunes. Retraining creates the next version and
// flips the active flag with compare-and-swap semantics; prior versions are
// retained for rollback and audit.
type EvaluatorModel struct {
	ID                string         `db:"id" json:"id"`
	Version           int            `db:"version" json:"version"`
	Weights           types.JSONText `db:"weights" json:"weights"`
	GeneratorParams   types.JSONText `db:"generator_params" json:"generator_params"`
	FeatureImportance types.JSONText `db:"feature_importance" json:"feature_importance"`
	Metrics           types.JSONText `db:"metrics" json:"metrics"`
	SampleCount       int            `db:"sample_count" json:"sample_count"`
	IsActive          bool           `db:"is_active" json:"is_active"`
	TrainedAt         time.Time      `db:"trained_at" json:"trained_at"`
}

// GeneratorParams is the explicit, swappable tuning set the retraining loop may
// update. Stored as the generator_params document on an EvaluatorModel.
type GeneratorParams struct {
	MinBlockMinutes   int     `json:"min_block_minutes"`
	MaxBlockMinutes   int     `json:"max_block_minutes"`
	BreakMinutes      int     `json:"break_minutes"`
	BlockScale        float64 `json:"block_scale"`
	StructureEarly    float64 `json:"structure_early"`
	StructureBalanced float64 `json:"structure_balanced"`
}

// DefaultGeneratorParams returns the tuning set used before any training run.
func DefaultGeneratorParams() GeneratorParams {
	return GeneratorParams{
		MinBlockMinutes:   15,
		MaxBlockMinutes:   90,
		BreakMinutes:      15,
		BlockScale:        1.0,
		StructureEarly:    0.66,
		StructureBalanced: 0.33,
	}
}

// EvaluatorWeights is the weights document of the linear reward model.
type EvaluatorWeights struct {
	Bias         float64 `json:"bias"`
	AvgBlock     float64 `json:"avg_block"`
	BlocksPerDay float64 `json:"blocks_per_day"`
	AvgStart     float64 `json:"avg_start"`
	Stars        float64 `json:"stars"`
	Likert       float64 `json:"likert"`
	TimeShifted  float64 `json:"time_shifted"`
	Reordered    float64 `json:"reordered"`
	Removed      float64 `json:"removed"`
}

// EvaluatorMetrics summarises a training run.
type EvaluatorMetrics struct {
	MAE         float64 `json:"mae"`
	SampleCount int     `json:"sample_count"`
}
