package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/brightpath-app/scheduling-api/internal/dto"
	"github.com/brightpath-app/scheduling-api/internal/models"
	appErrors "github.com/brightpath-app/scheduling-api/pkg/errors"
)

// Questionnaire clusters. Five questions each; answers are keyed
// "<cluster>_<n>" with n in 1..5. Reverse-scored items are phrased so that
// agreement means less of the named trait; their polarity is flipped before
// averaging so a higher cluster score always means more of the trait.
const (
	clusterStructure      = "structure"
	clusterRotation       = "rotation"
	clusterTimeManagement = "time_management"
	clusterLongTerm       = "long_term"
	clusterPrioritization = "prioritization"

	questionsPerCluster = 5
	neutralAnswer       = 3
)

var clusterOrder = []string{
	clusterStructure,
	clusterRotation,
	clusterTimeManagement,
	clusterLongTerm,
	clusterPrioritization,
}

var reverseScored = map[string]bool{
	"structure_3":       true,
	"structure_5":       true,
	"rotation_2":        true,
	"time_management_4": true,
	"long_term_3":       true,
	"prioritization_5":  true,
}

// PreferenceService turns raw questionnaire answers into the normalized
// feature vector the generator consumes, and persists the derived preferences.
type PreferenceService struct {
	prefs     preferenceStore
	validator *validator.Validate
	logger    *zap.Logger
}

type preferenceStore interface {
	CreateSuperseding(ctx context.Context, exec sqlx.ExtContext, prefs *models.FamilyPreferences) error
	FindLatest(ctx context.Context, familyID string) (*models.FamilyPreferences, error)
}

// NewPreferenceService wires preference dependencies.
func NewPreferenceService(prefs preferenceStore, validate *validator.Validate, logger *zap.Logger) *PreferenceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PreferenceService{prefs: prefs, validator: validate, logger: logger}
}

// DeriveFeatures computes cluster scores from raw answers. Pure and
// deterministic: identical answers always yield an identical vector. Missing
// answers fall back to the neutral midpoint; a cluster with more than half of
// its answers missing is flagged low-confidence instead of failing.
func (s *PreferenceService) DeriveFeatures(req dto.QuestionnaireRequest, age int) dto.FeatureVector {
	scores := make(map[string]float64, len(clusterOrder))
	var lowConfidence []string

	for _, cluster := range clusterOrder {
		total := 0.0
		missing := 0
		for i := 1; i <= questionsPerCluster; i++ {
			key := fmt.Sprintf("%s_%d", cluster, i)
			answer, ok := req.Ratings[key]
			if !ok || answer < 1 || answer > 5 {
				answer = neutralAnswer
				missing++
			}
			if reverseScored[key] {
				answer = 6 - answer
			}
			total += float64(answer-1) / 4.0
		}
		scores[cluster] = total / questionsPerCluster
		if missing > questionsPerCluster/2 {
			lowConfidence = append(lowConfidence, cluster)
		}
	}

	return dto.FeatureVector{
		StructureScore:      scores[clusterStructure],
		RotationScore:       scores[clusterRotation],
		TimeManagementScore: scores[clusterTimeManagement],
		LongTermScore:       scores[clusterLongTerm],
		PrioritizationScore: scores[clusterPrioritization],
		Age:                 age,
		AttentionSpan:       attentionSpanForAge(age),
		LowConfidence:       lowConfidence,
	}
}

// Submit derives features from the questionnaire and persists them as the
// family's current preferences, superseding any previous submission.
func (s *PreferenceService) Submit(ctx context.Context, familyID string, req dto.QuestionnaireRequest) (*models.FamilyPreferences, dto.FeatureVector, error) {
	if familyID == "" {
		return nil, dto.FeatureVector{}, appErrors.Clone(appErrors.ErrValidation, "family id is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, dto.FeatureVector{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid questionnaire payload")
	}

	features := s.DeriveFeatures(req, 0)

	clusterScores, err := json.Marshal(map[string]float64{
		clusterStructure:      features.StructureScore,
		clusterRotation:       features.RotationScore,
		clusterTimeManagement: features.TimeManagementScore,
		clusterLongTerm:       features.LongTermScore,
		clusterPrioritization: features.PrioritizationScore,
	})
	if err != nil {
		return nil, dto.FeatureVector{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode cluster scores")
	}
	lowConfidence, err := json.Marshal(features.LowConfidence)
	if err != nil {
		return nil, dto.FeatureVector{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode low-confidence flags")
	}

	record := &models.FamilyPreferences{
		FamilyID:         familyID,
		FlexibilityLevel: flexibilityLevelFor(features.StructureScore),
		PlanningApproach: strings.TrimSpace(req.Categories["planning_approach"]),
		ClusterScores:    types.JSONText(clusterScores),
		LowConfidence:    types.JSONText(lowConfidence),
	}
	if record.PlanningApproach == "" {
		record.PlanningApproach = "weekly"
	}

	if err := s.prefs.CreateSuperseding(ctx, nil, record); err != nil {
		return nil, dto.FeatureVector{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist preferences")
	}

	if len(features.LowConfidence) > 0 {
		s.logger.Info("questionnaire submitted with low-confidence clusters",
			zap.String("familyId", familyID),
			zap.Strings("clusters", features.LowConfidence))
	}
	return record, features, nil
}

// FeaturesFor loads the stored preferences for the child's family and rebuilds
// the feature vector the generator needs. Missing preferences recover to a
// fully neutral vector flagged low-confidence on every cluster, never an error.
func (s *PreferenceService) FeaturesFor(ctx context.Context, child *models.ChildProfile) (dto.FeatureVector, error) {
	if child == nil {
		return dto.FeatureVector{}, appErrors.Clone(appErrors.ErrValidation, "child profile is required")
	}

	prefs, err := s.prefs.FindLatest(ctx, child.FamilyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("no preferences on file, using neutral defaults", zap.String("familyId", child.FamilyID))
			neutral := s.DeriveFeatures(dto.QuestionnaireRequest{Ratings: map[string]int{}}, child.Age)
			neutral.LowConfidence = append([]string{}, clusterOrder...)
			return neutral, nil
		}
		return dto.FeatureVector{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load preferences")
	}

	var scores map[string]float64
	if err := json.Unmarshal(prefs.ClusterScores, &scores); err != nil {
		return dto.FeatureVector{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode cluster scores")
	}
	var lowConfidence []string
	if len(prefs.LowConfidence) > 0 {
		_ = json.Unmarshal(prefs.LowConfidence, &lowConfidence)
	}

	return dto.FeatureVector{
		StructureScore:      scores[clusterStructure],
		RotationScore:       scores[clusterRotation],
		TimeManagementScore: scores[clusterTimeManagement],
		LongTermScore:       scores[clusterLongTerm],
		PrioritizationScore: scores[clusterPrioritization],
		Age:                 child.Age,
		AttentionSpan:       attentionSpanForAge(child.Age),
		LowConfidence:       lowConfidence,
	}, nil
}

// Latest returns the family's current submission.
func (s *PreferenceService) Latest(ctx context.Context, familyID string) (*models.FamilyPreferences, error) {
	prefs, err := s.prefs.FindLatest(ctx, familyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no questionnaire submission on file")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load preferences")
	}
	return prefs, nil
}

// attentionSpanForAge approximates sustained focus as five minutes per year of
// age, bounded to the generator's block range.
func attentionSpanForAge(age int) int {
	span := age * 5
	if span < 15 {
		span = 15
	}
	if span > 90 {
		span = 90
	}
	return span
}

func flexibilityLevelFor(structure float64) models.FlexibilityLevel {
	switch {
	case structure >= 0.8:
		return models.FlexibilityStrictlyStructured
	case structure >= 0.6:
		return models.FlexibilityMostlyStructured
	case structure >= 0.4:
		return models.FlexibilityBalanced
	case structure >= 0.2:
		return models.FlexibilityMostlyFlexible
	default:
		return models.FlexibilityVeryFlexible
	}
}
