package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-app/scheduling-api/internal/dto"
	"github.com/brightpath-app/scheduling-api/internal/models"
)

type preferenceStoreStub struct {
	latest  *models.FamilyPreferences
	created []*models.FamilyPreferences
	err     error
}

func (s *preferenceStoreStub) CreateSuperseding(ctx context.Context, exec sqlx.ExtContext, prefs *models.FamilyPreferences) error {
	if s.err != nil {
		return s.err
	}
	prefs.ID = fmt.Sprintf("pref-%d", len(s.created)+1)
	s.created = append(s.created, prefs)
	s.latest = prefs
	return nil
}

func (s *preferenceStoreStub) FindLatest(ctx context.Context, familyID string) (*models.FamilyPreferences, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.latest == nil {
		return nil, sql.ErrNoRows
	}
	return s.latest, nil
}

func fullRatings(value int) map[string]int {
	ratings := make(map[string]int, 25)
	for _, cluster := range clusterOrder {
		for i := 1; i <= questionsPerCluster; i++ {
			ratings[fmt.Sprintf("%s_%d", cluster, i)] = value
		}
	}
	return ratings
}

func TestDeriveFeaturesIdempotent(t *testing.T) {
	service := NewPreferenceService(&preferenceStoreStub{}, nil, nil)
	req := dto.QuestionnaireRequest{Ratings: fullRatings(4)}

	first := service.DeriveFeatures(req, 8)
	second := service.DeriveFeatures(req, 8)
	assert.Equal(t, first, second, "identical answers must derive identical vectors")
}

func TestDeriveFeaturesNeutralDefaults(t *testing.T) {
	service := NewPreferenceService(&preferenceStoreStub{}, nil, nil)

	features := service.DeriveFeatures(dto.QuestionnaireRequest{Ratings: map[string]int{}}, 8)
	assert.InDelta(t, 0.5, features.StructureScore, 1e-9)
	assert.InDelta(t, 0.5, features.RotationScore, 1e-9)
	assert.Len(t, features.LowConfidence, len(clusterOrder), "every cluster is low-confidence with no answers")
	assert.Equal(t, 40, features.AttentionSpan)
}

func TestDeriveFeaturesReverseScoring(t *testing.T) {
	service := NewPreferenceService(&preferenceStoreStub{}, nil, nil)

	// all fives: reverse-scored items pull the mean below 1.0
	features := service.DeriveFeatures(dto.QuestionnaireRequest{Ratings: fullRatings(5)}, 8)
	assert.Less(t, features.StructureScore, 1.0)
	assert.Greater(t, features.StructureScore, 0.5)

	// the reverse item alone maxes the trait when answered 1
	ratings := fullRatings(5)
	ratings["structure_3"] = 1
	ratings["structure_5"] = 1
	reversed := service.DeriveFeatures(dto.QuestionnaireRequest{Ratings: ratings}, 8)
	assert.InDelta(t, 1.0, reversed.StructureScore, 1e-9)
}

func TestDeriveFeaturesLowConfidenceThreshold(t *testing.T) {
	service := NewPreferenceService(&preferenceStoreStub{}, nil, nil)

	// two of five missing is still confident, three is not
	ratings := fullRatings(4)
	delete(ratings, "rotation_1")
	delete(ratings, "rotation_2")
	features := service.DeriveFeatures(dto.QuestionnaireRequest{Ratings: ratings}, 8)
	assert.NotContains(t, features.LowConfidence, clusterRotation)

	delete(ratings, "rotation_3")
	features = service.DeriveFeatures(dto.QuestionnaireRequest{Ratings: ratings}, 8)
	assert.Contains(t, features.LowConfidence, clusterRotation)
}

func TestAttentionSpanBounds(t *testing.T) {
	assert.Equal(t, 15, attentionSpanForAge(2))
	assert.Equal(t, 30, attentionSpanForAge(6))
	assert.Equal(t, 90, attentionSpanForAge(18))
	assert.Equal(t, 90, attentionSpanForAge(40))
}

func TestSubmitPersistsAndSupersedes(t *testing.T) {
	store := &preferenceStoreStub{}
	service := NewPreferenceService(store, nil, nil)

	record, features, err := service.Submit(context.Background(), "fam-1", dto.QuestionnaireRequest{
		Ratings:    fullRatings(5),
		Categories: map[string]string{"planning_approach": "monthly"},
	})
	require.NoError(t, err)
	assert.Equal(t, "fam-1", record.FamilyID)
	assert.Equal(t, "monthly", record.PlanningApproach)
	assert.Empty(t, features.LowConfidence)
	assert.Len(t, store.created, 1)
}

func TestSubmitRequiresFamilyID(t *testing.T) {
	service := NewPreferenceService(&preferenceStoreStub{}, nil, nil)
	_, _, err := service.Submit(context.Background(), "", dto.QuestionnaireRequest{Ratings: fullRatings(3)})
	assert.Error(t, err)
}

func TestFeaturesForFallsBackToNeutral(t *testing.T) {
	service := NewPreferenceService(&preferenceStoreStub{}, nil, nil)
	child := &models.ChildProfile{ID: "child-1", FamilyID: "fam-1", Age: 10}

	features, err := service.FeaturesFor(context.Background(), child)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, features.StructureScore, 1e-9)
	assert.Equal(t, 50, features.AttentionSpan)
	assert.Len(t, features.LowConfidence, len(clusterOrder))
}

func TestFlexibilityLevelBuckets(t *testing.T) {
	assert.Equal(t, models.FlexibilityStrictlyStructured, flexibilityLevelFor(0.9))
	assert.Equal(t, models.FlexibilityMostlyStructured, flexibilityLevelFor(0.7))
	assert.Equal(t, models.FlexibilityBalanced, flexibilityLevelFor(0.5))
	assert.Equal(t, models.FlexibilityMostlyFlexible, flexibilityLevelFor(0.3))
	assert.Equal(t, models.FlexibilityVeryFlexible, flexibilityLevelFor(0.1))
}
