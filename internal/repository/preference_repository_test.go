package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-app/scheduling-api/internal/models"
)

func newPreferenceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPreferenceRepositoryCreateSuperseding(t *testing.T) {
	db, mock, cleanup := newPreferenceRepoMock(t)
	defer cleanup()
	repo := NewPreferenceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO family_preferences")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE family_preferences SET superseded_by = $1")).
		WithArgs(sqlmock.AnyArg(), "fam-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	payload := &models.FamilyPreferences{
		FamilyID:         "fam-1",
		FlexibilityLevel: models.FlexibilityBalanced,
		PlanningApproach: "weekly",
		ClusterScores:    types.JSONText(`{"structure":0.5}`),
	}
	require.NoError(t, repo.CreateSuperseding(context.Background(), nil, payload))
	assert.NotEmpty(t, payload.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreferenceRepositoryFindLatest(t *testing.T) {
	db, mock, cleanup := newPreferenceRepoMock(t)
	defer cleanup()
	repo := NewPreferenceRepository(db)

	rows := sqlmock.NewRows([]string{"id", "family_id", "flexibility_level", "planning_approach", "cluster_scores", "low_confidence", "superseded_by", "created_at"}).
		AddRow("pref-2", "fam-1", string(models.FlexibilityMostlyFlexible), "weekly", types.JSONText(`{"structure":0.25}`), types.JSONText(`[]`), nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM family_preferences WHERE family_id = $1 AND superseded_by IS NULL")).
		WithArgs("fam-1").
		WillReturnRows(rows)

	prefs, err := repo.FindLatest(context.Background(), "fam-1")
	require.NoError(t, err)
	assert.Equal(t, "pref-2", prefs.ID)
	assert.Equal(t, models.FlexibilityMostlyFlexible, prefs.FlexibilityLevel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPreferenceRepositoryFindLatestMissing(t *testing.T) {
	db, mock, cleanup := newPreferenceRepoMock(t)
	defer cleanup()
	repo := NewPreferenceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM family_preferences WHERE family_id = $1 AND superseded_by IS NULL")).
		WithArgs("fam-9").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindLatest(context.Background(), "fam-9")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
