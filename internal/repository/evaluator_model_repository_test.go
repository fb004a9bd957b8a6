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

func newEvaluatorModelRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEvaluatorModelRepositoryCreateVersioned(t *testing.T) {
	db, mock, cleanup := newEvaluatorModelRepoMock(t)
	defer cleanup()
	repo := NewEvaluatorModelRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) + 1 FROM evaluator_models")).
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(4))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO evaluator_models")).
		WithArgs(sqlmock.AnyArg(), 4, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), 25, false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	payload := &models.EvaluatorModel{
		Weights:     types.JSONText(`{"bias":0.5}`),
		SampleCount: 25,
	}
	require.NoError(t, repo.CreateVersioned(context.Background(), nil, payload))
	assert.Equal(t, 4, payload.Version)
	assert.False(t, payload.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvaluatorModelRepositoryActivate(t *testing.T) {
	db, mock, cleanup := newEvaluatorModelRepoMock(t)
	defer cleanup()
	repo := NewEvaluatorModelRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE evaluator_models SET is_active = FALSE WHERE is_active = TRUE")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE evaluator_models SET is_active = TRUE WHERE id = $1")).
		WithArgs("model-2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Activate(context.Background(), nil, "model-2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvaluatorModelRepositoryActivateMissing(t *testing.T) {
	db, mock, cleanup := newEvaluatorModelRepoMock(t)
	defer cleanup()
	repo := NewEvaluatorModelRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE evaluator_models SET is_active = FALSE WHERE is_active = TRUE")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE evaluator_models SET is_active = TRUE WHERE id = $1")).
		WithArgs("model-9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Activate(context.Background(), nil, "model-9")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEvaluatorModelRepositoryFindActive(t *testing.T) {
	db, mock, cleanup := newEvaluatorModelRepoMock(t)
	defer cleanup()
	repo := NewEvaluatorModelRepository(db)

	rows := sqlmock.NewRows([]string{"id", "version", "weights", "generator_params", "feature_importance", "metrics", "sample_count", "is_active", "trained_at"}).
		AddRow("model-2", 2, types.JSONText(`{"bias":0.4}`), types.JSONText(`{}`), types.JSONText(`{}`), types.JSONText(`{"mae":0.12}`), 40, true, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM evaluator_models WHERE is_active = TRUE")).
		WillReturnRows(rows)

	model, err := repo.FindActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, model.Version)
	assert.True(t, model.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}
