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
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-app/scheduling-api/internal/models"
)

func newScheduleRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestScheduleRepositoryCreateVersioned(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	weekStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) + 1 FROM schedules WHERE child_id = $1 AND week_start = $2")).
		WithArgs("child-1", weekStart).
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(3))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedules")).
		WithArgs(sqlmock.AnyArg(), "child-1", weekStart, 3, true, "greedy", 1, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	payload := &models.Schedule{
		ChildID:          "child-1",
		WeekStart:        weekStart,
		GenerationMethod: "greedy",
		ParamsVersion:    1,
		Meta:             types.JSONText(`{"block_minutes":40}`),
	}
	err := repo.CreateVersioned(context.Background(), nil, payload)
	require.NoError(t, err)
	assert.Equal(t, 3, payload.Version)
	assert.True(t, payload.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCreateVersionedRace(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	weekStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(version), 0) + 1 FROM schedules")).
		WithArgs("child-1", weekStart).
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(2))

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedules")).
		WillReturnError(&pq.Error{Code: "23505"})

	payload := &models.Schedule{ChildID: "child-1", WeekStart: weekStart, GenerationMethod: "greedy"}
	err := repo.CreateVersioned(context.Background(), nil, payload)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositorySupersedeActive(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	weekStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedules SET is_active = FALSE, updated_at = $1 WHERE child_id = $2 AND week_start = $3 AND is_active = TRUE")).
		WithArgs(sqlmock.AnyArg(), "child-1", weekStart).
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := repo.SupersedeActive(context.Background(), nil, "child-1", weekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryFindActive(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	weekStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "child_id", "week_start", "version", "is_active", "generation_method", "params_version", "meta", "created_at", "updated_at"}).
		AddRow("sch-1", "child-1", weekStart, 2, true, "greedy", 1, types.JSONText(`{}`), time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedules WHERE child_id = $1 AND week_start = $2 AND is_active = TRUE")).
		WithArgs("child-1", weekStart).
		WillReturnRows(rows)

	schedule, err := repo.FindActive(context.Background(), "child-1", weekStart)
	require.NoError(t, err)
	assert.Equal(t, "sch-1", schedule.ID)
	assert.Equal(t, 2, schedule.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryFindActiveNotFound(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	weekStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM schedules WHERE child_id = $1 AND week_start = $2 AND is_active = TRUE")).
		WithArgs("child-9", weekStart).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindActive(context.Background(), "child-9", weekStart)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryInsertItems(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	subjectID := "subj-1"
	items := []models.ScheduleItem{
		{ScheduleID: "sch-1", Day: 1, ItemType: models.ItemTypeSubject, StartMinute: 540, EndMinute: 580, Label: "Math", SubjectID: &subjectID},
		{ScheduleID: "sch-1", Day: 1, ItemType: models.ItemTypeBreak, StartMinute: 580, EndMinute: 595, Label: "Break"},
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_items")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_items")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.InsertItems(context.Background(), nil, items)
	require.NoError(t, err)
	assert.NotEmpty(t, items[0].ID)
	assert.NotEmpty(t, items[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryMarkItemCompletedNotFound(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedule_items SET completed = TRUE, completed_at = $1 WHERE id = $2 AND superseded_by IS NULL")).
		WithArgs(sqlmock.AnyArg(), "item-9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkItemCompleted(context.Background(), "item-9", time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositorySupersedeItem(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedule_items SET superseded_by = $1 WHERE id = $2 AND superseded_by IS NULL")).
		WithArgs("item-2", "item-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SupersedeItem(context.Background(), nil, "item-1", "item-2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(sql.ErrNoRows))
	assert.False(t, IsUniqueViolation(nil))
}
