package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-presensi-api/internal/models"
)

func newSessionMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSessionRepositoryExists(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("m1", 3).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.Exists(context.Background(), "m1", 3)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(sqlmock.AnyArg(), "m1", 3, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO session_windows").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 1, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	session := &models.Session{MeetingID: "m1", Week: 3, ScheduledEnd: now.Add(90 * time.Minute)}
	window := &models.SessionWindow{Ordinal: 1, StartsAt: now, EndsAt: now.Add(15 * time.Minute)}

	err := repo.Create(context.Background(), session, window)
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, session.ID, window.SessionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryCreateRollsBackOnWindowError(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(sqlmock.AnyArg(), "m1", 3, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO session_windows").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Session{MeetingID: "m1", Week: 3}, &models.SessionWindow{Ordinal: 1})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryFindDetail(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT id, meeting_id, week, scheduled_end, created_at FROM sessions").
		WithArgs("sess-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "meeting_id", "week", "scheduled_end", "created_at"}).
			AddRow("sess-1", "m1", 3, now.Add(90*time.Minute), now))
	mock.ExpectQuery("SELECT id, session_id, ordinal, starts_at, ends_at, created_at").
		WithArgs("sess-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "session_id", "ordinal", "starts_at", "ends_at", "created_at"}).
			AddRow("win-1", "sess-1", 1, now, now.Add(15*time.Minute), now).
			AddRow("win-2", "sess-1", 2, now.Add(45*time.Minute), now.Add(60*time.Minute), now))

	detail, err := repo.FindDetail(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", detail.ID)
	require.Len(t, detail.Windows, 2)
	assert.Equal(t, 1, detail.Windows[0].Ordinal)
	assert.Equal(t, now.Add(60*time.Minute), detail.LastWindowEnd())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryFindRecentlyExpired(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	from := time.Date(2026, 3, 2, 10, 55, 0, 0, time.UTC)
	to := from.Add(10 * time.Minute)
	lastEnd := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)

	mock.ExpectQuery("MAX\\(w.ends_at\\) AS last_window_end").
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "meeting_id", "week", "class_id", "course_name", "window_count", "last_window_end"}).
			AddRow("sess-1", "m1", 3, "c1", "Matematika", 2, lastEnd))

	summaries, err := repo.FindRecentlyExpired(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "sess-1", summaries[0].SessionID)
	assert.Equal(t, 2, summaries[0].WindowCount)
	assert.Equal(t, lastEnd, summaries[0].LastWindowEnd)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryAppendWindow(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec("INSERT INTO session_windows").
		WithArgs(sqlmock.AnyArg(), "sess-1", 2, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	window := &models.SessionWindow{SessionID: "sess-1", Ordinal: 2, StartsAt: time.Now(), EndsAt: time.Now().Add(15 * time.Minute)}
	err := repo.AppendWindow(context.Background(), window)
	require.NoError(t, err)
	assert.NotEmpty(t, window.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
