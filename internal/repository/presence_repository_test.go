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

func newPresenceMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPresenceRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newPresenceMock(t)
	defer cleanup()
	repo := NewPresenceRepository(db)

	scannedAt := time.Date(2026, 3, 2, 10, 5, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO presence_events").
		WithArgs(sqlmock.AnyArg(), "stu-1", "win-1", scannedAt, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "window_id", "scanned_at", "created_at"}).
			AddRow("event-1", "stu-1", "win-1", scannedAt, scannedAt))

	stored, err := repo.Insert(context.Background(), &models.PresenceEvent{StudentID: "stu-1", WindowID: "win-1", ScannedAt: scannedAt})
	require.NoError(t, err)
	assert.Equal(t, "event-1", stored.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPresenceRepositoryInsertDuplicateReturnsExisting(t *testing.T) {
	db, mock, cleanup := newPresenceMock(t)
	defer cleanup()
	repo := NewPresenceRepository(db)

	firstScan := time.Date(2026, 3, 2, 10, 5, 0, 0, time.UTC)
	repeatScan := firstScan.Add(2 * time.Minute)

	// ON CONFLICT DO NOTHING yields no row for the repeat scan.
	mock.ExpectQuery("INSERT INTO presence_events").
		WithArgs(sqlmock.AnyArg(), "stu-1", "win-1", repeatScan, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "window_id", "scanned_at", "created_at"}))
	mock.ExpectQuery("SELECT id, student_id, window_id, scanned_at, created_at").
		WithArgs("stu-1", "win-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "window_id", "scanned_at", "created_at"}).
			AddRow("event-1", "stu-1", "win-1", firstScan, firstScan))

	stored, err := repo.Insert(context.Background(), &models.PresenceEvent{StudentID: "stu-1", WindowID: "win-1", ScannedAt: repeatScan})
	require.NoError(t, err)
	assert.Equal(t, "event-1", stored.ID)
	assert.Equal(t, firstScan, stored.ScannedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPresenceRepositoryDistinctWindows(t *testing.T) {
	db, mock, cleanup := newPresenceMock(t)
	defer cleanup()
	repo := NewPresenceRepository(db)

	mock.ExpectQuery("SELECT COUNT\\(DISTINCT w.ordinal\\)").
		WithArgs("sess-1", "stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.DistinctWindows(context.Background(), "sess-1", "stu-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPresenceRepositoryCountsBySession(t *testing.T) {
	db, mock, cleanup := newPresenceMock(t)
	defer cleanup()
	repo := NewPresenceRepository(db)

	mock.ExpectQuery("GROUP BY p.student_id").
		WithArgs("sess-1").
		WillReturnRows(sqlmock.NewRows([]string{"student_id", "windows_present"}).
			AddRow("stu-1", 2).
			AddRow("stu-2", 1))

	counts, err := repo.CountsBySession(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, "stu-1", counts[0].StudentID)
	assert.Equal(t, 2, counts[0].WindowsPresent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPresenceRepositoryCountsByMeeting(t *testing.T) {
	db, mock, cleanup := newPresenceMock(t)
	defer cleanup()
	repo := NewPresenceRepository(db)

	before := time.Date(2026, 3, 2, 11, 5, 0, 0, time.UTC)
	mock.ExpectQuery("FILTER \\(WHERE p.student_id IS NOT NULL\\)").
		WithArgs("m1", "stu-1", before).
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "windows_present"}).
			AddRow("sess-1", 2).
			AddRow("sess-2", 0))

	rows, err := repo.CountsByMeeting(context.Background(), "m1", "stu-1", before)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 0, rows[1].WindowsPresent)
	assert.NoError(t, mock.ExpectationsWereMet())
}
