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

func newReminderMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestReminderRepositoryExistsSuccessSince(t *testing.T) {
	db, mock, cleanup := newReminderMock(t)
	defer cleanup()
	repo := NewReminderRepository(db)

	cutoff := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("stu-1", "sess-1", models.TierAbsent, models.ReminderOutcomeSuccess, cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsSuccessSince(context.Background(), "stu-1", "sess-1", models.TierAbsent, cutoff)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReminderRepositoryInsert(t *testing.T) {
	db, mock, cleanup := newReminderMock(t)
	defer cleanup()
	repo := NewReminderRepository(db)

	mock.ExpectExec("INSERT INTO reminders").
		WithArgs(sqlmock.AnyArg(), "stu-1", "sess-1", models.TierPartial, models.ReminderOutcomeSuccess, nil, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	providerID := "prov-1"
	record := &models.ReminderRecord{
		StudentID:  "stu-1",
		SessionID:  "sess-1",
		Tier:       models.TierPartial,
		Outcome:    models.ReminderOutcomeSuccess,
		ProviderID: &providerID,
	}
	err := repo.Insert(context.Background(), record)
	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.False(t, record.SentAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReminderRepositoryInsertUnlessRecent(t *testing.T) {
	db, mock, cleanup := newReminderMock(t)
	defer cleanup()
	repo := NewReminderRepository(db)

	cutoff := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec("WHERE NOT EXISTS").
		WillReturnResult(sqlmock.NewResult(1, 1))

	inserted, err := repo.InsertUnlessRecent(context.Background(), &models.ReminderRecord{
		StudentID: "stu-1", SessionID: "sess-1", Tier: models.TierAbsent, Outcome: models.ReminderOutcomeSuccess,
	}, cutoff)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReminderRepositoryInsertUnlessRecentSuppressed(t *testing.T) {
	db, mock, cleanup := newReminderMock(t)
	defer cleanup()
	repo := NewReminderRepository(db)

	cutoff := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec("WHERE NOT EXISTS").
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := repo.InsertUnlessRecent(context.Background(), &models.ReminderRecord{
		StudentID: "stu-1", SessionID: "sess-1", Tier: models.TierAbsent, Outcome: models.ReminderOutcomeSuccess,
	}, cutoff)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReminderRepositoryList(t *testing.T) {
	db, mock, cleanup := newReminderMock(t)
	defer cleanup()
	repo := NewReminderRepository(db)

	now := time.Date(2026, 3, 2, 11, 5, 0, 0, time.UTC)
	mock.ExpectQuery("FROM reminders WHERE 1=1 AND student_id = \\$1").
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "session_id", "tier", "outcome", "error_message", "provider_id", "sent_at", "created_at"}).
			AddRow("rem-1", "stu-1", "sess-1", "absent", "success", nil, "prov-1", now, now))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM reminders").
		WithArgs("stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	records, total, err := repo.List(context.Background(), models.ReminderFilter{StudentID: "stu-1"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, models.ReminderOutcomeSuccess, records[0].Outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}
