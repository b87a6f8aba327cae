package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-presensi-api/internal/models"
)

// ReminderRepository handles the append-only reminder dispatch log.
type ReminderRepository struct {
	db *sqlx.DB
}

// NewReminderRepository constructs the repository.
func NewReminderRepository(db *sqlx.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// ExistsSuccessSince reports whether a successful reminder for the exact
// (student, session, tier) tuple was sent at or after the cutoff. Failed
// attempts never suppress a retry.
func (r *ReminderRepository) ExistsSuccessSince(ctx context.Context, studentID, sessionID string, tier models.AttendanceTier, cutoff time.Time) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (
SELECT 1 FROM reminders
WHERE student_id = $1 AND session_id = $2 AND tier = $3 AND outcome = $4 AND sent_at >= $5)`
	if err := r.db.GetContext(ctx, &exists, query, studentID, sessionID, tier, models.ReminderOutcomeSuccess, cutoff); err != nil {
		return false, fmt.Errorf("reminder exists: %w", err)
	}
	return exists, nil
}

// Insert appends one reminder record. Rows are never updated afterwards.
func (r *ReminderRepository) Insert(ctx context.Context, record *models.ReminderRecord) error {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.SentAt.IsZero() {
		record.SentAt = now
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	query := `INSERT INTO reminders (id, student_id, session_id, tier, outcome, error_message, provider_id, sent_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := r.db.ExecContext(ctx, query, record.ID, record.StudentID, record.SessionID, record.Tier, record.Outcome, record.ErrorMessage, record.ProviderID, record.SentAt, record.CreatedAt); err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}
	return nil
}

// InsertUnlessRecent appends a success record only when no success row for
// the same tuple exists inside the cooldown window. The conditional insert
// runs as a single statement so concurrent dispatchers cannot both record.
// Returns false when the record was suppressed.
func (r *ReminderRepository) InsertUnlessRecent(ctx context.Context, record *models.ReminderRecord, cutoff time.Time) (bool, error) {
	now := time.Now().UTC()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.SentAt.IsZero() {
		record.SentAt = now
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	query := `INSERT INTO reminders (id, student_id, session_id, tier, outcome, error_message, provider_id, sent_at, created_at)
SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9
WHERE NOT EXISTS (
SELECT 1 FROM reminders
WHERE student_id = $2 AND session_id = $3 AND tier = $4 AND outcome = $5 AND sent_at >= $10)`
	res, err := r.db.ExecContext(ctx, query, record.ID, record.StudentID, record.SessionID, record.Tier, record.Outcome, record.ErrorMessage, record.ProviderID, record.SentAt, record.CreatedAt, cutoff)
	if err != nil {
		return false, fmt.Errorf("conditional insert reminder: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("conditional insert reminder: %w", err)
	}
	return affected > 0, nil
}

// List returns reminder records matching the filter, newest first.
func (r *ReminderRepository) List(ctx context.Context, filter models.ReminderFilter) ([]models.ReminderRecord, int, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if filter.StudentID != "" {
		where = append(where, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.SessionID != "" {
		where = append(where, fmt.Sprintf("session_id = $%d", len(args)+1))
		args = append(args, filter.SessionID)
	}
	if filter.Outcome != nil && filter.Outcome.Valid() {
		where = append(where, fmt.Sprintf("outcome = $%d", len(args)+1))
		args = append(args, *filter.Outcome)
	}
	if filter.From != nil {
		where = append(where, fmt.Sprintf("sent_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		where = append(where, fmt.Sprintf("sent_at <= $%d", len(args)+1))
		args = append(args, *filter.To)
	}
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, student_id, session_id, tier, outcome, error_message, provider_id, sent_at, created_at
FROM reminders WHERE %s
ORDER BY sent_at DESC
LIMIT %d OFFSET %d`, whereClause, size, offset)

	var rows []models.ReminderRecord
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reminders: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM reminders WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count reminders: %w", err)
	}
	return rows, total, nil
}
