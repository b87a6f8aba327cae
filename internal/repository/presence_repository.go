package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-presensi-api/internal/models"
)

// PresenceRepository handles persistence for presence events.
type PresenceRepository struct {
	db *sqlx.DB
}

// NewPresenceRepository constructs the repository.
func NewPresenceRepository(db *sqlx.DB) *PresenceRepository {
	return &PresenceRepository{db: db}
}

// Insert appends a presence event. A repeat scan for the same (student,
// window) pair returns the existing row instead of a second one.
func (r *PresenceRepository) Insert(ctx context.Context, event *models.PresenceEvent) (*models.PresenceEvent, error) {
	now := time.Now().UTC()
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	query := `INSERT INTO presence_events (id, student_id, window_id, scanned_at, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (student_id, window_id) DO NOTHING
RETURNING id, student_id, window_id, scanned_at, created_at`
	var stored models.PresenceEvent
	err := r.db.GetContext(ctx, &stored, query, event.ID, event.StudentID, event.WindowID, event.ScannedAt, event.CreatedAt)
	if err == nil {
		return &stored, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("insert presence event: %w", err)
	}

	existing := `SELECT id, student_id, window_id, scanned_at, created_at
FROM presence_events WHERE student_id = $1 AND window_id = $2`
	if err := r.db.GetContext(ctx, &stored, existing, event.StudentID, event.WindowID); err != nil {
		return nil, fmt.Errorf("load existing presence event: %w", err)
	}
	return &stored, nil
}

// DistinctWindows counts in how many distinct windows of a session the
// student has at least one presence event.
func (r *PresenceRepository) DistinctWindows(ctx context.Context, sessionID, studentID string) (int, error) {
	query := `SELECT COUNT(DISTINCT w.ordinal)
FROM presence_events p
JOIN session_windows w ON w.id = p.window_id
WHERE w.session_id = $1 AND p.student_id = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, sessionID, studentID); err != nil {
		return 0, fmt.Errorf("count distinct windows: %w", err)
	}
	return count, nil
}

// CountsBySession returns per-student distinct-window counts for one
// session. Students without any scan do not appear.
func (r *PresenceRepository) CountsBySession(ctx context.Context, sessionID string) ([]models.PresenceCount, error) {
	query := `SELECT p.student_id, COUNT(DISTINCT w.ordinal) AS windows_present
FROM presence_events p
JOIN session_windows w ON w.id = p.window_id
WHERE w.session_id = $1
GROUP BY p.student_id`
	var counts []models.PresenceCount
	if err := r.db.SelectContext(ctx, &counts, query, sessionID); err != nil {
		return nil, fmt.Errorf("presence counts by session: %w", err)
	}
	return counts, nil
}

// CountsByMeeting returns, for each of a meeting's sessions fully elapsed
// before the given instant, the student's distinct-window count, zero
// included. Feeds cumulative standing.
func (r *PresenceRepository) CountsByMeeting(ctx context.Context, meetingID, studentID string, before time.Time) ([]models.SessionPresence, error) {
	query := `SELECT s.id AS session_id,
COUNT(DISTINCT w.ordinal) FILTER (WHERE p.student_id IS NOT NULL) AS windows_present
FROM sessions s
JOIN session_windows w ON w.session_id = s.id
LEFT JOIN presence_events p ON p.window_id = w.id AND p.student_id = $2
WHERE s.meeting_id = $1
GROUP BY s.id
HAVING MAX(w.ends_at) < $3
ORDER BY s.id`
	var rows []models.SessionPresence
	if err := r.db.SelectContext(ctx, &rows, query, meetingID, studentID, before); err != nil {
		return nil, fmt.Errorf("presence counts by meeting: %w", err)
	}
	return rows, nil
}
