package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-presensi-api/internal/models"
)

// SessionRepository handles persistence for sessions and their scan windows.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Exists reports whether a session has already been opened for the meeting
// and week pair.
func (r *SessionRepository) Exists(ctx context.Context, meetingID string, week int) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM sessions WHERE meeting_id = $1 AND week = $2)`
	if err := r.db.GetContext(ctx, &exists, query, meetingID, week); err != nil {
		return false, fmt.Errorf("session exists: %w", err)
	}
	return exists, nil
}

// Create persists a session together with its first window in one
// transaction. The unique index on (meeting_id, week) backs the open-once
// invariant even when two openers race.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session, window *models.SessionWindow) error {
	now := time.Now().UTC()
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	window.SessionID = session.ID
	if window.ID == "" {
		window.ID = uuid.NewString()
	}
	if window.CreatedAt.IsZero() {
		window.CreatedAt = now
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create session: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	sessionQuery := `INSERT INTO sessions (id, meeting_id, week, scheduled_end, created_at)
VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(ctx, sessionQuery, session.ID, session.MeetingID, session.Week, session.ScheduledEnd, session.CreatedAt); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	windowQuery := `INSERT INTO session_windows (id, session_id, ordinal, starts_at, ends_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.ExecContext(ctx, windowQuery, window.ID, window.SessionID, window.Ordinal, window.StartsAt, window.EndsAt, window.CreatedAt); err != nil {
		return fmt.Errorf("insert session window: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create session: %w", err)
	}
	committed = true
	return nil
}

// FindDetail loads a session with its windows ordered by ordinal.
func (r *SessionRepository) FindDetail(ctx context.Context, id string) (*models.SessionDetail, error) {
	var session models.Session
	query := `SELECT id, meeting_id, week, scheduled_end, created_at FROM sessions WHERE id = $1`
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}

	var windows []models.SessionWindow
	windowQuery := `SELECT id, session_id, ordinal, starts_at, ends_at, created_at
FROM session_windows WHERE session_id = $1 ORDER BY ordinal ASC`
	if err := r.db.SelectContext(ctx, &windows, windowQuery, id); err != nil {
		return nil, fmt.Errorf("list session windows: %w", err)
	}

	return &models.SessionDetail{Session: session, Windows: windows}, nil
}

// FindWindow loads one scan window.
func (r *SessionRepository) FindWindow(ctx context.Context, windowID string) (*models.SessionWindow, error) {
	var window models.SessionWindow
	query := `SELECT id, session_id, ordinal, starts_at, ends_at, created_at
FROM session_windows WHERE id = $1`
	if err := r.db.GetContext(ctx, &window, query, windowID); err != nil {
		return nil, err
	}
	return &window, nil
}

// AppendWindow inserts an additional window. The unique index on
// (session_id, ordinal) rejects concurrent double appends.
func (r *SessionRepository) AppendWindow(ctx context.Context, window *models.SessionWindow) error {
	if window.ID == "" {
		window.ID = uuid.NewString()
	}
	if window.CreatedAt.IsZero() {
		window.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO session_windows (id, session_id, ordinal, starts_at, ends_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.db.ExecContext(ctx, query, window.ID, window.SessionID, window.Ordinal, window.StartsAt, window.EndsAt, window.CreatedAt); err != nil {
		return fmt.Errorf("append session window: %w", err)
	}
	return nil
}

// FindRecentlyExpired returns sessions whose final window ended inside
// [from, to), newest first. The query is read-only; repeated calls over
// overlapping ranges are expected and left to the deduplicator.
func (r *SessionRepository) FindRecentlyExpired(ctx context.Context, from, to time.Time) ([]models.SessionSummary, error) {
	query := `SELECT s.id AS session_id, s.meeting_id, s.week, m.class_id, m.course_name,
COUNT(w.id) AS window_count, MAX(w.ends_at) AS last_window_end
FROM sessions s
JOIN meetings m ON m.id = s.meeting_id
JOIN session_windows w ON w.session_id = s.id
GROUP BY s.id, s.meeting_id, s.week, m.class_id, m.course_name
HAVING MAX(w.ends_at) >= $1 AND MAX(w.ends_at) < $2
ORDER BY last_window_end DESC, session_id ASC`
	var summaries []models.SessionSummary
	if err := r.db.SelectContext(ctx, &summaries, query, from, to); err != nil {
		return nil, fmt.Errorf("find recently expired sessions: %w", err)
	}
	return summaries, nil
}

// ListElapsed returns a meeting's sessions whose final window ended before
// the given instant, oldest first. Used for cumulative standing.
func (r *SessionRepository) ListElapsed(ctx context.Context, meetingID string, before time.Time) ([]models.SessionSummary, error) {
	query := `SELECT s.id AS session_id, s.meeting_id, s.week, m.class_id, m.course_name,
COUNT(w.id) AS window_count, MAX(w.ends_at) AS last_window_end
FROM sessions s
JOIN meetings m ON m.id = s.meeting_id
JOIN session_windows w ON w.session_id = s.id
WHERE s.meeting_id = $1
GROUP BY s.id, s.meeting_id, s.week, m.class_id, m.course_name
HAVING MAX(w.ends_at) < $2
ORDER BY s.week ASC`
	var summaries []models.SessionSummary
	if err := r.db.SelectContext(ctx, &summaries, query, meetingID, before); err != nil {
		return nil, fmt.Errorf("list elapsed sessions: %w", err)
	}
	return summaries, nil
}
