package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-presensi-api/internal/models"
)

// MeetingRepository handles persistence for recurring course meetings.
type MeetingRepository struct {
	db *sqlx.DB
}

// NewMeetingRepository constructs the repository.
func NewMeetingRepository(db *sqlx.DB) *MeetingRepository {
	return &MeetingRepository{db: db}
}

// FindByID loads a meeting.
func (r *MeetingRepository) FindByID(ctx context.Context, id string) (*models.Meeting, error) {
	var meeting models.Meeting
	query := `SELECT id, class_id, course_name, slot_minutes, created_at FROM meetings WHERE id = $1`
	if err := r.db.GetContext(ctx, &meeting, query, id); err != nil {
		return nil, err
	}
	return &meeting, nil
}

// Create persists a meeting.
func (r *MeetingRepository) Create(ctx context.Context, meeting *models.Meeting) error {
	if meeting.ID == "" {
		meeting.ID = uuid.NewString()
	}
	if meeting.CreatedAt.IsZero() {
		meeting.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO meetings (id, class_id, course_name, slot_minutes, created_at)
VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, meeting.ID, meeting.ClassID, meeting.CourseName, meeting.SlotMinutes, meeting.CreatedAt); err != nil {
		return fmt.Errorf("create meeting: %w", err)
	}
	return nil
}
