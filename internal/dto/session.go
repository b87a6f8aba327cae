package dto

import (
	"time"

	"github.com/noah-isme/sma-presensi-api/internal/models"
)

// SessionResponse is the API shape for a session with its windows.
type SessionResponse struct {
	ID           string           `json:"id"`
	MeetingID    string           `json:"meeting_id"`
	Week         int              `json:"week"`
	ScheduledEnd time.Time        `json:"scheduled_end"`
	Windows      []WindowResponse `json:"windows"`
}

// WindowResponse is the API shape for one scan window.
type WindowResponse struct {
	ID       string    `json:"id"`
	Ordinal  int       `json:"ordinal"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

// NewSessionResponse maps a session detail onto the API shape.
func NewSessionResponse(detail *models.SessionDetail) SessionResponse {
	windows := make([]WindowResponse, 0, len(detail.Windows))
	for _, w := range detail.Windows {
		windows = append(windows, WindowResponse{ID: w.ID, Ordinal: w.Ordinal, StartsAt: w.StartsAt, EndsAt: w.EndsAt})
	}
	return SessionResponse{
		ID:           detail.ID,
		MeetingID:    detail.MeetingID,
		Week:         detail.Week,
		ScheduledEnd: detail.ScheduledEnd,
		Windows:      windows,
	}
}

// ScanResponse acknowledges a recorded presence event.
type ScanResponse struct {
	EventID   string    `json:"event_id"`
	StudentID string    `json:"student_id"`
	WindowID  string    `json:"window_id"`
	ScannedAt time.Time `json:"scanned_at"`
}
